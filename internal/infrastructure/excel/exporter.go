// Package excel construye el libro .xlsx del inventario con excelize.
package excel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	appexport "github.com/jhoicas/LabStock-api/internal/application/export"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

var _ appexport.WorkbookBuilder = (*WorkbookBuilder)(nil)

const (
	sheetReagents  = "Reactivos"
	sheetLots      = "Lotes"
	sheetMovements = "Movimientos"
)

// WorkbookBuilder implementa export.WorkbookBuilder usando excelize.
type WorkbookBuilder struct{}

// NewWorkbookBuilder construye el builder.
func NewWorkbookBuilder() *WorkbookBuilder { return &WorkbookBuilder{} }

// Build genera el libro con tres hojas: reactivos, lotes activos y movimientos.
func (b *WorkbookBuilder) Build(snapshot *appexport.InventorySnapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := b.writeReagents(f, snapshot.Reagents); err != nil {
		return nil, err
	}
	if err := b.writeLots(f, snapshot); err != nil {
		return nil, err
	}
	if err := b.writeMovements(f, snapshot.Movements); err != nil {
		return nil, err
	}

	// excelize crea "Sheet1" por defecto; se reemplaza por las hojas propias
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("excel: eliminar hoja por defecto: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel: escribir libro: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func (b *WorkbookBuilder) writeReagents(f *excelize.File, reagents []*entity.Reagent) error {
	if _, err := f.NewSheet(sheetReagents); err != nil {
		return fmt.Errorf("excel: crear hoja reactivos: %w", err)
	}
	headers := []any{"Nombre", "Referencia", "Proveedor", "Categoría", "Unidad",
		"Ubicación", "Temperatura", "Sector", "Equipo", "Stock mínimo", "Stock total"}
	if err := setRow(f, sheetReagents, 1, headers); err != nil {
		return err
	}
	for i, r := range reagents {
		row := []any{r.Name, r.Reference, r.Supplier, r.Category, r.Unit,
			r.StorageLocation, r.StorageTemperature, r.Sector, r.Machine,
			r.MinimumStock.String(), r.TotalQuantity.String()}
		if err := setRow(f, sheetReagents, i+2, row); err != nil {
			return fmt.Errorf("excel: fila reactivo: %w", err)
		}
	}
	return nil
}

func (b *WorkbookBuilder) writeLots(f *excelize.File, snapshot *appexport.InventorySnapshot) error {
	if _, err := f.NewSheet(sheetLots); err != nil {
		return fmt.Errorf("excel: crear hoja lotes: %w", err)
	}
	headers := []any{"Reactivo", "Número de lote", "Cantidad", "Recepción", "Caducidad"}
	if err := setRow(f, sheetLots, 1, headers); err != nil {
		return err
	}
	rowNo := 2
	for _, r := range snapshot.Reagents {
		for _, l := range snapshot.Lots[r.ID] {
			row := []any{r.Name, l.LotNumber, l.Quantity.String(),
				formatDate(l.DateOfReception), formatDate(l.ExpiryDate)}
			if err := setRow(f, sheetLots, rowNo, row); err != nil {
				return fmt.Errorf("excel: fila lote: %w", err)
			}
			rowNo++
		}
	}
	return nil
}

func (b *WorkbookBuilder) writeMovements(f *excelize.File, movements []*entity.StockMovement) error {
	if _, err := f.NewSheet(sheetMovements); err != nil {
		return fmt.Errorf("excel: crear hoja movimientos: %w", err)
	}
	headers := []any{"Fecha", "Tipo", "Cantidad", "Antes", "Después", "Lote", "Usuario", "Notas"}
	if err := setRow(f, sheetMovements, 1, headers); err != nil {
		return err
	}
	for i, m := range movements {
		lotID := ""
		if m.LotID != nil {
			lotID = *m.LotID
		}
		row := []any{m.PerformedAt.Format("2006-01-02 15:04"), m.Type,
			m.Quantity.String(), m.QuantityBefore.String(), m.QuantityAfter.String(),
			lotID, m.PerformedBy, m.Notes}
		if err := setRow(f, sheetMovements, i+2, row); err != nil {
			return fmt.Errorf("excel: fila movimiento: %w", err)
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
