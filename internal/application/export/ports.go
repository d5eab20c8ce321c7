package export

import (
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

// InventorySnapshot datos leídos del modelo de consulta para un exporte.
// Lecturas de snapshot: el exporte debe tolerar correr contra un libro vivo.
type InventorySnapshot struct {
	Reagents  []*entity.Reagent
	Lots      map[string][]*entity.Lot // por reactivo
	Movements []*entity.StockMovement  // historial completo, más reciente primero
}

// WorkbookBuilder construye el libro Excel del inventario.
// Implementación excelize en infrastructure/excel.
type WorkbookBuilder interface {
	Build(snapshot *InventorySnapshot) ([]byte, error)
}

// LabelPDFGenerator genera la hoja PDF de etiquetas de lotes (con QR).
// Implementación maroto en infrastructure/pdf.
type LabelPDFGenerator interface {
	GenerateLotLabels(reagent *entity.Reagent, lots []*entity.Lot) ([]byte, error)
}
