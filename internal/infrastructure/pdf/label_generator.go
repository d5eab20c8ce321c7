// Package pdf genera la hoja de etiquetas de lotes con Maroto v2.
//
// Cada etiqueta lleva el nombre del reactivo, el número de lote, las fechas
// de recepción y caducidad, y un QR con el ID del lote para escanearlo en
// la operación de salida.
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appexport "github.com/jhoicas/LabStock-api/internal/application/export"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ appexport.LabelPDFGenerator = (*MarotoLabelGenerator)(nil)

// MarotoLabelGenerator implementa export.LabelPDFGenerator usando Maroto v2.
type MarotoLabelGenerator struct{}

// NewMarotoLabelGenerator construye el generador.
func NewMarotoLabelGenerator() *MarotoLabelGenerator { return &MarotoLabelGenerator{} }

// GenerateLotLabels genera la hoja de etiquetas y devuelve sus bytes.
func (g *MarotoLabelGenerator) GenerateLotLabels(reagent *entity.Reagent, lots []*entity.Lot) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Etiquetas de lotes: "+reagent.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(reagent))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	for _, lot := range lots {
		m.AddRows(labelRow(reagent, lot))
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar etiquetas: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRow: nombre del reactivo + referencia y condiciones de almacenamiento.
func headerRow(reagent *entity.Reagent) core.Row {
	storage := reagent.StorageLocation
	if reagent.StorageTemperature != "" {
		storage += "  |  " + reagent.StorageTemperature
	}
	return row.New(16).Add(
		col.New(8).Add(
			text.New(reagent.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Ref: "+reagent.Reference, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New(storage, props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New("Unidad: "+reagent.Unit, props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

// labelRow: una etiqueta por lote, con QR a la derecha.
func labelRow(reagent *entity.Reagent, lot *entity.Lot) core.Row {
	return row.New(34).Add(
		col.New(8).Add(
			text.New("Lote "+lot.LotNumber, props.Text{
				Style: fontstyle.Bold, Size: 12, Top: 2,
			}),
			text.New("Recepción: "+dateOrDash(lot.DateOfReception), props.Text{
				Size: 9, Top: 11, Color: colorGray,
			}),
			text.New("Caducidad: "+dateOrDash(lot.ExpiryDate), props.Text{
				Size: 9, Top: 17, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Cantidad: %s %s", lot.Quantity.String(), reagent.Unit), props.Text{
				Size: 9, Top: 23,
			}),
		),
		col.New(4).Add(code.NewQr(lot.ID, props.Rect{
			Percent: 90,
			Center:  true,
		})),
	)
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
