package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reagent representa un reactivo de laboratorio (ítem de catálogo).
// TotalQuantity es un valor derivado: siempre igual a la suma de las
// cantidades de sus lotes activos. Solo el motor de stock lo escribe,
// recalculando por sumatoria dentro de la misma transacción que muta el lote.
type Reagent struct {
	ID                 string
	Name               string
	Reference          string // referencia del proveedor
	Supplier           string
	Category           string
	Unit               string // unidad de medida: test, mL, caja...
	StorageLocation    string
	StorageTemperature string // ej. "2-8°C", "-20°C", "ambiente"
	Sector             string // sector del laboratorio (hematología, bioquímica...)
	Machine            string // equipo que consume el reactivo
	MinimumStock       decimal.Decimal // umbral de reposición
	TotalQuantity      decimal.Decimal // derivado: Σ lotes activos
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// BelowMinimum indica si el stock agregado está en o bajo el umbral de reposición.
func (r *Reagent) BelowMinimum() bool {
	return r.TotalQuantity.LessThanOrEqual(r.MinimumStock)
}
