package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementTypeIn         = "in"         // entrada
	MovementTypeOut        = "out"        // salida
	MovementTypeAdjustment = "adjustment" // ajuste administrativo (ej. baja de lote con resto)
	MovementTypeExpired    = "expired"    // baja por caducidad
	MovementTypeDamaged    = "damaged"    // baja por daño
)

// ValidMovementType indica si el tipo pertenece al catálogo de movimientos.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment, MovementTypeExpired, MovementTypeDamaged:
		return true
	}
	return false
}

// StockMovement representa un cambio de cantidad aplicado a un lote.
// Es inmutable una vez escrito: el repositorio solo expone Create y lecturas.
// QuantityBefore/QuantityAfter son instantáneas de la cantidad DEL LOTE (no
// del reactivo); reproducir todos los movimientos de un lote en orden de
// PerformedAt debe reconstruir su cantidad actual.
type StockMovement struct {
	ID             string
	LotID          *string // nullable: se conserva el historial aunque el lote desaparezca
	ReagentID      string
	Type           string          // in, out, adjustment, expired, damaged
	Quantity       decimal.Decimal // delta con signo: positivo entrada, negativo salida
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal
	PerformedBy    string // UserID
	PerformedAt    time.Time
	Notes          string
}

// Consistent verifica el invariante QuantityAfter = QuantityBefore + Quantity
// y QuantityAfter >= 0. Un movimiento inconsistente es un bug del caller,
// nunca una condición de runtime recuperable.
func (m *StockMovement) Consistent() bool {
	return m.QuantityBefore.Add(m.Quantity).Equal(m.QuantityAfter) &&
		m.QuantityAfter.GreaterThanOrEqual(decimal.Zero)
}
