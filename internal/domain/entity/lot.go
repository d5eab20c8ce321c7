package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot representa un lote físico recibido de un reactivo.
// Un lote se crea en la primera entrada para un par (reactivo, número de lote);
// entradas posteriores con el mismo par incrementan el lote existente.
// ExpiryDate y DateOfReception quedan fijados por la primera entrada: un lote
// es una única partida física con una única caducidad, las entradas siguientes
// son "más de la misma partida".
type Lot struct {
	ID              string
	ReagentID       string
	LotNumber       string // provisto por el usuario, único por reactivo activo (case-sensitive)
	Quantity        decimal.Decimal // stock actual de esta partida, nunca negativo
	ExpiryDate      *time.Time
	DateOfReception *time.Time
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ShelfLifeDays devuelve los días restantes hasta la caducidad, redondeados
// hacia abajo. Negativo si el lote ya caducó; 0 si no tiene fecha de caducidad.
// Valor informativo, derivado; no se persiste.
func (l *Lot) ShelfLifeDays(now time.Time) int {
	if l.ExpiryDate == nil {
		return 0
	}
	return int(l.ExpiryDate.Sub(now).Hours() / 24)
}

// Expired indica si el lote ya pasó su fecha de caducidad.
func (l *Lot) Expired(now time.Time) bool {
	return l.ExpiryDate != nil && l.ExpiryDate.Before(now)
}
