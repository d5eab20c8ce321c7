package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockInRequest body para POST /api/stock/in.
// ExpiryDate y DateOfReception son obligatorios solo si el par
// (reagent_id, lot_number) no corresponde a un lote activo existente.
type StockInRequest struct {
	ReagentID       string          `json:"reagent_id"`
	LotNumber       string          `json:"lot_number"`
	Quantity        decimal.Decimal `json:"quantity"` // entero positivo
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	DateOfReception *time.Time      `json:"date_of_reception,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// StockInResponse lote resultante y si fue creado o incrementado.
type StockInResponse struct {
	Lot    LotResponse `json:"lot"`
	Action string      `json:"action"` // "created" | "incremented"
}

// StockOutRequest body para POST /api/stock/out.
type StockOutRequest struct {
	LotID    string          `json:"lot_id"`
	Quantity decimal.Decimal `json:"quantity"` // entero positivo, <= stock del lote
	Notes    string          `json:"notes,omitempty"`
}

// DeleteLotRequest body opcional para DELETE /api/lots/:id.
// Reason etiqueta el movimiento de ajuste que pone el lote a cero cuando
// queda stock residual: adjustment (defecto), expired o damaged.
type DeleteLotRequest struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// MovementResponse movimiento del historial.
type MovementResponse struct {
	ID             string          `json:"id"`
	LotID          *string         `json:"lot_id,omitempty"`
	ReagentID      string          `json:"reagent_id"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	PerformedBy    string          `json:"performed_by"`
	PerformedAt    time.Time       `json:"performed_at"`
	Notes          string          `json:"notes,omitempty"`
}

// HistoryQuery filtros query-string para GET /api/reagents/:id/history.
type HistoryQuery struct {
	Type   string     `query:"type"`
	LotID  string     `query:"lot_id"`
	From   *time.Time `query:"from"`
	To     *time.Time `query:"to"`
	Limit  int        `query:"limit"`
	Offset int        `query:"offset"`
}
