package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockAlert reactivo en o bajo su umbral de reposición.
type LowStockAlert struct {
	ReagentID     string          `json:"reagent_id"`
	Name          string          `json:"name"`
	Reference     string          `json:"reference"`
	Sector        string          `json:"sector"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	MinimumStock  decimal.Decimal `json:"minimum_stock"`
	Unit          string          `json:"unit"`
}

// ExpiryAlert lote activo que caduca dentro de la ventana configurada.
type ExpiryAlert struct {
	LotID         string          `json:"lot_id"`
	ReagentID     string          `json:"reagent_id"`
	ReagentName   string          `json:"reagent_name"`
	LotNumber     string          `json:"lot_number"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	DaysRemaining int             `json:"days_remaining"` // negativo si ya caducó
}

// AlertDigest resumen de alertas de stock bajo y caducidades.
type AlertDigest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	WindowDays  int             `json:"window_days"`
	LowStock    []LowStockAlert `json:"low_stock"`
	Expiring    []ExpiryAlert   `json:"expiring"`
}

// Empty indica si el digest no tiene nada que notificar.
func (d *AlertDigest) Empty() bool {
	return len(d.LowStock) == 0 && len(d.Expiring) == 0
}
