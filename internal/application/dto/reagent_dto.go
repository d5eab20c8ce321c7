package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateReagentRequest body para POST /api/reagents. Crear un reactivo nunca
// toca cantidades: el stock solo se mueve por las operaciones del motor.
type CreateReagentRequest struct {
	Name               string          `json:"name"`
	Reference          string          `json:"reference"`
	Supplier           string          `json:"supplier"`
	Category           string          `json:"category"`
	Unit               string          `json:"unit"`
	StorageLocation    string          `json:"storage_location"`
	StorageTemperature string          `json:"storage_temperature"`
	Sector             string          `json:"sector"`
	Machine            string          `json:"machine"`
	MinimumStock       decimal.Decimal `json:"minimum_stock"`
}

// UpdateReagentRequest body para PUT /api/reagents/:id. Solo campos
// descriptivos y umbral; TotalQuantity no es editable por esta vía.
type UpdateReagentRequest struct {
	Name               string          `json:"name"`
	Reference          string          `json:"reference"`
	Supplier           string          `json:"supplier"`
	Category           string          `json:"category"`
	Unit               string          `json:"unit"`
	StorageLocation    string          `json:"storage_location"`
	StorageTemperature string          `json:"storage_temperature"`
	Sector             string          `json:"sector"`
	Machine            string          `json:"machine"`
	MinimumStock       decimal.Decimal `json:"minimum_stock"`
}

// ReagentResponse reactivo para respuestas de API.
type ReagentResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Reference          string          `json:"reference"`
	Supplier           string          `json:"supplier"`
	Category           string          `json:"category"`
	Unit               string          `json:"unit"`
	StorageLocation    string          `json:"storage_location"`
	StorageTemperature string          `json:"storage_temperature"`
	Sector             string          `json:"sector"`
	Machine            string          `json:"machine"`
	MinimumStock       decimal.Decimal `json:"minimum_stock"`
	TotalQuantity      decimal.Decimal `json:"total_quantity"`
	BelowMinimum       bool            `json:"below_minimum"`
	CreatedAt          time.Time       `json:"created_at"`
}

// LotResponse lote para respuestas de API. ShelfLifeDays es derivado.
type LotResponse struct {
	ID              string          `json:"id"`
	ReagentID       string          `json:"reagent_id"`
	LotNumber       string          `json:"lot_number"`
	Quantity        decimal.Decimal `json:"quantity"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	DateOfReception *time.Time      `json:"date_of_reception,omitempty"`
	ShelfLifeDays   int             `json:"shelf_life_days"`
	IsActive        bool            `json:"is_active"`
}
