package repository

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

// ReagentRepository define el puerto de persistencia para Reagent (DIP).
// Los métodos Get* devuelven (nil, nil) cuando el registro no existe.
type ReagentRepository interface {
	Create(reagent *entity.Reagent) error
	GetByID(id string) (*entity.Reagent, error)
	// GetActiveByID devuelve el reactivo solo si está activo.
	GetActiveByID(id string) (*entity.Reagent, error)
	// GetForUpdate bloquea la fila del reactivo (SELECT FOR UPDATE) durante
	// la transacción en curso. Serializa crear-vs-incrementar de lotes y la
	// cascada de borrado.
	GetForUpdate(id string) (*entity.Reagent, error)
	List(onlyActive bool, limit, offset int) ([]*entity.Reagent, error)
	Update(reagent *entity.Reagent) error
	// UpdateTotalQuantity escribe el agregado derivado. Solo el motor de
	// stock debe llamarlo, dentro de la misma transacción que mutó los lotes.
	UpdateTotalQuantity(id string, total decimal.Decimal) error
	SoftDelete(id string) error
	// ListBelowMinimum lista reactivos activos con TotalQuantity <= MinimumStock.
	ListBelowMinimum() ([]*entity.Reagent, error)
}
