package repository

import (
	"time"

	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

// MovementFilter filtros opcionales para el historial de movimientos.
type MovementFilter struct {
	Type   string // vacío = todos
	LotID  string // vacío = todos los lotes del reactivo
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// StockMovementRepository define el puerto de persistencia para el libro de
// movimientos. Es append-only: no existen métodos de actualización ni borrado;
// las correcciones se registran como movimientos nuevos.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	// ListByReagent devuelve el historial del reactivo, más reciente primero.
	ListByReagent(reagentID string, filter MovementFilter) ([]*entity.StockMovement, error)
	// ListByLot devuelve los movimientos de un lote en orden de PerformedAt
	// ascendente (orden de replay).
	ListByLot(lotID string) ([]*entity.StockMovement, error)
}
