package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para Lot (DIP).
// Los métodos Get*/Find* devuelven (nil, nil) cuando el lote no existe.
type LotRepository interface {
	Create(lot *entity.Lot) error
	GetByID(id string) (*entity.Lot, error)
	// GetForUpdate bloquea la fila del lote (SELECT FOR UPDATE) para evitar
	// que dos salidas concurrentes sobre el mismo lote sobregiren el stock.
	GetForUpdate(id string) (*entity.Lot, error)
	// FindActiveByNumber busca un lote activo por (reactivo, número de lote),
	// comparación case-sensitive. Decide crear-vs-incrementar en las entradas.
	FindActiveByNumber(reagentID, lotNumber string) (*entity.Lot, error)
	FindActiveByNumberForUpdate(reagentID, lotNumber string) (*entity.Lot, error)
	ListActiveByReagent(reagentID string) ([]*entity.Lot, error)
	// ListActiveByReagentForUpdate bloquea todos los lotes activos del
	// reactivo; usado por la cascada de borrado de reactivo.
	ListActiveByReagentForUpdate(reagentID string) ([]*entity.Lot, error)
	// ListExpiringBefore lista lotes activos con caducidad anterior al corte
	// (lector del digest de alertas).
	ListExpiringBefore(cutoff time.Time) ([]*entity.Lot, error)
	// SumActiveByReagent suma las cantidades de los lotes activos del
	// reactivo. El agregado se recalcula siempre por sumatoria, nunca por
	// incremento de delta, para que interleavings entre lotes distintos sean
	// autocorrectivos.
	SumActiveByReagent(reagentID string) (decimal.Decimal, error)
	UpdateQuantity(lot *entity.Lot) error
	SoftDelete(id string) error
}
