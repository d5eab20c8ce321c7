package stock

import (
	"context"

	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad para el motor de stock:
// la mutación del lote, el movimiento del libro y el recálculo del agregado
// del reactivo se confirman o se revierten juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		reagentRepo repository.ReagentRepository,
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}
