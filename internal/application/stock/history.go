package stock

import (
	"context"

	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// History devuelve el historial de movimientos de un reactivo, más reciente
// primero. Consulta de solo lectura fuera de transacción: los consumidores
// (UI, exportes) solo necesitan consistencia de snapshot, no bloqueos.
func (uc *StockUseCase) History(ctx context.Context, reagentID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if reagentID == "" {
		return nil, domain.ErrInvalidInput
	}
	reagent, err := uc.reagentRepo.GetByID(reagentID)
	if err != nil {
		return nil, err
	}
	if reagent == nil {
		return nil, domain.ErrNotFound
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.movRepo.ListByReagent(reagentID, filter)
}

// LotHistory devuelve los movimientos de un lote en orden de replay
// (PerformedAt ascendente).
func (uc *StockUseCase) LotHistory(ctx context.Context, lotID string) ([]*entity.StockMovement, error) {
	if lotID == "" {
		return nil, domain.ErrInvalidInput
	}
	lot, err := uc.lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return uc.movRepo.ListByLot(lotID)
}
