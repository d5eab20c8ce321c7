package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// Resultado de una entrada: lote nuevo o lote existente incrementado.
const (
	ActionCreated     = "created"
	ActionIncremented = "incremented"
)

// StockUseCase es la fachada de operaciones de stock: el único punto de
// entrada que muta lotes, libro de movimientos y agregado del reactivo.
// Cada operación es una transacción (bloqueo de fila con SELECT FOR UPDATE
// sobre el lote/reactivo) con Commit o Rollback; ninguna falla deja estado
// parcial visible. Las cantidades de lote y reactivo nunca se cachean en
// proceso: la fila de la BD es la única fuente compartida.
type StockUseCase struct {
	txRunner    TxRunner
	reagentRepo repository.ReagentRepository
	lotRepo     repository.LotRepository
	movRepo     repository.StockMovementRepository
}

// NewStockUseCase construye la fachada. reagentRepo/lotRepo/movRepo se usan
// solo para lecturas fuera de transacción (historial, validación temprana).
func NewStockUseCase(
	txRunner TxRunner,
	reagentRepo repository.ReagentRepository,
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
) *StockUseCase {
	return &StockUseCase{
		txRunner:    txRunner,
		reagentRepo: reagentRepo,
		lotRepo:     lotRepo,
		movRepo:     movRepo,
	}
}

// StockInInput entrada para registrar una entrada de stock.
// ExpiryDate/DateOfReception son obligatorios solo para lotes nuevos.
type StockInInput struct {
	ReagentID       string
	LotNumber       string
	Quantity        decimal.Decimal
	ExpiryDate      *time.Time
	DateOfReception *time.Time
	UserID          string
	Notes           string
}

// StockOutInput entrada para registrar una salida de stock.
type StockOutInput struct {
	LotID    string
	Quantity decimal.Decimal
	UserID   string
	Notes    string
}

// validQuantity exige entero estrictamente positivo (las cantidades viajan
// como decimal pero el dominio solo admite enteros).
func validQuantity(q decimal.Decimal) bool {
	return q.IsInteger() && q.IsPositive()
}

// StockIn registra una entrada. Si no existe un lote activo con ese
// (reactivo, número de lote) crea uno nuevo — exigiendo caducidad y fecha de
// recepción —; si existe, incrementa su cantidad sin sobrescribir sus fechas:
// el lote es una única partida física y los valores de la primera entrada son
// autoritativos. Devuelve el lote resultante y ActionCreated/ActionIncremented.
func (uc *StockUseCase) StockIn(ctx context.Context, input StockInInput) (*entity.Lot, string, error) {
	if input.ReagentID == "" || input.LotNumber == "" {
		return nil, "", domain.ErrInvalidInput
	}
	if !validQuantity(input.Quantity) {
		return nil, "", domain.ErrInvalidQuantity
	}

	var (
		resultLot *entity.Lot
		action    string
	)
	err := uc.txRunner.Run(ctx, func(
		reagentRepo repository.ReagentRepository,
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		// Bloquea la fila del reactivo: serializa crear-vs-incrementar para
		// el mismo número de lote y el recálculo del agregado.
		reagent, err := reagentRepo.GetForUpdate(input.ReagentID)
		if err != nil {
			return err
		}
		if reagent == nil || !reagent.IsActive {
			return domain.ErrNotFound
		}

		now := time.Now()
		existing, err := lotRepo.FindActiveByNumberForUpdate(input.ReagentID, input.LotNumber)
		if err != nil {
			return err
		}

		var quantityBefore decimal.Decimal
		if existing == nil {
			if input.ExpiryDate == nil || input.DateOfReception == nil {
				return domain.ErrMissingLotMetadata
			}
			quantityBefore = decimal.Zero
			lot := &entity.Lot{
				ID:              uuid.New().String(),
				ReagentID:       input.ReagentID,
				LotNumber:       input.LotNumber,
				Quantity:        input.Quantity,
				ExpiryDate:      input.ExpiryDate,
				DateOfReception: input.DateOfReception,
				IsActive:        true,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := lotRepo.Create(lot); err != nil {
				return err
			}
			resultLot = lot
			action = ActionCreated
		} else {
			quantityBefore = existing.Quantity
			existing.Quantity = existing.Quantity.Add(input.Quantity)
			existing.UpdatedAt = now
			if err := lotRepo.UpdateQuantity(existing); err != nil {
				return err
			}
			resultLot = existing
			action = ActionIncremented
		}

		lotID := resultLot.ID
		mov := &entity.StockMovement{
			ID:             uuid.New().String(),
			LotID:          &lotID,
			ReagentID:      input.ReagentID,
			Type:           entity.MovementTypeIn,
			Quantity:       input.Quantity,
			QuantityBefore: quantityBefore,
			QuantityAfter:  resultLot.Quantity,
			PerformedBy:    input.UserID,
			PerformedAt:    now,
			Notes:          input.Notes,
		}
		if err := movRepo.Create(mov); err != nil {
			return err
		}
		return recomputeTotal(reagentRepo, lotRepo, input.ReagentID)
	})
	if err != nil {
		return nil, "", err
	}
	return resultLot, action, nil
}

// StockOut registra una salida. Todo-o-nada: si la cantidad pedida excede el
// stock del lote falla con InsufficientStockError sin aplicar nada. El lote
// que llega a 0 sigue activo; solo un borrado explícito lo desactiva.
func (uc *StockUseCase) StockOut(ctx context.Context, input StockOutInput) (*entity.Lot, error) {
	if input.LotID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !validQuantity(input.Quantity) {
		return nil, domain.ErrInvalidQuantity
	}

	var resultLot *entity.Lot
	err := uc.txRunner.Run(ctx, func(
		reagentRepo repository.ReagentRepository,
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		// Lectura sin bloqueo solo para conocer el reactivo del lote
		// (un lote nunca cambia de reactivo).
		lot, err := lotRepo.GetByID(input.LotID)
		if err != nil {
			return err
		}
		if lot == nil || !lot.IsActive {
			return domain.ErrNotFound
		}
		// Orden de bloqueo reactivo→lote, el mismo de StockIn. La fila del
		// reactivo serializa TODAS las operaciones de stock del reactivo:
		// sin ella, dos salidas concurrentes sobre lotes distintos sumarían
		// cada una sin ver el descuento no confirmado de la otra y la última
		// en confirmar pisaría el agregado.
		reagent, err := reagentRepo.GetForUpdate(lot.ReagentID)
		if err != nil {
			return err
		}
		if reagent == nil {
			return domain.ErrNotFound
		}
		// Relectura con bloqueo: el lote pudo cambiar mientras esperábamos
		// la fila del reactivo.
		lot, err = lotRepo.GetForUpdate(input.LotID)
		if err != nil {
			return err
		}
		if lot == nil || !lot.IsActive {
			return domain.ErrNotFound
		}
		if input.Quantity.GreaterThan(lot.Quantity) {
			return &domain.InsufficientStockError{Available: lot.Quantity}
		}

		now := time.Now()
		quantityBefore := lot.Quantity
		lot.Quantity = lot.Quantity.Sub(input.Quantity)
		lot.UpdatedAt = now
		if err := lotRepo.UpdateQuantity(lot); err != nil {
			return err
		}

		lotID := lot.ID
		mov := &entity.StockMovement{
			ID:             uuid.New().String(),
			LotID:          &lotID,
			ReagentID:      lot.ReagentID,
			Type:           entity.MovementTypeOut,
			Quantity:       input.Quantity.Neg(),
			QuantityBefore: quantityBefore,
			QuantityAfter:  lot.Quantity,
			PerformedBy:    input.UserID,
			PerformedAt:    now,
			Notes:          input.Notes,
		}
		if err := movRepo.Create(mov); err != nil {
			return err
		}
		resultLot = lot
		return recomputeTotal(reagentRepo, lotRepo, lot.ReagentID)
	})
	if err != nil {
		return nil, err
	}
	return resultLot, nil
}

// DeleteLot da de baja un lote. Si queda stock residual, primero registra un
// movimiento que lo pone a cero (reason: adjustment, expired o damaged) y
// después marca el lote inactivo, todo en una transacción; así el invariante
// "agregado = Σ lotes activos" se mantiene sin pasadas de limpieza.
func (uc *StockUseCase) DeleteLot(ctx context.Context, lotID, userID, reason, notes string) error {
	if lotID == "" {
		return domain.ErrInvalidInput
	}
	if reason == "" {
		reason = entity.MovementTypeAdjustment
	}
	switch reason {
	case entity.MovementTypeAdjustment, entity.MovementTypeExpired, entity.MovementTypeDamaged:
	default:
		return domain.ErrInvalidInput
	}

	return uc.txRunner.Run(ctx, func(
		reagentRepo repository.ReagentRepository,
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		lot, err := lotRepo.GetByID(lotID)
		if err != nil {
			return err
		}
		if lot == nil || !lot.IsActive {
			return domain.ErrNotFound
		}
		// Mismo orden de bloqueo reactivo→lote que StockIn/StockOut, por la
		// misma razón: el recálculo del agregado debe ejecutarse con la fila
		// del reactivo tomada.
		reagent, err := reagentRepo.GetForUpdate(lot.ReagentID)
		if err != nil {
			return err
		}
		if reagent == nil {
			return domain.ErrNotFound
		}
		lot, err = lotRepo.GetForUpdate(lotID)
		if err != nil {
			return err
		}
		if lot == nil || !lot.IsActive {
			return domain.ErrNotFound
		}
		if err := zeroAndDelete(lotRepo, movRepo, lot, reason, userID, notes); err != nil {
			return err
		}
		return recomputeTotal(reagentRepo, lotRepo, lot.ReagentID)
	})
}

// DeleteReagent da de baja un reactivo y, en cascada, todos sus lotes activos
// (cada uno con su secuencia registrar-luego-borrar). Una sola transacción:
// si cualquier paso falla, el reactivo no queda activo con agregado distinto
// de la suma de sus lotes.
func (uc *StockUseCase) DeleteReagent(ctx context.Context, reagentID, userID string) error {
	if reagentID == "" {
		return domain.ErrInvalidInput
	}

	return uc.txRunner.Run(ctx, func(
		reagentRepo repository.ReagentRepository,
		lotRepo repository.LotRepository,
		movRepo repository.StockMovementRepository,
	) error {
		reagent, err := reagentRepo.GetForUpdate(reagentID)
		if err != nil {
			return err
		}
		if reagent == nil || !reagent.IsActive {
			return domain.ErrNotFound
		}

		lots, err := lotRepo.ListActiveByReagentForUpdate(reagentID)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			if err := zeroAndDelete(lotRepo, movRepo, lot, entity.MovementTypeAdjustment, userID, "baja de reactivo"); err != nil {
				return err
			}
		}
		if err := recomputeTotal(reagentRepo, lotRepo, reagentID); err != nil {
			return err
		}
		return reagentRepo.SoftDelete(reagentID)
	})
}

// zeroAndDelete registra el movimiento que deja el lote en cero (si hace
// falta) y lo marca inactivo. Debe ejecutarse con la fila del lote bloqueada.
func zeroAndDelete(
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
	lot *entity.Lot,
	reason, userID, notes string,
) error {
	now := time.Now()
	if lot.Quantity.IsPositive() {
		quantityBefore := lot.Quantity
		lotID := lot.ID
		mov := &entity.StockMovement{
			ID:             uuid.New().String(),
			LotID:          &lotID,
			ReagentID:      lot.ReagentID,
			Type:           reason,
			Quantity:       quantityBefore.Neg(),
			QuantityBefore: quantityBefore,
			QuantityAfter:  decimal.Zero,
			PerformedBy:    userID,
			PerformedAt:    now,
			Notes:          notes,
		}
		if err := movRepo.Create(mov); err != nil {
			return err
		}
		lot.Quantity = decimal.Zero
		lot.UpdatedAt = now
		if err := lotRepo.UpdateQuantity(lot); err != nil {
			return err
		}
	}
	return lotRepo.SoftDelete(lot.ID)
}

// recomputeTotal recalcula el agregado del reactivo por sumatoria de sus
// lotes activos y lo persiste. Siempre es el último paso de toda operación
// que cambia cantidad o actividad de un lote, dentro de la misma transacción,
// y exige que el llamador tenga bloqueada la fila del reactivo: la sumatoria
// es un SELECT plano y solo ese bloqueo impide que dos transacciones sumen
// sin verse entre sí.
func recomputeTotal(
	reagentRepo repository.ReagentRepository,
	lotRepo repository.LotRepository,
	reagentID string,
) error {
	total, err := lotRepo.SumActiveByReagent(reagentID)
	if err != nil {
		return err
	}
	return reagentRepo.UpdateTotalQuantity(reagentID, total)
}
