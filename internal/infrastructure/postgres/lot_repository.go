package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

const lotColumns = `id, reagent_id, lot_number, quantity, expiry_date, date_of_reception,
	is_active, created_at, updated_at`

// LotRepo implementación del puerto LotRepository sobre PostgreSQL (usable con pool o tx).
//
// El esquema lleva un índice único parcial sobre (reagent_id, lot_number)
// WHERE is_active: un número de lote puede reaparecer tras una baja, pero
// nunca hay dos lotes activos con el mismo número para el mismo reactivo.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de persistencia para lotes. Pasar pool o tx (Querier).
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(
		&l.ID, &l.ReagentID, &l.LotNumber, &l.Quantity, &l.ExpiryDate,
		&l.DateOfReception, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create persiste un nuevo lote.
func (r *LotRepo) Create(lot *entity.Lot) error {
	query := `
		INSERT INTO lots (id, reagent_id, lot_number, quantity, expiry_date, date_of_reception,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		lot.ID, lot.ReagentID, lot.LotNumber, lot.Quantity, lot.ExpiryDate,
		lot.DateOfReception, lot.IsActive, lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// GetByID obtiene un lote activo por ID.
func (r *LotRepo) GetByID(id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1 AND is_active`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot: %w", err)
	}
	return lot, nil
}

// GetForUpdate obtiene un lote activo y bloquea la fila (SELECT FOR UPDATE).
func (r *LotRepo) GetForUpdate(id string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1 AND is_active FOR UPDATE`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lot for update: %w", err)
	}
	return lot, nil
}

// FindActiveByNumber busca el lote activo de un reactivo por número de lote.
// La comparación es exacta (case sensitive): el número viene impreso en el envase.
func (r *LotRepo) FindActiveByNumber(reagentID, lotNumber string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + `
		FROM lots WHERE reagent_id = $1 AND lot_number = $2 AND is_active`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, reagentID, lotNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lot by number: %w", err)
	}
	return lot, nil
}

// FindActiveByNumberForUpdate como FindActiveByNumber pero bloquea la fila.
func (r *LotRepo) FindActiveByNumberForUpdate(reagentID, lotNumber string) (*entity.Lot, error) {
	query := `SELECT ` + lotColumns + `
		FROM lots WHERE reagent_id = $1 AND lot_number = $2 AND is_active
		FOR UPDATE`
	lot, err := scanLot(r.q.QueryRow(context.Background(), query, reagentID, lotNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find lot by number for update: %w", err)
	}
	return lot, nil
}

// ListActiveByReagent lista los lotes activos de un reactivo, más próximo a caducar primero.
func (r *LotRepo) ListActiveByReagent(reagentID string) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + `
		FROM lots WHERE reagent_id = $1 AND is_active
		ORDER BY expiry_date NULLS LAST, lot_number`
	return r.listByReagent(query, reagentID)
}

// ListActiveByReagentForUpdate como ListActiveByReagent pero bloquea todas las filas.
func (r *LotRepo) ListActiveByReagentForUpdate(reagentID string) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + `
		FROM lots WHERE reagent_id = $1 AND is_active
		ORDER BY expiry_date NULLS LAST, lot_number
		FOR UPDATE`
	return r.listByReagent(query, reagentID)
}

func (r *LotRepo) listByReagent(query, reagentID string) ([]*entity.Lot, error) {
	rows, err := r.q.Query(context.Background(), query, reagentID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, lot)
	}
	return list, rows.Err()
}

// ListExpiringBefore lista lotes activos con fecha de caducidad anterior al corte.
func (r *LotRepo) ListExpiringBefore(cutoff time.Time) ([]*entity.Lot, error) {
	query := `SELECT ` + lotColumns + `
		FROM lots WHERE is_active AND expiry_date IS NOT NULL AND expiry_date < $1
		ORDER BY expiry_date`
	rows, err := r.q.Query(context.Background(), query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expiring lots: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		list = append(list, lot)
	}
	return list, rows.Err()
}

// SumActiveByReagent suma las cantidades de los lotes activos del reactivo.
// El agregado del reactivo siempre se recalcula desde aquí, nunca por deltas.
func (r *LotRepo) SumActiveByReagent(reagentID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(quantity), 0) FROM lots WHERE reagent_id = $1 AND is_active`,
		reagentID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum lots: %w", err)
	}
	return total, nil
}

// UpdateQuantity escribe la cantidad actual del lote.
func (r *LotRepo) UpdateQuantity(lot *entity.Lot) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE lots SET quantity = $2, updated_at = now() WHERE id = $1`,
		lot.ID, lot.Quantity,
	)
	if err != nil {
		return fmt.Errorf("update lot quantity: %w", err)
	}
	return nil
}

// SoftDelete marca el lote como dado de baja. Sus movimientos quedan intactos.
func (r *LotRepo) SoftDelete(id string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE lots SET is_active = false, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete lot: %w", err)
	}
	return nil
}
