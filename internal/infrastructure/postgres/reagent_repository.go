package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

var _ repository.ReagentRepository = (*ReagentRepo)(nil)

const reagentColumns = `id, name, reference, supplier, category, unit, storage_location,
	storage_temperature, sector, machine, minimum_stock, total_quantity, is_active, created_at, updated_at`

// ReagentRepo implementación del puerto ReagentRepository sobre PostgreSQL (usable con pool o tx).
type ReagentRepo struct {
	q Querier
}

// NewReagentRepository construye el adaptador de persistencia para reactivos. Pasar pool o tx (Querier).
func NewReagentRepository(q Querier) *ReagentRepo {
	return &ReagentRepo{q: q}
}

func scanReagent(row pgx.Row) (*entity.Reagent, error) {
	var r entity.Reagent
	err := row.Scan(
		&r.ID, &r.Name, &r.Reference, &r.Supplier, &r.Category, &r.Unit,
		&r.StorageLocation, &r.StorageTemperature, &r.Sector, &r.Machine,
		&r.MinimumStock, &r.TotalQuantity, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create persiste un nuevo reactivo. TotalQuantity inicia en 0.
func (r *ReagentRepo) Create(reagent *entity.Reagent) error {
	query := `
		INSERT INTO reagents (id, name, reference, supplier, category, unit, storage_location,
			storage_temperature, sector, machine, minimum_stock, total_quantity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(context.Background(), query,
		reagent.ID, reagent.Name, reagent.Reference, reagent.Supplier, reagent.Category,
		reagent.Unit, reagent.StorageLocation, reagent.StorageTemperature, reagent.Sector,
		reagent.Machine, reagent.MinimumStock, reagent.TotalQuantity, reagent.IsActive,
		reagent.CreatedAt, reagent.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert reagent: %w", err)
	}
	return nil
}

// GetByID obtiene un reactivo por ID (activo o dado de baja).
func (r *ReagentRepo) GetByID(id string) (*entity.Reagent, error) {
	query := `SELECT ` + reagentColumns + ` FROM reagents WHERE id = $1`
	reagent, err := scanReagent(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reagent: %w", err)
	}
	return reagent, nil
}

// GetActiveByID obtiene un reactivo activo por ID.
func (r *ReagentRepo) GetActiveByID(id string) (*entity.Reagent, error) {
	query := `SELECT ` + reagentColumns + ` FROM reagents WHERE id = $1 AND is_active`
	reagent, err := scanReagent(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active reagent: %w", err)
	}
	return reagent, nil
}

// GetForUpdate obtiene un reactivo activo y bloquea la fila (SELECT FOR UPDATE).
// La fila del reactivo serializa las operaciones de stock concurrentes sobre él.
func (r *ReagentRepo) GetForUpdate(id string) (*entity.Reagent, error) {
	query := `SELECT ` + reagentColumns + ` FROM reagents WHERE id = $1 AND is_active FOR UPDATE`
	reagent, err := scanReagent(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reagent for update: %w", err)
	}
	return reagent, nil
}

// List lista reactivos con paginación, ordenados por nombre.
func (r *ReagentRepo) List(onlyActive bool, limit, offset int) ([]*entity.Reagent, error) {
	query := `SELECT ` + reagentColumns + ` FROM reagents`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reagents: %w", err)
	}
	defer rows.Close()
	var list []*entity.Reagent
	for rows.Next() {
		reagent, err := scanReagent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reagent: %w", err)
		}
		list = append(list, reagent)
	}
	return list, rows.Err()
}

// Update actualiza los datos de catálogo del reactivo.
// No toca total_quantity: esa columna solo cambia vía UpdateTotalQuantity.
func (r *ReagentRepo) Update(reagent *entity.Reagent) error {
	query := `
		UPDATE reagents SET name = $2, reference = $3, supplier = $4, category = $5, unit = $6,
			storage_location = $7, storage_temperature = $8, sector = $9, machine = $10,
			minimum_stock = $11, updated_at = $12
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		reagent.ID, reagent.Name, reagent.Reference, reagent.Supplier, reagent.Category,
		reagent.Unit, reagent.StorageLocation, reagent.StorageTemperature, reagent.Sector,
		reagent.Machine, reagent.MinimumStock, reagent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reagent: %w", err)
	}
	return nil
}

// UpdateTotalQuantity escribe el agregado recalculado del reactivo.
func (r *ReagentRepo) UpdateTotalQuantity(id string, total decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE reagents SET total_quantity = $2, updated_at = now() WHERE id = $1`,
		id, total,
	)
	if err != nil {
		return fmt.Errorf("update reagent total: %w", err)
	}
	return nil
}

// SoftDelete marca el reactivo como dado de baja. El historial no se toca.
func (r *ReagentRepo) SoftDelete(id string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE reagents SET is_active = false, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete reagent: %w", err)
	}
	return nil
}

// ListBelowMinimum lista reactivos activos en o bajo su stock mínimo.
func (r *ReagentRepo) ListBelowMinimum() ([]*entity.Reagent, error) {
	query := `SELECT ` + reagentColumns + `
		FROM reagents WHERE is_active AND total_quantity <= minimum_stock ORDER BY name`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list reagents below minimum: %w", err)
	}
	defer rows.Close()
	var list []*entity.Reagent
	for rows.Next() {
		reagent, err := scanReagent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reagent: %w", err)
		}
		list = append(list, reagent)
	}
	return list, rows.Err()
}
