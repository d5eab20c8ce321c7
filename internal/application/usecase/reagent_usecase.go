package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/LabStock-api/internal/application/dto"
	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// ReagentUseCase casos de uso CRUD para reactivos. TotalQuantity se maneja
// exclusivamente vía operaciones de stock; aquí nunca se toca.
type ReagentUseCase struct {
	reagentRepo repository.ReagentRepository
	lotRepo     repository.LotRepository
}

// NewReagentUseCase construye el caso de uso.
func NewReagentUseCase(reagentRepo repository.ReagentRepository, lotRepo repository.LotRepository) *ReagentUseCase {
	return &ReagentUseCase{reagentRepo: reagentRepo, lotRepo: lotRepo}
}

// Create crea un reactivo nuevo. El stock inicia en 0; las cantidades solo
// entran después por /api/stock/in.
func (uc *ReagentUseCase) Create(in dto.CreateReagentRequest) (*dto.ReagentResponse, error) {
	if in.Name == "" || in.Unit == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.MinimumStock.IsNegative() || !in.MinimumStock.IsInteger() {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	reagent := &entity.Reagent{
		ID:                 uuid.New().String(),
		Name:               in.Name,
		Reference:          in.Reference,
		Supplier:           in.Supplier,
		Category:           in.Category,
		Unit:               in.Unit,
		StorageLocation:    in.StorageLocation,
		StorageTemperature: in.StorageTemperature,
		Sector:             in.Sector,
		Machine:            in.Machine,
		MinimumStock:       in.MinimumStock,
		TotalQuantity:      decimal.Zero,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.reagentRepo.Create(reagent); err != nil {
		return nil, err
	}
	return ToReagentResponse(reagent), nil
}

// GetByID obtiene un reactivo activo por ID, o nil si no existe.
func (uc *ReagentUseCase) GetByID(id string) (*dto.ReagentResponse, error) {
	reagent, err := uc.reagentRepo.GetActiveByID(id)
	if err != nil {
		return nil, err
	}
	if reagent == nil {
		return nil, nil
	}
	return ToReagentResponse(reagent), nil
}

// List lista reactivos activos con paginación.
func (uc *ReagentUseCase) List(page dto.PageRequest) ([]dto.ReagentResponse, error) {
	page.DefaultPage()
	list, err := uc.reagentRepo.List(true, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ReagentResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *ToReagentResponse(r))
	}
	return items, nil
}

// ListLots lista los lotes activos de un reactivo.
func (uc *ReagentUseCase) ListLots(reagentID string) ([]dto.LotResponse, error) {
	reagent, err := uc.reagentRepo.GetActiveByID(reagentID)
	if err != nil {
		return nil, err
	}
	if reagent == nil {
		return nil, domain.ErrNotFound
	}
	lots, err := uc.lotRepo.ListActiveByReagent(reagentID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	items := make([]dto.LotResponse, 0, len(lots))
	for _, l := range lots {
		items = append(items, *ToLotResponse(l, now))
	}
	return items, nil
}

// Update actualiza campos descriptivos y umbral mínimo. No permite tocar
// TotalQuantity (se maneja vía movimientos).
func (uc *ReagentUseCase) Update(id string, in dto.UpdateReagentRequest) (*dto.ReagentResponse, error) {
	reagent, err := uc.reagentRepo.GetActiveByID(id)
	if err != nil {
		return nil, err
	}
	if reagent == nil {
		return nil, nil
	}
	if in.MinimumStock.IsNegative() || !in.MinimumStock.IsInteger() {
		return nil, domain.ErrInvalidInput
	}
	reagent.Name = in.Name
	reagent.Reference = in.Reference
	reagent.Supplier = in.Supplier
	reagent.Category = in.Category
	reagent.Unit = in.Unit
	reagent.StorageLocation = in.StorageLocation
	reagent.StorageTemperature = in.StorageTemperature
	reagent.Sector = in.Sector
	reagent.Machine = in.Machine
	reagent.MinimumStock = in.MinimumStock
	reagent.UpdatedAt = time.Now()
	if err := uc.reagentRepo.Update(reagent); err != nil {
		return nil, err
	}
	return ToReagentResponse(reagent), nil
}

// ToReagentResponse mapea la entidad al DTO de respuesta.
func ToReagentResponse(r *entity.Reagent) *dto.ReagentResponse {
	if r == nil {
		return nil
	}
	return &dto.ReagentResponse{
		ID:                 r.ID,
		Name:               r.Name,
		Reference:          r.Reference,
		Supplier:           r.Supplier,
		Category:           r.Category,
		Unit:               r.Unit,
		StorageLocation:    r.StorageLocation,
		StorageTemperature: r.StorageTemperature,
		Sector:             r.Sector,
		Machine:            r.Machine,
		MinimumStock:       r.MinimumStock,
		TotalQuantity:      r.TotalQuantity,
		BelowMinimum:       r.BelowMinimum(),
		CreatedAt:          r.CreatedAt,
	}
}

// ToLotResponse mapea la entidad al DTO de respuesta, derivando ShelfLifeDays.
func ToLotResponse(l *entity.Lot, now time.Time) *dto.LotResponse {
	if l == nil {
		return nil
	}
	return &dto.LotResponse{
		ID:              l.ID,
		ReagentID:       l.ReagentID,
		LotNumber:       l.LotNumber,
		Quantity:        l.Quantity,
		ExpiryDate:      l.ExpiryDate,
		DateOfReception: l.DateOfReception,
		ShelfLifeDays:   l.ShelfLifeDays(now),
		IsActive:        l.IsActive,
	}
}
