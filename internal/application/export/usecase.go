package export

import (
	"context"

	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// ExportUseCase lector batch sobre el modelo de consulta del stock: arma el
// snapshot (reactivos, lotes, historial) y delega el formato a los puertos.
// No contiene lógica de libro; solo lee.
type ExportUseCase struct {
	reagentRepo repository.ReagentRepository
	lotRepo     repository.LotRepository
	movRepo     repository.StockMovementRepository
	workbook    WorkbookBuilder
	labels      LabelPDFGenerator
}

// NewExportUseCase construye el caso de uso.
func NewExportUseCase(
	reagentRepo repository.ReagentRepository,
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
	workbook WorkbookBuilder,
	labels LabelPDFGenerator,
) *ExportUseCase {
	return &ExportUseCase{
		reagentRepo: reagentRepo,
		lotRepo:     lotRepo,
		movRepo:     movRepo,
		workbook:    workbook,
		labels:      labels,
	}
}

// movementPageSize tamaño de página para leer el historial por lotes.
const movementPageSize = 500

// BuildInventoryWorkbook lee todos los reactivos activos con sus lotes y
// movimientos y devuelve el .xlsx.
func (uc *ExportUseCase) BuildInventoryWorkbook(ctx context.Context) ([]byte, error) {
	snapshot := &InventorySnapshot{
		Lots: make(map[string][]*entity.Lot),
	}

	// paginar reactivos para no cargar catálogos enormes de golpe
	offset := 0
	for {
		page, err := uc.reagentRepo.List(true, movementPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		snapshot.Reagents = append(snapshot.Reagents, page...)
		offset += len(page)
	}

	for _, r := range snapshot.Reagents {
		lots, err := uc.lotRepo.ListActiveByReagent(r.ID)
		if err != nil {
			return nil, err
		}
		snapshot.Lots[r.ID] = lots

		movOffset := 0
		for {
			movs, err := uc.movRepo.ListByReagent(r.ID, repository.MovementFilter{
				Limit:  movementPageSize,
				Offset: movOffset,
			})
			if err != nil {
				return nil, err
			}
			if len(movs) == 0 {
				break
			}
			snapshot.Movements = append(snapshot.Movements, movs...)
			movOffset += len(movs)
		}
	}

	return uc.workbook.Build(snapshot)
}

// BuildLotLabels genera la hoja PDF de etiquetas para los lotes activos del
// reactivo indicado.
func (uc *ExportUseCase) BuildLotLabels(ctx context.Context, reagentID string) ([]byte, error) {
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
	return uc.labels.GenerateLotLabels(reagent, lots)
}
