package alerts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/LabStock-api/internal/application/dto"
	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// AlertUseCase construye el digest de alertas: reactivos en o bajo su umbral
// de reposición y lotes que caducan dentro de la ventana configurada.
// Es un lector puro del modelo de consulta del stock; no contiene lógica de
// libro ni muta nada.
type AlertUseCase struct {
	reagentRepo repository.ReagentRepository
	lotRepo     repository.LotRepository
	windowDays  int
}

// NewAlertUseCase construye el caso de uso. windowDays <= 0 usa 30 días.
func NewAlertUseCase(reagentRepo repository.ReagentRepository, lotRepo repository.LotRepository, windowDays int) *AlertUseCase {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &AlertUseCase{reagentRepo: reagentRepo, lotRepo: lotRepo, windowDays: windowDays}
}

// BuildDigest arma el digest con el estado actual. Lecturas de snapshot,
// sin bloqueos: puede correr contra un libro vivo.
func (uc *AlertUseCase) BuildDigest(ctx context.Context) (*dto.AlertDigest, error) {
	now := time.Now()
	digest := &dto.AlertDigest{
		GeneratedAt: now,
		WindowDays:  uc.windowDays,
		LowStock:    []dto.LowStockAlert{},
		Expiring:    []dto.ExpiryAlert{},
	}

	low, err := uc.reagentRepo.ListBelowMinimum()
	if err != nil {
		return nil, err
	}
	for _, r := range low {
		digest.LowStock = append(digest.LowStock, dto.LowStockAlert{
			ReagentID:     r.ID,
			Name:          r.Name,
			Reference:     r.Reference,
			Sector:        r.Sector,
			TotalQuantity: r.TotalQuantity,
			MinimumStock:  r.MinimumStock,
			Unit:          r.Unit,
		})
	}

	cutoff := now.AddDate(0, 0, uc.windowDays)
	expiring, err := uc.lotRepo.ListExpiringBefore(cutoff)
	if err != nil {
		return nil, err
	}
	for _, l := range expiring {
		reagent, err := uc.reagentRepo.GetByID(l.ReagentID)
		if err != nil {
			return nil, err
		}
		name := ""
		if reagent != nil {
			name = reagent.Name
		}
		digest.Expiring = append(digest.Expiring, dto.ExpiryAlert{
			LotID:         l.ID,
			ReagentID:     l.ReagentID,
			ReagentName:   name,
			LotNumber:     l.LotNumber,
			Quantity:      l.Quantity,
			ExpiryDate:    *l.ExpiryDate,
			DaysRemaining: l.ShelfLifeDays(now),
		})
	}
	// los más urgentes primero
	sort.Slice(digest.Expiring, func(i, j int) bool {
		return digest.Expiring[i].ExpiryDate.Before(digest.Expiring[j].ExpiryDate)
	})

	return digest, nil
}

// SendDigest construye el digest y lo envía por correo. No envía nada si el
// digest está vacío o no hay destinatarios.
func (uc *AlertUseCase) SendDigest(ctx context.Context, sender DigestSender, to []string) (*dto.AlertDigest, error) {
	digest, err := uc.BuildDigest(ctx)
	if err != nil {
		return nil, err
	}
	if digest.Empty() || len(to) == 0 {
		return digest, nil
	}
	if sender == nil {
		return nil, domain.ErrInvalidInput
	}
	subject := fmt.Sprintf("LabStock: %d reactivos bajo mínimo, %d lotes por caducar",
		len(digest.LowStock), len(digest.Expiring))
	if err := sender.Send(ctx, subject, RenderText(digest), to); err != nil {
		return nil, err
	}
	return digest, nil
}

// RenderText renderiza el digest como texto plano para el cuerpo del correo.
func RenderText(d *dto.AlertDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Digest de alertas %s\n\n", d.GeneratedAt.Format("2006-01-02 15:04"))

	if len(d.LowStock) > 0 {
		b.WriteString("Reactivos en o bajo stock mínimo:\n")
		for _, a := range d.LowStock {
			fmt.Fprintf(&b, "  - %s (%s): %s %s, mínimo %s\n",
				a.Name, a.Reference, a.TotalQuantity, a.Unit, a.MinimumStock)
		}
		b.WriteString("\n")
	}
	if len(d.Expiring) > 0 {
		fmt.Fprintf(&b, "Lotes que caducan en los próximos %d días:\n", d.WindowDays)
		for _, a := range d.Expiring {
			switch {
			case a.DaysRemaining < 0:
				fmt.Fprintf(&b, "  - %s lote %s: CADUCADO el %s (quedan %s)\n",
					a.ReagentName, a.LotNumber, a.ExpiryDate.Format("2006-01-02"), a.Quantity)
			default:
				fmt.Fprintf(&b, "  - %s lote %s: caduca el %s, %d días (quedan %s)\n",
					a.ReagentName, a.LotNumber, a.ExpiryDate.Format("2006-01-02"), a.DaysRemaining, a.Quantity)
			}
		}
	}
	return b.String()
}
