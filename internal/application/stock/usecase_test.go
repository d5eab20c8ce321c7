package stock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
//
// memState simula la base de datos; memTxRunner simula la transacción:
// serializa con un mutex (equivalente grueso del bloqueo de fila) y ante un
// error restaura el snapshot tomado al inicio (rollback). Los Get/Find
// devuelven copias, como haría un scan real; solo Update/Create escriben en
// el estado compartido.
// ──────────────────────────────────────────────────────────────────────────────

type memState struct {
	reagents  map[string]*entity.Reagent
	lots      map[string]*entity.Lot
	movements []*entity.StockMovement

	// inyección de fallos de almacenamiento
	failCreateMovement error
	failUpdateLot      error
}

func newMemState() *memState {
	return &memState{
		reagents: make(map[string]*entity.Reagent),
		lots:     make(map[string]*entity.Lot),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, r := range s.reagents {
		cp := *r
		c.reagents[id] = &cp
	}
	for id, l := range s.lots {
		cp := *l
		c.lots[id] = &cp
	}
	c.movements = make([]*entity.StockMovement, len(s.movements))
	for i, m := range s.movements {
		cp := *m
		c.movements[i] = &cp
	}
	return c
}

func (s *memState) restore(snap *memState) {
	s.reagents = snap.reagents
	s.lots = snap.lots
	s.movements = snap.movements
}

// ── repos fake ────────────────────────────────────────────────────────────────

type memReagentRepo struct{ s *memState }

func (r *memReagentRepo) Create(reagent *entity.Reagent) error {
	cp := *reagent
	r.s.reagents[reagent.ID] = &cp
	return nil
}

func (r *memReagentRepo) GetByID(id string) (*entity.Reagent, error) {
	if rg, ok := r.s.reagents[id]; ok {
		cp := *rg
		return &cp, nil
	}
	return nil, nil
}

func (r *memReagentRepo) GetActiveByID(id string) (*entity.Reagent, error) {
	rg, _ := r.GetByID(id)
	if rg == nil || !rg.IsActive {
		return nil, nil
	}
	return rg, nil
}

func (r *memReagentRepo) GetForUpdate(id string) (*entity.Reagent, error) {
	return r.GetByID(id)
}

func (r *memReagentRepo) List(onlyActive bool, limit, offset int) ([]*entity.Reagent, error) {
	var out []*entity.Reagent
	for _, rg := range r.s.reagents {
		if onlyActive && !rg.IsActive {
			continue
		}
		cp := *rg
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memReagentRepo) Update(reagent *entity.Reagent) error {
	cp := *reagent
	r.s.reagents[reagent.ID] = &cp
	return nil
}

func (r *memReagentRepo) UpdateTotalQuantity(id string, total decimal.Decimal) error {
	rg, ok := r.s.reagents[id]
	if !ok {
		return domain.ErrNotFound
	}
	rg.TotalQuantity = total
	return nil
}

func (r *memReagentRepo) SoftDelete(id string) error {
	rg, ok := r.s.reagents[id]
	if !ok {
		return domain.ErrNotFound
	}
	rg.IsActive = false
	return nil
}

func (r *memReagentRepo) ListBelowMinimum() ([]*entity.Reagent, error) {
	var out []*entity.Reagent
	for _, rg := range r.s.reagents {
		if rg.IsActive && rg.BelowMinimum() {
			cp := *rg
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memLotRepo struct{ s *memState }

func (r *memLotRepo) Create(lot *entity.Lot) error {
	cp := *lot
	r.s.lots[lot.ID] = &cp
	return nil
}

func (r *memLotRepo) GetByID(id string) (*entity.Lot, error) {
	if l, ok := r.s.lots[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (r *memLotRepo) GetForUpdate(id string) (*entity.Lot, error) {
	return r.GetByID(id)
}

func (r *memLotRepo) FindActiveByNumber(reagentID, lotNumber string) (*entity.Lot, error) {
	for _, l := range r.s.lots {
		if l.ReagentID == reagentID && l.LotNumber == lotNumber && l.IsActive {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLotRepo) FindActiveByNumberForUpdate(reagentID, lotNumber string) (*entity.Lot, error) {
	return r.FindActiveByNumber(reagentID, lotNumber)
}

func (r *memLotRepo) ListActiveByReagent(reagentID string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, l := range r.s.lots {
		if l.ReagentID == reagentID && l.IsActive {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLotRepo) ListActiveByReagentForUpdate(reagentID string) ([]*entity.Lot, error) {
	return r.ListActiveByReagent(reagentID)
}

func (r *memLotRepo) ListExpiringBefore(cutoff time.Time) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, l := range r.s.lots {
		if l.IsActive && l.ExpiryDate != nil && l.ExpiryDate.Before(cutoff) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memLotRepo) SumActiveByReagent(reagentID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range r.s.lots {
		if l.ReagentID == reagentID && l.IsActive {
			total = total.Add(l.Quantity)
		}
	}
	return total, nil
}

func (r *memLotRepo) UpdateQuantity(lot *entity.Lot) error {
	if r.s.failUpdateLot != nil {
		return r.s.failUpdateLot
	}
	stored, ok := r.s.lots[lot.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Quantity = lot.Quantity
	stored.UpdatedAt = lot.UpdatedAt
	return nil
}

func (r *memLotRepo) SoftDelete(id string) error {
	l, ok := r.s.lots[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.IsActive = false
	return nil
}

type memMovementRepo struct{ s *memState }

func (r *memMovementRepo) Create(m *entity.StockMovement) error {
	if r.s.failCreateMovement != nil {
		return r.s.failCreateMovement
	}
	cp := *m
	r.s.movements = append(r.s.movements, &cp)
	return nil
}

func (r *memMovementRepo) ListByReagent(reagentID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	// más reciente primero: orden inverso de inserción
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if m.ReagentID != reagentID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.LotID != "" && (m.LotID == nil || *m.LotID != filter.LotID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memMovementRepo) ListByLot(lotID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if m.LotID != nil && *m.LotID == lotID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ── tx runner fake ────────────────────────────────────────────────────────────

type memTxRunner struct {
	mu sync.Mutex
	s  *memState
}

func (t *memTxRunner) Run(_ context.Context, fn func(
	reagentRepo repository.ReagentRepository,
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.s.clone()
	err := fn(&memReagentRepo{t.s}, &memLotRepo{t.s}, &memMovementRepo{t.s})
	if err != nil {
		t.s.restore(snap)
	}
	return err
}

// ── helpers ───────────────────────────────────────────────────────────────────

func newFixture() (*StockUseCase, *memState) {
	s := newMemState()
	uc := NewStockUseCase(&memTxRunner{s: s}, &memReagentRepo{s}, &memLotRepo{s}, &memMovementRepo{s})
	return uc, s
}

func seedReagent(s *memState, name string) *entity.Reagent {
	r := &entity.Reagent{
		ID:            uuid.New().String(),
		Name:          name,
		Unit:          "test",
		MinimumStock:  decimal.NewFromInt(5),
		TotalQuantity: decimal.Zero,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.reagents[r.ID] = r
	return r
}

func dateptr(t time.Time) *time.Time { return &t }

func stockInInput(reagentID, lotNumber string, qty int64) StockInInput {
	return StockInInput{
		ReagentID:       reagentID,
		LotNumber:       lotNumber,
		Quantity:        decimal.NewFromInt(qty),
		ExpiryDate:      dateptr(time.Now().AddDate(1, 0, 0)),
		DateOfReception: dateptr(time.Now()),
		UserID:          "user-1",
	}
}

// assertAggregate verifica el invariante: agregado del reactivo == Σ lotes activos.
func assertAggregate(t *testing.T, s *memState, reagentID string) {
	t.Helper()
	sum := decimal.Zero
	for _, l := range s.lots {
		if l.ReagentID == reagentID && l.IsActive {
			sum = sum.Add(l.Quantity)
		}
	}
	require.True(t, s.reagents[reagentID].TotalQuantity.Equal(sum),
		"total_quantity %s != suma de lotes activos %s",
		s.reagents[reagentID].TotalQuantity, sum)
}

// assertReplay verifica que reproducir los movimientos del lote desde 0
// reconstruye su cantidad actual.
func assertReplay(t *testing.T, s *memState, lotID string) {
	t.Helper()
	balance := decimal.Zero
	for _, m := range s.movements {
		if m.LotID == nil || *m.LotID != lotID {
			continue
		}
		require.True(t, m.Consistent(), "movimiento inconsistente: %+v", m)
		require.True(t, balance.Equal(m.QuantityBefore),
			"quantity_before %s no encadena con el balance %s", m.QuantityBefore, balance)
		balance = balance.Add(m.Quantity)
	}
	require.True(t, balance.Equal(s.lots[lotID].Quantity),
		"replay %s != cantidad actual %s", balance, s.lots[lotID].Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// StockIn
// ──────────────────────────────────────────────────────────────────────────────

func TestStockIn_CrearVsIncrementar(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Diluyente A")
	ctx := context.Background()

	// primera entrada: crea el lote
	lot, action, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 10))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
	assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(10)))

	// segunda entrada, mismo número de lote, sin fechas: incrementa el mismo lote
	in2 := StockInInput{
		ReagentID: reagent.ID,
		LotNumber: "L1",
		Quantity:  decimal.NewFromInt(5),
		UserID:    "user-1",
	}
	lot2, action, err := uc.StockIn(ctx, in2)
	require.NoError(t, err)
	assert.Equal(t, ActionIncremented, action)
	assert.Equal(t, lot.ID, lot2.ID, "no debe crearse un segundo lote")
	assert.True(t, lot2.Quantity.Equal(decimal.NewFromInt(15)))
	assert.Len(t, s.lots, 1)

	assertAggregate(t, s, reagent.ID)
	assertReplay(t, s, lot.ID)
}

func TestStockIn_FechasDelPrimerIngresoSonAutoritativas(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo B")
	ctx := context.Background()

	firstExpiry := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	in1 := stockInInput(reagent.ID, "L9", 4)
	in1.ExpiryDate = dateptr(firstExpiry)
	lot, _, err := uc.StockIn(ctx, in1)
	require.NoError(t, err)

	// política deliberada: una partida física tiene una sola caducidad,
	// fechas nuevas en entradas posteriores se descartan en silencio
	in2 := stockInInput(reagent.ID, "L9", 2)
	in2.ExpiryDate = dateptr(firstExpiry.AddDate(1, 0, 0))
	_, action, err := uc.StockIn(ctx, in2)
	require.NoError(t, err)
	assert.Equal(t, ActionIncremented, action)
	assert.True(t, s.lots[lot.ID].ExpiryDate.Equal(firstExpiry))
}

func TestStockIn_CantidadInvalida(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo C")
	ctx := context.Background()

	for name, qty := range map[string]decimal.Decimal{
		"cero":      decimal.Zero,
		"negativa":  decimal.NewFromInt(-3),
		"no entera": decimal.NewFromFloat(2.5),
	} {
		in := stockInInput(reagent.ID, "LX", 1)
		in.Quantity = qty
		_, _, err := uc.StockIn(ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity, name)
	}
	assert.Empty(t, s.movements)
	assert.Empty(t, s.lots)
}

func TestStockIn_MetadataFaltante(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo D")
	ctx := context.Background()

	in := StockInInput{
		ReagentID: reagent.ID,
		LotNumber: "NEW",
		Quantity:  decimal.NewFromInt(3),
		UserID:    "user-1",
	}
	_, _, err := uc.StockIn(ctx, in)
	assert.ErrorIs(t, err, domain.ErrMissingLotMetadata)
	assert.Empty(t, s.lots, "no debe crearse lote")
	assert.Empty(t, s.movements, "no debe registrarse movimiento")
}

func TestStockIn_ReactivoInexistenteOInactivo(t *testing.T) {
	uc, s := newFixture()
	ctx := context.Background()

	_, _, err := uc.StockIn(ctx, stockInInput("no-existe", "L1", 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	reagent := seedReagent(s, "Inactivo")
	reagent.IsActive = false
	_, _, err = uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStockIn_NumeroDeLoteCaseSensitive(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo E")
	ctx := context.Background()

	_, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "abc", 1))
	require.NoError(t, err)
	_, action, err := uc.StockIn(ctx, stockInInput(reagent.ID, "ABC", 1))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action, "ABC y abc son lotes distintos")
	assert.Len(t, s.lots, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// StockOut
// ──────────────────────────────────────────────────────────────────────────────

func TestStockOut_DescuentaYRegistra(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo F")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 10))
	require.NoError(t, err)

	out, err := uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(3), UserID: "user-2"})
	require.NoError(t, err)
	assert.True(t, out.Quantity.Equal(decimal.NewFromInt(7)))

	last := s.movements[len(s.movements)-1]
	assert.Equal(t, entity.MovementTypeOut, last.Type)
	assert.True(t, last.Quantity.Equal(decimal.NewFromInt(-3)))
	assert.True(t, last.QuantityBefore.Equal(decimal.NewFromInt(10)))
	assert.True(t, last.QuantityAfter.Equal(decimal.NewFromInt(7)))

	assertAggregate(t, s, reagent.ID)
	assertReplay(t, s, lot.ID)
}

func TestStockOut_Insuficiente(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo G")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 5))
	require.NoError(t, err)

	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(6), UserID: "user-2"})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(decimal.NewFromInt(5)),
		"el error debe exponer la cantidad disponible para que la UI acote")

	assert.True(t, s.lots[lot.ID].Quantity.Equal(decimal.NewFromInt(5)), "sin aplicación parcial")
	assert.Len(t, s.movements, 1, "solo el movimiento de entrada")
}

func TestStockOut_LoteEnCeroSigueActivo(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo H")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 4))
	require.NoError(t, err)

	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(4), UserID: "u"})
	require.NoError(t, err)

	stored := s.lots[lot.ID]
	assert.True(t, stored.Quantity.IsZero())
	assert.True(t, stored.IsActive, "llegar a 0 no borra el lote; el borrado es explícito")
	assertAggregate(t, s, reagent.ID)
}

func TestStockOut_LoteInexistente(t *testing.T) {
	uc, _ := newFixture()
	_, err := uc.StockOut(context.Background(), StockOutInput{LotID: "nope", Quantity: decimal.NewFromInt(1), UserID: "u"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteLot / DeleteReagent
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteLot_PoneACeroAntesDeBorrar(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo I")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 7))
	require.NoError(t, err)
	totalBefore := s.reagents[reagent.ID].TotalQuantity

	require.NoError(t, uc.DeleteLot(ctx, lot.ID, "admin-1", "", "descarte"))

	last := s.movements[len(s.movements)-1]
	assert.Equal(t, entity.MovementTypeAdjustment, last.Type)
	assert.True(t, last.Quantity.Equal(decimal.NewFromInt(-7)))
	assert.True(t, last.QuantityAfter.IsZero())

	stored := s.lots[lot.ID]
	assert.False(t, stored.IsActive)
	assert.True(t, stored.Quantity.IsZero())
	assert.True(t, s.reagents[reagent.ID].TotalQuantity.Equal(totalBefore.Sub(decimal.NewFromInt(7))),
		"el agregado debe bajar exactamente 7")
	assertAggregate(t, s, reagent.ID)
	assertReplay(t, s, lot.ID)
}

func TestDeleteLot_MotivoEtiquetaElMovimiento(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo J")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 2))
	require.NoError(t, err)

	require.NoError(t, uc.DeleteLot(ctx, lot.ID, "admin-1", entity.MovementTypeExpired, "caducado"))
	last := s.movements[len(s.movements)-1]
	assert.Equal(t, entity.MovementTypeExpired, last.Type)
}

func TestDeleteLot_MotivoInvalido(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo K")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 2))
	require.NoError(t, err)

	err = uc.DeleteLot(ctx, lot.ID, "admin-1", entity.MovementTypeIn, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, s.lots[lot.ID].IsActive)
}

func TestDeleteLot_SinResto(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo L")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 3))
	require.NoError(t, err)
	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(3), UserID: "u"})
	require.NoError(t, err)
	movsBefore := len(s.movements)

	require.NoError(t, uc.DeleteLot(ctx, lot.ID, "admin-1", "", ""))
	assert.Len(t, s.movements, movsBefore, "lote ya en cero: no hace falta ajuste")
	assert.False(t, s.lots[lot.ID].IsActive)
}

func TestDeleteReagent_CascadaCompleta(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo M")
	ctx := context.Background()
	lotA, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "A", 10))
	require.NoError(t, err)
	lotB, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "B", 6))
	require.NoError(t, err)

	require.NoError(t, uc.DeleteReagent(ctx, reagent.ID, "admin-1"))

	assert.False(t, s.reagents[reagent.ID].IsActive)
	assert.True(t, s.reagents[reagent.ID].TotalQuantity.IsZero())
	for _, id := range []string{lotA.ID, lotB.ID} {
		assert.False(t, s.lots[id].IsActive)
		assert.True(t, s.lots[id].Quantity.IsZero())
		assertReplay(t, s, id)
	}
	// dos entradas + dos ajustes de cascada
	assert.Len(t, s.movements, 4)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallos de almacenamiento y concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestFalloAlmacenamiento_NoDejaEstadoParcial(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo N")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 10))
	require.NoError(t, err)

	snapshotQty := s.lots[lot.ID].Quantity
	snapshotTotal := s.reagents[reagent.ID].TotalQuantity
	snapshotMovs := len(s.movements)

	boom := errors.New("conexión perdida")

	t.Run("fallo al escribir el movimiento", func(t *testing.T) {
		s.failCreateMovement = boom
		defer func() { s.failCreateMovement = nil }()

		_, err := uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(4), UserID: "u"})
		require.ErrorIs(t, err, boom)

		assert.True(t, s.lots[lot.ID].Quantity.Equal(snapshotQty), "cantidad del lote intacta")
		assert.True(t, s.reagents[reagent.ID].TotalQuantity.Equal(snapshotTotal), "agregado intacto")
		assert.Len(t, s.movements, snapshotMovs, "sin movimientos fantasma")
	})

	t.Run("fallo al actualizar el lote", func(t *testing.T) {
		s.failUpdateLot = boom
		defer func() { s.failUpdateLot = nil }()

		_, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 2))
		require.ErrorIs(t, err, boom)

		assert.True(t, s.lots[lot.ID].Quantity.Equal(snapshotQty))
		assert.Len(t, s.movements, snapshotMovs)
	})

	// tras el fallo, reintentar la operación completa es seguro
	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(4), UserID: "u"})
	require.NoError(t, err)
	assertAggregate(t, s, reagent.ID)
}

func TestStockOut_ConcurrenteSinSobregiro(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo O")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 5))
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(2), UserID: "u"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}

	// 5 unidades / salidas de 2: solo caben 2 éxitos, el resto rechaza
	assert.Equal(t, 2, ok)
	assert.Equal(t, workers-2, insufficient)
	assert.True(t, s.lots[lot.ID].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, s.lots[lot.ID].Quantity.GreaterThanOrEqual(decimal.Zero), "nunca negativo")
	assertAggregate(t, s, reagent.ID)
	assertReplay(t, s, lot.ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia entre lotes distintos del mismo reactivo
//
// memTxRunner serializa transacciones completas con un único mutex, así que no
// puede reproducir el intercalado de dos transacciones que bloquean filas
// distintas. rcState modela READ COMMITTED con bloqueo por fila: cada
// transacción escribe en su writeset privado, las lecturas ven lo confirmado
// más las escrituras propias, y GetForUpdate toma un mutex por fila que se
// libera al terminar la transacción.
// ──────────────────────────────────────────────────────────────────────────────

type rcState struct {
	mu       sync.Mutex
	reagents map[string]*entity.Reagent
	lots     map[string]*entity.Lot
	locks    map[string]*sync.Mutex

	afterSum func() // hook: se ejecuta tras calcular la sumatoria
}

func newRCState() *rcState {
	return &rcState{
		reagents: make(map[string]*entity.Reagent),
		lots:     make(map[string]*entity.Lot),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *rcState) rowLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] == nil {
		s.locks[key] = &sync.Mutex{}
	}
	return s.locks[key]
}

type rcTx struct {
	s        *rcState
	reagents map[string]*entity.Reagent
	lots     map[string]*entity.Lot
	held     map[string]*sync.Mutex
}

func newRCTx(s *rcState) *rcTx {
	return &rcTx{
		s:        s,
		reagents: make(map[string]*entity.Reagent),
		lots:     make(map[string]*entity.Lot),
		held:     make(map[string]*sync.Mutex),
	}
}

func (tx *rcTx) lock(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	m := tx.s.rowLock(key)
	m.Lock()
	tx.held[key] = m
}

func (tx *rcTx) readReagent(id string) *entity.Reagent {
	if r, ok := tx.reagents[id]; ok {
		cp := *r
		return &cp
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if r, ok := tx.s.reagents[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (tx *rcTx) readLot(id string) *entity.Lot {
	if l, ok := tx.lots[id]; ok {
		cp := *l
		return &cp
	}
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if l, ok := tx.s.lots[id]; ok {
		cp := *l
		return &cp
	}
	return nil
}

type rcReagentRepo struct{ tx *rcTx }

func (r *rcReagentRepo) Create(reagent *entity.Reagent) error {
	cp := *reagent
	r.tx.reagents[reagent.ID] = &cp
	return nil
}

func (r *rcReagentRepo) GetByID(id string) (*entity.Reagent, error) {
	return r.tx.readReagent(id), nil
}

func (r *rcReagentRepo) GetActiveByID(id string) (*entity.Reagent, error) {
	rg := r.tx.readReagent(id)
	if rg == nil || !rg.IsActive {
		return nil, nil
	}
	return rg, nil
}

func (r *rcReagentRepo) GetForUpdate(id string) (*entity.Reagent, error) {
	r.tx.lock("reagent:" + id)
	return r.tx.readReagent(id), nil
}

func (r *rcReagentRepo) List(bool, int, int) ([]*entity.Reagent, error) { return nil, nil }

func (r *rcReagentRepo) Update(reagent *entity.Reagent) error {
	cp := *reagent
	r.tx.reagents[reagent.ID] = &cp
	return nil
}

func (r *rcReagentRepo) UpdateTotalQuantity(id string, total decimal.Decimal) error {
	rg := r.tx.readReagent(id)
	if rg == nil {
		return domain.ErrNotFound
	}
	rg.TotalQuantity = total
	r.tx.reagents[id] = rg
	return nil
}

func (r *rcReagentRepo) SoftDelete(id string) error {
	rg := r.tx.readReagent(id)
	if rg == nil {
		return domain.ErrNotFound
	}
	rg.IsActive = false
	r.tx.reagents[id] = rg
	return nil
}

func (r *rcReagentRepo) ListBelowMinimum() ([]*entity.Reagent, error) { return nil, nil }

type rcLotRepo struct{ tx *rcTx }

func (r *rcLotRepo) Create(lot *entity.Lot) error {
	cp := *lot
	r.tx.lots[lot.ID] = &cp
	return nil
}

func (r *rcLotRepo) GetByID(id string) (*entity.Lot, error) {
	return r.tx.readLot(id), nil
}

func (r *rcLotRepo) GetForUpdate(id string) (*entity.Lot, error) {
	r.tx.lock("lot:" + id)
	return r.tx.readLot(id), nil
}

func (r *rcLotRepo) FindActiveByNumber(string, string) (*entity.Lot, error) { return nil, nil }
func (r *rcLotRepo) FindActiveByNumberForUpdate(string, string) (*entity.Lot, error) {
	return nil, nil
}
func (r *rcLotRepo) ListActiveByReagent(string) ([]*entity.Lot, error)          { return nil, nil }
func (r *rcLotRepo) ListActiveByReagentForUpdate(string) ([]*entity.Lot, error) { return nil, nil }
func (r *rcLotRepo) ListExpiringBefore(time.Time) ([]*entity.Lot, error)        { return nil, nil }

// SumActiveByReagent ve lo confirmado más el writeset propio, como un SELECT
// plano bajo READ COMMITTED: las escrituras no confirmadas de OTRA transacción
// son invisibles.
func (r *rcLotRepo) SumActiveByReagent(reagentID string) (decimal.Decimal, error) {
	visible := make(map[string]*entity.Lot)
	r.tx.s.mu.Lock()
	for id, l := range r.tx.s.lots {
		cp := *l
		visible[id] = &cp
	}
	r.tx.s.mu.Unlock()
	for id, l := range r.tx.lots {
		cp := *l
		visible[id] = &cp
	}

	total := decimal.Zero
	for _, l := range visible {
		if l.ReagentID == reagentID && l.IsActive {
			total = total.Add(l.Quantity)
		}
	}
	if r.tx.s.afterSum != nil {
		r.tx.s.afterSum()
	}
	return total, nil
}

func (r *rcLotRepo) UpdateQuantity(lot *entity.Lot) error {
	stored := r.tx.readLot(lot.ID)
	if stored == nil {
		return domain.ErrNotFound
	}
	stored.Quantity = lot.Quantity
	stored.UpdatedAt = lot.UpdatedAt
	r.tx.lots[lot.ID] = stored
	return nil
}

func (r *rcLotRepo) SoftDelete(id string) error {
	stored := r.tx.readLot(id)
	if stored == nil {
		return domain.ErrNotFound
	}
	stored.IsActive = false
	r.tx.lots[id] = stored
	return nil
}

type rcMovementRepo struct{ tx *rcTx }

// el libro no interviene en las aserciones de estos escenarios
func (r *rcMovementRepo) Create(*entity.StockMovement) error { return nil }
func (r *rcMovementRepo) ListByReagent(string, repository.MovementFilter) ([]*entity.StockMovement, error) {
	return nil, nil
}
func (r *rcMovementRepo) ListByLot(string) ([]*entity.StockMovement, error) { return nil, nil }

type rcTxRunner struct{ s *rcState }

func (t *rcTxRunner) Run(_ context.Context, fn func(
	reagentRepo repository.ReagentRepository,
	lotRepo repository.LotRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	tx := newRCTx(t.s)
	err := fn(&rcReagentRepo{tx}, &rcLotRepo{tx}, &rcMovementRepo{tx})
	if err == nil {
		t.s.mu.Lock()
		for id, r := range tx.reagents {
			t.s.reagents[id] = r
		}
		for id, l := range tx.lots {
			t.s.lots[id] = l
		}
		t.s.mu.Unlock()
	}
	for _, m := range tx.held {
		m.Unlock()
	}
	return err
}

// rcFixture siembra un reactivo con dos lotes y abre la ventana de carrera:
// la primera transacción que llega a la sumatoria espera un rato por si otra
// también llega a sumar. Con la fila del reactivo tomada antes de sumar,
// ninguna otra puede llegar y la espera solo agrega latencia; sin ese bloqueo
// ambas sumarían sin verse y la última en confirmar pisaría el agregado.
func rcFixture(qtyA, qtyB int64) (*StockUseCase, *rcState) {
	s := newRCState()
	s.reagents["r1"] = &entity.Reagent{
		ID:            "r1",
		Name:          "Diluyente",
		Unit:          "mL",
		TotalQuantity: decimal.NewFromInt(qtyA + qtyB),
		IsActive:      true,
	}
	s.lots["lA"] = &entity.Lot{ID: "lA", ReagentID: "r1", LotNumber: "A",
		Quantity: decimal.NewFromInt(qtyA), IsActive: true}
	s.lots["lB"] = &entity.Lot{ID: "lB", ReagentID: "r1", LotNumber: "B",
		Quantity: decimal.NewFromInt(qtyB), IsActive: true}

	var arrivals int32
	s.afterSum = func() {
		if atomic.AddInt32(&arrivals, 1) == 1 {
			time.Sleep(150 * time.Millisecond)
		}
	}

	// los repos fuera de transacción no intervienen en estas operaciones
	uc := NewStockUseCase(&rcTxRunner{s: s}, nil, nil, nil)
	return uc, s
}

func rcAssertAggregate(t *testing.T, s *rcState, want int64) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, l := range s.lots {
		if l.ReagentID == "r1" && l.IsActive {
			sum = sum.Add(l.Quantity)
		}
	}
	require.True(t, sum.Equal(decimal.NewFromInt(want)),
		"suma de lotes activos %s, esperada %d", sum, want)
	require.True(t, s.reagents["r1"].TotalQuantity.Equal(sum),
		"total_quantity %s != suma de lotes activos %s",
		s.reagents["r1"].TotalQuantity, sum)
}

func TestStockOut_ConcurrenteEnLotesDistintos_AgregadoConsistente(t *testing.T) {
	uc, s := rcFixture(10, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, lotID := range []string{"lA", "lB"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := uc.StockOut(ctx, StockOutInput{
				LotID: id, Quantity: decimal.NewFromInt(5), UserID: "u",
			})
			errs <- err
		}(lotID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rcAssertAggregate(t, s, 20)
}

func TestDeleteLot_ConcurrenteConSalidaEnOtroLote_AgregadoConsistente(t *testing.T) {
	uc, s := rcFixture(10, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- uc.DeleteLot(ctx, "lA", "admin-1", "", "descarte")
	}()
	go func() {
		defer wg.Done()
		_, err := uc.StockOut(ctx, StockOutInput{
			LotID: "lB", Quantity: decimal.NewFromInt(5), UserID: "u",
		})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// lA dado de baja, lB descontado: solo queda lB con 15
	rcAssertAggregate(t, s, 15)
}

// ──────────────────────────────────────────────────────────────────────────────
// Historial
// ──────────────────────────────────────────────────────────────────────────────

func TestHistory_MasRecientePrimeroYFiltros(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo P")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 10))
	require.NoError(t, err)
	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(2), UserID: "u"})
	require.NoError(t, err)
	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(1), UserID: "u"})
	require.NoError(t, err)

	movs, err := uc.History(ctx, reagent.ID, repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movs, 3)
	assert.Equal(t, entity.MovementTypeOut, movs[0].Type, "más reciente primero")
	assert.True(t, movs[0].Quantity.Equal(decimal.NewFromInt(-1)))
	assert.Equal(t, entity.MovementTypeIn, movs[2].Type)

	onlyIn, err := uc.History(ctx, reagent.ID, repository.MovementFilter{Type: entity.MovementTypeIn})
	require.NoError(t, err)
	require.Len(t, onlyIn, 1)

	_, err = uc.History(ctx, "no-existe", repository.MovementFilter{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLotHistory_OrdenDeReplay(t *testing.T) {
	uc, s := newFixture()
	reagent := seedReagent(s, "Reactivo Q")
	ctx := context.Background()
	lot, _, err := uc.StockIn(ctx, stockInInput(reagent.ID, "L1", 8))
	require.NoError(t, err)
	_, err = uc.StockOut(ctx, StockOutInput{LotID: lot.ID, Quantity: decimal.NewFromInt(3), UserID: "u"})
	require.NoError(t, err)

	movs, err := uc.LotHistory(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementTypeIn, movs[0].Type, "orden ascendente para replay")

	balance := decimal.Zero
	for _, m := range movs {
		balance = balance.Add(m.Quantity)
	}
	assert.True(t, balance.Equal(s.lots[lot.ID].Quantity))
}
