package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

const operator = int64(1)

type fixture struct {
	store   *memStore
	runner  *memTxRunner
	ledger  *inventory.LedgerUseCase
	batches *inventory.BatchUseCase
	medID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	runner := &memTxRunner{store: store}
	ledger := inventory.NewLedgerUseCase(runner, lockedBatchRepo{store}, lockedMovementRepo{store}, zerolog.Nop())
	f := &fixture{
		store:   store,
		runner:  runner,
		ledger:  ledger,
		batches: inventory.NewBatchUseCase(runner, lockedBatchRepo{store}, ledger),
	}
	store.view(func(s *memState) {
		f.medID = s.id()
		s.meds[f.medID] = entity.Medication{ID: f.medID, Name: "Paracetamol", Category: "Analgésico", ReorderThreshold: 100, Active: true}
	})
	return f
}

func (f *fixture) batch(t *testing.T, ref string, qty int64) int64 {
	t.Helper()
	b, _, err := f.batches.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID:    f.medID,
		ReferenceCode:   ref,
		InitialQuantity: qty,
		UserID:          operator,
	})
	require.NoError(t, err)
	return b.ID
}

func (f *fixture) record(kind entity.MovementKind, batchID, qty int64) (*entity.Movement, error) {
	return f.ledger.RecordMovement(context.Background(), inventory.MovementInput{
		BatchID: batchID, Kind: kind, Quantity: qty, UserID: operator,
	})
}

func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()
	f.store.view(func(s *memState) {
		for id, b := range s.batches {
			net, _ := memMovementRepo{s}.NetByBatch(context.Background(), id)
			assert.Equal(t, net, b.Quantity, "existencia %d", id)
			assert.GreaterOrEqual(t, b.Quantity, int64(0))
		}
	})
}

func (f *fixture) movementCount() int {
	var n int
	f.store.view(func(s *memState) { n = len(s.movs) })
	return n
}

func TestRecordMovement_Escenario(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-2024-001", 250)

	_, err := f.record(entity.MovementInbound, id, 300)
	require.NoError(t, err)
	_, err = f.record(entity.MovementOutbound, id, 50)
	require.NoError(t, err)

	_, err = f.record(entity.MovementOutbound, id, 600)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(500), ise.Available)
	assert.Equal(t, int64(600), ise.Requested)

	bal, err := f.ledger.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
	assert.Equal(t, 3, f.movementCount())
	f.assertInvariant(t)
}

func TestRecordMovement_LimiteCero(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-A", 10)

	_, err := f.record(entity.MovementExpired, id, 10)
	require.NoError(t, err)

	_, err = f.record(entity.MovementOutbound, id, 1)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(0), ise.Available)

	_, err = f.record(entity.MovementInbound, id, 5)
	require.NoError(t, err)
	f.assertInvariant(t)
}

func TestRecordMovement_RechazosSinEfecto(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-B", 20)
	before := f.movementCount()

	cases := []struct {
		name string
		in   inventory.MovementInput
		want error
	}{
		{"cantidad cero", inventory.MovementInput{BatchID: id, Kind: entity.MovementInbound, Quantity: 0, UserID: operator}, domain.ErrInvalidInput},
		{"cantidad negativa", inventory.MovementInput{BatchID: id, Kind: entity.MovementOutbound, Quantity: -1, UserID: operator}, domain.ErrInvalidInput},
		{"tipo desconocido", inventory.MovementInput{BatchID: id, Kind: "ajuste", Quantity: 1, UserID: operator}, domain.ErrInvalidInput},
		{"sin usuario", inventory.MovementInput{BatchID: id, Kind: entity.MovementInbound, Quantity: 1}, domain.ErrInvalidInput},
		{"existencia inexistente", inventory.MovementInput{BatchID: 999, Kind: entity.MovementInbound, Quantity: 1, UserID: operator}, domain.ErrNotFound},
		{"stock insuficiente", inventory.MovementInput{BatchID: id, Kind: entity.MovementOutbound, Quantity: 21, UserID: operator}, domain.ErrInsufficientStock},
		{"entrada desborda el saldo", inventory.MovementInput{BatchID: id, Kind: entity.MovementInbound, Quantity: math.MaxInt64, UserID: operator}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Repetir el mismo rechazo no cambia nada
			for i := 0; i < 2; i++ {
				_, err := f.ledger.RecordMovement(context.Background(), tc.in)
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
	assert.Equal(t, before, f.movementCount())
	bal, err := f.ledger.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(20), bal)
}

func TestRecordMovement_FalloDeAlmacenRevierte(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-C", 40)
	before := f.movementCount()

	f.runner.wrapBatch = func(r repository.BatchRepository) repository.BatchRepository {
		return failingBatchRepo{r}
	}
	_, err := f.record(entity.MovementOutbound, id, 10)
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, errDiskFull)

	f.runner.wrapBatch = nil
	assert.Equal(t, before, f.movementCount(), "no debe quedar movimiento huérfano")
	bal, err := f.ledger.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(40), bal)
	f.assertInvariant(t)
}

func TestRecordMovement_Concurrencia(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-D", 500)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.record(entity.MovementOutbound, id, 300)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrInsufficientStock) {
				fail++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, fail)
	bal, err := f.ledger.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal)
	f.assertInvariant(t)
}

// El almacén no aísla las transacciones: ambas leerían 500. El lock por existencia del libro
// hace que la segunda lea el saldo ya confirmado.
func TestRecordMovement_ConcurrenciaSinAislamientoDelAlmacen(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-D2", 500)
	runner := &racyTxRunner{store: f.store, afterRead: rendezvous(2, 100*time.Millisecond)}
	ledger := inventory.NewLedgerUseCase(runner, lockedBatchRepo{f.store}, lockedMovementRepo{f.store}, zerolog.Nop())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := ledger.RecordMovement(context.Background(), inventory.MovementInput{
				BatchID: id, Kind: entity.MovementOutbound, Quantity: 300, UserID: operator,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrInsufficientStock) {
				fail++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, fail)
	bal, err := ledger.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal)
	f.assertInvariant(t)
}

func TestRecordMovement_ContextoCancelado(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-E", 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.ledger.RecordMovement(ctx, inventory.MovementInput{BatchID: id, Kind: entity.MovementInbound, Quantity: 1, UserID: operator})
	require.Error(t, err)
	assert.Equal(t, 1, f.movementCount())
}

func TestListMovements_OrdenYFiltros(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := fixed
	f.ledger.WithClock(func() time.Time { return clock })

	a := f.batch(t, "LOTE-F", 100) // inbound en fixed
	m1, err := f.record(entity.MovementOutbound, a, 10)
	require.NoError(t, err)
	m2, err := f.record(entity.MovementExpired, a, 5)
	require.NoError(t, err)
	clock = fixed.Add(time.Hour)
	m3, err := f.record(entity.MovementOutbound, a, 1)
	require.NoError(t, err)

	list, err := f.ledger.ListMovements(context.Background(), repository.MovementFilter{BatchID: a})
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, m3.ID, list[0].ID, "más reciente primero")
	// Mismo instante: orden de inserción
	assert.Equal(t, entity.MovementInbound, list[1].Kind)
	assert.Equal(t, m1.ID, list[2].ID)
	assert.Equal(t, m2.ID, list[3].ID)

	outbound, err := f.ledger.ListMovements(context.Background(), repository.MovementFilter{Kind: entity.MovementOutbound})
	require.NoError(t, err)
	assert.Len(t, outbound, 2)

	_, err = f.ledger.ListMovements(context.Background(), repository.MovementFilter{Kind: "otro"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReconcileBatch(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-G", 30)
	_, err := f.record(entity.MovementOutbound, id, 12)
	require.NoError(t, err)

	rec, err := f.ledger.ReconcileBatch(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.Equal(t, int64(18), rec.Counter)

	_, err = f.ledger.ReconcileBatch(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterMovementFromRequest(t *testing.T) {
	f := newFixture(t)
	id := f.batch(t, "LOTE-H", 10)

	mov, err := f.ledger.RegisterMovementFromRequest(context.Background(), operator, dto.RegisterMovementRequest{
		BatchID: id, Type: " SALIDA ", Quantity: decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementOutbound, mov.Kind)
	assert.Equal(t, entity.ReasonStandard, mov.Reason)
	assert.NotEmpty(t, mov.OperationID)

	_, err = f.ledger.RegisterMovementFromRequest(context.Background(), operator, dto.RegisterMovementRequest{
		BatchID: id, Type: "entrada", Quantity: decimal.RequireFromString("1.5"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateBatch(t *testing.T) {
	f := newFixture(t)
	b, initial, err := f.batches.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID: f.medID, ReferenceCode: "LOTE-I", InitialQuantity: 75, UserID: operator,
	})
	require.NoError(t, err)
	require.NotNil(t, initial)
	assert.Equal(t, int64(75), b.Quantity)
	assert.Equal(t, entity.ReasonInitialStock, initial.Reason)
	assert.Equal(t, "Registro inicial de existencia", initial.Notes)

	empty, none, err := f.batches.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID: f.medID, ReferenceCode: "LOTE-J",
	})
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, int64(0), empty.Quantity)

	_, _, err = f.batches.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID: f.medID, ReferenceCode: "LOTE-I", InitialQuantity: 1, UserID: operator,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, _, err = f.batches.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID: 999, ReferenceCode: "LOTE-K",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.store.view(func(s *memState) {
		m := s.meds[f.medID]
		m.Active = false
		s.meds[f.medID] = m
	})
	_, _, err = f.batches.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID: f.medID, ReferenceCode: "LOTE-L",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.assertInvariant(t)
}

type recordingObserver struct {
	mu        sync.Mutex
	committed []*entity.Movement
	rejected  []error
}

func (o *recordingObserver) MovementCommitted(m *entity.Movement) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, m)
}

func (o *recordingObserver) MovementRejected(_ entity.MovementKind, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, err)
}

func TestObserver_ConfirmadosYRechazos(t *testing.T) {
	f := newFixture(t)
	obs := &recordingObserver{}
	f.ledger.WithObserver(obs)

	id := f.batch(t, "LOTE-OBS", 5)
	_, err := f.record(entity.MovementOutbound, id, 2)
	require.NoError(t, err)
	_, err = f.record(entity.MovementOutbound, id, 10)
	require.Error(t, err)
	_, err = f.record(entity.MovementInbound, id, 0)
	require.Error(t, err)

	require.Len(t, obs.committed, 2)
	assert.Equal(t, entity.ReasonInitialStock, obs.committed[0].Reason)
	assert.Equal(t, entity.MovementOutbound, obs.committed[1].Kind)
	require.Len(t, obs.rejected, 2)
	assert.ErrorIs(t, obs.rejected[0], domain.ErrInsufficientStock)
	assert.ErrorIs(t, obs.rejected[1], domain.ErrInvalidInput)
}
