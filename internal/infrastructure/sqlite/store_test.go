package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/sqlite"
)

const operator = int64(1)

type stack struct {
	db      *sqlx.DB
	meds    *sqlite.MedicationRepo
	batches *sqlite.BatchRepo
	movs    *sqlite.MovementRepo
	reports *sqlite.ReportRepo
	runner  inventory.TxRunner
	ledger  *inventory.LedgerUseCase
	batchUC *inventory.BatchUseCase
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &stack{
		db:      db,
		meds:    sqlite.NewMedicationRepository(db),
		batches: sqlite.NewBatchRepository(db),
		movs:    sqlite.NewMovementRepository(db),
		reports: sqlite.NewReportRepository(db),
		runner:  sqlite.NewTxRunner(db),
	}
	s.ledger = inventory.NewLedgerUseCase(s.runner, s.batches, s.movs, zerolog.Nop())
	s.batchUC = inventory.NewBatchUseCase(s.runner, s.batches, s.ledger)
	return s
}

func (s *stack) medication(t *testing.T, name, category string, threshold int64) int64 {
	t.Helper()
	now := time.Now().UTC()
	m := &entity.Medication{Name: name, Category: category, ReorderThreshold: threshold, Location: "Farmacia Central", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.meds.Create(context.Background(), m))
	return m.ID
}

func (s *stack) batch(t *testing.T, medID int64, ref string, qty int64) int64 {
	t.Helper()
	b, _, err := s.batchUC.CreateBatch(context.Background(), inventory.CreateBatchInput{
		MedicationID: medID, ReferenceCode: ref, InitialQuantity: qty, UserID: operator,
	})
	require.NoError(t, err)
	return b.ID
}

func (s *stack) record(kind entity.MovementKind, batchID, qty int64) (*entity.Movement, error) {
	return s.ledger.RecordMovement(context.Background(), inventory.MovementInput{
		BatchID: batchID, Kind: kind, Quantity: qty, UserID: operator,
	})
}

func (s *stack) assertInvariant(t *testing.T) {
	t.Helper()
	list, err := s.batches.List(context.Background(), 0, 0)
	require.NoError(t, err)
	for _, b := range list {
		net, err := s.movs.NetByBatch(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, net, b.Quantity, "existencia %s", b.ReferenceCode)
	}
}

func (s *stack) countMovements(t *testing.T) int64 {
	t.Helper()
	n, err := s.reports.CountMovements(context.Background(), nil, nil)
	require.NoError(t, err)
	return n
}

func TestLedger_Escenario(t *testing.T) {
	s := newStack(t)
	med := s.medication(t, "Paracetamol", "Analgésico", 100)
	id := s.batch(t, med, "LOTE-2024-001", 250)

	_, err := s.record(entity.MovementInbound, id, 300)
	require.NoError(t, err)
	_, err = s.record(entity.MovementOutbound, id, 50)
	require.NoError(t, err)
	_, err = s.record(entity.MovementOutbound, id, 600)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(500), ise.Available)

	bal, err := s.ledger.CurrentBalance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), bal)
	assert.Equal(t, int64(3), s.countMovements(t))
	s.assertInvariant(t)
}

func TestLedger_LimiteCero(t *testing.T) {
	s := newStack(t)
	id := s.batch(t, s.medication(t, "Ibuprofeno", "Antiinflamatorio", 50), "LOTE-A", 10)

	_, err := s.record(entity.MovementOutbound, id, 10)
	require.NoError(t, err)
	_, err = s.record(entity.MovementExpired, id, 1)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, int64(0), ise.Available)
	s.assertInvariant(t)
}

type failingBatchRepo struct {
	repository.BatchRepository
}

func (failingBatchRepo) SetQuantity(context.Context, int64, int64) error {
	return errors.New("io error")
}

// failingRunner usa la transacción real pero falla entre la inserción del movimiento y el saldo.
type failingRunner struct {
	inner inventory.TxRunner
}

func (r failingRunner) Run(ctx context.Context, fn func(repository.MovementRepository, repository.BatchRepository, repository.MedicationRepository) error) error {
	return r.inner.Run(ctx, func(m repository.MovementRepository, b repository.BatchRepository, md repository.MedicationRepository) error {
		return fn(m, failingBatchRepo{b}, md)
	})
}

func TestLedger_RollbackSinMovimientoHuerfano(t *testing.T) {
	s := newStack(t)
	id := s.batch(t, s.medication(t, "Amoxicilina", "Antibiótico", 30), "LOTE-B", 40)
	before := s.countMovements(t)

	broken := inventory.NewLedgerUseCase(failingRunner{s.runner}, s.batches, s.movs, zerolog.Nop())
	_, err := broken.RecordMovement(context.Background(), inventory.MovementInput{
		BatchID: id, Kind: entity.MovementOutbound, Quantity: 5, UserID: operator,
	})
	require.ErrorIs(t, err, domain.ErrStorage)

	assert.Equal(t, before, s.countMovements(t))
	b, err := s.batches.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(40), b.Quantity)
	s.assertInvariant(t)
}

func TestLedger_ConcurrenciaUnaSolaSalida(t *testing.T) {
	s := newStack(t)
	id := s.batch(t, s.medication(t, "Losartán", "Antihipertensivo", 40), "LOTE-C", 500)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.record(entity.MovementOutbound, id, 300)
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	var ok, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)
	b, err := s.batches.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(200), b.Quantity)
	s.assertInvariant(t)
}

func TestMovements_OrdenEmpates(t *testing.T) {
	s := newStack(t)
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s.ledger.WithClock(func() time.Time { return fixed })
	id := s.batch(t, s.medication(t, "Metformina", "Antidiabético", 60), "LOTE-D", 20)

	m1, err := s.record(entity.MovementOutbound, id, 1)
	require.NoError(t, err)
	m2, err := s.record(entity.MovementOutbound, id, 2)
	require.NoError(t, err)

	list, err := s.movs.List(context.Background(), repository.MovementFilter{BatchID: id})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, entity.MovementInbound, list[0].Kind)
	assert.Equal(t, m1.ID, list[1].ID)
	assert.Equal(t, m2.ID, list[2].ID)
	assert.True(t, list[1].OccurredAt.Equal(fixed))

	from := fixed.Add(-time.Minute)
	to := fixed.Add(time.Minute)
	ranged, err := s.movs.List(context.Background(), repository.MovementFilter{Kind: entity.MovementOutbound, From: &from, To: &to, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, m2.ID, ranged[0].ID)
}

func TestMovements_AppendOnly(t *testing.T) {
	s := newStack(t)
	id := s.batch(t, s.medication(t, "Omeprazol", "Antiácido", 10), "LOTE-E", 5)

	_, err := s.db.Exec(`UPDATE movements SET quantity = 99 WHERE batch_id = ?`, id)
	assert.Error(t, err)
	_, err = s.db.Exec(`DELETE FROM movements WHERE batch_id = ?`, id)
	assert.Error(t, err)
}

func TestBatches_CantidadNoNegativa(t *testing.T) {
	s := newStack(t)
	id := s.batch(t, s.medication(t, "Loratadina", "Antihistamínico", 10), "LOTE-F", 5)
	assert.Error(t, s.batches.SetQuantity(context.Background(), id, -1))
}

func TestBatches_ReferenciaDuplicada(t *testing.T) {
	s := newStack(t)
	med := s.medication(t, "Diclofenaco", "Antiinflamatorio", 10)
	s.batch(t, med, "LOTE-G", 1)
	_, _, err := s.batchUC.CreateBatch(context.Background(), inventory.CreateBatchInput{MedicationID: med, ReferenceCode: "LOTE-G"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	b, err := s.batches.GetByReference(context.Background(), "LOTE-G")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, med, b.MedicationID)

	missing, err := s.batches.GetByReference(context.Background(), "NO-EXISTE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMedications_BusquedaSinAcentosYBarcode(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.meds.Create(ctx, &entity.Medication{Name: "Losartán", Category: "Antihipertensivo", Barcode: "7501", Active: true, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.meds.Create(ctx, &entity.Medication{Name: "Paracetamol", Category: "Analgésico", Active: true, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, s.meds.Create(ctx, &entity.Medication{Name: "Naproxeno", Category: "Analgésico", Active: true, CreatedAt: now, UpdatedAt: now}))

	err := s.meds.Create(ctx, &entity.Medication{Name: "Otro", Category: "X", Barcode: "7501", Active: true, CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	found, err := s.meds.List(ctx, repository.MedicationFilter{Search: "LOSARTAN"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "7501", found[0].Barcode)

	byCat, err := s.meds.List(ctx, repository.MedicationFilter{Search: "analgesico"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, byCat, 2)

	cats, err := s.meds.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Analgésico", "Antihipertensivo"}, cats)

	require.NoError(t, s.meds.SetActive(ctx, found[0].ID, false))
	active, err := s.meds.List(ctx, repository.MedicationFilter{ActiveOnly: true}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	byCode, err := s.meds.GetByBarcode(ctx, "7501")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.False(t, byCode.Active)
}

func TestReports(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	para := s.medication(t, "Paracetamol", "Analgésico", 100)
	amox := s.medication(t, "Amoxicilina", "Antibiótico", 30)
	ibu := s.medication(t, "Ibuprofeno", "Antiinflamatorio", 50)

	p1 := s.batch(t, para, "LOTE-2024-001", 250)
	a1 := s.batch(t, amox, "LOTE-2024-003", 20)
	i1 := s.batch(t, ibu, "LOTE-2024-004", 50)

	_, err := s.record(entity.MovementOutbound, p1, 40)
	require.NoError(t, err)
	_, err = s.record(entity.MovementOutbound, a1, 5)
	require.NoError(t, err)
	_, err = s.record(entity.MovementOutbound, p1, 10)
	require.NoError(t, err)
	_, err = s.record(entity.MovementExpired, i1, 3)
	require.NoError(t, err)

	low, err := s.reports.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	// Mayor déficit primero: amoxicilina 15/30, ibuprofeno 47/50
	assert.Equal(t, amox, low[0].MedicationID)
	assert.Equal(t, int64(15), low[0].TotalQuantity)
	assert.Equal(t, ibu, low[1].MedicationID)

	stock, err := s.reports.StockByMedication(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 3)
	assert.Equal(t, "Amoxicilina", stock[0].Name)

	out, err := s.reports.SummaryByMedication(ctx, entity.MovementOutbound, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, para, out[0].MedicationID)
	assert.Equal(t, int64(50), out[0].TotalQuantity)
	assert.Equal(t, int64(2), out[0].MovementCount)

	totals, err := s.reports.KindTotals(ctx, nil, nil)
	require.NoError(t, err)
	byKind := map[entity.MovementKind]int64{}
	for _, tt := range totals {
		byKind[tt.Kind] = tt.TotalQuantity
	}
	assert.Equal(t, int64(320), byKind[entity.MovementInbound])
	assert.Equal(t, int64(55), byKind[entity.MovementOutbound])
	assert.Equal(t, int64(3), byKind[entity.MovementExpired])

	// Un medicamento dado de baja deja de generar alertas
	require.NoError(t, s.meds.SetActive(ctx, amox, false))
	low, err = s.reports.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, ibu, low[0].MedicationID)
}

func TestReports_AlertaEnUmbralExacto(t *testing.T) {
	s := newStack(t)
	med := s.medication(t, "Salbutamol", "Broncodilatador", 20)
	s.batch(t, med, "LOTE-H", 20)

	low, err := s.reports.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(20), low[0].TotalQuantity)
}
