package usecase_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/usecase"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/sqlite"
)

type catalogFixture struct {
	meds      *usecase.MedicationUseCase
	batches   *inventory.BatchUseCase
	ledger    *inventory.LedgerUseCase
	movs      repository.MovementRepository
	medRepo   repository.MedicationRepository
	batchRepo repository.BatchRepository
	runner    inventory.TxRunner
}

func newCatalog(t *testing.T) *catalogFixture {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := sqlite.NewTxRunner(db)
	batchRepo := sqlite.NewBatchRepository(db)
	movRepo := sqlite.NewMovementRepository(db)
	medRepo := sqlite.NewMedicationRepository(db)
	ledger := inventory.NewLedgerUseCase(runner, batchRepo, movRepo, zerolog.Nop())
	return &catalogFixture{
		meds:      usecase.NewMedicationUseCase(medRepo, batchRepo, runner, ledger),
		batches:   inventory.NewBatchUseCase(runner, batchRepo, ledger),
		ledger:    ledger,
		movs:      movRepo,
		medRepo:   medRepo,
		batchRepo: batchRepo,
		runner:    runner,
	}
}

// staleMedicationRepo simula una lectura fuera de la transacción tomada antes de una baja concurrente.
type staleMedicationRepo struct {
	repository.MedicationRepository
}

func (r staleMedicationRepo) GetByID(ctx context.Context, id int64) (*entity.Medication, error) {
	m, err := r.MedicationRepository.GetByID(ctx, id)
	if m != nil {
		m.Active = true
	}
	return m, err
}

func strPtr(s string) *string { return &s }

func TestMedication_CreateUpdate(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()

	med, err := f.meds.Create(ctx, dto.CreateMedicationRequest{
		Name: " Paracetamol ", Category: "Analgésico", Strength: "500mg", Barcode: "7501031311309",
		ReorderThreshold: 100, Location: "Farmacia Central", Shelf: "A-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", med.Name)
	assert.True(t, med.Active)

	_, err = f.meds.Create(ctx, dto.CreateMedicationRequest{Name: "Otro", Category: "X", Barcode: "7501031311309"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = f.meds.Create(ctx, dto.CreateMedicationRequest{Name: "  ", Category: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	upd, err := f.meds.Update(ctx, med.ID, dto.UpdateMedicationRequest{Strength: strPtr("1g"), Shelf: strPtr("B-2")})
	require.NoError(t, err)
	assert.Equal(t, "1g", upd.Strength)
	assert.Equal(t, "B-2", upd.Shelf)
	assert.Equal(t, "Paracetamol", upd.Name)

	byCode, err := f.meds.GetByBarcode(ctx, "7501031311309")
	require.NoError(t, err)
	assert.Equal(t, med.ID, byCode.ID)

	_, err = f.meds.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMedication_List(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	for _, name := range []string{"Losartán", "Metformina", "Ibuprofeno"} {
		_, err := f.meds.Create(ctx, dto.CreateMedicationRequest{Name: name, Category: "General"})
		require.NoError(t, err)
	}

	page, err := f.meds.List(ctx, repository.MedicationFilter{Search: "losartan"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Losartán", page.Items[0].Name)

	all, err := f.meds.List(ctx, repository.MedicationFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Page.Count)
	assert.Equal(t, "Ibuprofeno", all.Items[0].Name)
}

func TestMedication_DeactivateConRetiro(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	med, err := f.meds.Create(ctx, dto.CreateMedicationRequest{Name: "Amoxicilina", Category: "Antibiótico", ReorderThreshold: 30})
	require.NoError(t, err)

	b1, _, err := f.batches.CreateBatch(ctx, inventory.CreateBatchInput{MedicationID: med.ID, ReferenceCode: "LOTE-1", InitialQuantity: 120, UserID: 1})
	require.NoError(t, err)
	b2, _, err := f.batches.CreateBatch(ctx, inventory.CreateBatchInput{MedicationID: med.ID, ReferenceCode: "LOTE-2", InitialQuantity: 5, UserID: 1})
	require.NoError(t, err)
	_, err = f.ledger.RecordMovement(ctx, inventory.MovementInput{BatchID: b2.ID, Kind: entity.MovementExpired, Quantity: 5, UserID: 1})
	require.NoError(t, err)

	out, err := f.meds.Deactivate(ctx, med.ID, 2, dto.DeactivateMedicationRequest{WriteOff: true})
	require.NoError(t, err)
	assert.False(t, out.Medication.Active)
	require.Len(t, out.Withdrawals, 1, "la existencia en cero no genera movimiento")
	w := out.Withdrawals[0]
	assert.Equal(t, b1.ID, w.BatchID)
	assert.Equal(t, int64(120), w.Quantity)
	assert.Equal(t, "outbound", w.Type)
	assert.Equal(t, entity.ReasonCatalogWithdrawal, w.Reason)
	assert.Equal(t, out.OperationID, w.OperationID)
	assert.Equal(t, int64(2), w.UserID)

	bal, err := f.ledger.CurrentBalance(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
	rec, err := f.ledger.ReconcileBatch(ctx, b1.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())

	_, err = f.meds.Deactivate(ctx, med.ID, 2, dto.DeactivateMedicationRequest{})
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Inactivo: no admite nuevas existencias hasta reactivarlo
	_, _, err = f.batches.CreateBatch(ctx, inventory.CreateBatchInput{MedicationID: med.ID, ReferenceCode: "LOTE-3"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	re, err := f.meds.Reactivate(ctx, med.ID)
	require.NoError(t, err)
	assert.True(t, re.Active)
}

func TestMedication_DeactivateSinRetiroConservaStock(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	med, err := f.meds.Create(ctx, dto.CreateMedicationRequest{Name: "Ibuprofeno", Category: "Antiinflamatorio"})
	require.NoError(t, err)
	b, _, err := f.batches.CreateBatch(ctx, inventory.CreateBatchInput{MedicationID: med.ID, ReferenceCode: "LOTE-X", InitialQuantity: 9, UserID: 1})
	require.NoError(t, err)

	out, err := f.meds.Deactivate(ctx, med.ID, 1, dto.DeactivateMedicationRequest{})
	require.NoError(t, err)
	assert.Empty(t, out.Withdrawals)
	assert.Empty(t, out.OperationID)

	bal, err := f.ledger.CurrentBalance(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), bal)
}

func TestMedication_DeactivateRevalidaDentroDeLaTransaccion(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	med, err := f.meds.Create(ctx, dto.CreateMedicationRequest{Name: "Losartán", Category: "Antihipertensivo"})
	require.NoError(t, err)
	b, _, err := f.batches.CreateBatch(ctx, inventory.CreateBatchInput{MedicationID: med.ID, ReferenceCode: "LOTE-L", InitialQuantity: 40, UserID: 1})
	require.NoError(t, err)

	stale := usecase.NewMedicationUseCase(staleMedicationRepo{f.medRepo}, f.batchRepo, f.runner, f.ledger)
	out, err := stale.Deactivate(ctx, med.ID, 1, dto.DeactivateMedicationRequest{WriteOff: true})
	require.NoError(t, err)
	require.Len(t, out.Withdrawals, 1)

	// La segunda baja ve el medicamento activo fuera de la tx, pero dentro ya está inactivo
	_, err = stale.Deactivate(ctx, med.ID, 1, dto.DeactivateMedicationRequest{WriteOff: true})
	require.ErrorIs(t, err, domain.ErrConflict)

	movs, err := f.ledger.ListMovements(ctx, repository.MovementFilter{BatchID: b.ID})
	require.NoError(t, err)
	assert.Len(t, movs, 2, "inicial + un único retiro")
}
