package seed_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/application/usecase"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/seed"
	"github.com/jhoicas/Farmacia-api/internal/infrastructure/sqlite"
)

func newSeeder(t *testing.T) (*seed.Seeder, *inventory.BatchUseCase, *inventory.LedgerUseCase) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := sqlite.NewTxRunner(db)
	batchRepo := sqlite.NewBatchRepository(db)
	ledger := inventory.NewLedgerUseCase(runner, batchRepo, sqlite.NewMovementRepository(db), zerolog.Nop())
	batches := inventory.NewBatchUseCase(runner, batchRepo, ledger)
	meds := usecase.NewMedicationUseCase(sqlite.NewMedicationRepository(db), batchRepo, runner, ledger)
	users := usecase.NewUserUseCase(sqlite.NewUserRepository(db))
	return seed.NewSeeder(users, meds, batches, ledger, zerolog.Nop()), batches, ledger
}

func TestSeed_ArchivoDeEjemplo(t *testing.T) {
	s, batches, ledger := newSeeder(t)
	ctx := context.Background()

	f, err := seed.ParseFile("../../../seed/farmacia.yaml")
	require.NoError(t, err)

	res, err := s.Apply(ctx, f, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Users)
	assert.Equal(t, 5, res.Medications)
	assert.Equal(t, 6, res.Batches)

	b, err := batches.GetByReference(ctx, "LOTE-2024-001")
	require.NoError(t, err)
	assert.EqualValues(t, 500, b.Quantity)

	rec, err := ledger.ReconcileBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())

	// Segunda aplicación: nada nuevo.
	again, err := s.Apply(ctx, f, 0)
	require.NoError(t, err)
	assert.Zero(t, again.Medications)
	assert.Zero(t, again.Batches)
	assert.Zero(t, again.Movements)
}

func TestSeed_RechazaCamposDesconocidos(t *testing.T) {
	_, err := seed.Parse(strings.NewReader("medications:\n  - name: X\n    precio: 10\n"))
	require.Error(t, err)
}

func TestSeed_SalidaSinStockFalla(t *testing.T) {
	s, _, _ := newSeeder(t)
	f, err := seed.Parse(strings.NewReader(`
users:
  - name: Ana
medications:
  - name: Aspirina
    category: Analgésicos
    batches:
      - reference_code: L-1
        initial_quantity: 5
        movements:
          - { type: salida, quantity: 6 }
`))
	require.NoError(t, err)

	_, err = s.Apply(context.Background(), f, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}
