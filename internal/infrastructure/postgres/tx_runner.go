package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los errores de dominio de fn se devuelven tal cual; los del motor se envuelven como ErrStorage.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	batchRepo repository.BatchRepository,
	medRepo repository.MedicationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewMovementRepository(tx), NewBatchRepository(tx), NewMedicationRepository(tx)); err != nil {
		return domain.Storage("transaction", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Storage("commit transaction", err)
	}
	return nil
}
