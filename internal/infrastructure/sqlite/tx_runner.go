package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/Farmacia-api/internal/application/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite.
// fn no debe usar repositorios construidos sobre *sqlx.DB: con una sola conexión quedaría bloqueado.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner construye el runner.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run inicia la transacción, ejecuta fn con repos atados a ella y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	batchRepo repository.BatchRepository,
	medRepo repository.MedicationRepository,
) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewMovementRepository(tx), NewBatchRepository(tx), NewMedicationRepository(tx)); err != nil {
		return domain.Storage("transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Storage("commit transaction", err)
	}
	return nil
}
