package inventory

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza la atomicidad del libro de movimientos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		batchRepo repository.BatchRepository,
		medRepo repository.MedicationRepository,
	) error) error
}

// MovementObserver recibe los movimientos confirmados y los rechazos (métricas).
// Se invoca después del Commit, nunca dentro de la transacción.
type MovementObserver interface {
	MovementCommitted(mov *entity.Movement)
	MovementRejected(kind entity.MovementKind, err error)
}

type nopObserver struct{}

func (nopObserver) MovementCommitted(*entity.Movement)          {}
func (nopObserver) MovementRejected(entity.MovementKind, error) {}
