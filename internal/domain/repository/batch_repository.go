package repository

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// BatchRepository define el puerto para las existencias.
// SetQuantity es exclusivo del libro de movimientos y solo se invoca dentro de su transacción.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id int64) (*entity.Batch, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE) cuando el motor lo soporta.
	GetForUpdate(ctx context.Context, id int64) (*entity.Batch, error)
	GetByReference(ctx context.Context, referenceCode string) (*entity.Batch, error)
	ListByMedication(ctx context.Context, medicationID int64) ([]*entity.Batch, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Batch, error)
	SetQuantity(ctx context.Context, id, quantity int64) error
}
