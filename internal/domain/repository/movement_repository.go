package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// MovementFilter filtros del historial. Campos cero = sin filtro. From inclusivo, To exclusivo.
type MovementFilter struct {
	Kind         entity.MovementKind
	BatchID      int64
	MedicationID int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// MovementRepository puerto del libro de movimientos: solo inserción y lectura.
// List ordena por fecha descendente; a igual fecha, por orden de inserción.
type MovementRepository interface {
	Create(ctx context.Context, mov *entity.Movement) error
	GetByID(ctx context.Context, id int64) (*entity.Movement, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// NetByBatch suma entradas menos salidas y caducados de una existencia.
	NetByBatch(ctx context.Context, batchID int64) (int64, error)
}
