package repository

import (
	"context"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// MedicationFilter filtros del listado del catálogo. Search se compara sin acentos ni mayúsculas
// contra nombre, tipo y código de barras.
type MedicationFilter struct {
	Search     string
	Category   string
	ActiveOnly bool
}

// MedicationRepository define el puerto de persistencia para el catálogo (DIP).
// GetByID, GetForUpdate y GetByBarcode devuelven (nil, nil) si no existe.
// GetForUpdate bloquea la fila hasta el fin de la transacción (baja vs. alta de existencias).
type MedicationRepository interface {
	Create(ctx context.Context, med *entity.Medication) error
	GetByID(ctx context.Context, id int64) (*entity.Medication, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Medication, error)
	GetByBarcode(ctx context.Context, barcode string) (*entity.Medication, error)
	Update(ctx context.Context, med *entity.Medication) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context, filter MedicationFilter, limit, offset int) ([]*entity.Medication, error)
	Categories(ctx context.Context) ([]string, error)
}
