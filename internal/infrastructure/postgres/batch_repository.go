package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `id, medication_id, reference_code, quantity, registered_on, created_at, updated_at`

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de existencias. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

// Create inserta la existencia y asigna su ID.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO batches (medication_id, reference_code, quantity, registered_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		b.MedicationID, b.ReferenceCode, b.Quantity, b.RegisteredOn, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// GetByID obtiene una existencia. (nil, nil) si no existe.
func (r *BatchRepo) GetByID(ctx context.Context, id int64) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1`, id)
}

// GetForUpdate obtiene la existencia y bloquea la fila para update (SELECT FOR UPDATE).
func (r *BatchRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = $1 FOR UPDATE`, id)
}

// GetByReference busca por código de referencia del lote.
func (r *BatchRepo) GetByReference(ctx context.Context, referenceCode string) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches WHERE reference_code = $1`, referenceCode)
}

func (r *BatchRepo) getOne(ctx context.Context, query string, arg any) (*entity.Batch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListByMedication existencias de un medicamento, más antiguas primero.
func (r *BatchRepo) ListByMedication(ctx context.Context, medicationID int64) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches WHERE medication_id = $1
		ORDER BY registered_on, id`, medicationID)
}

// List todas las existencias por ID; limit <= 0 sin límite.
func (r *BatchRepo) List(ctx context.Context, limit, offset int) ([]*entity.Batch, error) {
	if limit <= 0 {
		return r.list(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY id`)
	}
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// SetQuantity fija el saldo. Solo lo invoca el libro dentro de su transacción;
// el CHECK (quantity >= 0) de la tabla es la última barrera.
func (r *BatchRepo) SetQuantity(ctx context.Context, id, quantity int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE batches SET quantity = $2, updated_at = now() WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("set batch quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	if err := row.Scan(&b.ID, &b.MedicationID, &b.ReferenceCode, &b.Quantity, &b.RegisteredOn, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
