package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `id, medication_id, reference_code, quantity, registered_on, created_at, updated_at`

type batchRow struct {
	ID            int64  `db:"id"`
	MedicationID  int64  `db:"medication_id"`
	ReferenceCode string `db:"reference_code"`
	Quantity      int64  `db:"quantity"`
	RegisteredOn  string `db:"registered_on"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

func (r batchRow) entity() (*entity.Batch, error) {
	registered, err := parseDate(r.RegisteredOn)
	if err != nil {
		return nil, err
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entity.Batch{
		ID:            r.ID,
		MedicationID:  r.MedicationID,
		ReferenceCode: r.ReferenceCode,
		Quantity:      r.Quantity,
		RegisteredOn:  registered,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}, nil
}

// BatchRepo existencias sobre SQLite. GetForUpdate no bloquea filas: la única conexión
// ya serializa las transacciones y el libro añade su lock por existencia.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador sobre db o tx.
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO batches(medication_id, reference_code, quantity, registered_on, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.MedicationID, b.ReferenceCode, b.Quantity, b.RegisteredOn.Format(dateLayout),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("create batch: %w", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

func (r *BatchRepo) GetByID(ctx context.Context, id int64) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
}

func (r *BatchRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Batch, error) {
	return r.GetByID(ctx, id)
}

func (r *BatchRepo) GetByReference(ctx context.Context, referenceCode string) (*entity.Batch, error) {
	return r.getOne(ctx, `SELECT `+batchColumns+` FROM batches WHERE reference_code = ?`, referenceCode)
}

func (r *BatchRepo) getOne(ctx context.Context, query string, arg any) (*entity.Batch, error) {
	var row batchRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return row.entity()
}

func (r *BatchRepo) ListByMedication(ctx context.Context, medicationID int64) ([]*entity.Batch, error) {
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches WHERE medication_id = ? ORDER BY registered_on, id`, medicationID)
}

func (r *BatchRepo) List(ctx context.Context, limit, offset int) ([]*entity.Batch, error) {
	if limit <= 0 {
		return r.list(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY id`)
	}
	return r.list(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	var rows []batchRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	list := make([]*entity.Batch, 0, len(rows))
	for _, row := range rows {
		b, err := row.entity()
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, nil
}

func (r *BatchRepo) SetQuantity(ctx context.Context, id, quantity int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE batches SET quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set batch quantity: %w", err)
	}
	return requireRow(res)
}
