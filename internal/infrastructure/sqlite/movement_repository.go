package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `mv.id, mv.operation_id, mv.batch_id, mv.kind, mv.quantity, mv.reason,
	mv.occurred_at, mv.user_id, mv.notes`

type movementRow struct {
	ID          int64  `db:"id"`
	OperationID string `db:"operation_id"`
	BatchID     int64  `db:"batch_id"`
	Kind        string `db:"kind"`
	Quantity    int64  `db:"quantity"`
	Reason      string `db:"reason"`
	OccurredAt  string `db:"occurred_at"`
	UserID      int64  `db:"user_id"`
	Notes       string `db:"notes"`
}

func (r movementRow) entity() (*entity.Movement, error) {
	at, err := parseTime(r.OccurredAt)
	if err != nil {
		return nil, err
	}
	return &entity.Movement{
		ID:          r.ID,
		OperationID: r.OperationID,
		BatchID:     r.BatchID,
		Kind:        entity.MovementKind(r.Kind),
		Quantity:    r.Quantity,
		Reason:      r.Reason,
		OccurredAt:  at,
		UserID:      r.UserID,
		Notes:       r.Notes,
	}, nil
}

// MovementRepo libro de movimientos sobre SQLite (triggers impiden UPDATE y DELETE).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador.
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO movements(operation_id, batch_id, kind, quantity, reason, occurred_at, user_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.OperationID, m.BatchID, string(m.Kind), m.Quantity, m.Reason, formatTime(m.OccurredAt), m.UserID, m.Notes,
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	var row movementRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT `+movementColumns+` FROM movements mv WHERE mv.id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return row.entity()
}

// List más reciente primero; a igual fecha, por orden de inserción.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements mv`
	if f.MedicationID > 0 {
		query += ` JOIN batches b ON b.id = mv.batch_id`
	}
	query += ` WHERE 1=1`
	var args []any
	if f.Kind != "" {
		query += ` AND mv.kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.BatchID > 0 {
		query += ` AND mv.batch_id = ?`
		args = append(args, f.BatchID)
	}
	if f.MedicationID > 0 {
		query += ` AND b.medication_id = ?`
		args = append(args, f.MedicationID)
	}
	query, args = appendRange(query, args, f.From, f.To)
	query += ` ORDER BY mv.occurred_at DESC, mv.id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	var rows []movementRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	list := make([]*entity.Movement, 0, len(rows))
	for _, row := range rows {
		m, err := row.entity()
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, nil
}

func (r *MovementRepo) NetByBatch(ctx context.Context, batchID int64) (int64, error) {
	var net int64
	err := sqlx.GetContext(ctx, r.q, &net, `
		SELECT COALESCE(SUM(CASE WHEN kind = 'inbound' THEN quantity ELSE -quantity END), 0)
		FROM movements WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("net by batch: %w", err)
	}
	return net, nil
}

func appendRange(query string, args []any, from, to *time.Time) (string, []any) {
	if from != nil {
		query += ` AND mv.occurred_at >= ?`
		args = append(args, formatTime(*from))
	}
	if to != nil {
		query += ` AND mv.occurred_at < ?`
		args = append(args, formatTime(*to))
	}
	return query, args
}
