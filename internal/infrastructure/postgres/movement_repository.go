package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `mv.id, mv.operation_id::text, mv.batch_id, mv.kind, mv.quantity, mv.reason,
	mv.occurred_at, mv.user_id, mv.notes`

// MovementRepo libro de movimientos sobre PostgreSQL: solo INSERT y SELECT.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create agrega la entrada al libro; el ID lo asigna la secuencia.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (operation_id, batch_id, kind, quantity, reason, occurred_at, user_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.OperationID, m.BatchID, string(m.Kind), m.Quantity, m.Reason, m.OccurredAt, m.UserID, m.Notes,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID. (nil, nil) si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM movements mv WHERE mv.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// List historial filtrado, más reciente primero; a igual fecha, por orden de inserción (id).
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements mv`
	if f.MedicationID > 0 {
		query += ` JOIN batches b ON b.id = mv.batch_id`
	}
	query += ` WHERE 1=1`
	args := []any{}
	pos := 1
	if f.Kind != "" {
		query += fmt.Sprintf(` AND mv.kind = $%d`, pos)
		args = append(args, string(f.Kind))
		pos++
	}
	if f.BatchID > 0 {
		query += fmt.Sprintf(` AND mv.batch_id = $%d`, pos)
		args = append(args, f.BatchID)
		pos++
	}
	if f.MedicationID > 0 {
		query += fmt.Sprintf(` AND b.medication_id = $%d`, pos)
		args = append(args, f.MedicationID)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(` AND mv.occurred_at >= $%d`, pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(` AND mv.occurred_at < $%d`, pos)
		args = append(args, *f.To)
		pos++
	}
	query += ` ORDER BY mv.occurred_at DESC, mv.id ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, pos, pos+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// NetByBatch Σentradas − Σsalidas − Σcaducados de la existencia.
func (r *MovementRepo) NetByBatch(ctx context.Context, batchID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'inbound' THEN quantity ELSE -quantity END), 0)::BIGINT
		FROM movements WHERE batch_id = $1`
	var net int64
	if err := r.q.QueryRow(ctx, query, batchID).Scan(&net); err != nil {
		return 0, fmt.Errorf("net by batch: %w", err)
	}
	return net, nil
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m    entity.Movement
		kind string
	)
	err := row.Scan(&m.ID, &m.OperationID, &m.BatchID, &kind, &m.Quantity, &m.Reason, &m.OccurredAt, &m.UserID, &m.Notes)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	m.OccurredAt = m.OccurredAt.UTC()
	return &m, nil
}
