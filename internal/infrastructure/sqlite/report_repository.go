package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// ReportRepo agregaciones de solo lectura sobre SQLite.
type ReportRepo struct {
	q Querier
}

// NewReportRepository construye el adaptador.
func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

type stockRow struct {
	MedicationID     int64  `db:"id"`
	Name             string `db:"name"`
	Category         string `db:"category"`
	Strength         string `db:"strength"`
	Location         string `db:"location"`
	ReorderThreshold int64  `db:"reorder_threshold"`
	TotalQuantity    int64  `db:"total"`
	BatchCount       int64  `db:"batches"`
}

const stockByMedicationQuery = `
	SELECT m.id, m.name, m.category, m.strength, m.location, m.reorder_threshold,
		COALESCE(SUM(b.quantity), 0) AS total, COUNT(b.id) AS batches
	FROM medications m
	LEFT JOIN batches b ON b.medication_id = m.id
	WHERE m.active = 1
	GROUP BY m.id`

func (r *ReportRepo) StockByMedication(ctx context.Context) ([]repository.MedicationStock, error) {
	return r.stock(ctx, stockByMedicationQuery+` ORDER BY m.name, m.id`)
}

func (r *ReportRepo) LowStock(ctx context.Context) ([]repository.MedicationStock, error) {
	return r.stock(ctx, stockByMedicationQuery+`
		HAVING COALESCE(SUM(b.quantity), 0) <= m.reorder_threshold
		ORDER BY m.reorder_threshold - COALESCE(SUM(b.quantity), 0) DESC, m.name, m.id`)
}

func (r *ReportRepo) stock(ctx context.Context, query string) ([]repository.MedicationStock, error) {
	var rows []stockRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query); err != nil {
		return nil, fmt.Errorf("stock by medication: %w", err)
	}
	out := make([]repository.MedicationStock, 0, len(rows))
	for _, s := range rows {
		out = append(out, repository.MedicationStock(s))
	}
	return out, nil
}

type summaryRow struct {
	MedicationID  int64  `db:"id"`
	Name          string `db:"name"`
	Category      string `db:"category"`
	TotalQuantity int64  `db:"total"`
	MovementCount int64  `db:"n"`
}

func (r *ReportRepo) SummaryByMedication(ctx context.Context, kind entity.MovementKind, from, to *time.Time) ([]repository.KindSummary, error) {
	query := `
		SELECT m.id, m.name, m.category, SUM(mv.quantity) AS total, COUNT(*) AS n
		FROM movements mv
		JOIN batches b ON b.id = mv.batch_id
		JOIN medications m ON m.id = b.medication_id
		WHERE mv.kind = ?`
	query, args := appendRange(query, []any{string(kind)}, from, to)
	query += ` GROUP BY m.id, m.name, m.category ORDER BY total DESC, m.name`

	var rows []summaryRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("summary by medication: %w", err)
	}
	out := make([]repository.KindSummary, 0, len(rows))
	for _, s := range rows {
		out = append(out, repository.KindSummary(s))
	}
	return out, nil
}

type kindTotalRow struct {
	Kind          string `db:"kind"`
	TotalQuantity int64  `db:"total"`
	MovementCount int64  `db:"n"`
}

func (r *ReportRepo) KindTotals(ctx context.Context, from, to *time.Time) ([]repository.KindTotal, error) {
	query, args := appendRange(`SELECT mv.kind, COALESCE(SUM(mv.quantity), 0) AS total, COUNT(*) AS n
		FROM movements mv WHERE 1=1`, nil, from, to)
	query += ` GROUP BY mv.kind ORDER BY mv.kind`

	var rows []kindTotalRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("kind totals: %w", err)
	}
	out := make([]repository.KindTotal, 0, len(rows))
	for _, t := range rows {
		out = append(out, repository.KindTotal{
			Kind:          entity.MovementKind(t.Kind),
			TotalQuantity: t.TotalQuantity,
			MovementCount: t.MovementCount,
		})
	}
	return out, nil
}

func (r *ReportRepo) CountMovements(ctx context.Context, from, to *time.Time) (int64, error) {
	query, args := appendRange(`SELECT COUNT(*) FROM movements mv WHERE 1=1`, nil, from, to)
	var n int64
	if err := sqlx.GetContext(ctx, r.q, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}
