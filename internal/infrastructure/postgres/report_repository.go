package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.ReportRepository = (*ReportRepo)(nil)

// ReportRepo consultas de agregación de solo lectura sobre PostgreSQL.
type ReportRepo struct {
	q Querier
}

// NewReportRepository construye el adaptador de reportes.
func NewReportRepository(q Querier) *ReportRepo {
	return &ReportRepo{q: q}
}

const stockByMedicationQuery = `
	SELECT m.id, m.name, m.category, m.strength, m.location, m.reorder_threshold,
		COALESCE(SUM(b.quantity), 0)::BIGINT AS total, COUNT(b.id) AS batches
	FROM medications m
	LEFT JOIN batches b ON b.medication_id = m.id
	WHERE m.active
	GROUP BY m.id, m.name, m.category, m.strength, m.location, m.reorder_threshold`

// StockByMedication medicamentos activos con su stock total.
func (r *ReportRepo) StockByMedication(ctx context.Context) ([]repository.MedicationStock, error) {
	return r.stock(ctx, stockByMedicationQuery+` ORDER BY m.name, m.id`)
}

// LowStock activos con total <= umbral, mayor déficit primero.
func (r *ReportRepo) LowStock(ctx context.Context) ([]repository.MedicationStock, error) {
	return r.stock(ctx, stockByMedicationQuery+`
		HAVING COALESCE(SUM(b.quantity), 0) <= m.reorder_threshold
		ORDER BY m.reorder_threshold - COALESCE(SUM(b.quantity), 0) DESC, m.name, m.id`)
}

func (r *ReportRepo) stock(ctx context.Context, query string) ([]repository.MedicationStock, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stock by medication: %w", err)
	}
	defer rows.Close()
	var out []repository.MedicationStock
	for rows.Next() {
		var s repository.MedicationStock
		if err := rows.Scan(&s.MedicationID, &s.Name, &s.Category, &s.Strength, &s.Location,
			&s.ReorderThreshold, &s.TotalQuantity, &s.BatchCount); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SummaryByMedication movimientos de un tipo agrupados por medicamento en [from, to).
func (r *ReportRepo) SummaryByMedication(ctx context.Context, kind entity.MovementKind, from, to *time.Time) ([]repository.KindSummary, error) {
	query := `
		SELECT m.id, m.name, m.category, SUM(mv.quantity)::BIGINT AS total, COUNT(*) AS n
		FROM movements mv
		JOIN batches b ON b.id = mv.batch_id
		JOIN medications m ON m.id = b.medication_id
		WHERE mv.kind = $1`
	args := []any{string(kind)}
	query, args = appendRange(query, args, from, to)
	query += ` GROUP BY m.id, m.name, m.category ORDER BY total DESC, m.name`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary by medication: %w", err)
	}
	defer rows.Close()
	var out []repository.KindSummary
	for rows.Next() {
		var s repository.KindSummary
		if err := rows.Scan(&s.MedicationID, &s.Name, &s.Category, &s.TotalQuantity, &s.MovementCount); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// KindTotals totales por tipo de movimiento en [from, to).
func (r *ReportRepo) KindTotals(ctx context.Context, from, to *time.Time) ([]repository.KindTotal, error) {
	query := `SELECT mv.kind, COALESCE(SUM(mv.quantity), 0)::BIGINT, COUNT(*) FROM movements mv WHERE 1=1`
	query, args := appendRange(query, nil, from, to)
	query += ` GROUP BY mv.kind ORDER BY mv.kind`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kind totals: %w", err)
	}
	defer rows.Close()
	var out []repository.KindTotal
	for rows.Next() {
		var (
			t    repository.KindTotal
			kind string
		)
		if err := rows.Scan(&kind, &t.TotalQuantity, &t.MovementCount); err != nil {
			return nil, fmt.Errorf("scan kind total: %w", err)
		}
		t.Kind = entity.MovementKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountMovements número de movimientos en [from, to).
func (r *ReportRepo) CountMovements(ctx context.Context, from, to *time.Time) (int64, error) {
	query, args := appendRange(`SELECT COUNT(*) FROM movements mv WHERE 1=1`, nil, from, to)
	var n int64
	if err := r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

func appendRange(query string, args []any, from, to *time.Time) (string, []any) {
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(` AND mv.occurred_at >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(` AND mv.occurred_at < $%d`, len(args))
	}
	return query, args
}
