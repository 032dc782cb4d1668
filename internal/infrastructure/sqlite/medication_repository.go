package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/pkg/textfold"
)

var _ repository.MedicationRepository = (*MedicationRepo)(nil)

const medicationColumns = `id, name, category, strength, barcode, reorder_threshold, location, shelf,
	active, created_at, updated_at`

type medicationRow struct {
	ID               int64          `db:"id"`
	Name             string         `db:"name"`
	Category         string         `db:"category"`
	Strength         string         `db:"strength"`
	Barcode          sql.NullString `db:"barcode"`
	ReorderThreshold int64          `db:"reorder_threshold"`
	Location         string         `db:"location"`
	Shelf            string         `db:"shelf"`
	Active           bool           `db:"active"`
	CreatedAt        string         `db:"created_at"`
	UpdatedAt        string         `db:"updated_at"`
}

func (r medicationRow) entity() (*entity.Medication, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entity.Medication{
		ID:               r.ID,
		Name:             r.Name,
		Category:         r.Category,
		Strength:         r.Strength,
		Barcode:          r.Barcode.String,
		ReorderThreshold: r.ReorderThreshold,
		Location:         r.Location,
		Shelf:            r.Shelf,
		Active:           r.Active,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}

// MedicationRepo catálogo sobre SQLite.
type MedicationRepo struct {
	q Querier
}

// NewMedicationRepository construye el adaptador sobre db o tx.
func NewMedicationRepository(q Querier) *MedicationRepo {
	return &MedicationRepo{q: q}
}

func searchKey(m *entity.Medication) string {
	return textfold.Key(m.Name, m.Category, m.Strength, m.Barcode)
}

func (r *MedicationRepo) Create(ctx context.Context, m *entity.Medication) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO medications(name, category, strength, barcode, reorder_threshold, location, shelf,
			active, search_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Category, m.Strength, nullIfEmpty(m.Barcode), m.ReorderThreshold, m.Location, m.Shelf,
		m.Active, searchKey(m), formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create medication: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (r *MedicationRepo) GetByID(ctx context.Context, id int64) (*entity.Medication, error) {
	return r.getOne(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = ?`, id)
}

// GetForUpdate equivale a GetByID: la única conexión ya serializa las transacciones.
func (r *MedicationRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Medication, error) {
	return r.GetByID(ctx, id)
}

func (r *MedicationRepo) GetByBarcode(ctx context.Context, barcode string) (*entity.Medication, error) {
	return r.getOne(ctx, `SELECT `+medicationColumns+` FROM medications WHERE barcode = ?`, barcode)
}

func (r *MedicationRepo) getOne(ctx context.Context, query string, arg any) (*entity.Medication, error) {
	var row medicationRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, arg); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return row.entity()
}

func (r *MedicationRepo) Update(ctx context.Context, m *entity.Medication) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE medications SET name = ?, category = ?, strength = ?, barcode = ?, reorder_threshold = ?,
			location = ?, shelf = ?, search_key = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Category, m.Strength, nullIfEmpty(m.Barcode), m.ReorderThreshold,
		m.Location, m.Shelf, searchKey(m), formatTime(m.UpdatedAt), m.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update medication: %w", err)
	}
	return requireRow(res)
}

func (r *MedicationRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.q.ExecContext(ctx, `UPDATE medications SET active = ?, updated_at = ? WHERE id = ?`,
		active, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set medication active: %w", err)
	}
	return requireRow(res)
}

func (r *MedicationRepo) List(ctx context.Context, filter repository.MedicationFilter, limit, offset int) ([]*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE 1=1`
	var args []any
	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		query += ` AND LOWER(category) = LOWER(?)`
		args = append(args, c)
	}
	if s := textfold.Fold(filter.Search); s != "" {
		query += ` AND search_key LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(s)+"%")
	}
	query += ` ORDER BY name, id`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	var rows []medicationRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	list := make([]*entity.Medication, 0, len(rows))
	for _, row := range rows {
		m, err := row.entity()
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, nil
}

func (r *MedicationRepo) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := sqlx.SelectContext(ctx, r.q, &out, `SELECT DISTINCT category FROM medications ORDER BY category`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
