package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/pkg/textfold"
)

var _ repository.MedicationRepository = (*MedicationRepo)(nil)

const medicationColumns = `id, name, category, strength, COALESCE(barcode, ''), reorder_threshold,
	location, shelf, active, created_at, updated_at`

// MedicationRepo implementación de MedicationRepository sobre PostgreSQL (usable con pool o tx).
type MedicationRepo struct {
	q Querier
}

// NewMedicationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMedicationRepository(q Querier) *MedicationRepo {
	return &MedicationRepo{q: q}
}

// searchKey texto normalizado (sin acentos, minúsculas) sobre el que se busca.
func searchKey(m *entity.Medication) string {
	return textfold.Key(m.Name, m.Category, m.Strength, m.Barcode)
}

// Create persiste un medicamento y asigna su ID.
func (r *MedicationRepo) Create(ctx context.Context, m *entity.Medication) error {
	query := `
		INSERT INTO medications (name, category, strength, barcode, reorder_threshold, location, shelf,
			active, search_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.Name, m.Category, m.Strength, nullIfEmpty(m.Barcode), m.ReorderThreshold, m.Location, m.Shelf,
		m.Active, searchKey(m), m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create medication: %w", err)
	}
	return nil
}

// GetByID obtiene un medicamento por ID. (nil, nil) si no existe.
func (r *MedicationRepo) GetByID(ctx context.Context, id int64) (*entity.Medication, error) {
	return r.getOne(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = $1`, id)
}

// GetForUpdate obtiene el medicamento y bloquea la fila (SELECT FOR UPDATE).
func (r *MedicationRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Medication, error) {
	return r.getOne(ctx, `SELECT `+medicationColumns+` FROM medications WHERE id = $1 FOR UPDATE`, id)
}

// GetByBarcode obtiene un medicamento por código de barras. (nil, nil) si no existe.
func (r *MedicationRepo) GetByBarcode(ctx context.Context, barcode string) (*entity.Medication, error) {
	return r.getOne(ctx, `SELECT `+medicationColumns+` FROM medications WHERE barcode = $1`, barcode)
}

func (r *MedicationRepo) getOne(ctx context.Context, query string, arg any) (*entity.Medication, error) {
	m, err := scanMedication(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return m, nil
}

// Update actualiza los datos descriptivos (no el flag activo).
func (r *MedicationRepo) Update(ctx context.Context, m *entity.Medication) error {
	query := `
		UPDATE medications SET name = $2, category = $3, strength = $4, barcode = $5, reorder_threshold = $6,
			location = $7, shelf = $8, search_key = $9, updated_at = $10
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		m.ID, m.Name, m.Category, m.Strength, nullIfEmpty(m.Barcode), m.ReorderThreshold,
		m.Location, m.Shelf, searchKey(m), m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetActive cambia el flag de baja lógica.
func (r *MedicationRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE medications SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set medication active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista el catálogo ordenado por nombre con filtros opcionales.
func (r *MedicationRepo) List(ctx context.Context, filter repository.MedicationFilter, limit, offset int) ([]*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE 1=1`
	args := []any{}
	pos := 1
	if filter.ActiveOnly {
		query += ` AND active`
	}
	if c := strings.TrimSpace(filter.Category); c != "" {
		query += fmt.Sprintf(` AND lower(category) = lower($%d)`, pos)
		args = append(args, c)
		pos++
	}
	if s := textfold.Fold(filter.Search); s != "" {
		query += fmt.Sprintf(` AND search_key LIKE $%d`, pos)
		args = append(args, "%"+escapeLike(s)+"%")
		pos++
	}
	query += ` ORDER BY name, id`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, pos, pos+1)
		args = append(args, limit, offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()
	var list []*entity.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Categories tipos distintos de medicamento, en orden alfabético.
func (r *MedicationRepo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT category FROM medications ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanMedication(row pgx.Row) (*entity.Medication, error) {
	var m entity.Medication
	err := row.Scan(
		&m.ID, &m.Name, &m.Category, &m.Strength, &m.Barcode, &m.ReorderThreshold,
		&m.Location, &m.Shelf, &m.Active, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// escapeLike escapa los comodines de LIKE (ESCAPE por defecto '\').
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
