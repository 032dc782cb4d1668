package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type userRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Role      string `db:"role"`
	CreatedAt string `db:"created_at"`
}

func (r userRow) entity() (*entity.User, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entity.User{ID: r.ID, Name: r.Name, Role: r.Role, CreatedAt: created}, nil
}

// UserRepo operadores sobre SQLite.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO users(name, role, created_at) VALUES (?, ?, ?)`,
		u.Name, u.Role, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.q, &row, `SELECT id, name, role, created_at FROM users WHERE id = ?`, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.entity()
}

func (r *UserRepo) List(ctx context.Context) ([]*entity.User, error) {
	var rows []userRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT id, name, role, created_at FROM users ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*entity.User, 0, len(rows))
	for _, row := range rows {
		u, err := row.entity()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
