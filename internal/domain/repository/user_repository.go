package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, int, error)
	UpdateRole(ctx context.Context, id, role string) error
	Delete(ctx context.Context, id string) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.HashedPassword, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for email
			return fmt.Errorf("email already registered: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *pgUserRepository) findOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	query := `SELECT id, name, email, password, role, created_at, updated_at FROM users WHERE ` + where
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.findOne: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, id, name, email string) (*model.User, error) {
	query := `UPDATE users SET name = $1, email = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3
	          RETURNING id, name, email, password, role, created_at, updated_at`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, name, email, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email already registered: %w", common.ErrConflict)
		}
		return nil, fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List count: %w", err)
	}

	query := `SELECT id, name, email, password, role, created_at, updated_at
	          FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List query: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgUserRepository.List scan: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgUserRepository.List rows.Err: %w", err)
	}
	return users, total, nil
}

func (r *pgUserRepository) UpdateRole(ctx context.Context, id, role string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
