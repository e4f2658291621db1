package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/contactdesk/backend/internal/common/db"
	"github.com/contactdesk/backend/internal/user/domain"
)

type Repository interface {
	Create(ctx context.Context, user domain.User) error
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	ListNewestFirst(ctx context.Context) ([]domain.Summary, error)
}

var (
	ErrUserNotFound = errors.New("user not found")

	// Insert-time uniqueness conflicts. Validation pre-checks the same
	// constraints, so hitting one of these means a concurrent signup won
	// the race between check and insert.
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrEmailAlreadyExists    = errors.New("email already exists")
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Create(ctx context.Context, user domain.User) error {
	defer db.MeasureQuery("create_user", "users", time.Now())

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		string(user.ID),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return translateUniqueViolation(pgErr)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// translateUniqueViolation maps a 23505 onto the violated column so the
// caller can surface a field-level conflict.
func translateUniqueViolation(pgErr *pgconn.PgError) error {
	if strings.Contains(pgErr.ConstraintName, "email") {
		return ErrEmailAlreadyExists
	}
	return ErrUsernameAlreadyExists
}

func (r *PgRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	defer db.MeasureQuery("find_user_by_username", "users", time.Now())

	row := r.pool.QueryRow(
		ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`,
		username,
	)
	return scanUser(row, "username")
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	defer db.MeasureQuery("find_user_by_email", "users", time.Now())

	row := r.pool.QueryRow(
		ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row, "email")
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	defer db.MeasureQuery("find_user_by_id", "users", time.Now())

	row := r.pool.QueryRow(
		ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`,
		string(id),
	)
	return scanUser(row, "id")
}

func scanUser(row pgx.Row, by string) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to find user by %s: %w", by, err)
	}
	return user, nil
}

func (r *PgRepository) ListNewestFirst(ctx context.Context) ([]domain.Summary, error) {
	defer db.MeasureQuery("list_users", "users", time.Now())

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, username, email, created_at
		 FROM users
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.Summary
	for rows.Next() {
		var u domain.Summary
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows iteration error: %w", rows.Err())
	}

	return users, nil
}
