package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gostore-shop/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetActiveByID fetches a user by id, treating deactivated accounts as
// absent.
func (r *UserRepository) GetActiveByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, email, role, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE id = $1 AND is_active`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetActiveByEmail fetches an active user by email for login.
func (r *UserRepository) GetActiveByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, email, role, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE email = $1 AND is_active`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new user. A duplicate email reports ErrConflict via
// the unique index on users.email.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true

	const query = `
		INSERT INTO users (email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
