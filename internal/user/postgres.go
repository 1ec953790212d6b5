package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"accounts-api/internal/database"
)

// PostgresRepository stores users in PostgreSQL through Bun.
type PostgresRepository struct {
	db *bun.DB
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *bun.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user row. The caller assigns the ID and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	_, err := r.db.NewInsert().
		Model(toRow(u)).
		Exec(ctx)

	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := new(database.User)
	err := r.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return toModel(row), nil
}

// GetByEmail retrieves a user by email. The caller normalizes the address
// first so lookups agree with what Create stored.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := new(database.User)
	err := r.db.NewSelect().
		Model(row).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return toModel(row), nil
}

// List returns all users in creation order.
func (r *PostgresRepository) List(ctx context.Context) ([]*User, error) {
	var rows []database.User
	err := r.db.NewSelect().
		Model(&rows).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*User, 0, len(rows))
	for i := range rows {
		users = append(users, toModel(&rows[i]))
	}

	return users, nil
}

// Update persists identity and flag changes. Password and last login have
// their own narrower updates.
func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("email = ?", u.Email).
		Set("name = ?", u.Name).
		Set("is_active = ?", u.IsActive).
		Set("is_staff = ?", u.IsStaff).
		Set("is_superuser = ?", u.IsSuperuser).
		Set("updated_at = NOW()").
		Where("id = ?", u.ID).
		Exec(ctx)

	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdatePassword updates a user's password hash
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRowsAffected(result)
}

// UpdateLastLogin stamps the moment a user last authenticated.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("last_login = ?", at).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireRowsAffected(result)
}

// Delete removes a user row.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return requireRowsAffected(result)
}

func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// toRow converts the domain model to the persistence model
func toRow(u *User) *database.User {
	return &database.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// toModel converts the persistence model to the domain model
func toModel(row *database.User) *User {
	return &User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		IsStaff:      row.IsStaff,
		IsSuperuser:  row.IsSuperuser,
		LastLogin:    row.LastLogin,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
