package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"accounts-api/internal/logging"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

// Service creates and manages user accounts. All account writes go through
// here so validation, normalization, and hashing cannot be bypassed.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// NormalizeEmail lowercases the domain part of an email address and leaves
// the local part alone; domains are case-insensitive, local parts are not.
// An address without an @ is returned unchanged.
func NormalizeEmail(email string) string {
	trimmed := strings.TrimSpace(email)
	at := strings.LastIndex(trimmed, "@")
	if at < 0 {
		return email
	}
	local, domain := trimmed[:at], trimmed[at+1:]
	return local + "@" + strings.ToLower(domain)
}

// CreateUser creates a regular account: active, no staff or superuser
// access. The email is normalized before storage and the password is hashed
// with argon2id.
func (s *Service) CreateUser(ctx context.Context, email, name, password string) (*User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	newUser := &User{
		ID:           uuid.New(),
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", "user_id", newUser.ID, "email", newUser.Email)

	return newUser, nil
}

// CreateSuperuser creates an account and then grants it staff and superuser
// access. The two flags always travel together; there is no such thing as a
// superuser who cannot reach the admin surface.
func (s *Service) CreateSuperuser(ctx context.Context, email, name, password string) (*User, error) {
	newUser, err := s.CreateUser(ctx, email, name, password)
	if err != nil {
		return nil, err
	}

	newUser.IsStaff = true
	newUser.IsSuperuser = true

	if err := s.repo.Update(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to grant superuser access: %w", err)
	}

	s.logger.Info("superuser created", "user_id", newUser.ID, "email", newUser.Email)

	return newUser, nil
}

// Get retrieves a single account by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves an account by email, normalizing the address first so
// lookups agree with what CreateUser stored.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// List returns all accounts in creation order.
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// UpdateParams carries the fields an update may change. Nil fields are left
// untouched. Last login is deliberately absent: it is written by the login
// flow only.
type UpdateParams struct {
	Email       *string
	Name        *string
	Password    *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// Update applies the given changes to an account and returns the fresh
// record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false

	if params.Email != nil {
		email := *params.Email
		if email == "" {
			return nil, ErrEmailRequired
		}
		if len(email) > 254 {
			return nil, ErrInvalidEmailFormat
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, ErrInvalidEmailFormat
		}
		existing.Email = NormalizeEmail(email)
		changed = true
	}
	if params.Name != nil {
		existing.Name = *params.Name
		changed = true
	}
	if params.IsActive != nil {
		existing.IsActive = *params.IsActive
		changed = true
	}
	if params.IsStaff != nil {
		existing.IsStaff = *params.IsStaff
		changed = true
	}
	if params.IsSuperuser != nil {
		existing.IsSuperuser = *params.IsSuperuser
		changed = true
	}

	if changed {
		if err := s.repo.Update(ctx, existing); err != nil {
			if errors.Is(err, ErrDuplicateEmail) {
				return nil, ErrDuplicateEmail
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	if params.Password != nil {
		password := *params.Password
		if password == "" {
			return nil, ErrPasswordRequired
		}
		if len(password) < 8 {
			return nil, ErrPasswordTooShort
		}

		passwordHash, err := hashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}

		if err := s.repo.UpdatePassword(ctx, id, passwordHash); err != nil {
			return nil, fmt.Errorf("failed to update password: %w", err)
		}
	}

	return s.repo.GetByID(ctx, id)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id)

	return nil
}
