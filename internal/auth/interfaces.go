package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"accounts-api/internal/user"
)

// TokenService defines the interface for access token creation and
// validation, implemented by PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// RefreshTokenRepository defines the interface for refresh token storage.
type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// UserStore is the slice of user persistence the auth flows depend on.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}
