package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"accounts-api/internal/logging"
	"accounts-api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service handles authentication business logic
type Service struct {
	users                UserStore
	tokens               RefreshTokenRepository
	tokenService         TokenService
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	users UserStore,
	tokens RefreshTokenRepository,
	tokenService TokenService,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		users:                users,
		tokens:               tokens,
		tokenService:         tokenService,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// Login authenticates credentials and returns a token pair. An unknown
// email, a wrong password, and a deactivated account all fail with the same
// error so a caller cannot probe which accounts exist or which are disabled.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthTokens, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !account.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	if !account.CanAuthenticate() {
		return nil, ErrInvalidCredentials
	}

	// Stamp the login moment. Failure to record it must not block the login
	// itself; the stamp is bookkeeping, not security state.
	if err := s.users.UpdateLastLogin(ctx, account.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record login time", "user_id", account.ID, "error", err.Error())
	}

	tokens, err := s.generateTokens(ctx, account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// RefreshAccessToken rotates a refresh token: the old token is revoked and a
// fresh pair is issued.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.tokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil, ErrInvalidToken
		}
		if errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrRefreshTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if !rt.IsValid() {
		if rt.IsRevoked() {
			return nil, ErrRefreshTokenRevoked
		}
		return nil, ErrRefreshTokenExpired
	}

	// Revoke before issuing so a stolen token cannot be replayed
	if err := s.tokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	account, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// An account deactivated after login loses its session at next refresh
	if !account.CanAuthenticate() {
		return nil, ErrInvalidToken
	}

	tokens, err := s.generateTokens(ctx, account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return tokens, nil
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.RevokeRefreshToken(ctx, refreshToken)
}

// RevokeAllSessions revokes every refresh token a user holds.
func (s *Service) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.RevokeAllUserTokens(ctx, userID)
}

// generateTokens creates both access and refresh tokens
func (s *Service) generateTokens(ctx context.Context, userID uuid.UUID, email string) (*AuthTokens, error) {
	// Access token (short-lived)
	accessToken, err := s.tokenService.CreateToken(userID, email, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	// Refresh token (long-lived, random string)
	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := time.Now().Add(s.refreshTokenDuration)
	if err := s.tokens.StoreRefreshToken(ctx, userID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
