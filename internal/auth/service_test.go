package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounts-api/internal/logging"
	"accounts-api/internal/user"
)

// fakeUserStore keeps accounts in memory, keyed the way the Postgres
// repository would key them.
type fakeUserStore struct {
	accounts     map[uuid.UUID]*user.User
	lastLogins   map[uuid.UUID]time.Time
	lastLoginErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		accounts:   make(map[uuid.UUID]*user.User),
		lastLogins: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeUserStore) add(u *user.User) {
	f.accounts[u.ID] = u
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.accounts {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f.accounts[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserStore) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	f.lastLogins[id] = at
	return nil
}

// fakeTokenStore mirrors the Redis repository's observable behavior: revoked
// wins over everything, then missing, then expired.
type fakeTokenStore struct {
	stored  map[string]*RefreshToken
	revoked map[string]bool
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		stored:  make(map[string]*RefreshToken),
		revoked: make(map[string]bool),
	}
}

func (f *fakeTokenStore) StoreRefreshToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	f.stored[token] = &RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeTokenStore) GetRefreshToken(_ context.Context, token string) (*RefreshToken, error) {
	if f.revoked[token] {
		return nil, ErrRefreshTokenRevoked
	}
	rt, ok := f.stored[token]
	if !ok {
		return nil, ErrRefreshTokenNotFound
	}
	if rt.IsExpired() {
		return nil, ErrRefreshTokenExpired
	}
	clone := *rt
	return &clone, nil
}

func (f *fakeTokenStore) RevokeRefreshToken(_ context.Context, token string) error {
	f.revoked[token] = true
	return nil
}

func (f *fakeTokenStore) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	for token, rt := range f.stored {
		if rt.UserID == userID {
			f.revoked[token] = true
		}
	}
	return nil
}

func newTestAuthService(t *testing.T) (*Service, *fakeUserStore, *fakeTokenStore, *PasetoService) {
	t.Helper()

	paseto, err := NewPasetoService([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := NewService(users, tokens, paseto, logging.NewNop(), 15*time.Minute, 7*24*time.Hour)

	return svc, users, tokens, paseto
}

func activeAccount(t *testing.T, email, password string) *user.User {
	t.Helper()

	account := &user.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      "Test User",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, account.SetPassword(password))
	return account
}

func TestLoginSuccess(t *testing.T) {
	svc, users, tokens, paseto := newTestAuthService(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	pair, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := paseto.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	// Refresh token was persisted for later rotation
	_, ok := tokens.stored[pair.RefreshToken]
	assert.True(t, ok)

	// Login moment was recorded
	loginAt, ok := users.lastLogins[account.ID]
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), loginAt, 5*time.Second)
}

func TestLoginNormalizesEmail(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)

	users.add(activeAccount(t, "Alice@example.com", "correct horse"))

	// Same address with a shouting domain resolves to the same account
	_, err := svc.Login(context.Background(), "Alice@EXAMPLE.COM", "correct horse")
	assert.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)

	active := activeAccount(t, "alice@example.com", "correct horse")
	users.add(active)

	inactive := activeAccount(t, "bob@example.com", "correct horse")
	inactive.IsActive = false
	users.add(inactive)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "wrong"},
		{"unknown email", "nobody@example.com", "correct horse"},
		{"inactive account with correct password", "bob@example.com", "correct horse"},
		{"empty email", "", "correct horse"},
		{"empty password", "alice@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			// Every failure mode looks identical to the caller
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	// None of the failed attempts touched a login stamp
	assert.Empty(t, users.lastLogins)
}

func TestLoginSurvivesLastLoginWriteFailure(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)

	users.add(activeAccount(t, "alice@example.com", "correct horse"))
	users.lastLoginErr = errors.New("connection reset")

	pair, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, users, tokens, paseto := newTestAuthService(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	pair, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	rotated, err := svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	claims, err := paseto.VerifyToken(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.UserID)

	// The presented token was revoked, so replaying it fails
	assert.True(t, tokens.revoked[pair.RefreshToken])
	_, err = svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestRefreshUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	_, err := svc.RefreshAccessToken(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, users, tokens, _ := newTestAuthService(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	require.NoError(t, tokens.StoreRefreshToken(context.Background(), account.ID, "stale", time.Now().Add(-time.Hour)))

	_, err := svc.RefreshAccessToken(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrRefreshTokenExpired)
}

func TestRefreshDeactivatedAccount(t *testing.T) {
	svc, users, tokens, _ := newTestAuthService(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	pair, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	users.accounts[account.ID].IsActive = false

	_, err = svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The token is spent either way; deactivation ends the session for good
	assert.True(t, tokens.revoked[pair.RefreshToken])
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)

	users.add(activeAccount(t, "alice@example.com", "correct horse"))

	pair, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken))

	_, err = svc.RefreshAccessToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestRevokeAllSessions(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	first, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllSessions(context.Background(), account.ID))

	_, err = svc.RefreshAccessToken(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	_, err = svc.RefreshAccessToken(context.Background(), second.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}
