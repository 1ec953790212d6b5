package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	return []byte(strings.Repeat("k", 32))
}

func TestNewPasetoServiceRejectsShortKey(t *testing.T) {
	_, err := NewPasetoService([]byte("too short"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestCreateAndVerifyToken(t *testing.T) {
	svc, err := NewPasetoService(testKey(t))
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.CreateToken(userID, "alice@example.com", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)

	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
	assert.WithinDuration(t, claims.IssuedAt.Add(15*time.Minute), claims.ExpiresAt, time.Second)
}

func TestVerifyTokenWrongKey(t *testing.T) {
	issuer, err := NewPasetoService(testKey(t))
	require.NoError(t, err)

	verifier, err := NewPasetoService([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)

	token, err := issuer.CreateToken(uuid.New(), "alice@example.com", 15*time.Minute)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenExpired(t *testing.T) {
	svc, err := NewPasetoService(testKey(t))
	require.NoError(t, err)

	// Negative duration puts the expiry in the past
	token, err := svc.CreateToken(uuid.New(), "alice@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyTokenGarbage(t *testing.T) {
	svc, err := NewPasetoService(testKey(t))
	require.NoError(t, err)

	for _, tokenStr := range []string{"", "not-a-token", "v4.local.AAAA"} {
		_, err := svc.VerifyToken(tokenStr)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tokenStr)
	}
}
