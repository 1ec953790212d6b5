package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounts-api/internal/httputil"
	"accounts-api/internal/user"
)

func newTestMiddleware(t *testing.T) (*Middleware, *fakeUserStore, *PasetoService) {
	t.Helper()

	paseto, err := NewPasetoService([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)

	users := newFakeUserStore()
	return NewMiddleware(paseto, users), users, paseto
}

func doProtectedRequest(handler http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Code
}

func TestRequireAuthRejectsBadHeaders(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic YWxpY2U6cGFzcw=="},
		{"scheme only", "Bearer"},
		{"too many parts", "Bearer one two"},
		{"lowercase scheme", "bearer sometoken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doProtectedRequest(handler, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, httputil.CodeUnauthorized, errorCode(t, rr))
		})
	}
}

func TestRequireAuthExpiredToken(t *testing.T) {
	m, users, paseto := newTestMiddleware(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	token, err := paseto.CreateToken(account.ID, account.Email, -time.Minute)
	require.NoError(t, err)

	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := doProtectedRequest(handler, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, httputil.CodeTokenExpired, errorCode(t, rr))
}

func TestRequireAuthGarbageToken(t *testing.T) {
	m, _, _ := newTestMiddleware(t)

	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := doProtectedRequest(handler, "Bearer not-a-token")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, httputil.CodeInvalidToken, errorCode(t, rr))
}

func TestRequireAuthUnknownAccount(t *testing.T) {
	m, _, paseto := newTestMiddleware(t)

	// Valid token, but nobody behind it anymore
	token, err := paseto.CreateToken(uuid.New(), "ghost@example.com", 15*time.Minute)
	require.NoError(t, err)

	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := doProtectedRequest(handler, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, httputil.CodeInvalidToken, errorCode(t, rr))
}

func TestRequireAuthInactiveAccount(t *testing.T) {
	m, users, paseto := newTestMiddleware(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	account.IsActive = false
	users.add(account)

	token, err := paseto.CreateToken(account.ID, account.Email, 15*time.Minute)
	require.NoError(t, err)

	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("inactive account must not reach the handler")
	}))
	rr := doProtectedRequest(handler, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "inactive")
}

func TestRequireAuthLoadsAccount(t *testing.T) {
	m, users, paseto := newTestMiddleware(t)

	account := activeAccount(t, "alice@example.com", "correct horse")
	users.add(account)

	token, err := paseto.CreateToken(account.ID, account.Email, 15*time.Minute)
	require.NoError(t, err)

	var captured *user.User
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = GetUserFromContext(r.Context())
	}))
	rr := doProtectedRequest(handler, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, captured)
	assert.Equal(t, account.ID, captured.ID)
}

func TestRequireStaff(t *testing.T) {
	m, users, paseto := newTestMiddleware(t)

	staff := activeAccount(t, "staff@example.com", "correct horse")
	staff.IsStaff = true
	users.add(staff)

	regular := activeAccount(t, "regular@example.com", "correct horse")
	users.add(regular)

	handler := m.RequireAuth(m.RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	staffToken, err := paseto.CreateToken(staff.ID, staff.Email, 15*time.Minute)
	require.NoError(t, err)
	regularToken, err := paseto.CreateToken(regular.ID, regular.Email, 15*time.Minute)
	require.NoError(t, err)

	rr := doProtectedRequest(handler, "Bearer "+staffToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doProtectedRequest(handler, "Bearer "+regularToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, httputil.CodeForbidden, errorCode(t, rr))
}

func TestRequireStaffWithoutAuthContext(t *testing.T) {
	m, _, _ := newTestMiddleware(t)

	// Mounted without RequireAuth there is no account on the context
	handler := m.RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := doProtectedRequest(handler, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequirePermission(t *testing.T) {
	m, users, paseto := newTestMiddleware(t)

	super := activeAccount(t, "root@example.com", "correct horse")
	super.IsStaff = true
	super.IsSuperuser = true
	users.add(super)

	// Staff without superuser may browse but not mutate
	staff := activeAccount(t, "staff@example.com", "correct horse")
	staff.IsStaff = true
	users.add(staff)

	handler := m.RequireAuth(m.RequirePermission(user.PermManageUsers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	superToken, err := paseto.CreateToken(super.ID, super.Email, 15*time.Minute)
	require.NoError(t, err)
	staffToken, err := paseto.CreateToken(staff.ID, staff.Email, 15*time.Minute)
	require.NoError(t, err)

	rr := doProtectedRequest(handler, "Bearer "+superToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doProtectedRequest(handler, "Bearer "+staffToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, httputil.CodeForbidden, errorCode(t, rr))
}
