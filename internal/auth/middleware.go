package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"accounts-api/internal/httputil"
	"accounts-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// CurrentUserContextKey holds the authenticated *user.User.
	CurrentUserContextKey ContextKey = "current_user"
)

// Middleware guards protected routes. It verifies the access token and loads
// the account behind it, so deactivation takes effect on the very next
// request rather than at token expiry.
type Middleware struct {
	tokenService TokenService
	users        UserStore
}

func NewMiddleware(tokenService TokenService, users UserStore) *Middleware {
	return &Middleware{
		tokenService: tokenService,
		users:        users,
	}
}

// RequireAuth validates the bearer token and puts the account on the request
// context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeUnauthorized, http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeUnauthorized, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(parts[1])
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		account, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "failed to load account", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		if !account.CanAuthenticate() {
			httputil.RespondErrorWithCode(w, "account is inactive", httputil.CodeUnauthorized, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), CurrentUserContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStaff allows only accounts with admin access. Must be mounted after
// RequireAuth.
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := GetUserFromContext(r.Context())
		if !ok {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeUnauthorized, http.StatusUnauthorized)
			return
		}

		if !account.IsAdmin() {
			httputil.RespondErrorWithCode(w, "staff access required", httputil.CodeForbidden, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePermission allows only accounts holding the named permission. Must
// be mounted after RequireAuth.
func (m *Middleware) RequirePermission(perm string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := GetUserFromContext(r.Context())
			if !ok {
				httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeUnauthorized, http.StatusUnauthorized)
				return
			}

			if !account.HasPerm(perm) {
				httputil.RespondErrorWithCode(w, "permission denied", httputil.CodeForbidden, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the authenticated account from the request
// context.
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	account, ok := ctx.Value(CurrentUserContextKey).(*user.User)
	return account, ok
}
