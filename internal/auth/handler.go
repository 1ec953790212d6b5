package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"accounts-api/internal/httputil"
	"accounts-api/internal/logging"
	"accounts-api/internal/ratelimit"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive access and refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	// Rate limit by IP
	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for login", "ip", ip)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	tokens, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in successfully")

	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Description  Exchange a refresh token for a new token pair; the old refresh token is revoked
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest true "Refresh token"
// @Success      200 {object} AuthTokens
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid or expired refresh token"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		logger.Warn("refresh token missing")
		httputil.RespondErrorWithCode(w, "refresh token required", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	tokens, err := h.service.RefreshAccessToken(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRefreshTokenRevoked) || errors.Is(err, ErrRefreshTokenExpired) {
			logger.Warn("token refresh failed: invalid or expired token", "error", err.Error())
			httputil.RespondErrorWithCode(w, "invalid or expired refresh token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}
		logger.Error("token refresh failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("access token refreshed successfully")

	httputil.RespondJSON(w, tokens, http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the given refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token to revoke"
// @Success      200 {object} map[string]string
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		if token := strings.TrimSpace(req.RefreshToken); token != "" {
			if err := h.service.Logout(r.Context(), token); err != nil {
				logger.Warn("failed to revoke refresh token", "error", err.Error())
				// Continue - logout is best effort from the client's view
			}
		}
	}

	logger.Info("user logged out")

	httputil.RespondJSON(w, map[string]string{"message": "logged out"}, http.StatusOK)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port", extract just the IP
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
