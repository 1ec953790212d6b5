package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"accounts-api/internal/httputil"
	"accounts-api/internal/logging"
	"accounts-api/internal/user"
)

// Handler contains HTTP handlers for the user administration surface.
type Handler struct {
	users  *user.Service
	logger *logging.Logger
}

func NewHandler(users *user.Service, logger *logging.Logger) *Handler {
	return &Handler{
		users:  users,
		logger: logger,
	}
}

// UserSummary is the list row: just enough to find an account.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// UserDetail is the full account view. LastLogin appears here but is never
// writable through this API; only the login flow touches it.
type UserDetail struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListUsersResponse wraps the account list.
type ListUsersResponse struct {
	Users []UserSummary `json:"users"`
}

// CreateUserRequest is the account creation form. The password is entered
// twice and both entries must match.
type CreateUserRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	IsActive        *bool  `json:"is_active"`
	IsStaff         *bool  `json:"is_staff"`
	IsSuperuser     *bool  `json:"is_superuser"`
}

// UpdateUserRequest carries a partial update; absent fields stay untouched.
// There is deliberately no last_login field, and unknown fields are rejected,
// so no payload can rewrite the login stamp.
type UpdateUserRequest struct {
	Email           *string `json:"email"`
	Name            *string `json:"name"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"password_confirm"`
	IsActive        *bool   `json:"is_active"`
	IsStaff         *bool   `json:"is_staff"`
	IsSuperuser     *bool   `json:"is_superuser"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ListUsers handles the account list
// @Summary      List users
// @Description  List all accounts in creation order
// @Tags         admin
// @Produce      json
// @Success      200 {object} ListUsersResponse
// @Failure      401 {object} ErrorResponse "Missing or invalid authentication"
// @Failure      403 {object} ErrorResponse "Staff access required"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	users, err := h.users.List(r.Context())
	if err != nil {
		logger.Error("failed to list users", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to list users", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, UserSummary{
			ID:    u.ID,
			Email: u.Email,
			Name:  u.Name,
		})
	}

	httputil.RespondJSON(w, ListUsersResponse{Users: summaries}, http.StatusOK)
}

// CreateUser handles account creation
// @Summary      Create user
// @Description  Create an account. The password must be entered twice; privilege flags are applied as submitted.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "New account"
// @Success      201 {object} UserDetail
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      401 {object} ErrorResponse "Missing or invalid authentication"
// @Failure      403 {object} ErrorResponse "Permission denied"
// @Failure      409 {object} ErrorResponse "Email already exists"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /admin/users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CreateUserRequest
	if err := decodeStrict(r, &req); err != nil {
		logger.Warn("invalid create user request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	if req.Password != req.PasswordConfirm {
		logger.Warn("create user failed: password entries do not match")
		httputil.RespondErrorWithCode(w, "password entries do not match", httputil.CodePasswordMismatch, http.StatusBadRequest)
		return
	}

	created, err := h.users.CreateUser(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondUserError(w, logger, "create user", err)
		return
	}

	// The form may grant privileges or start the account deactivated; apply
	// those in a second step, like any other edit.
	if req.IsActive != nil || req.IsStaff != nil || req.IsSuperuser != nil {
		created, err = h.users.Update(r.Context(), created.ID, user.UpdateParams{
			IsActive:    req.IsActive,
			IsStaff:     req.IsStaff,
			IsSuperuser: req.IsSuperuser,
		})
		if err != nil {
			respondUserError(w, logger, "create user", err)
			return
		}
	}

	logger.Info("admin created user", "user_id", created.ID)

	httputil.RespondJSON(w, toDetail(created), http.StatusCreated)
}

// GetUser handles the account detail view
// @Summary      Get user
// @Description  Fetch one account with all fields, including the read-only last login stamp
// @Tags         admin
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} UserDetail
// @Failure      400 {object} ErrorResponse "Malformed user ID"
// @Failure      401 {object} ErrorResponse "Missing or invalid authentication"
// @Failure      403 {object} ErrorResponse "Staff access required"
// @Failure      404 {object} ErrorResponse "User not found"
// @Security     BearerAuth
// @Router       /admin/users/{userID} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	account, err := h.users.Get(r.Context(), id)
	if err != nil {
		respondUserError(w, logger, "get user", err)
		return
	}

	httputil.RespondJSON(w, toDetail(account), http.StatusOK)
}

// UpdateUser handles account edits
// @Summary      Update user
// @Description  Apply a partial update. Password changes require the confirmation entry; last login cannot be written.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        userID path string true "User ID"
// @Param        request body UpdateUserRequest true "Fields to change"
// @Success      200 {object} UserDetail
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      401 {object} ErrorResponse "Missing or invalid authentication"
// @Failure      403 {object} ErrorResponse "Permission denied"
// @Failure      404 {object} ErrorResponse "User not found"
// @Failure      409 {object} ErrorResponse "Email already exists"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Security     BearerAuth
// @Router       /admin/users/{userID} [patch]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := decodeStrict(r, &req); err != nil {
		logger.Warn("invalid update user request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return
	}

	if req.Password != nil {
		if req.PasswordConfirm == nil || *req.Password != *req.PasswordConfirm {
			logger.Warn("update user failed: password entries do not match")
			httputil.RespondErrorWithCode(w, "password entries do not match", httputil.CodePasswordMismatch, http.StatusBadRequest)
			return
		}
	}

	updated, err := h.users.Update(r.Context(), id, user.UpdateParams{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		IsActive:    req.IsActive,
		IsStaff:     req.IsStaff,
		IsSuperuser: req.IsSuperuser,
	})
	if err != nil {
		respondUserError(w, logger, "update user", err)
		return
	}

	logger.Info("admin updated user", "user_id", updated.ID)

	httputil.RespondJSON(w, toDetail(updated), http.StatusOK)
}

// DeleteUser handles account removal
// @Summary      Delete user
// @Description  Remove an account permanently
// @Tags         admin
// @Param        userID path string true "User ID"
// @Success      204 "No Content"
// @Failure      400 {object} ErrorResponse "Malformed user ID"
// @Failure      401 {object} ErrorResponse "Missing or invalid authentication"
// @Failure      403 {object} ErrorResponse "Permission denied"
// @Failure      404 {object} ErrorResponse "User not found"
// @Security     BearerAuth
// @Router       /admin/users/{userID} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		respondUserError(w, logger, "delete user", err)
		return
	}

	logger.Info("admin deleted user", "user_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// decodeStrict decodes a JSON body and rejects unknown fields, so typos and
// attempts to write read-only fields fail loudly instead of being ignored.
func decodeStrict(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "malformed user ID", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// respondUserError maps user service errors onto HTTP responses.
func respondUserError(w http.ResponseWriter, logger *logging.Logger, op string, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		logger.Warn(op+" failed: user not found")
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeNotFound, http.StatusNotFound)
	case errors.Is(err, user.ErrDuplicateEmail):
		logger.Warn(op + " failed: email already exists")
		httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeEmailTaken, http.StatusConflict)
	case errors.Is(err, user.ErrEmailRequired):
		logger.Warn(op + " failed: email required")
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeEmailRequired, http.StatusBadRequest)
	case errors.Is(err, user.ErrInvalidEmailFormat),
		errors.Is(err, user.ErrPasswordRequired),
		errors.Is(err, user.ErrPasswordTooShort):
		logger.Warn(op+" failed: validation error", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	default:
		logger.Error(op+" failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to "+op, httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func toDetail(u *user.User) UserDetail {
	return UserDetail{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
