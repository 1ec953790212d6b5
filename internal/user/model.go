package user

import (
	"time"

	"github.com/google/uuid"
)

// PermManageUsers gates account mutations on the admin surface.
const PermManageUsers = "users.manage"

// User is the account record. A single flat row carries identity,
// credentials, and authorization flags.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"` // Never expose password hash in JSON
	IsActive     bool       `json:"is_active"`
	IsStaff      bool       `json:"is_staff"`
	IsSuperuser  bool       `json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Authenticatable is the credential surface login flows depend on. Callers
// that only need to verify who someone is should accept this rather than the
// full User.
type Authenticatable interface {
	// LoginID returns the identifier the account signs in with.
	LoginID() string
	// CanAuthenticate reports whether the account may sign in at all.
	CanAuthenticate() bool
	// CheckPassword reports whether the password matches the stored hash.
	CheckPassword(password string) bool
}

// PermissionHolder is the authorization surface. Handlers that gate actions
// should accept this rather than the full User.
type PermissionHolder interface {
	// HasPerm reports whether the account holds the named permission.
	HasPerm(perm string) bool
	// IsAdmin reports whether the account may access the admin surface.
	IsAdmin() bool
}

var (
	_ Authenticatable  = (*User)(nil)
	_ PermissionHolder = (*User)(nil)
)

func (u *User) LoginID() string { return u.Email }

func (u *User) CanAuthenticate() bool { return u.IsActive }

// CheckPassword verifies a plaintext password against the stored argon2id
// hash in constant time.
func (u *User) CheckPassword(password string) bool {
	return verifyPassword(u.PasswordHash, password)
}

// SetPassword replaces the stored hash with a freshly salted argon2id hash
// of the given password. It does not persist the change.
func (u *User) SetPassword(password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// HasPerm grants every permission to active superusers and nothing to anyone
// else. There is no per-permission storage; the flag is the whole model.
func (u *User) HasPerm(perm string) bool {
	return u.IsActive && u.IsSuperuser
}

// IsAdmin reports whether the account may use the admin API at all.
func (u *User) IsAdmin() bool {
	return u.IsActive && u.IsStaff
}
