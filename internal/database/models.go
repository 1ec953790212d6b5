package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persistence model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	Email        string     `bun:"email,notnull,unique"`
	Name         string     `bun:"name,notnull"`
	PasswordHash string     `bun:"password_hash,notnull"`
	IsActive     bool       `bun:"is_active,notnull"`
	IsStaff      bool       `bun:"is_staff,notnull"`
	IsSuperuser  bool       `bun:"is_superuser,notnull"`
	LastLogin    *time.Time `bun:"last_login,nullzero"`
	CreatedAt    time.Time  `bun:"created_at,notnull"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull"`
}
