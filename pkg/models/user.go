package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// User is the authentication principal. Whether a user acts as staff or as a
// member is decided by the Staff and Member rows linked to it.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `bun:",nullzero" json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // Never expose password hash
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsAdmin      bool      `json:"is_admin"`
	IsActive     bool      `json:"is_active"`
}

// DisplayName returns the full name if one is set, otherwise the username.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
