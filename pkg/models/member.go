package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID             int       `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         *int      `json:"user_id,omitempty"`
	Name           string    `bun:",nullzero" json:"name"`
	Surname        string    `bun:",nullzero" json:"surname"`
	Identification string    `bun:",nullzero" json:"identification"`
	Email          string    `bun:",nullzero" json:"email"`
	Phone          *string   `json:"phone,omitempty"`
	IsActive       bool      `json:"is_active"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

func (m *Member) FullName() string {
	return m.Name + " " + m.Surname
}
