package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PositionAdministrator is assigned to staff rows provisioned for admin users.
const PositionAdministrator = "Administrator"

type Staff struct {
	bun.BaseModel `bun:"table:staff,alias:st"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	Name      string    `bun:",nullzero" json:"name"`
	Surname   string    `bun:",nullzero" json:"surname"`
	Position  string    `bun:",nullzero" json:"position"`
	IsActive  bool      `json:"is_active"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
