package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	CopyStatusAvailable = "available"
	CopyStatusLoaned    = "loaned"
	CopyStatusRepair    = "repair"
	CopyStatusLost      = "lost"
)

// CopyStatuses lists every copy status in the order forms show them.
var CopyStatuses = []string{CopyStatusAvailable, CopyStatusLoaned, CopyStatusRepair, CopyStatusLost}

// Copy is one physical, individually tracked instance of a Book.
type Copy struct {
	bun.BaseModel `bun:"table:copies,alias:cp"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	BookID    int       `bun:",nullzero" json:"book_id"`
	Code      string    `bun:",nullzero" json:"code"`
	Status    string    `bun:",nullzero" json:"status"`
	Location  *string   `json:"location,omitempty"`

	// Relations
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}

func (c *Copy) IsAvailable() bool {
	return c.Status == CopyStatusAvailable
}
