package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReservationStatusPending   = "pending"
	ReservationStatusNotified  = "notified"
	ReservationStatusCancelled = "cancelled"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations,alias:r"`

	ID         int       `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	MemberID   int       `bun:",nullzero" json:"member_id"`
	BookID     int       `bun:",nullzero" json:"book_id"`
	ReservedAt time.Time `json:"reserved_at"`
	Status     string    `bun:",nullzero" json:"status"`
	Notes      *string   `json:"notes,omitempty"`

	// Relations
	Member *Member `bun:"rel:belongs-to,join:member_id=id" json:"member,omitempty"`
	Book   *Book   `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
