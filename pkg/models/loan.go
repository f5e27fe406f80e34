package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	LoanStatusPending  = "pending"
	LoanStatusReturned = "returned"
	LoanStatusOverdue  = "overdue"
)

type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	MemberID   int        `bun:",nullzero" json:"member_id"`
	CopyID     int        `bun:",nullzero" json:"copy_id"`
	LoanedAt   time.Time  `json:"loaned_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     string     `bun:",nullzero" json:"status"`
	Notes      *string    `json:"notes,omitempty"`

	// Relations
	Member *Member `bun:"rel:belongs-to,join:member_id=id" json:"member,omitempty"`
	Copy   *Copy   `bun:"rel:belongs-to,join:copy_id=id" json:"copy,omitempty"`
}

// IsLate reports whether the loan is still out past its due date. It is true
// for pending loans the overdue sweep hasn't reached yet.
func (l *Loan) IsLate(today time.Time) bool {
	if l.Status == LoanStatusReturned {
		return false
	}
	return l.Status == LoanStatusOverdue || l.DueAt.Before(today)
}
