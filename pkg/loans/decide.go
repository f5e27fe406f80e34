package loans

import (
	"fmt"
	"time"

	"github.com/bibliotech/bibliotech/pkg/models"
)

type Reason string

const (
	ReasonMemberInactive  Reason = "member_inactive"
	ReasonLimitReached    Reason = "limit_reached"
	ReasonOverdue         Reason = "overdue"
	ReasonDueDate         Reason = "due_date"
	ReasonCopyUnavailable Reason = "copy_unavailable"
	ReasonCopyOnLoan      Reason = "copy_on_loan"
	ReasonNoCopies        Reason = "no_copies"
)

// Rejection is a lending rule that stops a loan. Its message is safe to show
// to the person asking for the loan.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Rules are the lending limits in force.
type Rules struct {
	MaxPendingLoans int
	MaxLoanDays     int
}

// State is everything Decide needs to know about a member and a copy at the
// moment a loan is requested.
type State struct {
	MemberActive       bool
	PendingLoans       int
	HasOverdue         bool
	CopyStatus         string
	CopyHasPendingLoan bool
	DueAt              time.Time
	Today              time.Time
}

// Decide returns the first rule that state breaks, or nil when the loan may
// go ahead. Rules are checked member first, then due date, then copy.
func Decide(state State, rules Rules) *Rejection {
	if !state.MemberActive {
		return &Rejection{ReasonMemberInactive, "Member is not active."}
	}
	if state.PendingLoans >= rules.MaxPendingLoans {
		return &Rejection{ReasonLimitReached, fmt.Sprintf("Member already has %d active loans.", state.PendingLoans)}
	}
	if state.HasOverdue {
		return &Rejection{ReasonOverdue, "Member has overdue loans and can't borrow until they are returned."}
	}

	due := models.DateOf(state.DueAt)
	today := models.DateOf(state.Today)
	if due.Before(today) {
		return &Rejection{ReasonDueDate, "Due date can't be in the past."}
	}
	if due.After(today.AddDate(0, 0, rules.MaxLoanDays)) {
		return &Rejection{ReasonDueDate, fmt.Sprintf("Due date can't be more than %d days from today.", rules.MaxLoanDays)}
	}

	if state.CopyStatus != models.CopyStatusAvailable {
		return &Rejection{ReasonCopyUnavailable, "Copy is not available."}
	}
	if state.CopyHasPendingLoan {
		return &Rejection{ReasonCopyOnLoan, "Copy is already on loan."}
	}
	return nil
}
