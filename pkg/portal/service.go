// Package portal is the members' self-service area: their dashboard, the
// catalogue, and their own loans and reservations.
package portal

import (
	"context"

	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/reservations"
)

const recentReturns = 5

type Dashboard struct {
	ActiveLoans         []*models.Loan        `json:"active_loans"`
	OverdueLoans        int                   `json:"overdue_loans"`
	PendingReservations []*models.Reservation `json:"pending_reservations"`
	RecentReturns       []*models.Loan        `json:"recent_returns"`
}

type Service struct {
	loanService        *loans.Service
	reservationService *reservations.Service
}

func NewService(loanService *loans.Service, reservationService *reservations.Service) *Service {
	return &Service{loanService, reservationService}
}

// Dashboard summarizes a member's account. Overdue loans are marked first so
// the counts are current.
func (svc *Service) Dashboard(ctx context.Context, memberID int) (*Dashboard, error) {
	if _, err := svc.loanService.MarkOverdue(ctx); err != nil {
		return nil, err
	}

	d := &Dashboard{}
	var err error

	outstanding := false
	d.ActiveLoans, _, err = svc.loanService.ListMemberLoans(ctx, memberID, loans.ListLoansOptions{Returned: &outstanding})
	if err != nil {
		return nil, err
	}
	for _, l := range d.ActiveLoans {
		if l.Status == models.LoanStatusOverdue {
			d.OverdueLoans++
		}
	}

	pending := models.ReservationStatusPending
	d.PendingReservations, err = svc.reservationService.ListReservations(ctx, reservations.ListReservationsOptions{
		MemberID: &memberID,
		Status:   &pending,
	})
	if err != nil {
		return nil, err
	}

	returned := true
	limit := recentReturns
	d.RecentReturns, _, err = svc.loanService.ListMemberLoans(ctx, memberID, loans.ListLoansOptions{
		Returned: &returned,
		Limit:    &limit,
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}
