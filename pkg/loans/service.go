package loans

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/metrics"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/notify"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type IssueLoanOptions struct {
	MemberID int
	CopyID   int
	DueAt    time.Time
	Notes    *string
}

type RetrieveLoanOptions struct {
	ID *int
}

type ListLoansOptions struct {
	Limit    *int
	Offset   *int
	Search   *string
	Status   *string
	MemberID *int
	// Returned filters on whether the loan has come back. Returned loans are
	// listed most recently returned first.
	Returned *bool

	includeTotal bool
}

type Service struct {
	db             *bun.DB
	notifier       notify.Notifier
	rules          Rules
	loanPeriodDays int
	now            func() time.Time
}

func NewService(db *bun.DB, cfg *config.Config, notifier notify.Notifier) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		rules: Rules{
			MaxPendingLoans: cfg.MaxPendingLoans,
			MaxLoanDays:     cfg.MaxLoanDays,
		},
		loanPeriodDays: cfg.LoanPeriodDays,
		now:            time.Now,
	}
}

func (svc *Service) today() time.Time {
	return models.DateOf(svc.now())
}

// DefaultDueDate is the due date a loan gets when none is given.
func (svc *Service) DefaultDueDate() time.Time {
	return svc.today().AddDate(0, 0, svc.loanPeriodDays)
}

// IssueLoan lends a copy to a member. The copy is claimed with a conditional
// update inside the transaction, so of two requests racing for the same copy
// only one gets it. Rule violations come back as loan_rejected errors and
// leave nothing changed.
func (svc *Service) IssueLoan(ctx context.Context, opts IssueLoanOptions) (*models.Loan, error) {
	log := logger.FromContext(ctx)
	today := svc.today()

	member := &models.Member{}
	err := svc.db.NewSelect().Model(member).Where("m.id = ?", opts.MemberID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Member")
		}
		return nil, errors.WithStack(err)
	}

	cp := &models.Copy{}
	err = svc.db.NewSelect().Model(cp).Relation("Book").Where("cp.id = ?", opts.CopyID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Copy")
		}
		return nil, errors.WithStack(err)
	}

	state, err := svc.loadState(ctx, svc.db, member, cp.ID, today)
	if err != nil {
		return nil, err
	}
	state.CopyStatus = cp.Status
	state.DueAt = opts.DueAt
	if rejection := Decide(state, svc.rules); rejection != nil {
		return nil, svc.reject(ctx, rejection, opts)
	}

	loan := &models.Loan{
		MemberID: member.ID,
		CopyID:   cp.ID,
		LoanedAt: today,
		DueAt:    models.DateOf(opts.DueAt),
		Status:   models.LoanStatusPending,
		Notes:    opts.Notes,
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		res, err := tx.NewUpdate().
			Model((*models.Copy)(nil)).
			Set("status = ?", models.CopyStatusLoaned).
			Set("updated_at = ?", now).
			Where("id = ?", cp.ID).
			Where("status = ?", models.CopyStatusAvailable).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.WithStack(err)
		} else if n == 0 {
			return &Rejection{ReasonCopyUnavailable, "Copy is not available."}
		}

		// The claim holds the write lock, so nothing below can change under us.
		locked, err := svc.loadState(ctx, tx, member, cp.ID, today)
		if err != nil {
			return err
		}
		locked.CopyStatus = models.CopyStatusAvailable
		locked.DueAt = opts.DueAt
		if rejection := Decide(locked, svc.rules); rejection != nil {
			return rejection
		}

		loan.CreatedAt = now
		loan.UpdatedAt = now
		_, err = tx.NewInsert().Model(loan).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		var rejection *Rejection
		if errors.As(err, &rejection) {
			return nil, svc.reject(ctx, rejection, opts)
		}
		return nil, err
	}

	cp.Status = models.CopyStatusLoaned
	loan.Member = member
	loan.Copy = cp

	metrics.LoansIssued.Inc()
	log.Info("loan issued", logger.Data{"loan_id": loan.ID, "member_id": member.ID, "copy_id": cp.ID})

	title := ""
	if cp.Book != nil {
		title = cp.Book.Title
	}
	event := notify.NewEvent(notify.EventLoanIssued, member.ID, member.Email,
		"Loan confirmed",
		fmt.Sprintf("You borrowed %q (copy %s). Please return it by %s.", title, cp.Code, models.FormatDate(loan.DueAt)))
	event.Payload["loan_id"] = loan.ID
	event.Payload["due_at"] = loan.DueAt.Format(models.DateLayout)
	notify.Send(ctx, svc.notifier, event)

	return loan, nil
}

func (svc *Service) reject(ctx context.Context, rejection *Rejection, opts IssueLoanOptions) error {
	metrics.LoansRejected.WithLabelValues(string(rejection.Reason)).Inc()
	logger.FromContext(ctx).Info("loan rejected", logger.Data{
		"member_id": opts.MemberID,
		"copy_id":   opts.CopyID,
		"reason":    rejection.Reason,
	})
	return errcodes.LoanRejected(rejection.Message)
}

// loadState reads the member's loan standing and whether the copy is already
// out. Copy status and due date are left for the caller to fill in.
func (svc *Service) loadState(ctx context.Context, idb bun.IDB, member *models.Member, copyID int, today time.Time) (State, error) {
	state := State{
		MemberActive: member.IsActive,
		Today:        today,
	}

	if err := idb.NewSelect().
		Model((*models.Member)(nil)).
		Column("is_active").
		Where("id = ?", member.ID).
		Scan(ctx, &state.MemberActive); err != nil {
		return state, errors.WithStack(err)
	}

	pending, err := idb.NewSelect().
		Model((*models.Loan)(nil)).
		Where("member_id = ?", member.ID).
		Where("status = ?", models.LoanStatusPending).
		Count(ctx)
	if err != nil {
		return state, errors.WithStack(err)
	}
	state.PendingLoans = pending

	state.HasOverdue, err = idb.NewSelect().
		Model((*models.Loan)(nil)).
		Where("member_id = ?", member.ID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("status = ?", models.LoanStatusOverdue).
				WhereOr("status = ? AND due_at < ?", models.LoanStatusPending, today)
		}).
		Exists(ctx)
	if err != nil {
		return state, errors.WithStack(err)
	}

	state.CopyHasPendingLoan, err = idb.NewSelect().
		Model((*models.Loan)(nil)).
		Where("copy_id = ?", copyID).
		Where("status = ?", models.LoanStatusPending).
		Exists(ctx)
	if err != nil {
		return state, errors.WithStack(err)
	}

	return state, nil
}

// RequestLoan lends the first available copy of a book to a member for the
// standard loan period.
func (svc *Service) RequestLoan(ctx context.Context, memberID, bookID int) (*models.Loan, error) {
	exists, err := svc.db.NewSelect().Model((*models.Book)(nil)).Where("id = ?", bookID).Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, errcodes.NotFound("Book")
	}

	cp := &models.Copy{}
	err = svc.db.NewSelect().
		Model(cp).
		Where("cp.book_id = ?", bookID).
		Where("cp.status = ?", models.CopyStatusAvailable).
		OrderExpr("cp.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svc.reject(ctx, &Rejection{ReasonNoCopies, "No copies of this book are available right now. You can reserve it instead."},
				IssueLoanOptions{MemberID: memberID})
		}
		return nil, errors.WithStack(err)
	}

	return svc.IssueLoan(ctx, IssueLoanOptions{
		MemberID: memberID,
		CopyID:   cp.ID,
		DueAt:    svc.DefaultDueDate(),
	})
}

// ReturnLoan closes a loan and puts its copy back on the shelf.
func (svc *Service) ReturnLoan(ctx context.Context, loanID int) (*models.Loan, error) {
	loan := &models.Loan{}
	today := svc.today()

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(loan).Where("l.id = ?", loanID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Loan")
			}
			return errors.WithStack(err)
		}
		if loan.Status == models.LoanStatusReturned {
			return errcodes.LoanAlreadyReturned()
		}

		now := time.Now()
		loan.Status = models.LoanStatusReturned
		loan.ReturnedAt = &today
		loan.UpdatedAt = now
		res, err := tx.NewUpdate().
			Model(loan).
			Column("status", "returned_at", "updated_at").
			WherePK().
			Where("status != ?", models.LoanStatusReturned).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.WithStack(err)
		} else if n == 0 {
			return errcodes.LoanAlreadyReturned()
		}

		_, err = tx.NewUpdate().
			Model((*models.Copy)(nil)).
			Set("status = ?", models.CopyStatusAvailable).
			Set("updated_at = ?", now).
			Where("id = ?", loan.CopyID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	metrics.LoansReturned.Inc()
	logger.FromContext(ctx).Info("loan returned", logger.Data{"loan_id": loan.ID, "copy_id": loan.CopyID})

	return svc.RetrieveLoan(ctx, RetrieveLoanOptions{ID: &loan.ID})
}

// MarkOverdue moves every pending loan past its due date to overdue and
// returns how many changed.
func (svc *Service) MarkOverdue(ctx context.Context) (int, error) {
	res, err := svc.db.NewUpdate().
		Model((*models.Loan)(nil)).
		Set("status = ?", models.LoanStatusOverdue).
		Set("updated_at = ?", time.Now()).
		Where("status = ?", models.LoanStatusPending).
		Where("due_at < ?", svc.today()).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if n > 0 {
		metrics.LoansMarkedOverdue.Add(float64(n))
		logger.FromContext(ctx).Info("marked loans overdue", logger.Data{"count": n})
	}
	return int(n), nil
}

func (svc *Service) RetrieveLoan(ctx context.Context, opts RetrieveLoanOptions) (*models.Loan, error) {
	loan := &models.Loan{}

	q := svc.db.
		NewSelect().
		Model(loan).
		Relation("Member").
		Relation("Copy").
		Relation("Copy.Book")

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Loan")
		}
		return nil, errors.WithStack(err)
	}

	return loan, nil
}

func (svc *Service) ListLoans(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, error) {
	l, _, err := svc.listLoansWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLoansWithTotal(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, int, error) {
	opts.includeTotal = true
	return svc.listLoansWithTotal(ctx, opts)
}

// ListMemberLoans lists one member's loans, newest first.
func (svc *Service) ListMemberLoans(ctx context.Context, memberID int, opts ListLoansOptions) ([]*models.Loan, int, error) {
	opts.MemberID = &memberID
	return svc.ListLoansWithTotal(ctx, opts)
}

func (svc *Service) listLoansWithTotal(ctx context.Context, opts ListLoansOptions) ([]*models.Loan, int, error) {
	var loans []*models.Loan
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&loans).
		Relation("Member").
		Relation("Copy").
		Relation("Copy.Book")

	if opts.Returned != nil && *opts.Returned {
		q = q.Where("l.returned_at IS NOT NULL").OrderExpr("l.returned_at DESC, l.id DESC")
	} else {
		if opts.Returned != nil {
			q = q.Where("l.returned_at IS NULL")
		}
		q = q.OrderExpr("l.loaned_at DESC, l.id DESC")
	}

	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("member.name LIKE ?", like).
				WhereOr("member.surname LIKE ?", like).
				WhereOr("member.identification LIKE ?", like).
				WhereOr("copy.code LIKE ?", like).
				WhereOr("copy__book.title LIKE ?", like)
		})
	}
	if opts.Status != nil {
		q = q.Where("l.status = ?", *opts.Status)
	}
	if opts.MemberID != nil {
		q = q.Where("l.member_id = ?", *opts.MemberID)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return loans, total, nil
}

// Stats counts loans that are still out, optionally for a single member.
type Stats struct {
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}

func (svc *Service) Stats(ctx context.Context, memberID *int) (*Stats, error) {
	stats := &Stats{}
	today := svc.today()

	outstanding := func() *bun.SelectQuery {
		q := svc.db.NewSelect().Model((*models.Loan)(nil)).Where("returned_at IS NULL")
		if memberID != nil {
			q = q.Where("member_id = ?", *memberID)
		}
		return q
	}

	var err error
	stats.Pending, err = outstanding().Where("status = ?", models.LoanStatusPending).Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stats.Overdue, err = outstanding().
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("status = ?", models.LoanStatusOverdue).
				WhereOr("due_at < ?", today)
		}).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return stats, nil
}
