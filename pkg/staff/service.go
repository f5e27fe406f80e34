package staff

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveStaffOptions struct {
	ID     *int
	UserID *int
}

type ListStaffOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateStaffOptions struct {
	Columns []string
}

type PromoteOptions struct {
	UserID   int
	Name     string
	Surname  string
	Position string
}

type Service struct {
	db          *bun.DB
	resolver    *roles.Resolver
	loanService *loans.Service
}

func NewService(db *bun.DB, resolver *roles.Resolver, loanService *loans.Service) *Service {
	return &Service{
		db:          db,
		resolver:    resolver,
		loanService: loanService,
	}
}

func (svc *Service) RetrieveStaff(ctx context.Context, opts RetrieveStaffOptions) (*models.Staff, error) {
	st := &models.Staff{}

	q := svc.db.
		NewSelect().
		Model(st).
		Relation("User")

	if opts.ID != nil {
		q = q.Where("st.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("st.user_id = ?", *opts.UserID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Staff member")
		}
		return nil, errors.WithStack(err)
	}

	return st, nil
}

func (svc *Service) ListStaff(ctx context.Context, opts ListStaffOptions) ([]*models.Staff, error) {
	s, _, err := svc.listStaffWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListStaffWithTotal(ctx context.Context, opts ListStaffOptions) ([]*models.Staff, int, error) {
	opts.includeTotal = true
	return svc.listStaffWithTotal(ctx, opts)
}

func (svc *Service) listStaffWithTotal(ctx context.Context, opts ListStaffOptions) ([]*models.Staff, int, error) {
	var staff []*models.Staff
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&staff).
		Relation("User").
		OrderExpr("st.surname COLLATE NOCASE ASC, st.name COLLATE NOCASE ASC")

	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("st.name LIKE ?", like).
				WhereOr("st.surname LIKE ?", like).
				WhereOr("st.position LIKE ?", like).
				WhereOr("user.username LIKE ?", like)
		})
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

	return staff, total, nil
}

// Promote gives an existing user access to the staff area.
func (svc *Service) Promote(ctx context.Context, opts PromoteOptions) (*models.Staff, error) {
	user := &models.User{}
	if err := svc.db.NewSelect().Model(user).Where("u.id = ?", opts.UserID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	exists, err := svc.db.NewSelect().Model((*models.Staff)(nil)).Where("user_id = ?", user.ID).Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("This user is already on the staff.")
	}

	name, surname := opts.Name, opts.Surname
	if name == "" {
		name = user.FirstName
	}
	if surname == "" {
		surname = user.LastName
	}
	if name == "" || surname == "" {
		return nil, errcodes.ValidationError("Name and surname are required when the user has none on file.")
	}

	now := time.Now()
	st := &models.Staff{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    user.ID,
		Name:      name,
		Surname:   surname,
		Position:  opts.Position,
		IsActive:  true,
	}
	if _, err := svc.db.NewInsert().Model(st).Returning("*").Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	st.User = user

	svc.invalidate(ctx, user.ID)
	logger.FromContext(ctx).Info("user promoted to staff", logger.Data{"user_id": user.ID, "staff_id": st.ID})
	return st, nil
}

// UpdateStaff saves the given columns. Changing is_active drops the user's
// cached role.
func (svc *Service) UpdateStaff(ctx context.Context, st *models.Staff, opts UpdateStaffOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	st.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(st).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, col := range opts.Columns {
		if col == "is_active" {
			svc.invalidate(ctx, st.UserID)
			break
		}
	}
	return nil
}

func (svc *Service) invalidate(ctx context.Context, userID int) {
	if err := svc.resolver.Invalidate(ctx, userID); err != nil {
		logger.FromContext(ctx).Err(err).Warn("failed to invalidate role cache", logger.Data{"user_id": userID})
	}
}

// Dashboard is the staff landing page summary.
type Dashboard struct {
	TotalBooks   int            `json:"total_books"`
	TotalCopies  int            `json:"total_copies"`
	TotalMembers int            `json:"total_members"`
	PendingLoans int            `json:"pending_loans"`
	OverdueLoans int            `json:"overdue_loans"`
	RecentLoans  []*models.Loan `json:"recent_loans"`
}

const recentLoans = 5

func (svc *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if _, err := svc.loanService.MarkOverdue(ctx); err != nil {
		return nil, err
	}

	d := &Dashboard{}
	counts := []struct {
		model interface{}
		dest  *int
	}{
		{(*models.Book)(nil), &d.TotalBooks},
		{(*models.Copy)(nil), &d.TotalCopies},
		{(*models.Member)(nil), &d.TotalMembers},
	}
	for _, c := range counts {
		n, err := svc.db.NewSelect().Model(c.model).Count(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		*c.dest = n
	}

	stats, err := svc.loanService.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	d.PendingLoans = stats.Pending
	d.OverdueLoans = stats.Overdue

	limit := recentLoans
	d.RecentLoans, err = svc.loanService.ListLoans(ctx, loans.ListLoansOptions{Limit: &limit})
	if err != nil {
		return nil, err
	}

	return d, nil
}
