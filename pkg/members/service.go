package members

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/bibliotech/bibliotech/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveMemberOptions struct {
	ID             *int
	UserID         *int
	Identification *string
	Email          *string
}

type ListMembersOptions struct {
	Limit    *int
	Offset   *int
	Search   *string
	IsActive *bool

	includeTotal bool
}

type UpdateMemberOptions struct {
	Columns []string
}

// RegisterOptions is what a visitor fills in to sign up as a member.
type RegisterOptions struct {
	Username       string
	Password       string
	Email          string
	Name           string
	Surname        string
	Identification string
	Phone          *string
}

type Service struct {
	db          *bun.DB
	userService *users.Service
	resolver    *roles.Resolver
}

func NewService(db *bun.DB, resolver *roles.Resolver) *Service {
	return &Service{
		db:          db,
		userService: users.NewService(db),
		resolver:    resolver,
	}
}

func (svc *Service) CreateMember(ctx context.Context, member *models.Member) error {
	return svc.createMember(ctx, svc.db, member)
}

func (svc *Service) createMember(ctx context.Context, idb bun.IDB, member *models.Member) error {
	if err := ensureUnique(ctx, idb, member.Identification, member.Email, 0); err != nil {
		return err
	}

	now := time.Now()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = member.CreatedAt

	_, err := idb.
		NewInsert().
		Model(member).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// ensureUnique rejects an identification or email that already belongs to a
// member other than excludeID.
func ensureUnique(ctx context.Context, idb bun.IDB, identification, email string, excludeID int) error {
	checks := []struct {
		column string
		value  string
		msg    string
	}{
		{"identification", identification, "A member with this identification already exists."},
		{"email", email, "A member with this email already exists."},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		exists, err := idb.
			NewSelect().
			Model((*models.Member)(nil)).
			Where("? = ? COLLATE NOCASE", bun.Ident(check.column), check.value).
			Where("id != ?", excludeID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			return errcodes.Conflict(check.msg)
		}
	}
	return nil
}

func (svc *Service) RetrieveMember(ctx context.Context, opts RetrieveMemberOptions) (*models.Member, error) {
	member := &models.Member{}

	q := svc.db.
		NewSelect().
		Model(member).
		Relation("User")

	if opts.ID != nil {
		q = q.Where("m.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("m.user_id = ?", *opts.UserID)
	}
	if opts.Identification != nil {
		q = q.Where("m.identification = ?", strings.TrimSpace(*opts.Identification))
	}
	if opts.Email != nil {
		q = q.Where("m.email = ? COLLATE NOCASE", strings.TrimSpace(*opts.Email))
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Member")
		}
		return nil, errors.WithStack(err)
	}

	return member, nil
}

func (svc *Service) ListMembers(ctx context.Context, opts ListMembersOptions) ([]*models.Member, error) {
	m, _, err := svc.listMembersWithTotal(ctx, opts)
	return m, errors.WithStack(err)
}

func (svc *Service) ListMembersWithTotal(ctx context.Context, opts ListMembersOptions) ([]*models.Member, int, error) {
	opts.includeTotal = true
	return svc.listMembersWithTotal(ctx, opts)
}

func (svc *Service) listMembersWithTotal(ctx context.Context, opts ListMembersOptions) ([]*models.Member, int, error) {
	var members []*models.Member
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&members).
		OrderExpr("m.surname COLLATE NOCASE ASC, m.name COLLATE NOCASE ASC")

	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("m.name LIKE ?", like).
				WhereOr("m.surname LIKE ?", like).
				WhereOr("m.identification LIKE ?", like).
				WhereOr("m.email LIKE ?", like)
		})
	}
	if opts.IsActive != nil {
		q = q.Where("m.is_active = ?", *opts.IsActive)
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

	return members, total, nil
}

// UpdateMember saves the given columns. Changing is_active drops the linked
// user's cached role so the change applies to their next request.
func (svc *Service) UpdateMember(ctx context.Context, member *models.Member, opts UpdateMemberOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		if col == "identification" || col == "email" {
			if err := ensureUnique(ctx, svc.db, member.Identification, member.Email, member.ID); err != nil {
				return err
			}
			break
		}
	}

	member.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(member).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if member.UserID != nil && hasColumn(opts.Columns, "is_active") {
		svc.invalidate(ctx, *member.UserID)
	}
	return nil
}

// LinkUser attaches a login to a member. A user can back at most one member.
func (svc *Service) LinkUser(ctx context.Context, member *models.Member, userID int) error {
	if _, err := svc.userService.Retrieve(ctx, userID); err != nil {
		return err
	}

	taken, err := svc.db.
		NewSelect().
		Model((*models.Member)(nil)).
		Where("user_id = ?", userID).
		Where("id != ?", member.ID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if taken {
		return errcodes.Conflict("This user is already linked to another member.")
	}

	previous := member.UserID
	member.UserID = &userID
	member.UpdatedAt = time.Now()
	_, err = svc.db.
		NewUpdate().
		Model(member).
		Column("user_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	svc.invalidate(ctx, userID)
	if previous != nil && *previous != userID {
		svc.invalidate(ctx, *previous)
	}
	return nil
}

// Register creates an active user and its member record together. Either both
// exist afterwards or neither does.
func (svc *Service) Register(ctx context.Context, opts RegisterOptions) (*models.User, *models.Member, error) {
	var user *models.User
	var member *models.Member

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureUnique(ctx, tx, opts.Identification, opts.Email, 0); err != nil {
			return err
		}

		var err error
		user, err = svc.userService.CreateWithDB(ctx, tx, users.CreateUserOptions{
			Username:  opts.Username,
			Email:     &opts.Email,
			Password:  opts.Password,
			FirstName: opts.Name,
			LastName:  opts.Surname,
			IsActive:  true,
		})
		if err != nil {
			return err
		}

		member = &models.Member{
			UserID:         &user.ID,
			Name:           opts.Name,
			Surname:        opts.Surname,
			Identification: opts.Identification,
			Email:          opts.Email,
			Phone:          opts.Phone,
			IsActive:       true,
		}
		return svc.createMember(ctx, tx, member)
	})
	if err != nil {
		return nil, nil, err
	}

	return user, member, nil
}

func (svc *Service) invalidate(ctx context.Context, userID int) {
	if err := svc.resolver.Invalidate(ctx, userID); err != nil {
		logger.FromContext(ctx).Err(err).Warn("failed to invalidate role cache", logger.Data{"user_id": userID})
	}
}

func hasColumn(columns []string, name string) bool {
	for _, col := range columns {
		if col == name {
			return true
		}
	}
	return false
}
