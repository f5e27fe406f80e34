package roles

import (
	"context"
	"database/sql"
	"time"

	"github.com/bibliotech/bibliotech/pkg/metrics"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleNone   Role = "none"
	RoleStaff  Role = "staff"
	RoleMember Role = "member"
)

// Access is what a principal is allowed to act as. StaffID or MemberID is set
// depending on Role.
type Access struct {
	Role     Role `json:"role"`
	StaffID  int  `json:"staff_id,omitempty"`
	MemberID int  `json:"member_id,omitempty"`
}

// Cache stores resolved Access per user ID.
type Cache interface {
	Get(ctx context.Context, userID int) (*Access, bool, error)
	Set(ctx context.Context, userID int, access *Access, ttl time.Duration) error
	Delete(ctx context.Context, userID int) error
}

// Resolver works out whether a user acts as staff, as a member, or neither.
// Results are cached per user for ttl; writes that change staff or member
// activation must call Invalidate.
type Resolver struct {
	db    *bun.DB
	cache Cache
	ttl   time.Duration
}

func NewResolver(db *bun.DB, cache Cache, ttl time.Duration) *Resolver {
	return &Resolver{db: db, cache: cache, ttl: ttl}
}

func (r *Resolver) Resolve(ctx context.Context, user *models.User) (*Access, error) {
	log := logger.FromContext(ctx)

	access, ok, err := r.cache.Get(ctx, user.ID)
	if err != nil {
		// A broken cache shouldn't lock people out.
		log.Err(err).Warn("role cache get error")
	} else if ok {
		metrics.RoleCacheLookups.WithLabelValues("hit").Inc()
		return access, nil
	}
	metrics.RoleCacheLookups.WithLabelValues("miss").Inc()

	access, err = r.lookup(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, user.ID, access, r.ttl); err != nil {
		log.Err(err).Warn("role cache set error")
	}
	return access, nil
}

func (r *Resolver) Invalidate(ctx context.Context, userID int) error {
	return errors.WithStack(r.cache.Delete(ctx, userID))
}

func (r *Resolver) lookup(ctx context.Context, user *models.User) (*Access, error) {
	staff := &models.Staff{}
	err := r.db.NewSelect().Model(staff).Where("st.user_id = ?", user.ID).Scan(ctx)
	switch {
	case err == nil:
		if !staff.IsActive {
			// An inactive staff record denies access outright, even if the
			// user also has a member record.
			return &Access{Role: RoleNone}, nil
		}
		return &Access{Role: RoleStaff, StaffID: staff.ID}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, errors.WithStack(err)
	}

	if user.IsAdmin {
		staff, err := r.provisionAdminStaff(ctx, user)
		if err != nil {
			return nil, err
		}
		return &Access{Role: RoleStaff, StaffID: staff.ID}, nil
	}

	member := &models.Member{}
	err = r.db.NewSelect().Model(member).Where("m.user_id = ?", user.ID).Scan(ctx)
	switch {
	case err == nil:
		if member.IsActive {
			return &Access{Role: RoleMember, MemberID: member.ID}, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, errors.WithStack(err)
	}

	return &Access{Role: RoleNone}, nil
}

// provisionAdminStaff creates the staff record an admin user is missing.
// Concurrent requests for the same admin may race here, so the insert
// ignores conflicts and the row is re-read.
func (r *Resolver) provisionAdminStaff(ctx context.Context, user *models.User) (*models.Staff, error) {
	name := user.FirstName
	if name == "" {
		name = "Admin"
	}
	surname := user.LastName
	if surname == "" {
		surname = "User"
	}

	now := time.Now()
	staff := &models.Staff{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    user.ID,
		Name:      name,
		Surname:   surname,
		Position:  models.PositionAdministrator,
		IsActive:  true,
	}
	_, err := r.db.NewInsert().Model(staff).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	existing := &models.Staff{}
	err = r.db.NewSelect().Model(existing).Where("st.user_id = ?", user.ID).Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("provisioned staff record for admin", logger.Data{"user_id": user.ID, "staff_id": existing.ID})
	return existing, nil
}
