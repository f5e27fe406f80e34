package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Service handles user operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateUserOptions contains options for creating a user.
type CreateUserOptions struct {
	Username  string
	Email     *string
	Password  string
	FirstName string
	LastName  string
	IsAdmin   bool
	IsActive  bool
}

// Create creates a new user.
func (s *Service) Create(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	return s.CreateWithDB(ctx, s.db, opts)
}

// CreateWithDB creates a user using idb, so that callers can create the user
// inside their own transaction.
func (s *Service) CreateWithDB(ctx context.Context, idb bun.IDB, opts CreateUserOptions) (*models.User, error) {
	// Check if username already exists
	exists, err := idb.NewSelect().
		Model((*models.User)(nil)).
		Where("username = ? COLLATE NOCASE", opts.Username).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.ValidationError("Username already exists")
	}

	// Check if email already exists (if provided)
	if opts.Email != nil && *opts.Email != "" {
		exists, err = idb.NewSelect().
			Model((*models.User)(nil)).
			Where("email = ? COLLATE NOCASE", *opts.Email).
			Exists(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if exists {
			return nil, errcodes.ValidationError("Email already exists")
		}
	}

	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     opts.Username,
		Email:        opts.Email,
		PasswordHash: hashedPassword,
		FirstName:    opts.FirstName,
		LastName:     opts.LastName,
		IsAdmin:      opts.IsAdmin,
		IsActive:     opts.IsActive,
	}

	_, err = idb.NewInsert().Model(user).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

// Retrieve gets a user by ID.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ListOptions contains options for listing users.
type ListOptions struct {
	Limit  int
	Offset int
	Search string
}

// List returns a paginated list of users.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	query := s.db.NewSelect().
		Model(&users).
		Order("u.id ASC")

	if opts.Search != "" {
		like := "%" + opts.Search + "%"
		query = query.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("u.username LIKE ?", like).
				WhereOr("u.email LIKE ?", like).
				WhereOr("u.first_name LIKE ?", like).
				WhereOr("u.last_name LIKE ?", like)
		})
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return users, total, nil
}

// UpdateOptions contains options for updating a user.
type UpdateOptions struct {
	Columns []string
}

// Update updates a user.
func (s *Service) Update(ctx context.Context, user *models.User, opts UpdateOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	user.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")
	_, err := s.db.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// ResetPassword changes a user's password.
func (s *Service) ResetPassword(ctx context.Context, userID int, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hashedPassword).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// VerifyPassword checks if the password is correct for a user.
func (s *Service) VerifyPassword(ctx context.Context, userID int, password string) (bool, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Column("password_hash").
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	return auth.CheckPassword(password, user.PasswordHash), nil
}

// UniqueUsername returns base, or base with "_<n>" appended, picking the first
// candidate that is neither stored nor in taken. Matching is case-insensitive.
// The chosen name is added to taken.
func UniqueUsername(ctx context.Context, idb bun.IDB, base string, taken map[string]bool) (string, error) {
	candidate := base
	for n := 1; ; n++ {
		key := strings.ToLower(candidate)
		if !taken[key] {
			exists, err := idb.NewSelect().
				Model((*models.User)(nil)).
				Where("username = ? COLLATE NOCASE", candidate).
				Exists(ctx)
			if err != nil {
				return "", errors.WithStack(err)
			}
			if !exists {
				taken[key] = true
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s_%d", base, n)
	}
}

// TemporaryPassword returns a random password for accounts created on a
// person's behalf. They're expected to change it on first sign-in.
func TemporaryPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
