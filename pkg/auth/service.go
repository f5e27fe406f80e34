package auth

import (
	"context"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Service signs users in and out.
type Service struct {
	db        *bun.DB
	jwtSecret []byte
}

// NewService creates a new auth service.
func NewService(db *bun.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// Authenticate validates credentials and returns the user if valid. The
// login may be either the username or the email address. A hash made with a
// lower cost than BcryptCost is upgraded on the way through.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.username = ? COLLATE NOCASE OR u.email = ? COLLATE NOCASE", login, login).
		Where("u.is_active = ?", true).
		OrderExpr("u.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil || !CheckPassword(password, user.PasswordHash) {
		return nil, errcodes.Unauthorized("Invalid username or password")
	}

	if needsRehash(user.PasswordHash) {
		if err := s.rehash(ctx, user, password); err != nil {
			logger.FromContext(ctx).Err(err).Warn("password rehash failed", logger.Data{"user_id": user.ID})
		}
	}

	return user, nil
}

func (s *Service) rehash(ctx context.Context, user *models.User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	_, err = s.db.NewUpdate().
		Model(user).
		Column("password_hash").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// GetUserByID retrieves an active user by ID.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Where("u.is_active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}
