package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// NewMigrator returns a migrator over the library schema with its bookkeeping
// tables in place.
func NewMigrator(ctx context.Context, db *bun.DB) (*migrate.Migrator, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return migrator, nil
}

// BringUpToDate applies every pending migration. The returned group has a
// zero ID when there was nothing to apply.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := NewMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

// RollBack undoes the most recent migration group.
func RollBack(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := NewMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}

// Pending lists the registered migrations that have not been applied.
func Pending(ctx context.Context, db *bun.DB) (migrate.MigrationSlice, error) {
	migrator, err := NewMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ms.Unapplied(), nil
}
