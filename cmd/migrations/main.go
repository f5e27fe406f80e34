package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/database"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	var db *bun.DB

	app := &cli.App{
		Name:  "bibliotech-migrations",
		Usage: "manage the bibliotech database schema",
		Before: func(*cli.Context) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			db, err = database.New(cfg)
			return err
		},
		After: func(*cli.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
		Commands: []*cli.Command{
			{
				Name:    "up",
				Aliases: []string{"migrate"},
				Usage:   "apply every pending migration",
				Action: func(c *cli.Context) error {
					group, err := migrations.BringUpToDate(c.Context, db)
					if err != nil {
						return err
					}
					if group.IsZero() {
						log.Info("schema is up to date")
						return nil
					}
					log.Info("migrated", logger.Data{"group": group.ID, "migrations": names(group.Migrations)})
					return nil
				},
			},
			{
				Name:    "down",
				Aliases: []string{"rollback"},
				Usage:   "roll back the last migration group",
				Action: func(c *cli.Context) error {
					group, err := migrations.RollBack(c.Context, db)
					if err != nil {
						return err
					}
					if group.IsZero() {
						log.Info("nothing to roll back")
						return nil
					}
					log.Info("rolled back", logger.Data{"group": group.ID, "migrations": names(group.Migrations)})
					return nil
				},
			},
			{
				Name:  "pending",
				Usage: "list migrations that have not been applied",
				Action: func(c *cli.Context) error {
					pending, err := migrations.Pending(c.Context, db)
					if err != nil {
						return err
					}
					for _, m := range pending {
						fmt.Println(m.Name)
					}
					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "create a Go migration",
				ArgsUsage: "<words describing the change>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.New("a migration name is required")
					}
					migrator, err := migrations.NewMigrator(c.Context, db)
					if err != nil {
						return err
					}
					name := strings.ToLower(strings.Join(c.Args().Slice(), "_"))
					mf, err := migrator.CreateGoMigration(c.Context, name, migrate.WithGoTemplate(migrationTemplate))
					if err != nil {
						return errors.WithStack(err)
					}
					log.Info("created migration", logger.Data{"name": mf.Name, "path": mf.Path})
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("migrations failed")
	}
}

func names(ms migrate.MigrationSlice) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "")
		return errors.WithStack(err)
	}

	down := func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
