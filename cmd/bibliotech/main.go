package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/database"
	"github.com/bibliotech/bibliotech/pkg/fileutils"
	"github.com/bibliotech/bibliotech/pkg/imports"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/server"
	"github.com/bibliotech/bibliotech/pkg/users"
	"github.com/bibliotech/bibliotech/pkg/version"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

type app struct {
	cfg  *config.Config
	db   *bun.DB
	deps server.Dependencies
}

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	if _, err := migrations.BringUpToDate(ctx, db); err != nil {
		log.Err(err).Fatal("migrations error")
	}

	deps, closeDeps, err := server.NewDependencies(ctx, cfg, db)
	if err != nil {
		log.Err(err).Fatal("dependencies error")
	}
	defer closeDeps()

	a := &app{cfg: cfg, db: db, deps: deps}

	importCommands := make([]*cli.Command, 0, len(imports.Types))
	for _, t := range imports.Types {
		importCommands = append(importCommands, a.importCommand(t))
	}

	cliApp := &cli.App{
		Name:    "bibliotech",
		Usage:   "library management tasks",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:        "import",
				Usage:       "import a spreadsheet",
				Subcommands: importCommands,
			},
			{
				Name:   "mark-overdue",
				Usage:  "mark pending loans past their due date as overdue",
				Action: a.markOverdue,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "email"},
				},
				Action: a.createAdmin,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

func (a *app) importCommand(importType string) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "path to a .xlsx, .xls or .csv file", Required: true},
		&cli.BoolFlag{Name: "update-existing", Usage: "update records that already exist instead of skipping them"},
		&cli.StringFlag{Name: "notes", Usage: "notes stored on the import run"},
	}
	switch importType {
	case models.ImportTypeBooks:
		flags = append(flags,
			&cli.BoolFlag{Name: "create-dependencies", Usage: "create authors that don't exist yet"},
			&cli.BoolFlag{Name: "no-copies", Usage: "don't create copies for imported books"},
		)
	case models.ImportTypeMembers:
		flags = append(flags,
			&cli.BoolFlag{Name: "create-users", Usage: "create a user account for every new member"},
		)
	}

	return &cli.Command{
		Name:  importType,
		Usage: fmt.Sprintf("import %s", importType),
		Flags: flags,
		Action: func(c *cli.Context) error {
			return a.runImport(c, importType)
		},
	}
}

func (a *app) runImport(c *cli.Context, importType string) error {
	src := c.String("file")
	if _, err := os.Stat(src); err != nil {
		return errors.Wrapf(err, "cannot read %s", src)
	}

	// Import removes the file when the run fails, so it works on a copy.
	path, err := fileutils.CopyInto(
		src,
		filepath.Join(a.cfg.UploadsDir, "imports", importType),
		fileutils.UploadName(importType, filepath.Base(src), time.Now()),
	)
	if err != nil {
		return err
	}

	opts := imports.ImportOptions{
		Type:               importType,
		FilePath:           path,
		UpdateExisting:     c.Bool("update-existing"),
		CreateDependencies: c.Bool("create-dependencies"),
		CreateCopies:       !c.Bool("no-copies"),
		CreateUsers:        c.Bool("create-users"),
	}
	if notes := c.String("notes"); notes != "" {
		opts.Notes = &notes
	}

	result, err := imports.NewService(a.db, a.deps.Resolver).Import(c.Context, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Import run %d: %d rows, %d created, %d updated, %d skipped\n",
		result.RunID, result.TotalRows, result.Created, result.Updated, result.Skipped)
	if result.AuthorsCreated > 0 {
		fmt.Printf("Authors created: %d\n", result.AuthorsCreated)
	}
	if result.CopiesCreated > 0 {
		fmt.Printf("Copies created: %d\n", result.CopiesCreated)
	}
	if result.UsersCreated > 0 {
		fmt.Printf("Users created: %d\n", result.UsersCreated)
	}
	for _, e := range result.Errors {
		fmt.Println(e)
	}
	return nil
}

func (a *app) markOverdue(c *cli.Context) error {
	n, err := a.deps.LoanService.MarkOverdue(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Marked %d loans overdue\n", n)
	return nil
}

func (a *app) createAdmin(c *cli.Context) error {
	opts := users.CreateUserOptions{
		Username: c.String("username"),
		Password: c.String("password"),
		IsAdmin:  true,
		IsActive: true,
	}
	if email := c.String("email"); email != "" {
		opts.Email = &email
	}

	user, err := users.NewService(a.db).Create(c.Context, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Created admin %s (id %d)\n", user.Username, user.ID)
	return nil
}
