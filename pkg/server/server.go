package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/authors"
	"github.com/bibliotech/bibliotech/pkg/binder"
	"github.com/bibliotech/bibliotech/pkg/books"
	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/imports"
	"github.com/bibliotech/bibliotech/pkg/jobs"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/members"
	"github.com/bibliotech/bibliotech/pkg/metrics"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/notify"
	"github.com/bibliotech/bibliotech/pkg/portal"
	"github.com/bibliotech/bibliotech/pkg/reservations"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/bibliotech/bibliotech/pkg/staff"
	"github.com/bibliotech/bibliotech/pkg/users"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// Dependencies are the pieces the server shares with the worker and the CLI.
type Dependencies struct {
	Resolver    *roles.Resolver
	Notifier    notify.Notifier
	LoanService *loans.Service
	JobService  *jobs.Service
}

func New(cfg *config.Config, db *bun.DB, deps Dependencies) (*http.Server, error) {
	e, err := newEcho(cfg, db, deps)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, deps Dependencies) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	metrics.RegisterRoutes(e)

	// Register auth routes and get the auth middleware.
	authMiddleware := auth.RegisterRoutes(e, db, cfg, deps.Resolver)
	roleMiddleware := roles.NewMiddleware(deps.Resolver)
	members.RegisterRegistrationRoutes(e, db, cfg, deps.Resolver)

	// Register user management routes.
	users.RegisterRoutes(e, db, authMiddleware, roleMiddleware, deps.Resolver)

	registerStaffRoutes(e, db, cfg, deps, authMiddleware, roleMiddleware)
	registerMemberRoutes(e, db, deps, authMiddleware, roleMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

// registerStaffRoutes registers the back office routes. Every group needs a
// signed in user whose resolved role is staff.
func registerStaffRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, deps Dependencies, authMiddleware *auth.Middleware, roleMiddleware *roles.Middleware) {
	staffGroup := func(prefix string) *echo.Group {
		return e.Group(prefix, authMiddleware.AuthenticateOptional, roleMiddleware.RequireStaff)
	}

	reservationService := reservations.NewService(db, deps.Notifier)
	importService := imports.NewService(db, deps.Resolver)

	// Authors routes
	authorsGroup := staffGroup("/authors")
	authors.RegisterRoutesWithGroup(authorsGroup, db)
	imports.RegisterRoutesWithGroup(authorsGroup, models.ImportTypeAuthors, importService, cfg)

	// Books routes
	booksGroup := staffGroup("/books")
	books.RegisterRoutesWithGroup(booksGroup, db)
	imports.RegisterRoutesWithGroup(booksGroup, models.ImportTypeBooks, importService, cfg)

	// Copies routes
	books.RegisterCopyRoutesWithGroup(staffGroup("/copies"), db)

	// Members routes
	membersGroup := staffGroup("/members")
	members.RegisterRoutesWithGroup(membersGroup, db, deps.Resolver)
	imports.RegisterRoutesWithGroup(membersGroup, models.ImportTypeMembers, importService, cfg)

	// Staff routes
	staffService := staff.NewService(db, deps.Resolver, deps.LoanService)
	staff.RegisterRoutesWithGroup(staffGroup("/staff"), staffService)

	// Loans routes
	loans.RegisterRoutesWithGroup(staffGroup("/loans"), deps.LoanService)

	// Reservations routes
	reservations.RegisterRoutesWithGroup(staffGroup("/reservations"), reservationService)

	// Import history across types
	imports.RegisterRunRoutes(staffGroup("/imports"), importService)

	// Jobs routes
	jobs.RegisterRoutesWithGroup(staffGroup("/jobs"), deps.JobService)

	// Config routes
	config.RegisterRoutesWithGroup(staffGroup("/config"), cfg)
}

// registerMemberRoutes registers the self-service routes under /me.
func registerMemberRoutes(e *echo.Echo, db *bun.DB, deps Dependencies, authMiddleware *auth.Middleware, roleMiddleware *roles.Middleware) {
	meGroup := e.Group("/me", authMiddleware.AuthenticateOptional, roleMiddleware.RequireMember)
	portal.RegisterRoutesWithGroup(
		meGroup,
		books.NewService(db),
		deps.LoanService,
		reservations.NewService(db, deps.Notifier),
	)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
