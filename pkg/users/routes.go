package users

import (
	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, roleMiddleware *roles.Middleware, resolver *roles.Resolver) *Service {
	userService := NewService(db)

	h := &handler{
		userService: userService,
		resolver:    resolver,
	}

	users := e.Group("/users")
	users.Use(authMiddleware.AuthenticateOptional)

	users.GET("", h.list, roleMiddleware.RequireStaff)
	users.GET("/:id", h.retrieve, roleMiddleware.RequireStaff)
	users.POST("", h.create, roleMiddleware.RequireStaff)
	users.POST("/:id", h.update, roleMiddleware.RequireStaff)

	// Password reset is special: any signed in user can reset their own
	// password, and the handler checks staff access for everyone else's.
	users.POST("/:id/reset-password", h.resetPassword, authMiddleware.Authenticate)

	return userService
}
