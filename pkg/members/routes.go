package members

import (
	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers member routes on a group that is already
// restricted to staff.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, resolver *roles.Resolver) *Service {
	memberService := NewService(db, resolver)
	h := &handler{
		memberService: memberService,
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/export.csv", h.export)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.POST("/:id/user", h.linkUser)

	return memberService
}

// RegisterRegistrationRoutes registers the public sign up endpoint.
func RegisterRegistrationRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, resolver *roles.Resolver) {
	h := &handler{
		memberService: NewService(db, resolver),
		authService:   auth.NewService(db, cfg.JWTSecret),
	}

	e.POST("/auth/register", h.register)
}
