package staff

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers staff management routes on a group that
// is already restricted to staff.
func RegisterRoutesWithGroup(g *echo.Group, staffService *Service) {
	h := &handler{
		staffService: staffService,
	}

	g.GET("", h.list)
	g.POST("", h.promote)
	g.GET("/dashboard", h.dashboard)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
}
