package authors

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers author routes on a group that is already
// restricted to staff.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		authorService: NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
}
