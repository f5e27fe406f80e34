package books

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a group that is already
// restricted to staff.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		bookService: NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/genres", h.genres)
	g.GET("/export.csv", h.export)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.GET("/:id/copies", h.listCopies)
	g.POST("/:id/copies", h.addCopies)
}

// RegisterCopyRoutesWithGroup registers the /copies routes.
func RegisterCopyRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		bookService: NewService(db),
	}

	g.GET("/:id", h.retrieveCopy)
	g.PATCH("/:id", h.updateCopy)
}
