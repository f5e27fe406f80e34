package loans

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers loan desk routes on a group that is
// already restricted to staff.
func RegisterRoutesWithGroup(g *echo.Group, loanService *Service) {
	h := &handler{
		loanService: loanService,
	}

	g.GET("", h.list)
	g.POST("", h.issue)
	g.GET("/export.csv", h.export)
	g.POST("/mark-overdue", h.markOverdue)
	g.GET("/:id", h.retrieve)
	g.POST("/:id/return", h.returnLoan)
}
