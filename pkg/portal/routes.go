package portal

import (
	"github.com/bibliotech/bibliotech/pkg/books"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/reservations"
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the self-service routes on a group that
// is already restricted to members.
func RegisterRoutesWithGroup(g *echo.Group, bookService *books.Service, loanService *loans.Service, reservationService *reservations.Service) {
	h := &handler{
		portalService:      NewService(loanService, reservationService),
		bookService:        bookService,
		loanService:        loanService,
		reservationService: reservationService,
	}

	g.GET("/dashboard", h.dashboard)
	g.GET("/books", h.searchBooks)
	g.POST("/books/:id/loan", h.requestLoan)
	g.POST("/books/:id/reservation", h.reserve)
	g.GET("/loans", h.listLoans)
	g.GET("/reservations", h.listReservations)
	g.POST("/reservations/:id/cancel", h.cancelReservation)
}
