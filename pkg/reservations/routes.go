package reservations

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the staff side of reservations on a group
// that is already restricted to staff.
func RegisterRoutesWithGroup(g *echo.Group, reservationService *Service) {
	h := &handler{
		reservationService: reservationService,
	}

	g.GET("", h.list)
	g.POST("/:id/confirm", h.confirm)
	g.POST("/:id/cancel", h.cancel)
}
