package reservations

import (
	"net/http"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	reservationService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListReservationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	reservations, total, err := h.reservationService.ListReservationsWithTotal(ctx, ListReservationsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Search:   params.Search,
		Status:   params.Status,
		MemberID: params.MemberID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": reservations,
		"total": total,
	}))
}

func (h *handler) confirm(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reservation")
	}

	reservation, err := h.reservationService.RetrieveReservation(ctx, RetrieveReservationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.reservationService.Confirm(ctx, reservation); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, reservation))
}

func (h *handler) cancel(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reservation")
	}

	reservation, err := h.reservationService.RetrieveReservation(ctx, RetrieveReservationOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.reservationService.Cancel(ctx, reservation); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, reservation))
}
