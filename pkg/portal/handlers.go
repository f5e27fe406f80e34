package portal

import (
	"net/http"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/books"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/loans"
	"github.com/bibliotech/bibliotech/pkg/reservations"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	portalService      *Service
	bookService        *books.Service
	loanService        *loans.Service
	reservationService *reservations.Service
}

// memberID is set by roles.Middleware.RequireMember.
func memberID(c echo.Context) (int, error) {
	id, ok := roles.MemberIDFromContext(c)
	if !ok {
		return 0, errcodes.Unauthorized("A member account is required.")
	}
	return id, nil
}

func (h *handler) dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := memberID(c)
	if err != nil {
		return err
	}

	d, err := h.portalService.Dashboard(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, d))
}

func (h *handler) searchBooks(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	found, total, err := h.bookService.ListBooksWithTotal(ctx, books.ListBooksOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
		Title:  params.Title,
		Author: params.Author,
		Genre:  params.Genre,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": found,
		"total": total,
	}))
}

func (h *handler) requestLoan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := memberID(c)
	if err != nil {
		return err
	}
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	loan, err := h.loanService.RequestLoan(ctx, id, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, loan))
}

func (h *handler) reserve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := memberID(c)
	if err != nil {
		return err
	}
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	reservation, err := h.reservationService.CreateReservation(ctx, reservations.CreateReservationOptions{
		MemberID: id,
		BookID:   bookID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, reservation))
}

func (h *handler) listLoans(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := memberID(c)
	if err != nil {
		return err
	}

	params := ListLoansQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	memberLoans, total, err := h.loanService.ListMemberLoans(ctx, id, loans.ListLoansOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Status: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": memberLoans,
		"total": total,
	}))
}

func (h *handler) listReservations(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := memberID(c)
	if err != nil {
		return err
	}

	params := ListReservationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	memberReservations, total, err := h.reservationService.ListReservationsWithTotal(ctx, reservations.ListReservationsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Status:   params.Status,
		MemberID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": memberReservations,
		"total": total,
	}))
}

// cancelReservation only finds reservations that belong to the member, so
// anyone else's comes back as not found.
func (h *handler) cancelReservation(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := memberID(c)
	if err != nil {
		return err
	}
	reservationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Reservation")
	}

	reservation, err := h.reservationService.RetrieveReservation(ctx, reservations.RetrieveReservationOptions{
		ID:       &reservationID,
		MemberID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.reservationService.Cancel(ctx, reservation); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, reservation))
}
