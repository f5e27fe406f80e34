package loans

import (
	"net/http"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/csvexport"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	loanService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLoansQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.loanService.MarkOverdue(ctx); err != nil {
		return errors.WithStack(err)
	}

	loans, total, err := h.loanService.ListLoansWithTotal(ctx, ListLoansOptions{
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
		"items": loans,
		"total": total,
	}))
}

func (h *handler) issue(c echo.Context) error {
	ctx := c.Request().Context()

	params := IssueLoanPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	dueAt := h.loanService.DefaultDueDate()
	if params.DueAt != nil {
		d, err := models.ParseDate(*params.DueAt)
		if err != nil {
			return errcodes.ValidationError(`"due_at" should be in the format of YYYY-MM-DD`)
		}
		dueAt = d
	}

	loan, err := h.loanService.IssueLoan(ctx, IssueLoanOptions{
		MemberID: params.MemberID,
		CopyID:   params.CopyID,
		DueAt:    dueAt,
		Notes:    params.Notes,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, loan))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.RetrieveLoan(ctx, RetrieveLoanOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) returnLoan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Loan")
	}

	loan, err := h.loanService.ReturnLoan(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, loan))
}

func (h *handler) markOverdue(c echo.Context) error {
	n, err := h.loanService.MarkOverdue(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"marked": n,
	}))
}

func (h *handler) export(c echo.Context) error {
	rows, err := h.loanService.ExportRows(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(csvexport.Respond(c, "loans.csv", ExportHeader, rows))
}
