package staff

import (
	"net/http"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	staffService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListStaffQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	staff, total, err := h.staffService.ListStaffWithTotal(ctx, ListStaffOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": staff,
		"total": total,
	}))
}

func (h *handler) promote(c echo.Context) error {
	ctx := c.Request().Context()

	params := PromotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	st, err := h.staffService.Promote(ctx, PromoteOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, st))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Staff member")
	}

	st, err := h.staffService.RetrieveStaff(ctx, RetrieveStaffOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, st))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Staff member")
	}

	params := UpdateStaffPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	st, err := h.staffService.RetrieveStaff(ctx, RetrieveStaffOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if self, ok := roles.StaffIDFromContext(c); ok && self == st.ID && params.IsActive != nil && !*params.IsActive {
		return errcodes.ValidationError("You cannot deactivate your own staff access")
	}

	// Keep track of what's been changed
	opts := UpdateStaffOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != st.Name {
		st.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Surname != nil && *params.Surname != st.Surname {
		st.Surname = *params.Surname
		opts.Columns = append(opts.Columns, "surname")
	}
	if params.Position != nil && *params.Position != st.Position {
		st.Position = *params.Position
		opts.Columns = append(opts.Columns, "position")
	}
	if params.IsActive != nil && *params.IsActive != st.IsActive {
		st.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	if err := h.staffService.UpdateStaff(ctx, st, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, st))
}

func (h *handler) dashboard(c echo.Context) error {
	d, err := h.staffService.Dashboard(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, d))
}
