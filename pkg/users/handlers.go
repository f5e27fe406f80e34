package users

import (
	"net/http"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	userService *Service
	resolver    *roles.Resolver
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, CreateUserOptions{
		Username:  params.Username,
		Email:     params.Email,
		Password:  params.Password,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		IsAdmin:   params.IsAdmin,
		IsActive:  true,
	})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": users,
		"total": total,
	}))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	currentUserID, _ := c.Get("user_id").(int)
	if currentUserID == id && params.IsActive != nil && !*params.IsActive {
		return errcodes.ValidationError("You cannot deactivate your own account")
	}

	opts := UpdateOptions{Columns: []string{}}

	if params.Email != nil {
		user.Email = params.Email
		opts.Columns = append(opts.Columns, "email")
	}
	if params.FirstName != nil && *params.FirstName != user.FirstName {
		user.FirstName = *params.FirstName
		opts.Columns = append(opts.Columns, "first_name")
	}
	if params.LastName != nil && *params.LastName != user.LastName {
		user.LastName = *params.LastName
		opts.Columns = append(opts.Columns, "last_name")
	}
	roleChanged := false
	if params.IsAdmin != nil && *params.IsAdmin != user.IsAdmin {
		user.IsAdmin = *params.IsAdmin
		opts.Columns = append(opts.Columns, "is_admin")
		roleChanged = true
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
		roleChanged = true
	}

	if err := h.userService.Update(ctx, user, opts); err != nil {
		return err
	}
	if roleChanged {
		if err := h.resolver.Invalidate(ctx, user.ID); err != nil {
			return err
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

// resetPassword lets anyone signed in change their own password with the
// current one. Staff can reset anybody else's.
func (h *handler) resetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := ResetPasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	currentUserID, _ := c.Get("user_id").(int)
	if currentUserID == id {
		if params.CurrentPassword == nil || *params.CurrentPassword == "" {
			return errcodes.ValidationError("Current password is required when resetting your own password")
		}

		valid, err := h.userService.VerifyPassword(ctx, id, *params.CurrentPassword)
		if err != nil {
			return err
		}
		if !valid {
			return errcodes.ValidationError("Current password is incorrect")
		}
	} else {
		current, err := h.userService.Retrieve(ctx, currentUserID)
		if err != nil {
			return errcodes.Unauthorized("Authentication required")
		}
		access, err := h.resolver.Resolve(ctx, current)
		if err != nil {
			return err
		}
		if access.Role != roles.RoleStaff {
			return errcodes.Forbidden("Resetting another user's password")
		}
		if _, err := h.userService.Retrieve(ctx, id); err != nil {
			return err
		}
	}

	if err := h.userService.ResetPassword(ctx, id, params.NewPassword); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Password reset successfully"}))
}
