package members

import (
	"net/http"
	"strconv"

	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/csvexport"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	memberService *Service
	authService   *auth.Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListMembersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	members, total, err := h.memberService.ListMembersWithTotal(ctx, ListMembersOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Search:   params.Search,
		IsActive: params.IsActive,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"items": members,
		"total": total,
	}))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateMemberPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	member := &models.Member{
		Name:           params.Name,
		Surname:        params.Surname,
		Identification: params.Identification,
		Email:          params.Email,
		Phone:          params.Phone,
		IsActive:       params.IsActive == nil || *params.IsActive,
	}
	if err := h.memberService.CreateMember(ctx, member); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, member))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	member, err := h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, member))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	params := UpdateMemberPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	member, err := h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed
	opts := UpdateMemberOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != member.Name {
		member.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Surname != nil && *params.Surname != member.Surname {
		member.Surname = *params.Surname
		opts.Columns = append(opts.Columns, "surname")
	}
	if params.Identification != nil && *params.Identification != member.Identification {
		member.Identification = *params.Identification
		opts.Columns = append(opts.Columns, "identification")
	}
	if params.Email != nil && *params.Email != member.Email {
		member.Email = *params.Email
		opts.Columns = append(opts.Columns, "email")
	}
	if params.Phone != nil {
		member.Phone = params.Phone
		opts.Columns = append(opts.Columns, "phone")
	}
	if params.IsActive != nil && *params.IsActive != member.IsActive {
		member.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	if err := h.memberService.UpdateMember(ctx, member, opts); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, member))
}

func (h *handler) linkUser(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Member")
	}

	params := LinkUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	member, err := h.memberService.RetrieveMember(ctx, RetrieveMemberOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.memberService.LinkUser(ctx, member, params.UserID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, member))
}

func (h *handler) export(c echo.Context) error {
	rows, err := h.memberService.ExportRows(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(csvexport.Respond(c, "members.csv", ExportHeader, rows))
}

// register signs a visitor up as a member and starts their session.
func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, member, err := h.memberService.Register(ctx, RegisterOptions{
		Username:       params.Username,
		Password:       params.Password,
		Email:          params.Email,
		Name:           params.Name,
		Surname:        params.Surname,
		Identification: params.Identification,
		Phone:          params.Phone,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	auth.SetSessionCookie(c, token)

	log.Info("member registered", logger.Data{"user_id": user.ID, "member_id": member.ID})

	return errors.WithStack(c.JSON(http.StatusCreated, auth.MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
		Role:        string(roles.RoleMember),
		MemberID:    member.ID,
		Next:        auth.MemberHome,
	}))
}
