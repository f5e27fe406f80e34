package auth

import (
	"net/http"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/metrics"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "bibliotech_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = 7 * 24 * time.Hour // 7 days

	StaffHome  = "/staff/dashboard"
	MemberHome = "/me/dashboard"
)

type handler struct {
	authService *Service
	resolver    *roles.Resolver
}

// buildMeResponse builds a MeResponse from a user and its resolved access.
func buildMeResponse(user *models.User, access *roles.Access) MeResponse {
	return MeResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
		Role:        string(access.Role),
		StaffID:     access.StaffID,
		MemberID:    access.MemberID,
	}
}

func homeFor(role roles.Role) string {
	switch role {
	case roles.RoleStaff:
		return StaffHome
	case roles.RoleMember:
		return MemberHome
	default:
		return "/"
	}
}

// login handles user login. When an area is given, the user must hold the
// matching role or no session is created.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return err
	}

	access, err := h.resolver.Resolve(ctx, user)
	if err != nil {
		return errors.WithStack(err)
	}

	if params.Area != "" && string(access.Role) != params.Area {
		metrics.LoginAttempts.WithLabelValues("wrong_area").Inc()
		log.Info("login refused for area", logger.Data{"user_id": user.ID, "area": params.Area, "role": access.Role})
		return errcodes.Forbidden("Signing in to the " + params.Area + " area")
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	SetSessionCookie(c, token)
	metrics.LoginAttempts.WithLabelValues("ok").Inc()

	resp := buildMeResponse(user, access)
	resp.Next = roles.SafeNext(params.Next, homeFor(access.Role))
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// logout handles user logout.
func (h *handler) logout(c echo.Context) error {
	// Clear cookie by setting MaxAge to -1
	c.SetCookie(sessionCookie(c, "", -1))

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"}))
}

// me returns the current authenticated user's info.
func (h *handler) me(c echo.Context) error {
	user, ok := GetUserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	access, err := h.resolver.Resolve(c.Request().Context(), user)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user, access)))
}

func (h *handler) loginHint(area, loginPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := LoginHintQuery{}
		if err := c.Bind(&params); err != nil {
			return errors.WithStack(err)
		}

		fallback := StaffHome
		if area == AreaMember {
			fallback = MemberHome
		}

		return errors.WithStack(c.JSON(http.StatusOK, LoginHintResponse{
			Area:      area,
			LoginPath: loginPath,
			Next:      roles.SafeNext(params.Next, fallback),
		}))
	}
}

// SetSessionCookie signs the user in on the client.
func SetSessionCookie(c echo.Context, token string) {
	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))
}

func sessionCookie(c echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}
