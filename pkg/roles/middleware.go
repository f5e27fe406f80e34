package roles

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/labstack/echo/v4"
)

const (
	StaffLoginPath  = "/auth/login/staff"
	MemberLoginPath = "/auth/login/member"
)

// Middleware gates route groups on the resolved role. It must run after the
// auth middleware so that "user" is set on the context when there is one.
type Middleware struct {
	resolver *Resolver
}

func NewMiddleware(resolver *Resolver) *Middleware {
	return &Middleware{resolver: resolver}
}

func (m *Middleware) RequireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(RoleStaff, StaffLoginPath, next)
}

func (m *Middleware) RequireMember(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(RoleMember, MemberLoginPath, next)
}

func (m *Middleware) require(role Role, loginPath string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		loginURL := LoginURL(loginPath, c.Request().URL.RequestURI())

		user, ok := c.Get("user").(*models.User)
		if !ok || user == nil {
			return deny(c, http.StatusUnauthorized, loginURL)
		}

		access, err := m.resolver.Resolve(c.Request().Context(), user)
		if err != nil {
			return err
		}
		if access.Role != role {
			return deny(c, http.StatusForbidden, loginURL)
		}

		c.Set("access", access)
		switch role {
		case RoleStaff:
			c.Set("staff_id", access.StaffID)
		case RoleMember:
			c.Set("member_id", access.MemberID)
		}

		return next(c)
	}
}

// deny redirects browser navigations to the login page and answers API
// calls with a JSON error that carries the same login URL.
func deny(c echo.Context, httpCode int, loginURL string) error {
	req := c.Request()
	if req.Method == http.MethodGet && strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.Redirect(http.StatusSeeOther, loginURL)
	}
	return errcodes.LoginRequired(httpCode, loginURL)
}

// LoginURL builds the login path with next set to the page to come back to.
func LoginURL(loginPath, next string) string {
	return loginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext returns next when it is a local absolute path and fallback
// otherwise, so that login can't be used as an open redirect.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

func AccessFromContext(c echo.Context) (*Access, bool) {
	access, ok := c.Get("access").(*Access)
	return access, ok
}

func StaffIDFromContext(c echo.Context) (int, bool) {
	id, ok := c.Get("staff_id").(int)
	return id, ok
}

func MemberIDFromContext(c echo.Context) (int, bool) {
	id, ok := c.Get("member_id").(int)
	return id, ok
}
