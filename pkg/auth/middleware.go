package auth

import (
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/labstack/echo/v4"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate extracts and validates the JWT from the cookie.
// If valid, it verifies the user is still active and adds user info to the context.
// If not authenticated, it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !m.setUser(c) {
			return errcodes.Unauthorized("Authentication required")
		}
		return next(c)
	}
}

// AuthenticateOptional extracts user info if available but doesn't require
// authentication. Role middleware decides what an anonymous request gets.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		m.setUser(c)
		return next(c)
	}
}

func (m *Middleware) setUser(c echo.Context) bool {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	claims, err := m.authService.ValidateToken(cookie.Value)
	if err != nil {
		return false
	}

	// Verify user still exists and is active
	user, err := m.authService.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		return false
	}

	c.Set("user_id", user.ID)
	c.Set("username", user.Username)
	c.Set("user", user)
	return true
}

// GetUserFromContext retrieves the authenticated user from the Echo context.
func GetUserFromContext(c echo.Context) (*models.User, bool) {
	user, ok := c.Get("user").(*models.User)
	return user, ok && user != nil
}

// GetUserIDFromContext retrieves the user ID from the Echo context.
func GetUserIDFromContext(c echo.Context) (int, bool) {
	userID, ok := c.Get("user_id").(int)
	return userID, ok
}
