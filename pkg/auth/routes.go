package auth

import (
	"time"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// RegisterRoutes registers all auth routes and returns the middleware the
// rest of the API is guarded with.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, resolver *roles.Resolver) *Middleware {
	authService := NewService(db, cfg.JWTSecret)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
		resolver:    resolver,
	}

	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.LoginRateLimit),
			Burst:     cfg.LoginRateBurst,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return errcodes.TooManyRequests()
		},
	})

	auth := e.Group("/auth")
	auth.POST("/login", h.login, limiter)
	auth.POST("/logout", h.logout)
	auth.GET("/me", h.me, authMiddleware.Authenticate)
	auth.GET("/login/staff", h.loginHint(AreaStaff, roles.StaffLoginPath))
	auth.GET("/login/member", h.loginHint(AreaMember, roles.MemberLoginPath))

	return authMiddleware
}
