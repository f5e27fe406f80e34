package roles

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, mw *Middleware, guard func(echo.HandlerFunc) echo.HandlerFunc, user *models.User, accept string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	e.GET("/loans", func(c echo.Context) error {
		access, ok := AccessFromContext(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, access)
	}, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if user != nil {
				c.Set("user", user)
			}
			return next(c)
		}
	}, guard)

	req := httptest.NewRequest(http.MethodGet, "/loans?status=pending", nil)
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func TestRequireStaff(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	staffUser := createUser(t, db, "ana", false)
	createStaff(t, db, staffUser.ID, true)
	memberUser := createUser(t, db, "luis", false)
	createMember(t, db, memberUser.ID, true)

	mw := NewMiddleware(NewResolver(db, NewMemoryCache(), time.Minute))

	rr := serve(t, mw, mw.RequireStaff, staffUser, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"staff"`)

	rr = serve(t, mw, mw.RequireStaff, memberUser, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "login_required")
	assert.Contains(t, rr.Body.String(), "/auth/login/staff?next=%2Floans%3Fstatus%3Dpending")

	rr = serve(t, mw, mw.RequireStaff, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, mw, mw.RequireStaff, nil, "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login/staff?next=%2Floans%3Fstatus%3Dpending", rr.Header().Get(echo.HeaderLocation))
}

func TestRequireMember(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	staffUser := createUser(t, db, "ana", false)
	createStaff(t, db, staffUser.ID, true)
	memberUser := createUser(t, db, "luis", false)
	createMember(t, db, memberUser.ID, true)

	mw := NewMiddleware(NewResolver(db, NewMemoryCache(), time.Minute))

	rr := serve(t, mw, mw.RequireMember, memberUser, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"role":"member"`)

	rr = serve(t, mw, mw.RequireMember, staffUser, "text/html")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Contains(t, rr.Header().Get(echo.HeaderLocation), MemberLoginPath)
}

func TestSafeNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		next string
		want string
	}{
		{"/me/loans", "/me/loans"},
		{"", "/me/dashboard"},
		{"https://evil.example.com", "/me/dashboard"},
		{"//evil.example.com", "/me/dashboard"},
		{"/\\evil.example.com", "/me/dashboard"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeNext(tt.next, "/me/dashboard"), tt.next)
	}
}
