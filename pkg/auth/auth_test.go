package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/binder"
	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSecret = "test-jwt-secret"

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createUser(t *testing.T, db *bun.DB, username, email, password string) *models.User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if email != "" {
		user.Email = &email
	}
	_, err = db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	return e
}

func newTestContext(t *testing.T, payload, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := newTestEcho(t)
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func newHandler(db *bun.DB) *handler {
	return &handler{
		authService: NewService(db, testSecret),
		resolver:    roles.NewResolver(db, roles.NewMemoryCache(), time.Minute),
	}
}

func sessionFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == CookieName {
			return cookie
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func testConfig() *config.Config {
	cfg := config.NewForTest()
	cfg.JWTSecret = testSecret
	return cfg
}
