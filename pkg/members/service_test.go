package members

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/auth"
	"github.com/bibliotech/bibliotech/pkg/binder"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/bibliotech/bibliotech/pkg/roles"
	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

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

func newResolver(db *bun.DB) *roles.Resolver {
	return roles.NewResolver(db, roles.NewMemoryCache(), time.Minute)
}

func registerOptions(username, identification, email string) RegisterOptions {
	return RegisterOptions{
		Username:       username,
		Password:       "correct horse battery",
		Email:          email,
		Name:           "Ana",
		Surname:        "Pérez",
		Identification: identification,
	}
}

func TestRegister_CreatesUserAndMember(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	resolver := newResolver(db)
	svc := NewService(db, resolver)

	user, member, err := svc.Register(ctx, registerOptions("ana", "12345678", "ana@example.com"))
	require.NoError(t, err)
	require.NotNil(t, member.UserID)
	assert.Equal(t, user.ID, *member.UserID)
	assert.True(t, member.IsActive)
	assert.Equal(t, "Ana", user.FirstName)

	access, err := resolver.Resolve(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, roles.RoleMember, access.Role)
	assert.Equal(t, member.ID, access.MemberID)
}

func TestRegister_DuplicateLeavesNothingBehind(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, newResolver(db))

	_, _, err := svc.Register(ctx, registerOptions("ana", "12345678", "ana@example.com"))
	require.NoError(t, err)

	tests := []struct {
		name string
		opts RegisterOptions
	}{
		{"same identification", registerOptions("otra", "12345678", "otra@example.com")},
		{"same email", registerOptions("otra", "87654321", "ANA@example.com")},
	}
	for _, tt := range tests {
		_, _, err := svc.Register(ctx, tt.opts)
		assert.True(t, errcodes.HasCode(err, "conflict"), tt.name)
	}

	// A username clash is caught after the member checks and still rolls back.
	_, _, err = svc.Register(ctx, registerOptions("ANA", "99999999", "new@example.com"))
	assert.True(t, errcodes.HasCode(err, "validation_error"))

	users, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, users)
	members, err := db.NewSelect().Model((*models.Member)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, members)
}

func TestUpdateMember_DeactivationDropsCachedRole(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	resolver := newResolver(db)
	svc := NewService(db, resolver)

	user, member, err := svc.Register(ctx, registerOptions("ana", "12345678", "ana@example.com"))
	require.NoError(t, err)

	access, err := resolver.Resolve(ctx, user)
	require.NoError(t, err)
	require.Equal(t, roles.RoleMember, access.Role)

	member.IsActive = false
	require.NoError(t, svc.UpdateMember(ctx, member, UpdateMemberOptions{Columns: []string{"is_active"}}))

	access, err = resolver.Resolve(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, roles.RoleNone, access.Role)
}

func TestUpdateMember_RejectsTakenEmail(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, newResolver(db))

	first := &models.Member{Name: "Ana", Surname: "Pérez", Identification: "1", Email: "ana@example.com", IsActive: true}
	second := &models.Member{Name: "Luis", Surname: "Gómez", Identification: "2", Email: "luis@example.com", IsActive: true}
	require.NoError(t, svc.CreateMember(ctx, first))
	require.NoError(t, svc.CreateMember(ctx, second))

	second.Email = "ana@example.com"
	err := svc.UpdateMember(ctx, second, UpdateMemberOptions{Columns: []string{"email"}})
	assert.True(t, errcodes.HasCode(err, "conflict"))

	// Saving a member's own values again is fine.
	first.Name = "Ana María"
	require.NoError(t, svc.UpdateMember(ctx, first, UpdateMemberOptions{Columns: []string{"name", "email"}}))
}

func TestLinkUser(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	resolver := newResolver(db)
	svc := NewService(db, resolver)

	user := &models.User{Username: "walkin", PasswordHash: "x", IsActive: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	// Resolve once so a stale "none" sits in the cache.
	access, err := resolver.Resolve(ctx, user)
	require.NoError(t, err)
	require.Equal(t, roles.RoleNone, access.Role)

	first := &models.Member{Name: "Ana", Surname: "Pérez", Identification: "1", Email: "ana@example.com", IsActive: true}
	second := &models.Member{Name: "Luis", Surname: "Gómez", Identification: "2", Email: "luis@example.com", IsActive: true}
	require.NoError(t, svc.CreateMember(ctx, first))
	require.NoError(t, svc.CreateMember(ctx, second))

	require.NoError(t, svc.LinkUser(ctx, first, user.ID))
	access, err = resolver.Resolve(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, roles.RoleMember, access.Role)

	err = svc.LinkUser(ctx, second, user.ID)
	assert.True(t, errcodes.HasCode(err, "conflict"))

	err = svc.LinkUser(ctx, second, user.ID+100)
	assert.True(t, errcodes.HasCode(err, "not_found"))
}

func TestListMembersWithTotal_Search(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, newResolver(db))

	for _, m := range []*models.Member{
		{Name: "Ana", Surname: "Pérez", Identification: "111", Email: "ana@example.com", IsActive: true},
		{Name: "Luis", Surname: "Gómez", Identification: "222", Email: "luis@correo.com", IsActive: false},
		{Name: "Marta", Surname: "Alonso", Identification: "333", Email: "marta@example.com", IsActive: true},
	} {
		require.NoError(t, svc.CreateMember(ctx, m))
	}

	members, total, err := svc.ListMembersWithTotal(ctx, ListMembersOptions{Search: pointerutil.String("example")})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, members, 2)
	assert.Equal(t, "Alonso", members[0].Surname)
	assert.Equal(t, "Pérez", members[1].Surname)

	_, total, err = svc.ListMembersWithTotal(ctx, ListMembersOptions{Search: pointerutil.String("222")})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	active := false
	members, _, err = svc.ListMembersWithTotal(ctx, ListMembersOptions{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Luis", members[0].Name)
}

func TestExportRows(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, newResolver(db))

	registered := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.CreateMember(ctx, &models.Member{
		CreatedAt: registered, Name: "Luis", Surname: "Gómez", Identification: "222", Email: "luis@example.com", IsActive: false,
	}))

	rows, err := svc.ExportRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Luis", "Gómez", "222", "luis@example.com", "no", "05/03/2026"}}, rows)
}

func TestHandler_Register_StartsMemberSession(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	h := &handler{
		memberService: NewService(db, newResolver(db)),
		authService:   auth.NewService(db, "test-secret"),
	}
	e.POST("/auth/register", h.register)

	payload := `{"username":"ana","password":"correct horse battery","email":" Ana@Example.com ","name":"Ana","surname":"Pérez","identification":"12345678"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var body auth.MeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "member", body.Role)
	assert.Equal(t, auth.MemberHome, body.Next)
	require.NotNil(t, body.Email)
	assert.Equal(t, "ana@example.com", *body.Email)

	var found bool
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == auth.CookieName {
			found = cookie.Value != ""
		}
	}
	assert.True(t, found)
}
