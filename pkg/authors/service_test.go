package authors

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bibliotech/bibliotech/pkg/binder"
	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/migrations"
	"github.com/bibliotech/bibliotech/pkg/models"
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

func TestRetrieveAuthor_ByNaturalKeyIgnoresCase(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	author := &models.Author{Name: "Gabriel", Surname: "García Márquez"}
	require.NoError(t, svc.CreateAuthor(ctx, author))

	got, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		Name:    pointerutil.String(" gabriel "),
		Surname: pointerutil.String("GARCÍA Márquez"),
	})
	// SQLite NOCASE only folds ASCII, so the accented capital doesn't match.
	assert.True(t, errcodes.HasCode(err, "not_found"))
	assert.Nil(t, got)

	got, err = svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		Name:    pointerutil.String("GABRIEL"),
		Surname: pointerutil.String("garcía márquez"),
	})
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.ID)
}

func TestListAuthorsWithTotal_Search(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	for _, a := range []*models.Author{
		{Name: "Isabel", Surname: "Allende", Nationality: pointerutil.String("Chilena")},
		{Name: "Jorge Luis", Surname: "Borges", Nationality: pointerutil.String("Argentina")},
		{Name: "Julio", Surname: "Cortázar", Nationality: pointerutil.String("Argentina")},
	} {
		require.NoError(t, svc.CreateAuthor(ctx, a))
	}

	authors, total, err := svc.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Search: pointerutil.String("argentina"),
		Limit:  pointerutil.Int(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, authors, 1)
	assert.Equal(t, "Borges", authors[0].Surname)

	authors, err = svc.ListAuthors(ctx, ListAuthorsOptions{Search: pointerutil.String("luis borges")})
	require.NoError(t, err)
	assert.Len(t, authors, 1)
}

func TestHandler_CreateAndUpdate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/authors"), db)

	req := httptest.NewRequest(http.MethodPost, "/authors", strings.NewReader(`{"name":" Isabel ","surname":"Allende","birth_date":"1942-08-02"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created models.Author
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Isabel", created.Name)
	require.NotNil(t, created.BirthDate)
	assert.Equal(t, "02/08/1942", models.FormatDate(*created.BirthDate))

	req = httptest.NewRequest(http.MethodPatch, "/authors/"+strconv.Itoa(created.ID), strings.NewReader(`{"birth_date":"1942-02-31"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/authors/"+strconv.Itoa(created.ID), nil)
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"book_count":0`)

	req = httptest.NewRequest(http.MethodGet, "/authors/abc", nil)
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
