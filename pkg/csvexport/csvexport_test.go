package csvexport

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_QuotesFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Write(&buf, []string{"title", "author"}, [][]string{
		{"Cien años de soledad", "Gabriel García Márquez"},
		{"Rayuela, edición especial", `Julio "Cronopio" Cortázar`},
	})
	require.NoError(t, err)
	assert.Equal(t, "title,author\n"+
		"Cien años de soledad,Gabriel García Márquez\n"+
		`"Rayuela, edición especial","Julio ""Cronopio"" Cortázar"`+"\n", buf.String())
}

func TestRespond(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rr := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/books/export.csv", nil), rr)

	require.NoError(t, Respond(c, "books.csv", []string{"title"}, [][]string{{"Ficciones"}}))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="books.csv"`, rr.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "title\nFicciones\n", rr.Body.String())
}
