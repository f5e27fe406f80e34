package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
		LoginURL   string `json:"login_url"`
	} `json:"error"`
}

func handle(t *testing.T, err error) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/loans/1/return", nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)

	NewHandler().Handle(err, c)

	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func TestHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "custom error keeps its message",
			err:     LoanRejected("Member already has 3 active loans."),
			status:  http.StatusUnprocessableEntity,
			code:    "loan_rejected",
			message: "Member already has 3 active loans.",
		},
		{
			name:    "wrapped custom error is unwrapped",
			err:     errors.Wrap(NotFound("Copy"), "issue loan"),
			status:  http.StatusNotFound,
			code:    "not_found",
			message: "Copy not found.",
		},
		{
			name:    "echo errors get a snake cased code",
			err:     echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"),
			status:  http.StatusMethodNotAllowed,
			code:    "method_not_allowed",
			message: "Method Not Allowed",
		},
		{
			name:    "unexpected errors hide their details",
			err:     errors.New("disk I/O error: /data/bibliotech.db"),
			status:  http.StatusInternalServerError,
			code:    "internal_server_error",
			message: "Something went wrong on our end. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := handle(t, tt.err)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
			assert.Equal(t, tt.status, body.Error.StatusCode)
			assert.NotContains(t, rr.Body.String(), "disk I/O")
		})
	}
}

func TestHandle_IncludesMeta(t *testing.T) {
	t.Parallel()

	rr, body := handle(t, LoginRequired(http.StatusForbidden, "/auth/login/staff?next=%2Fbooks"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "login_required", body.Error.Code)
	assert.Equal(t, "/auth/login/staff?next=%2Fbooks", body.Error.LoginURL)
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	assert.True(t, HasCode(errors.WithStack(LoanAlreadyReturned()), "loan_already_returned"))
	assert.False(t, HasCode(NotFound("Loan"), "loan_already_returned"))
	assert.False(t, HasCode(errors.New("plain"), "not_found"))
	assert.True(t, errors.Is(errors.WithStack(NotFound("Book")), NotFound("Book")))
}
