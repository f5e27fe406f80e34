package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e)

	LoansIssued.Inc()
	ImportRuns.WithLabelValues("books", "ok").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bibliotech_loans_issued_total")
	assert.Contains(t, rr.Body.String(), `bibliotech_import_runs_total{result="ok",type="books"}`)
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(LoansRejected.WithLabelValues("limit"))
	LoansRejected.WithLabelValues("limit").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(LoansRejected.WithLabelValues("limit")), 0.001)
}
