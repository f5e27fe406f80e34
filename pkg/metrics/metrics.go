// Package metrics holds the Prometheus collectors the service exports on
// /metrics.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bibliotech"

var (
	LoansIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_issued_total",
		Help:      "Loans issued by staff or requested by members.",
	})
	LoansRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_rejected_total",
		Help:      "Loan attempts refused by a lending rule.",
	}, []string{"reason"})
	LoansReturned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_returned_total",
		Help:      "Loans returned.",
	})
	LoansMarkedOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_marked_overdue_total",
		Help:      "Pending loans moved to overdue by the sweep.",
	})
	ImportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_runs_total",
		Help:      "Spreadsheet import runs by type and result.",
	}, []string{"type", "result"})
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Imported rows by type and outcome.",
	}, []string{"type", "outcome"})
	RoleCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_cache_lookups_total",
		Help:      "Role cache lookups by result.",
	}, []string{"result"})
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications by event and result.",
	}, []string{"event", "result"})
)

// RegisterRoutes serves the default registry.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
