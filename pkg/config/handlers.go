package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	config *Config
}

// PolicyResponse is the subset of the config that staff can see. Secrets and
// connection strings are never included.
type PolicyResponse struct {
	LoanPeriodDays       int    `json:"loan_period_days"`
	MaxLoanDays          int    `json:"max_loan_days"`
	MaxPendingLoans      int    `json:"max_pending_loans"`
	MaxUploadBytes       int64  `json:"max_upload_bytes"`
	OverdueSweepInterval string `json:"overdue_sweep_interval"`
	RoleCacheTTL         string `json:"role_cache_ttl"`
}

func (h *handler) retrieve(c echo.Context) error {
	resp := PolicyResponse{
		LoanPeriodDays:       h.config.LoanPeriodDays,
		MaxLoanDays:          h.config.MaxLoanDays,
		MaxPendingLoans:      h.config.MaxPendingLoans,
		MaxUploadBytes:       h.config.MaxUploadBytes,
		OverdueSweepInterval: h.config.OverdueSweepInterval.String(),
		RoleCacheTTL:         h.config.RoleCacheTTL.String(),
	}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
