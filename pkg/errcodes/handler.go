package errcodes

import (
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler that uses HTTP errors accordingly, and any
// generic error will be interpreted as an internal server error.
func (h *Handler) Handle(err error, c echo.Context) {
	if errutils.IsIgnorableErr(err) {
		logger.FromEchoContext(c).Err(err).Warn("broken pipe")
		return
	}

	httpCode, payload := h.generatePayload(err)

	switch {
	case httpCode == http.StatusInternalServerError:
		logger.FromEchoContext(c).Err(err).Error("server error")
	case HasCode(err, "loan_already_returned"):
		logger.FromEchoContext(c).Warn("loan already returned")
	}

	if c.Response().Committed {
		return
	}
	if err := c.JSON(httpCode, payload); err != nil {
		logger.FromEchoContext(c).Err(errors.WithStack(err)).Error("error handler json error")
	}
}

func (h *Handler) generatePayload(err error) (int, map[string]interface{}) {
	code := ""
	msg := ""
	httpCode := http.StatusInternalServerError
	var meta map[string]string

	// Echo errors
	var he *echo.HTTPError
	if ok := errors.As(err, &he); ok {
		httpCode = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = fmt.Sprint(he.Message)
		}
		code = strcase.ToSnake(msg)
	}

	// Custom errors
	var e *Error
	if ok := errors.As(err, &e); ok {
		httpCode = e.HTTPCode
		code = e.Code
		msg = e.Message
		meta = e.Meta
	}

	// Internal server errors that aren't Echo errors or custom errors
	if httpCode == http.StatusInternalServerError {
		code = "internal_server_error"
		msg = "Something went wrong on our end. Please try again."
		meta = nil
	}

	body := map[string]interface{}{
		"code":        code,
		"message":     msg,
		"status_code": httpCode,
	}
	for k, v := range meta {
		body[k] = v
	}

	return httpCode, map[string]interface{}{"error": body}
}
