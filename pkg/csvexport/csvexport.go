// Package csvexport writes tabular exports as CSV downloads.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Write writes header followed by rows.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.WithStack(err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Respond sends rows as a CSV attachment named filename.
func Respond(c echo.Context, filename string, header []string, rows [][]string) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	res.WriteHeader(http.StatusOK)
	return Write(res, header, rows)
}
