// Package sheet reads the first worksheet of an uploaded spreadsheet into a
// grid of strings.
package sheet

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Extensions lists the file extensions Open understands.
var Extensions = []string{".xlsx", ".xls", ".csv"}

// Supported reports whether Open can read a file with this name.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Open returns every row of the first worksheet. Index 0 is sheet row 1.
// Numeric cells come back unformatted, so dates stored by Excel show up as
// serial numbers.
func Open(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".xls":
		return readXLS(path)
	case ".csv":
		return readCSV(path)
	}
	return nil, errors.Wrap(ErrUnsupportedFormat, filepath.Ext(path))
}

func readXLS(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ws := wb.GetSheet(0)
	if ws == nil || ws.MaxRow == 0 {
		// A header on its own has nothing to import.
		return nil, nil
	}

	// Capped at the first sheet's rows, ReadAllCells never reaches the
	// second sheet. Rows without cells stay nil so indexes match sheet rows.
	return wb.ReadAllCells(int(ws.MaxRow) + 1), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if len(rows) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\uFEFF")
		}
		// The reader skips empty lines. Pad them back in so index i is still
		// line i+1.
		line, _ := r.FieldPos(0)
		for len(rows) < line-1 {
			rows = append(rows, nil)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
