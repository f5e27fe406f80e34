package imports

import (
	"path/filepath"
	"strings"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// Files can be named anything, so the detected type has to agree with the
// extension before the sheet reader gets to see them.
var extensionsToMimeTypes = map[string][]string{
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".csv":  {"text/csv", "text/plain"},
}

// checkContent sniffs the file at path and makes sure it is the kind of
// spreadsheet its extension claims.
func checkContent(path string) error {
	expected, ok := extensionsToMimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return errcodes.UnsupportedMediaType()
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, e := range expected {
		if mtype.Is(e) {
			return nil
		}
	}
	return errcodes.UnsupportedMediaType()
}
