package imports

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bibliotech/bibliotech/pkg/books"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical column names.
const (
	colName           = "name"
	colSurname        = "surname"
	colNationality    = "nationality"
	colBirthDate      = "birth_date"
	colBio            = "bio"
	colTitle          = "title"
	colAuthorName     = "author_name"
	colAuthorSurname  = "author_surname"
	colISBN           = "isbn"
	colPublisher      = "publisher"
	colPublishedAt    = "published_at"
	colPages          = "pages"
	colGenre          = "genre"
	colCopies         = "copies"
	colIdentification = "identification"
	colEmail          = "email"
	colPhone          = "phone"
	colActive         = "active"
)

type columnSet struct {
	required []string
	optional []string
	synonyms map[string]string
}

var columns = map[string]columnSet{
	"authors": {
		required: []string{colName, colSurname},
		optional: []string{colNationality, colBirthDate, colBio},
		synonyms: map[string]string{
			"nombre":           colName,
			"first_name":       colName,
			"apellido":         colSurname,
			"apellidos":        colSurname,
			"last_name":        colSurname,
			"nacionalidad":     colNationality,
			"fecha_nacimiento": colBirthDate,
			"birthdate":        colBirthDate,
			"date_of_birth":    colBirthDate,
			"biografia":        colBio,
			"biografía":        colBio,
			"biography":        colBio,
		},
	},
	"books": {
		required: []string{colTitle, colAuthorName, colAuthorSurname},
		optional: []string{colISBN, colPublisher, colPublishedAt, colPages, colGenre, colCopies},
		synonyms: map[string]string{
			"titulo":              colTitle,
			"título":              colTitle,
			"autor":               colAuthorName,
			"autor_nombre":        colAuthorName,
			"nombre_autor":        colAuthorName,
			"author":              colAuthorName,
			"autor_apellido":      colAuthorSurname,
			"author_last_name":    colAuthorSurname,
			"apellido_autor":      colAuthorSurname,
			"editorial":           colPublisher,
			"fecha_publicacion":   colPublishedAt,
			"fecha_publicación":   colPublishedAt,
			"año":                 colPublishedAt,
			"año_publicacion":     colPublishedAt,
			"year":                colPublishedAt,
			"paginas":             colPages,
			"páginas":             colPages,
			"numero_paginas":      colPages,
			"número_paginas":      colPages,
			"genero":              colGenre,
			"género":              colGenre,
			"cantidad":            colCopies,
			"ejemplares":          colCopies,
			"cantidad_ejemplares": colCopies,
		},
	},
	"members": {
		required: []string{colName, colSurname, colIdentification, colEmail},
		optional: []string{colPhone, colActive},
		synonyms: map[string]string{
			"nombre":         colName,
			"first_name":     colName,
			"apellido":       colSurname,
			"apellidos":      colSurname,
			"last_name":      colSurname,
			"identificacion": colIdentification,
			"identificación": colIdentification,
			"dni":            colIdentification,
			"documento":      colIdentification,
			"correo":         colEmail,
			"e-mail":         colEmail,
			"telefono":       colPhone,
			"teléfono":       colPhone,
			"activo":         colActive,
			"is_active":      colActive,
		},
	},
}

// normalizeHeader trims and lower-cases a header and collapses inner
// whitespace to a single underscore, so "Nombre  Autor" and "nombre_autor"
// resolve alike.
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// canonical resolves a header cell to a canonical column name, or "" when it
// isn't one this import type knows about.
func (cs columnSet) canonical(header string) string {
	h := normalizeHeader(header)
	if h == "" {
		return ""
	}
	if c, ok := cs.synonyms[h]; ok {
		return c
	}
	for _, cols := range [][]string{cs.required, cs.optional} {
		for _, c := range cols {
			if c == h {
				return c
			}
		}
	}
	return ""
}

var titleCaser = cases.Title(language.Spanish)

func cleanText(s string) string {
	return strings.TrimSpace(s)
}

func textPtr(s string) *string {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

func titleCase(s string) string {
	return titleCaser.String(cleanText(s))
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseDate accepts the supported layouts, Excel serial numbers and bare
// years. A number between 1000 and next year is read as a year, which
// shadows the serials for late 1902 to mid 1905. Anything else is treated
// as missing.
func parseDate(s string) *time.Time {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	if year, err := strconv.Atoi(s); err == nil && year >= 1000 && year <= time.Now().Year()+1 {
		d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &d
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parseInt accepts integers written as floats ("250.0"). Blank or invalid
// values yield def.
func parseInt(s string, def int) int {
	s = cleanText(s)
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return int(f)
}

func parseIntPtr(s string) *int {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

var truthy = map[string]bool{
	"true":      true,
	"1":         true,
	"si":        true,
	"sí":        true,
	"yes":       true,
	"verdadero": true,
	"activo":    true,
}

// parseBool defaults to true for blank cells.
func parseBool(s string) bool {
	s = strings.ToLower(cleanText(s))
	if s == "" {
		return true
	}
	// Numeric cells may come back as "1.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f == 1
	}
	return truthy[s]
}

// isbnCell normalizes an ISBN cell the same way the book service does.
func isbnCell(s string) *string {
	s = books.NormalizeISBN(cleanText(s))
	if s == "" {
		return nil
	}
	// Excel stores long ISBNs as numbers and may hand them back in
	// scientific notation.
	if strings.Contains(s, "E") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	return &s
}

func cleanEmail(s string) string {
	return strings.ToLower(cleanText(s))
}

// emailProblem returns a reason the address is unusable, or "".
func emailProblem(email string) string {
	if email == "" {
		return "email is required"
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return "invalid email format"
	}
	return ""
}

func rowError(number int, msg string, args ...interface{}) string {
	return fmt.Sprintf("Row %d: %s", number, fmt.Sprintf(msg, args...))
}
