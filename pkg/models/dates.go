package models

import "time"

// DateOf truncates t to midnight UTC of its calendar day. Loan, due, return
// and birth dates are all stored this way so they compare as plain dates.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current date as produced by DateOf.
func Today() time.Time {
	return DateOf(time.Now())
}

// FormatDate renders a date the way exports and messages show it to people.
func FormatDate(t time.Time) string {
	return t.UTC().Format("02/01/2006")
}

// DateLayout is the wire format for dates in requests and responses.
const DateLayout = "2006-01-02"

// ParseDate parses a DateLayout value into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
