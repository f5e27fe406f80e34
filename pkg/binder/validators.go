package binder

import (
	"regexp"
	"slices"
	"strings"

	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/go-playground/validator/v10"
)

var (
	dateRE = regexp.MustCompile(`^\d{4}-(0[0-9]|1[0-2])-(0[0-9]|1[0-9]|2[0-9]|3[0-1])$`)
	isbnRE = regexp.MustCompile(`^(\d{9}[\dX]|\d{13})$`)
)

// dateValidator ensures the value matches the format YYYY-MM-DD or the empty
// string. Pair it with `required` when the value must be set.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return dateRE.MatchString(value)
}

// isbnValidator accepts ISBN-10 and ISBN-13 values with or without dashes and
// spaces. Check digits are not verified since imported catalogues often carry
// legacy numbers.
func isbnValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	value = strings.NewReplacer("-", "", " ", "").Replace(strings.ToUpper(value))
	return isbnRE.MatchString(value)
}

func copyStatusValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || slices.Contains(models.CopyStatuses, value)
}
