package binder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/segmentio/encoding/json"
)

const (
	copyStat = "copy_status"
	date     = "date"
	email    = "email"
	isbn     = "isbn"
	mx       = "max"
	mn       = "min"
	oneof    = "oneof"
	required = "required"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case copyStat:
		return fmt.Sprintf("%q must be one of the following: %s", field, quoteAll(models.CopyStatuses))
	case date:
		return fmt.Sprintf("%q should be in the format of YYYY-MM-DD", field)
	case email:
		return fmt.Sprintf("%q is not a valid email", field)
	case isbn:
		return fmt.Sprintf("%q is not a valid ISBN-10 or ISBN-13", field)
	case mx:
		return boundMessage(err, "less than or equal to")
	case mn:
		return boundMessage(err, "greater than or equal to")
	case oneof:
		return fmt.Sprintf("%q must be one of the following: %s", field, quoteAll(strings.Fields(err.Param())))
	case required:
		return fmt.Sprintf("%q is required", field)
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

// boundMessage words a min or max failure. Numbers are compared by value,
// strings by characters and slices by elements.
func boundMessage(err validator.FieldError, comparison string) string {
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s %s", err.Field(), comparison, err.Param())
	}

	unit := "character"
	if err.Kind() == reflect.Slice {
		unit = "element"
	}
	if err.Param() != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s %s %s", err.Field(), comparison, err.Param(), unit)
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
