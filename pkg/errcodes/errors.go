package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
	// Meta is copied into the error payload as-is, e.g. the login URL a
	// client should send the user to.
	Meta map[string]string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	te.Meta = err.Meta
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// HasCode reports whether err is an *Error carrying the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// Forbidden returns a 403 error with a message indicating the action is
// forbidden.
func Forbidden(action string) error {
	return &Error{
		HTTPCode: http.StatusForbidden,
		Message:  action + " is not allowed.",
		Code:     "forbidden",
	}
}

// Unauthorized returns a 401 error with the given message.
func Unauthorized(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnauthorized,
		Message:  msg,
		Code:     "unauthorized",
	}
}

// LoginRequired is returned when the requester has no role that grants access
// to an area. loginURL already carries the return path.
func LoginRequired(httpCode int, loginURL string) error {
	return &Error{
		HTTPCode: httpCode,
		Message:  "You need to sign in with an account that can access this page.",
		Code:     "login_required",
		Meta:     map[string]string{"login_url": loginURL},
	}
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		HTTPCode: http.StatusNotFound,
		Message:  resource + " not found.",
		Code:     "not_found",
	}
}

// Conflict returns a 409 error for uniqueness violations.
func Conflict(msg string) error {
	return &Error{
		HTTPCode: http.StatusConflict,
		Message:  msg,
		Code:     "conflict",
	}
}

// LoanRejected is returned when a loan rule (borrowing limit, availability,
// due date window) prevents a loan from being issued.
func LoanRejected(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "loan_rejected",
	}
}

// LoanAlreadyReturned is a warning-level error for returning a loan twice.
func LoanAlreadyReturned() error {
	return &Error{
		HTTPCode: http.StatusConflict,
		Message:  "This loan has already been returned.",
		Code:     "loan_already_returned",
	}
}

// ReservationRejected is returned when a reservation can't be placed or
// moved to the requested status.
func ReservationRejected(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "reservation_rejected",
	}
}

// ImportFailed is returned when a whole import run is aborted, e.g. because
// a required column is missing or the file can't be read.
func ImportFailed(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "import_failed",
	}
}

func FileTooLarge(maxBytes int64) error {
	return &Error{
		HTTPCode: http.StatusRequestEntityTooLarge,
		Message:  fmt.Sprintf("File is larger than the %d MB limit.", maxBytes>>20),
		Code:     "file_too_large",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		HTTPCode: http.StatusUnsupportedMediaType,
		Message:  "Unsupported Media Type",
		Code:     "unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  fmt.Sprintf("Unknown Parameter %q", param),
		Code:     "unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		HTTPCode: http.StatusUnprocessableEntity,
		Message:  msg,
		Code:     "validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "Malformed Payload",
		Code:     "malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		HTTPCode: http.StatusBadRequest,
		Message:  "Request body can't be empty.",
		Code:     "empty_request_body",
	}
}

func TooManyRequests() error {
	return &Error{
		HTTPCode: http.StatusTooManyRequests,
		Message:  "Too many attempts. Try again in a moment.",
		Code:     "too_many_requests",
	}
}
