package binder

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder is a custom struct that implements the Echo Binder interface. It binds
// to a struct, uses mold to clean up the params, and validator to validate
// them.
type Binder struct {
	queryDecoder *schema.Decoder
	formDecoder  *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

// New initializes a new Binder instance with the appropriate validation
// functions registered.
func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")
	formDecoder := schema.NewDecoder()
	formDecoder.SetAliasTag("form")
	conform := modifiers.New()
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("date", dateValidator)
	_ = validate.RegisterValidation("isbn", isbnValidator)
	_ = validate.RegisterValidation("copy_status", copyStatusValidator)

	return &Binder{queryDecoder, formDecoder, conform, validate}, nil
}

// Bind binds, modifies, and validates payloads against the given struct.
// JSON bodies, form bodies and query strings are supported. Unknown keys are
// rejected so that typos don't silently fall back to defaults.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	switch {
	case req.ContentLength > 0:
		if err := b.bindBody(i, c); err != nil {
			return err
		}
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		if err := b.decodeQuery(i, c.QueryParams(), b.queryDecoder); err != nil {
			return errors.WithStack(err)
		}
	default:
		disallowEmptyBody := true
		if disallow, ok := c.Get("disallow_empty_body").(bool); ok {
			disallowEmptyBody = disallow
		}
		if disallowEmptyBody {
			return errcodes.EmptyRequestBody()
		}
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}

	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		errs := err.(validator.ValidationErrors)
		msg := formatValidationError(errs[0])
		return errcodes.ValidationError(msg)
	}
	return nil
}

func (b *Binder) bindBody(i interface{}, c echo.Context) error {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return b.bindJSON(i, c)
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		return b.bindForm(i, c, false)
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		return b.bindForm(i, c, true)
	default:
		return errcodes.UnsupportedMediaType()
	}
}

func (b *Binder) bindJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	disallowUnknownFields := true
	if disallow, ok := c.Get("disallow_unknown_fields").(bool); ok {
		disallowUnknownFields = disallow
	}
	if disallowUnknownFields {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	// return better error message when there are unknown fields
	if matches := unknownFieldsRE.FindStringSubmatch(err.Error()); len(matches) > 1 {
		return errcodes.UnknownParameter(matches[1])
	}

	// return better error message on type errors
	if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}

	logger.FromEchoContext(c).Err(err).Error("unknown json decode error")
	return errcodes.MalformedPayload()
}

// bindForm decodes form values into the struct's `form` tags. For multipart
// bodies the first file of every field goes into a FormFiles map, e.g. the
// spreadsheet of an import request.
func (b *Binder) bindForm(i interface{}, c echo.Context, multipart bool) error {
	params, err := c.FormParams()
	if err != nil {
		return errcodes.MalformedPayload()
	}
	if err := b.decodeQuery(i, params, b.formDecoder); err != nil {
		return errors.WithStack(err)
	}
	if !multipart {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errcodes.MalformedPayload()
	}
	field := reflect.ValueOf(i).Elem().FieldByName("FormFiles")
	if !field.IsValid() || !field.CanSet() || len(form.File) == 0 {
		return nil
	}
	files := reflect.MakeMap(field.Type())
	for key, headers := range form.File {
		if len(headers) > 0 {
			files.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(headers[0]))
		}
	}
	field.Set(files)
	return nil
}

func (b *Binder) decodeQuery(i interface{}, params url.Values, decoder *schema.Decoder) error {
	if err := decoder.Decode(i, params); err != nil {
		if errs, ok := err.(schema.MultiError); ok {
			var err error
			for _, err = range errs {
				break
			}

			if err, ok := err.(schema.ConversionError); ok {
				msg := formatSchemaConversionError(err)
				return errcodes.ValidationTypeError(msg)
			}
			if err, ok := err.(schema.UnknownKeyError); ok {
				return errcodes.UnknownParameter(err.Key)
			}

			return errors.WithStack(err)
		}
		return errors.WithStack(err)
	}
	return nil
}
