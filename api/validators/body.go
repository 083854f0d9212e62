// Package validators decodes and checks request input before it reaches a
// service.
package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}()

// DecodeJSONBody strictly decodes one JSON object into dest and runs its
// validate tags. Every failure is a CodeValidation error.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return pkgerrors.Validation(pkgerrors.Violation("body", "must contain a single JSON object"))
	}
	return Struct(dest)
}

// Struct runs validate tags on v and reports each failing field under its
// JSON name.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	var all error
	for _, fe := range fieldErrs {
		all = multierr.Append(all, pkgerrors.Violation(fe.Field(), "%s", message(fe)))
	}
	return pkgerrors.Validation(all)
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		return pkgerrors.Validation(pkgerrors.Violation("body", "must not exceed %d bytes", tooLarge.Limit))
	case errors.Is(err, io.EOF):
		return pkgerrors.Validation(pkgerrors.Violation("body", "is required"))
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return pkgerrors.Validation(pkgerrors.Violation("body", "is not valid JSON"))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return pkgerrors.Validation(pkgerrors.Violation(typeErr.Field, "must be a %s", typeErr.Type.Kind()))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return pkgerrors.Validation(pkgerrors.Violation(field, "is not allowed"))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "uppercase":
		return "must be uppercase"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
