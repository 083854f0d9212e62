package errors

import (
	stdErrors "errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// FieldViolation names one rejected input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v FieldViolation) Error() string {
	return fmt.Sprintf("%s %s", v.Field, v.Message)
}

// Violation builds a FieldViolation usable with multierr.Append.
func Violation(field, format string, args ...any) error {
	return FieldViolation{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports every violated field of a request at once.
type ValidationError struct {
	Violations []FieldViolation
}

// Validation collects the FieldViolations combined in err. It returns nil
// when err is nil so callers can return it directly.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	out := &ValidationError{}
	for _, e := range multierr.Errors(err) {
		var fv FieldViolation
		if stdErrors.As(e, &fv) {
			out.Violations = append(out.Violations, fv)
			continue
		}
		out.Violations = append(out.Violations, FieldViolation{Field: "request", Message: e.Error()})
	}
	return out
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the sorted distinct field names that failed.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]struct{}, len(e.Violations))
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if _, ok := seen[v.Field]; ok {
			continue
		}
		seen[v.Field] = struct{}{}
		out = append(out, v.Field)
	}
	sort.Strings(out)
	return out
}

// Has reports whether field is among the violations.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) APIError() *Error {
	details := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		if existing, ok := details[v.Field]; ok {
			details[v.Field] = existing + "; " + v.Message
			continue
		}
		details[v.Field] = v.Message
	}
	return New(CodeValidation, "validation failed").WithDetails(details)
}
