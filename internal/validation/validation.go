// Package validation collects field-level validation failures. A failed
// validation is always a list the caller can show to the user verbatim.
package validation

import (
	"errors"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Add appends a field failure.
func (v *ValidationErrors) Add(field, code, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Code: code, Message: message})
}

// Merge appends all failures from other, prefixing their field names.
func (v *ValidationErrors) Merge(prefix string, other *ValidationErrors) {
	if other == nil {
		return
	}
	for _, e := range other.Errors {
		field := e.Field
		if prefix != "" {
			field = prefix + "." + field
		}
		v.Errors = append(v.Errors, ValidationError{Field: field, Code: e.Code, Message: e.Message})
	}
}

// Empty reports whether no failure was collected.
func (v *ValidationErrors) Empty() bool {
	return v == nil || len(v.Errors) == 0
}

// Err returns nil when empty so callers can `return v.Err()`.
func (v *ValidationErrors) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Fields returns the failing field names in order.
func (v *ValidationErrors) Fields() []string {
	if v == nil {
		return nil
	}
	out := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		out = append(out, e.Field)
	}
	return out
}

// New builds a single-field validation error.
func New(field, code, message string) error {
	v := &ValidationErrors{}
	v.Add(field, code, message)
	return v
}

// As extracts ValidationErrors from an error chain.
func As(err error) (*ValidationErrors, bool) {
	var v *ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
