// Package validation reports malformed input field by field.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors maps a field name to the reason it was rejected.
type Errors map[string]string

// Add records msg for field, keeping the first message if one exists.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Required records a "is required" message when blank is true.
func (e Errors) Required(field string, blank bool) {
	if blank {
		e.Add(field, "is required")
	}
}

// Err returns e as an error, or nil when no field failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields extracts the field map from err, if err is or wraps Errors.
func Fields(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
