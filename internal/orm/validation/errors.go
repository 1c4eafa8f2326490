package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationErrors collects one message per attribute for a record. It is
// returned as a single error once every attribute has been checked.
type ValidationErrors struct {
	Fields map[string]string `json:"fields"`
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Fields: make(map[string]string),
	}
}

// Add records a validation message for a field, replacing any previous one
func (ve *ValidationErrors) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = make(map[string]string)
	}
	ve.Fields[field] = message
}

// AddError records err for field. A FieldError carries its own field name and
// message; any other error contributes its Error() text.
func (ve *ValidationErrors) AddError(field string, err error) {
	var fe FieldError
	if errors.As(err, &fe) {
		if fe.Field != "" {
			field = fe.Field
		}
		ve.Add(field, fe.Message)
		return
	}
	ve.Add(field, err.Error())
}

// HasErrors returns true if there are any validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Fields) > 0
}

// Count returns the number of fields with errors
func (ve *ValidationErrors) Count() int {
	return len(ve.Fields)
}

// Map returns a copy of the field -> message mapping
func (ve *ValidationErrors) Map() map[string]string {
	out := make(map[string]string, len(ve.Fields))
	for k, v := range ve.Fields {
		out[k] = v
	}
	return out
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	fields := make([]string, 0, len(ve.Fields))
	for field := range ve.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, fmt.Sprintf("  - %s: %s", field, ve.Fields[field]))
	}

	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}

	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON implements json.Marshaler for custom JSON serialization
func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}{
		Error:  "validation_failed",
		Fields: ve.Fields,
	})
}

// IsValidationErrors reports whether err is, or wraps, a *ValidationErrors
func IsValidationErrors(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (fe FieldError) Error() string {
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

// NewFieldError creates a new FieldError
func NewFieldError(field, message string) FieldError {
	return FieldError{
		Field:   field,
		Message: message,
	}
}
