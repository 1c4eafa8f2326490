package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validator defines the interface for value validators. Validators skip nil
// values; presence is checked by RequiredValidator.
type Validator interface {
	Validate(value interface{}) error
}

// ValidatorFunc adapts a plain function to the Validator interface
type ValidatorFunc func(value interface{}) error

// Validate implements the Validator interface
func (f ValidatorFunc) Validate(value interface{}) error {
	return f(value)
}

// RequiredValidator rejects nil and empty-string values
type RequiredValidator struct{}

// Validate implements the Validator interface
func (v *RequiredValidator) Validate(value interface{}) error {
	if value == nil {
		return fmt.Errorf("is required")
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return fmt.Errorf("is required")
	}
	return nil
}

// MinValidator validates minimum values for numeric types
type MinValidator struct {
	Min float64
}

// Validate implements the Validator interface
func (v *MinValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	floatVal, ok := toFloat64(value)
	if !ok {
		return fmt.Errorf("expected numeric value")
	}
	if floatVal < v.Min {
		return fmt.Errorf("must be at least %v", v.Min)
	}

	return nil
}

// MaxValidator validates maximum values for numeric types
type MaxValidator struct {
	Max float64
}

// Validate implements the Validator interface
func (v *MaxValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	floatVal, ok := toFloat64(value)
	if !ok {
		return fmt.Errorf("expected numeric value")
	}
	if floatVal > v.Max {
		return fmt.Errorf("must be at most %v", v.Max)
	}

	return nil
}

// PatternValidator validates string values against a regex pattern
type PatternValidator struct {
	Pattern *regexp.Regexp
}

// Validate implements the Validator interface
func (v *PatternValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("pattern validation requires string value")
	}

	if !v.Pattern.MatchString(strVal) {
		return fmt.Errorf("does not match required pattern")
	}

	return nil
}

// EmailValidator validates email addresses
type EmailValidator struct{}

// Validate implements the Validator interface
func (v *EmailValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("email validation requires string value")
	}

	if strings.TrimSpace(strVal) == "" {
		return fmt.Errorf("email address cannot be empty")
	}

	// Use net/mail for RFC 5322 compliant email validation
	_, err := mail.ParseAddress(strVal)
	if err != nil {
		return fmt.Errorf("must be a valid email address")
	}

	return nil
}

// URLValidator validates URLs
type URLValidator struct{}

// Validate implements the Validator interface
func (v *URLValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("URL validation requires string value")
	}

	parsedURL, err := url.Parse(strVal)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if parsedURL.Scheme == "" {
		return fmt.Errorf("URL must include a scheme (http, https, etc.)")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// OneOfValidator restricts a value to a fixed set of choices
type OneOfValidator struct {
	Choices []interface{}
}

// Validate implements the Validator interface
func (v *OneOfValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}
	for _, choice := range v.Choices {
		if reflect.DeepEqual(choice, value) {
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", v.Choices)
}

// MinLengthValidator validates minimum length for strings (in runes) and slices
type MinLengthValidator struct {
	MinLength int
}

// Validate implements the Validator interface
func (v *MinLengthValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	n, unit, err := lengthOf(value, "min_length")
	if err != nil {
		return err
	}
	if n < v.MinLength {
		return fmt.Errorf("must contain at least %d %s", v.MinLength, unit)
	}

	return nil
}

// MaxLengthValidator validates maximum length for strings (in runes) and slices
type MaxLengthValidator struct {
	MaxLength int
}

// Validate implements the Validator interface
func (v *MaxLengthValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	n, unit, err := lengthOf(value, "max_length")
	if err != nil {
		return err
	}
	if n > v.MaxLength {
		return fmt.Errorf("must contain at most %d %s", v.MaxLength, unit)
	}

	return nil
}

func lengthOf(value interface{}, rule string) (int, string, error) {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s), "characters", nil
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return 0, "", fmt.Errorf("%s validation requires string, array or slice value", rule)
	}
	return val.Len(), "items", nil
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
