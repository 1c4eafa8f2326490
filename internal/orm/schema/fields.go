package schema

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/conduit-lang/graphorm/internal/orm/validation"
)

// FieldType represents the built-in scalar types of an entity attribute
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeDateTime
	TypeHash
	TypeList
	TypeEmail
	TypeURL
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDateTime:
		return "datetime"
	case TypeHash:
		return "hash"
	case TypeList:
		return "list"
	case TypeEmail:
		return "email"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(s) {
	case "string", "text":
		return TypeString, nil
	case "int", "integer":
		return TypeInt, nil
	case "float", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "datetime", "timestamp":
		return TypeDateTime, nil
	case "hash", "password":
		return TypeHash, nil
	case "list", "array":
		return TypeList, nil
	case "email":
		return TypeEmail, nil
	case "url":
		return TypeURL, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFieldType, s)
	}
}

// Field is the bundled Capability implementation for scalar attributes
type Field struct {
	Type FieldType

	required   bool
	validators []validation.Validator
	defaultFn  func() interface{}
	setFn      func(interface{}) interface{}
	getFn      func(interface{}) interface{}
	hashCost   int
}

// FieldOption configures a Field
type FieldOption func(*Field)

// NewField creates a field of the given type
func NewField(t FieldType, opts ...FieldOption) *Field {
	f := &Field{Type: t, hashCost: bcrypt.DefaultCost}
	switch t {
	case TypeEmail:
		f.validators = append(f.validators, &validation.EmailValidator{})
	case TypeURL:
		f.validators = append(f.validators, &validation.URLValidator{})
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// String creates a string field
func String(opts ...FieldOption) *Field { return NewField(TypeString, opts...) }

// Int creates an integer field
func Int(opts ...FieldOption) *Field { return NewField(TypeInt, opts...) }

// Float creates a floating point field
func Float(opts ...FieldOption) *Field { return NewField(TypeFloat, opts...) }

// Bool creates a boolean field
func Bool(opts ...FieldOption) *Field { return NewField(TypeBool, opts...) }

// DateTime creates a timestamp field
func DateTime(opts ...FieldOption) *Field { return NewField(TypeDateTime, opts...) }

// Hash creates a bcrypt-hashed field that is hidden from exports
func Hash(opts ...FieldOption) *Field { return NewField(TypeHash, opts...) }

// List creates a list field
func List(opts ...FieldOption) *Field { return NewField(TypeList, opts...) }

// Required rejects nil and blank values
func Required() FieldOption {
	return func(f *Field) {
		f.required = true
	}
}

// MinLength sets the minimum length of string and list values
func MinLength(n int) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, &validation.MinLengthValidator{MinLength: n})
	}
}

// MaxLength sets the maximum length of string and list values
func MaxLength(n int) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, &validation.MaxLengthValidator{MaxLength: n})
	}
}

// Min sets the minimum of numeric values
func Min(n float64) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, &validation.MinValidator{Min: n})
	}
}

// Max sets the maximum of numeric values
func Max(n float64) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, &validation.MaxValidator{Max: n})
	}
}

// Pattern requires string values to match re
func Pattern(re *regexp.Regexp) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, &validation.PatternValidator{Pattern: re})
	}
}

// OneOf restricts values to choices
func OneOf(choices ...interface{}) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, &validation.OneOfValidator{Choices: choices})
	}
}

// Validate adds a custom validator
func Validate(v validation.Validator) FieldOption {
	return func(f *Field) {
		f.validators = append(f.validators, v)
	}
}

// Default computes the value persisted when none is set
func Default(fn func() interface{}) FieldOption {
	return func(f *Field) {
		f.defaultFn = fn
	}
}

// SetFunc transforms values assigned by application code
func SetFunc(fn func(interface{}) interface{}) FieldOption {
	return func(f *Field) {
		f.setFn = fn
	}
}

// GetFunc transforms stored values when read
func GetFunc(fn func(interface{}) interface{}) FieldOption {
	return func(f *Field) {
		f.getFn = fn
	}
}

// HashCost overrides the bcrypt cost of a hash field
func HashCost(cost int) FieldOption {
	return func(f *Field) {
		f.hashCost = cost
	}
}

// IsRequired returns true if the field rejects empty values
func (f *Field) IsRequired() bool {
	return f.required
}

// DefaultValue implements Capability
func (f *Field) DefaultValue(value interface{}) interface{} {
	if value == nil && f.defaultFn != nil {
		return f.defaultFn()
	}
	return value
}

// Validate implements Capability. The returned error is a
// validation.FieldError naming the attribute.
func (f *Field) Validate(name string, value interface{}) error {
	if f.required {
		if err := (&validation.RequiredValidator{}).Validate(value); err != nil {
			return validation.NewFieldError(name, err.Error())
		}
	}
	if value == nil {
		return nil
	}

	if err := f.checkType(value); err != nil {
		return validation.NewFieldError(name, err.Error())
	}
	for _, v := range f.validators {
		if err := v.Validate(value); err != nil {
			return validation.NewFieldError(name, err.Error())
		}
	}
	return nil
}

func (f *Field) checkType(value interface{}) error {
	switch f.Type {
	case TypeString, TypeHash, TypeEmail, TypeURL:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("must be a string")
		}
	case TypeInt:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		default:
			return fmt.Errorf("must be an integer")
		}
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		default:
			return fmt.Errorf("must be a number")
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("must be a boolean")
		}
	case TypeDateTime:
		switch v := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return fmt.Errorf("must be an RFC 3339 timestamp")
			}
		default:
			return fmt.Errorf("must be a timestamp")
		}
	case TypeList:
		kind := reflect.ValueOf(value).Kind()
		if kind != reflect.Slice && kind != reflect.Array {
			return fmt.Errorf("must be a list")
		}
	}
	return nil
}

// Set implements Capability. Hash fields store the bcrypt hash of the
// assigned string; values that are already hashed are kept.
func (f *Field) Set(value interface{}) interface{} {
	if f.setFn != nil {
		value = f.setFn(value)
	}
	if f.Type == TypeHash {
		if s, ok := value.(string); ok && s != "" && !isBcryptHash(s) {
			hashed, err := bcrypt.GenerateFromPassword([]byte(s), f.hashCost)
			if err != nil {
				return value
			}
			return string(hashed)
		}
	}
	return value
}

// Get implements Capability
func (f *Field) Get(value interface{}) interface{} {
	if f.getFn != nil {
		return f.getFn(value)
	}
	return value
}

// Load implements Loader, converting store values to the field's Go type
func (f *Field) Load(value interface{}) interface{} {
	switch f.Type {
	case TypeInt:
		switch v := value.(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case float64:
			return int64(v)
		}
	case TypeFloat:
		switch v := value.(type) {
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	case TypeDateTime:
		if s, ok := value.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
	}
	return value
}

// Hidden implements Hider
func (f *Field) Hidden() bool {
	return f.Type == TypeHash
}

// CompareHash reports whether plain matches the bcrypt hash stored in hashed
func CompareHash(hashed interface{}, plain string) bool {
	s, ok := hashed.(string)
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s), []byte(plain)) == nil
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
