package crud

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrNotPersisted is returned when an operation needs a store id the
	// record does not have yet
	ErrNotPersisted = errors.New("record has not been saved")

	// ErrEntityMismatch is returned when a record of another entity is passed
	// to an Operations value
	ErrEntityMismatch = errors.New("record belongs to another entity")
)

// UnknownAttributeError is returned when relating through an attribute the
// entity does not declare as a relationship
type UnknownAttributeError struct {
	Entity    string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("attribute %q does not exist on %s", e.Attribute, e.Entity)
}

// Unwrap lets errors.Is match schema.ErrUnknownAttribute
func (e *UnknownAttributeError) Unwrap() error {
	return schema.ErrUnknownAttribute
}

// RelationshipCreateError is returned by RecreateRelationship when the new
// relationship could not be created
type RelationshipCreateError struct {
	Attribute string
	Err       error
}

func (e *RelationshipCreateError) Error() string {
	return fmt.Sprintf("creating relationship %s: %v", e.Attribute, e.Err)
}

func (e *RelationshipCreateError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnknownAttribute returns true if the error names an unknown attribute
func IsUnknownAttribute(err error) bool {
	return errors.Is(err, schema.ErrUnknownAttribute)
}

// IsRelationshipCreate returns true if the error is a *RelationshipCreateError
func IsRelationshipCreate(err error) bool {
	var rce *RelationshipCreateError
	return errors.As(err, &rce)
}
