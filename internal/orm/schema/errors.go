package schema

import "errors"

var (
	// ErrDuplicateAttribute is returned when an attribute name is declared twice
	ErrDuplicateAttribute = errors.New("duplicate attribute")

	// ErrUnknownEntity is returned when a relationship targets an unregistered entity
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownFieldType is returned when a schema file names an unsupported field type
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrUnknownAttribute is returned when an entity has no attribute of the given name
	ErrUnknownAttribute = errors.New("unknown attribute")
)
