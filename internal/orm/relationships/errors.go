package relationships

import "errors"

var (
	// ErrUnknownRelationship is returned when a with-path names a relationship
	// the entity does not declare
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrInvalidPath is returned for malformed with-path strings
	ErrInvalidPath = errors.New("invalid with-path")

	// ErrRootNotFound is returned when a row carries no node for the root alias
	ErrRootNotFound = errors.New("row has no root node")
)
