package schema

import "errors"

var (
	// ErrDuplicateSlug is returned when defining an entity whose slug
	// already exists. Slugs are normalized to lowercase, so the check is
	// case-insensitive by construction.
	ErrDuplicateSlug = errors.New("duplicate entity slug")

	// ErrDuplicateFieldName is returned when a field name already exists
	// under the same entity or custom-field kind.
	ErrDuplicateFieldName = errors.New("duplicate field name")

	// ErrUnknownEntity is returned when an entity id or slug does not resolve.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownFieldType is returned for a field type outside the closed set.
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrInvalidInput is returned for missing or malformed metadata input.
	ErrInvalidInput = errors.New("invalid input")
)
