package resource

import "errors"

var (
	// ErrInvalidDefinition is returned when a descriptor definition is malformed
	ErrInvalidDefinition = errors.New("invalid resource definition")

	// ErrDuplicateKey is returned when two attributes or relationships share a wire key
	ErrDuplicateKey = errors.New("duplicate wire key")

	// ErrReservedAttribute is returned when "id" is declared with options
	ErrReservedAttribute = errors.New("id is reserved; use Builder.ID for a custom id")

	// ErrMissingAccessor is returned when an object has no way to read a declared name
	ErrMissingAccessor = errors.New("missing accessor")

	// ErrNilObject is returned when attributes are read from a nil object
	ErrNilObject = errors.New("nil object")

	// ErrNotCollection is returned when a has_many accessor yields a non-collection value
	ErrNotCollection = errors.New("has_many value is not a collection")

	// ErrNoDescriptor is returned when a descriptor is required but none was resolved
	ErrNoDescriptor = errors.New("no resource descriptor found")
)
