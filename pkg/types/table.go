package types

import "errors"

// Filter selects entities in Table.Fetch. Keys are table specific; an empty
// or nil filter matches every entity.
type Filter map[string]any

// Table provides uniform CRUD operations for a single entity type.
// Get and Fetch return any; callers type-assert to the concrete entity struct.
type Table interface {
	// Get retrieves the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Get(id string) (any, error)

	// Set creates or updates an entity. When id is empty a new ID is
	// generated. Returns the actual ID used (generated or provided).
	Set(id string, data any) (string, error)

	// Delete removes the entity with the given ID.
	// Returns ErrNotFound if no entity exists with that ID.
	Delete(id string) error

	// Fetch returns all entities matching the filter.
	Fetch(filter Filter) ([]any, error)
}

// Table operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrInvalidFilter = errors.New("invalid filter value type")
	ErrDuplicate     = errors.New("entity already exists")
)

// Constraint errors reported by the storage engine.
var (
	ErrConstraint = errors.New("constraint violation")
	ErrForeignKey = errors.New("foreign key constraint violation")
	ErrCheck      = errors.New("check constraint violation")
)

// Entity errors.
var (
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrInvalidURI        = errors.New("invalid schema URI")
	ErrMinorWithoutMajor = errors.New("media minor type requires a major type")
	ErrCharsetNotText    = errors.New("charset is only allowed for text media types")
	ErrInvalidMediaType  = errors.New("invalid media type")
)
