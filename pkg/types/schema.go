package types

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// MediaTaxonomyURI identifies the media type, charset and transfer encoding
// taxonomy held in the reference tables.
const MediaTaxonomyURI = "https://example.org/taxonomy/media_object/v1"

// SchemaEntry registers a schema or taxonomy under a persistent URI and its
// derived UUIDv5.
type SchemaEntry struct {
	SchemaID    string    `json:"schema_id"`
	SchemaURI   string    `json:"schema_uri"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeriveSchemaID returns the UUIDv5 of uri in the URL namespace.
func DeriveSchemaID(uri string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(uri))
}

// Validate checks that the entry has an absolute URI, a name and a version.
// When SchemaID is set it must equal the ID derived from the URI.
func (e *SchemaEntry) Validate() error {
	u, err := url.Parse(e.SchemaURI)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("%w: %q", ErrInvalidURI, e.SchemaURI)
	}
	if e.Name == "" || !ValidName(e.Name) {
		return fmt.Errorf("%w: schema name %q", ErrInvalidName, e.Name)
	}
	if e.Version == "" {
		return fmt.Errorf("%w: schema version must not be empty", ErrInvalidData)
	}
	if e.SchemaID != "" && e.SchemaID != DeriveSchemaID(e.SchemaURI).String() {
		return fmt.Errorf("%w: schema_id %s does not match %s", ErrInvalidID, e.SchemaID, e.SchemaURI)
	}
	return nil
}
