package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSchemaID(t *testing.T) {
	assert.Equal(t, SchemaID, DeriveSchemaID(SchemaURI))
	assert.Equal(t, "df1666ce-f36d-5e94-95cb-9dc48e6ca71f", DeriveSchemaID(MediaTaxonomyURI).String())
	assert.NotEqual(t, DeriveSchemaID("https://a/1"), DeriveSchemaID("https://a/2"))
}

func TestSchemaEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   SchemaEntry
		wantErr error
	}{
		{
			name:  "valid without id",
			entry: SchemaEntry{SchemaURI: SchemaURI, Name: "genpub_core", Version: "1"},
		},
		{
			name:  "valid with matching id",
			entry: SchemaEntry{SchemaID: SchemaID.String(), SchemaURI: SchemaURI, Name: "genpub_core", Version: "1"},
		},
		{
			name:    "relative uri",
			entry:   SchemaEntry{SchemaURI: "schema/v1", Name: "x", Version: "1"},
			wantErr: ErrInvalidURI,
		},
		{
			name:    "empty name",
			entry:   SchemaEntry{SchemaURI: SchemaURI, Version: "1"},
			wantErr: ErrInvalidName,
		},
		{
			name:    "empty version",
			entry:   SchemaEntry{SchemaURI: SchemaURI, Name: "x"},
			wantErr: ErrInvalidData,
		},
		{
			name:    "mismatched id",
			entry:   SchemaEntry{SchemaID: "00000000-0000-0000-0000-000000000000", SchemaURI: SchemaURI, Name: "x", Version: "1"},
			wantErr: ErrInvalidID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
