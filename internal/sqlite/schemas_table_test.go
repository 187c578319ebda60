package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

func TestSchemasTable_Seeded(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableSchemas)

	got, err := tbl.Get(types.SchemaID.String())
	require.NoError(t, err)
	core := got.(*types.SchemaEntry)
	assert.Equal(t, types.SchemaURI, core.SchemaURI)
	assert.Equal(t, "genpub_core", core.Name)
	assert.False(t, core.CreatedAt.IsZero())

	byURI, err := tbl.Get(types.MediaTaxonomyURI)
	require.NoError(t, err)
	assert.Equal(t, types.DeriveSchemaID(types.MediaTaxonomyURI).String(), byURI.(*types.SchemaEntry).SchemaID)

	all, err := tbl.Fetch(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(builtInSchemas))
}

func TestSchemasTable_Register(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableSchemas)

	uri := "https://example.org/schema/sensor_frame/v2"
	e := &types.SchemaEntry{SchemaURI: uri, Name: "sensor_frame", Version: "2"}
	id, err := tbl.Set("", e)
	require.NoError(t, err)
	assert.Equal(t, types.DeriveSchemaID(uri).String(), id)
	assert.Equal(t, id, e.SchemaID)
	created := e.CreatedAt

	// Re-registering updates the description and keeps the first created_at.
	again := &types.SchemaEntry{
		SchemaURI:   uri,
		Name:        "sensor_frame",
		Version:     "2",
		Description: "frames",
		CreatedAt:   created.Add(time.Hour),
	}
	_, err = tbl.Set(id, again)
	require.NoError(t, err)
	assert.True(t, created.Equal(again.CreatedAt))

	got, err := tbl.Get(uri)
	require.NoError(t, err)
	assert.Equal(t, "frames", got.(*types.SchemaEntry).Description)

	family, err := tbl.Fetch(types.Filter{"name": "sensor_frame"})
	require.NoError(t, err)
	assert.Len(t, family, 1)

	require.NoError(t, tbl.Delete(uri))
	_, err = tbl.Get(id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, tbl.Delete(id), types.ErrNotFound)
}

func TestSchemasTable_SetErrors(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableSchemas)

	tests := []struct {
		name    string
		id      string
		data    any
		wantErr error
	}{
		{"wrong type", "", types.Record{}, types.ErrInvalidData},
		{"relative uri", "", &types.SchemaEntry{SchemaURI: "schema/v1", Name: "x", Version: "1"}, types.ErrInvalidURI},
		{"missing version", "", &types.SchemaEntry{SchemaURI: "https://example.org/x", Name: "x"}, types.ErrInvalidData},
		{"foreign id", types.SchemaID.String(), &types.SchemaEntry{SchemaURI: "https://example.org/x", Name: "x", Version: "1"}, types.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tbl.Set(tt.id, tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := tbl.Get("")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = tbl.Fetch(types.Filter{"version": "1"})
	assert.ErrorIs(t, err, types.ErrInvalidFilter)
}
