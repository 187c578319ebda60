package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

func TestReadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jsonl")
	content := strings.Join([]string{
		`{"a":1}`,
		``,
		`   `,
		`{"b":`,
		`not json`,
		`  {"c":3}  `,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lines, malformed, err := readJSONL(path)
	require.NoError(t, err)
	assert.Equal(t, 2, malformed)
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"a":1}`, string(lines[0]))
	assert.JSONEq(t, `{"c":3}`, string(lines[1]))
}

func TestReadJSONL_Missing(t *testing.T) {
	_, _, err := readJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	err := writeJSONL(path, []json.RawMessage{json.RawMessage(`{"x":1}`), json.RawMessage(`{"y":2}`)})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"x\":1}\n{\"y\":2}\n", string(data))

	require.NoError(t, writeJSONL(path, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestBackend_ExportRecords(t *testing.T) {
	b := setupBackend(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	late := recordAt(t, "late", base, 2*time.Minute)
	early := recordAt(t, "early", base, time.Minute)
	early.Data = []byte{0xde, 0xad}
	require.NoError(t, b.InsertRecords(late, early))

	path := filepath.Join(t.TempDir(), "export.jsonl")
	n, err := b.ExportRecords(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines, malformed, err := readJSONL(path)
	require.NoError(t, err)
	assert.Zero(t, malformed)
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, early.ID.String(), first["id"])
	assert.Equal(t, types.SchemaURI, first["schema_uri"])
	assert.Equal(t, types.SchemaID.String(), first["schema_id"])
	assert.Equal(t, "3q0=", first["data"])
	assert.Equal(t, "2025-03-01T00:01:00Z", first["pub_time"])
}

func TestBackend_ExportRecordsEmpty(t *testing.T) {
	b := setupBackend(t)

	path := filepath.Join(t.TempDir(), "empty.jsonl")
	n, err := b.ExportRecords(path)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, path)
}
