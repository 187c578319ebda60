// End-to-end lifecycle through the public Store and Table interfaces.
package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

func TestLifecycle_RecordsAndMedia(t *testing.T) {
	dataDir := t.TempDir()
	var store types.Store = NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dataDir}
	require.NoError(t, store.Attach(config))

	records, err := store.GetTable(types.TableRecords)
	require.NoError(t, err)
	media, err := store.GetTable(types.TableMediaObjects)
	require.NoError(t, err)

	// Publish a record and the media object it carries.
	now := time.Now()
	rec, err := types.NewRecord("camera-01", "lab.example.org", now, "file:///var/frames/0001.png", now.Add(time.Millisecond), []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	recID, err := records.Set("", rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID.String(), recID)

	obj := &types.MediaObject{TypeMajor: strPtr("image"), TypeMinor: strPtr("png"), TransferEncoding: strPtr("binary"), Data: rec.Data}
	objID, err := media.Set("", obj)
	require.NoError(t, err)

	// Query both back.
	found, err := records.Fetch(types.Filter{"gen_name": "camera-01"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, rec.ID, found[0].(*types.Record).ID)

	pngs, err := media.Fetch(types.Filter{"type_major": "image", "type_minor": "png"})
	require.NoError(t, err)
	require.Len(t, pngs, 1)
	assert.Equal(t, rec.Data, pngs[0].(*types.MediaObject).Data)

	// Export, detach, and restore into a new data directory.
	exportPath := filepath.Join(t.TempDir(), "records.jsonl")
	backend := store.(*Backend)
	n, err := backend.ExportRecords(exportPath)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, media.Delete(objID))
	require.NoError(t, store.Detach())
	_, err = records.Get(recID)
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	restored := NewBackend()
	require.NoError(t, restored.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer restored.Detach()

	stats, err := restored.ImportRecords(exportPath)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)

	got, err := getTable(t, restored, types.TableRecords).Get(recID)
	require.NoError(t, err)
	assert.Equal(t, "lab.example.org", got.(*types.Record).GenDomain)
	assert.True(t, rec.PubTime.Equal(got.(*types.Record).PubTime))
}
