package sqlite

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

func newRecord(t *testing.T, genName, genDomain string) *types.Record {
	t.Helper()
	now := time.Now()
	r, err := types.NewRecord(genName, genDomain, now, "udp://127.0.0.1:9999", now, []byte("payload"))
	require.NoError(t, err)
	return r
}

// recordAt builds a record published at the given offset from base.
func recordAt(t *testing.T, genName string, base time.Time, offset time.Duration) *types.Record {
	t.Helper()
	r, err := types.NewRecord(genName, "example.org", base, types.URI("s3://bucket/"+genName), base.Add(offset), nil)
	require.NoError(t, err)
	return r
}

func TestInsertRecord(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	rec := newRecord(t, "センサーA", "例示.org")
	require.NoError(t, b.InsertRecord(rec))

	got, err := tbl.Get(rec.ID.String())
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got.(*types.Record)); diff != "" {
		t.Fatalf("stored record mismatch (-want +got):\n%s", diff)
	}

	err = b.InsertRecord(rec)
	assert.ErrorIs(t, err, types.ErrDuplicate)
}

func TestInsertRecordsIsAtomic(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	a := newRecord(t, "a", "example.org")
	require.NoError(t, b.InsertRecord(a))

	c := newRecord(t, "c", "example.org")
	err := b.InsertRecords(c, a)
	require.ErrorIs(t, err, types.ErrDuplicate)

	// c was rolled back with the failed batch.
	_, err = tbl.Get(c.ID.String())
	assert.ErrorIs(t, err, types.ErrNotFound)

	d := newRecord(t, "d", "example.org")
	require.NoError(t, b.InsertRecords(c, d))
	all, err := tbl.Fetch(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInsertRecordsRejectsInvalid(t *testing.T) {
	b := setupBackend(t)

	bad := newRecord(t, "ok", "example.org")
	bad.GenName = "bad\u200bname"
	assert.ErrorIs(t, b.InsertRecords(newRecord(t, "fine", "example.org"), bad), types.ErrInvalidName)
	assert.ErrorIs(t, b.InsertRecords(nil), types.ErrInvalidData)
}

func TestRecordsTable_CRUD(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	// Create without an ID.
	rec := &types.Record{
		GenName:    "sensorA",
		GenDomain:  "example.org",
		GenTime:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		PubLocator: "file:///tmp/out.bin",
		PubTime:    time.Date(2025, 1, 2, 3, 4, 6, 0, time.UTC),
	}
	id, err := tbl.Set("", rec)
	require.NoError(t, err)
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.Equal(t, parsed, rec.ID)

	got, err := tbl.Get(id)
	require.NoError(t, err)
	stored := got.(*types.Record)
	assert.Equal(t, "sensorA", stored.GenName)
	assert.Empty(t, stored.Data)
	assert.NotNil(t, stored.Data)
	assert.True(t, rec.PubTime.Equal(stored.PubTime))

	// Update in place.
	rec.Data = []byte{0x00, 0xff}
	rec.GenDomain = "example.net"
	_, err = tbl.Set(id, rec)
	require.NoError(t, err)

	got, err = tbl.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, got.(*types.Record).Data)
	assert.Equal(t, "example.net", got.(*types.Record).GenDomain)

	// Delete.
	require.NoError(t, tbl.Delete(id))
	_, err = tbl.Get(id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, tbl.Delete(id), types.ErrNotFound)
}

func TestRecordsTable_SetErrors(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	tests := []struct {
		name    string
		id      string
		data    any
		wantErr error
	}{
		{"wrong type", "", "not a record", types.ErrInvalidData},
		{"nil record", "", (*types.Record)(nil), types.ErrInvalidData},
		{"bad id", "xyz", newRecord(t, "a", "b"), types.ErrInvalidID},
		{"id mismatch", uuid.NewString(), newRecord(t, "a", "b"), types.ErrInvalidID},
		{"invalid name", "", &types.Record{GenName: "a\u202eb", GenDomain: "example.org"}, types.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tbl.Set(tt.id, tt.data)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecordsTable_GetInvalidID(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	_, err := tbl.Get("")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = tbl.Get("not-a-uuid")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = tbl.Get(uuid.NewString())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRecordsTable_Fetch(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r1 := recordAt(t, "alpha", base, 1*time.Second)
	r2 := recordAt(t, "beta", base, 2*time.Second)
	r3 := recordAt(t, "alpha", base, 3*time.Second)
	r4 := recordAt(t, "gamma", base, 4*time.Second)
	r4.GenDomain = "example.net"
	require.NoError(t, b.InsertRecords(r1, r2, r3, r4))

	ids := func(results []any) []uuid.UUID {
		out := make([]uuid.UUID, len(results))
		for i, r := range results {
			out[i] = r.(*types.Record).ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter types.Filter
		want   []uuid.UUID
	}{
		{"all newest first", nil, []uuid.UUID{r4.ID, r3.ID, r2.ID, r1.ID}},
		{"by gen_name", types.Filter{"gen_name": "alpha"}, []uuid.UUID{r3.ID, r1.ID}},
		{"by gen_domain", types.Filter{"gen_domain": "example.net"}, []uuid.UUID{r4.ID}},
		{"by locator", types.Filter{"pub_locator": "s3://bucket/beta"}, []uuid.UUID{r2.ID}},
		{"since", types.Filter{"since": base.Add(3 * time.Second)}, []uuid.UUID{r4.ID, r3.ID}},
		{"until", types.Filter{"until": base.Add(2 * time.Second)}, []uuid.UUID{r2.ID, r1.ID}},
		{"window", types.Filter{"since": base.Add(2 * time.Second), "until": base.Add(3 * time.Second)}, []uuid.UUID{r3.ID, r2.ID}},
		{"limit", types.Filter{"limit": 2}, []uuid.UUID{r4.ID, r3.ID}},
		{"limit and offset", types.Filter{"limit": 2, "offset": 1}, []uuid.UUID{r3.ID, r2.ID}},
		{"offset only", types.Filter{"offset": 3}, []uuid.UUID{r1.ID}},
		{"no match", types.Filter{"gen_name": "delta"}, []uuid.UUID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := tbl.Fetch(tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Equal(t, tt.want, ids(results))
		})
	}
}

func TestRecordsTable_FetchInvalidFilter(t *testing.T) {
	b := setupBackend(t)
	tbl := getTable(t, b, types.TableRecords)

	tests := []struct {
		name   string
		filter types.Filter
	}{
		{"unknown key", types.Filter{"state": "x"}},
		{"non-string name", types.Filter{"gen_name": 5}},
		{"string since", types.Filter{"since": "2025-01-01"}},
		{"string limit", types.Filter{"limit": "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tbl.Fetch(tt.filter)
			assert.ErrorIs(t, err, types.ErrInvalidFilter)
		})
	}
}

func TestStorageTimeOrdering(t *testing.T) {
	// Fixed-width text must sort like the instants it encodes.
	early := time.Date(2025, 1, 1, 0, 0, 0, 5, time.UTC)
	late := time.Date(2025, 1, 1, 0, 0, 0, 40, time.UTC)
	assert.Less(t, formatStorageTime(early), formatStorageTime(late))

	offset := time.Date(2025, 1, 1, 2, 0, 0, 0, time.FixedZone("x", 2*3600))
	parsed, err := parseStorageTime(formatStorageTime(offset))
	require.NoError(t, err)
	assert.True(t, offset.Equal(parsed))
	assert.Equal(t, time.UTC, parsed.Location())
}
