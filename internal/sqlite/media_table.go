package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

const selectMediaObjectSQL = `SELECT rowid, type_major, type_minor, charset, transfer_encoding, data_bytes, timestamp_ms FROM media_object`

var _ types.Table = (*mediaObjectsTable)(nil)

// mediaObjectsTable implements the Table interface for media_object rows,
// addressed by rowid.
type mediaObjectsTable struct {
	backend *Backend
}

func (mt *mediaObjectsTable) Get(id string) (any, error) {
	rowID, err := parseRowID(id)
	if err != nil {
		return nil, err
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	obj, err := getMediaObject(db, rowID)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Set inserts a media object when id is empty and updates the row otherwise.
// Type and encoding names are lower-cased and the charset is resolved to its
// canonical name. On return obj carries the row's rowid and the timestamp
// assigned by the database.
func (mt *mediaObjectsTable) Set(id string, data any) (string, error) {
	obj, ok := data.(*types.MediaObject)
	if !ok || obj == nil {
		return "", types.ErrInvalidData
	}

	var rowID int64
	if id != "" {
		var err error
		if rowID, err = parseRowID(id); err != nil {
			return "", err
		}
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	if err := normalizeMediaObject(db, obj); err != nil {
		return "", err
	}
	if err := obj.Validate(); err != nil {
		return "", err
	}

	if id == "" {
		res, err := db.Exec(
			"INSERT INTO media_object (type_major, type_minor, charset, transfer_encoding, data_bytes) VALUES (?, ?, ?, ?, ?)",
			nullable(obj.TypeMajor), nullable(obj.TypeMinor), nullable(obj.Charset), nullable(obj.TransferEncoding), obj.Data,
		)
		if err != nil {
			return "", fmt.Errorf("inserting media object: %w", classifyError(err))
		}
		if rowID, err = res.LastInsertId(); err != nil {
			return "", fmt.Errorf("reading rowid: %w", err)
		}
	} else {
		res, err := db.Exec(
			"UPDATE media_object SET type_major = ?, type_minor = ?, charset = ?, transfer_encoding = ?, data_bytes = ? WHERE rowid = ?",
			nullable(obj.TypeMajor), nullable(obj.TypeMinor), nullable(obj.Charset), nullable(obj.TransferEncoding), obj.Data, rowID,
		)
		if err != nil {
			return "", fmt.Errorf("updating media object: %w", classifyError(err))
		}
		if err := rowsAffected(res); err != nil {
			return "", err
		}
	}

	obj.RowID = rowID
	if err := db.QueryRow("SELECT timestamp_ms FROM media_object WHERE rowid = ?", rowID).Scan(&obj.TimestampMs); err != nil {
		return "", fmt.Errorf("reading timestamp: %w", err)
	}
	return strconv.FormatInt(rowID, 10), nil
}

// Delete removes a media object by rowid.
func (mt *mediaObjectsTable) Delete(id string) error {
	rowID, err := parseRowID(id)
	if err != nil {
		return err
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.Exec("DELETE FROM media_object WHERE rowid = ?", rowID)
	if err != nil {
		return fmt.Errorf("deleting media object: %w", err)
	}
	return rowsAffected(res)
}

// Fetch returns media objects in rowid order. Supported filter keys:
// type_major, type_minor, charset, transfer_encoding (string), limit and
// offset (int).
func (mt *mediaObjectsTable) Fetch(filter types.Filter) ([]any, error) {
	if err := checkFilterKeys(filter, "type_major", "type_minor", "charset", "transfer_encoding", "limit", "offset"); err != nil {
		return nil, err
	}

	var q query
	for _, key := range []string{"type_major", "type_minor", "charset", "transfer_encoding"} {
		v, ok, err := filterString(filter, key)
		if err != nil {
			return nil, err
		}
		if ok {
			q.where(key+" = :"+key, key, strings.ToLower(v))
		}
	}
	stmt, err := q.build(selectMediaObjectSQL, "rowid ASC", filter)
	if err != nil {
		return nil, err
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.Query(stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching media objects: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		obj, err := scanMediaObject(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating media object: %w", err)
		}
		results = append(results, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating media objects: %w", err)
	}
	return results, nil
}

// Touch rewrites a media object in place so the update trigger refreshes its
// timestamp. Returns the new timestamp in milliseconds.
func (b *Backend) Touch(rowID int64) (int64, error) {
	db, release, err := b.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := db.Exec("UPDATE media_object SET data_bytes = data_bytes WHERE rowid = ?", rowID)
	if err != nil {
		return 0, fmt.Errorf("touching media object: %w", classifyError(err))
	}
	if err := rowsAffected(res); err != nil {
		return 0, err
	}

	var ts int64
	if err := db.QueryRow("SELECT timestamp_ms FROM media_object WHERE rowid = ?", rowID).Scan(&ts); err != nil {
		return 0, fmt.Errorf("reading timestamp: %w", err)
	}
	return ts, nil
}

// ResolveCharset returns the canonical charset for name, which may be a
// canonical name or a registered alias in any letter case.
func (b *Backend) ResolveCharset(name string) (string, error) {
	db, release, err := b.acquire()
	if err != nil {
		return "", err
	}
	defer release()
	return resolveCharset(db, name)
}

func resolveCharset(q querier, name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("%w: empty charset", types.ErrInvalidData)
	}

	var canonical string
	err := q.QueryRow(
		`SELECT name FROM charset_canonical WHERE name = :name
UNION ALL
SELECT canonical FROM charset_alias WHERE alias = :name
LIMIT 1`,
		sql.Named("name", n),
	).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: charset %q", types.ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("resolving charset %q: %w", name, err)
	}
	return canonical, nil
}

// DecodePayload returns the object's data with its transfer encoding
// removed. Only base64 variants are decoded; other encodings describe bytes
// that are already raw and are returned unchanged.
func (b *Backend) DecodePayload(obj *types.MediaObject) ([]byte, error) {
	if obj == nil {
		return nil, types.ErrInvalidData
	}
	if obj.TransferEncoding == nil {
		return obj.Data, nil
	}

	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var isBase64 bool
	err = db.QueryRow(
		"SELECT is_base64_variant FROM transfer_encoding_def WHERE name = ?",
		*obj.TransferEncoding,
	).Scan(&isBase64)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transfer encoding %q", types.ErrNotFound, *obj.TransferEncoding)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up transfer encoding: %w", err)
	}
	if !isBase64 {
		return obj.Data, nil
	}
	return decodeBase64(*obj.TransferEncoding, obj.Data)
}

// decodeBase64 accepts padded or unpadded input and ignores line breaks.
func decodeBase64(encoding string, data []byte) ([]byte, error) {
	clean := bytes.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, data)

	enc := base64.StdEncoding
	if strings.Contains(encoding, "url") {
		enc = base64.URLEncoding
	}
	if len(clean)%4 != 0 {
		enc = enc.WithPadding(base64.NoPadding)
	}

	out := make([]byte, enc.DecodedLen(len(clean)))
	n, err := enc.Decode(out, clean)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %v", types.ErrInvalidData, encoding, err)
	}
	return out[:n], nil
}

// normalizeMediaObject lower-cases names, resolves the charset alias and
// replaces nil data with an empty blob.
func normalizeMediaObject(q querier, obj *types.MediaObject) error {
	lower := func(p *string) *string {
		if p == nil {
			return nil
		}
		return types.StringPtr(strings.ToLower(strings.TrimSpace(*p)))
	}
	obj.TypeMajor = lower(obj.TypeMajor)
	obj.TypeMinor = lower(obj.TypeMinor)
	obj.TransferEncoding = lower(obj.TransferEncoding)

	if obj.Charset != nil {
		canonical, err := resolveCharset(q, *obj.Charset)
		if err != nil {
			return err
		}
		obj.Charset = &canonical
	}
	if obj.Data == nil {
		obj.Data = []byte{}
	}
	return nil
}

func getMediaObject(q querier, rowID int64) (*types.MediaObject, error) {
	obj, err := scanMediaObject(q.QueryRow(selectMediaObjectSQL+" WHERE rowid = ?", rowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting media object %d: %w", rowID, err)
	}
	return obj, nil
}

func scanMediaObject(row rowScanner) (*types.MediaObject, error) {
	var (
		obj                                      types.MediaObject
		major, minor, charset, transferEncoding sql.NullString
	)
	if err := row.Scan(&obj.RowID, &major, &minor, &charset, &transferEncoding, &obj.Data, &obj.TimestampMs); err != nil {
		return nil, err
	}
	obj.TypeMajor = nullStringPtr(major)
	obj.TypeMinor = nullStringPtr(minor)
	obj.Charset = nullStringPtr(charset)
	obj.TransferEncoding = nullStringPtr(transferEncoding)
	if obj.Data == nil {
		obj.Data = []byte{}
	}
	return &obj, nil
}

// nullable binds a nil pointer as NULL and a non-nil one as its value.
func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func parseRowID(id string) (int64, error) {
	if id == "" {
		return 0, types.ErrInvalidID
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: rowid %q", types.ErrInvalidID, id)
	}
	return n, nil
}
