package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// The reference tables hold the media taxonomy. Rows are keyed by name, and
// Set with an id that differs from the entity's name renames the row. Renames
// propagate to dependent rows through ON UPDATE CASCADE.

var (
	_ types.Table = (*mediaTypesTable)(nil)
	_ types.Table = (*charsetsTable)(nil)
	_ types.Table = (*transferEncodingsTable)(nil)
)

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// splitMediaTypeID splits "major/minor" or "major".
func splitMediaTypeID(id string) (major, minor string, err error) {
	major, minor, hasMinor := strings.Cut(normalizeName(id), "/")
	if major == "" || (hasMinor && minor == "") {
		return "", "", fmt.Errorf("%w: media type %q", types.ErrInvalidID, id)
	}
	return major, minor, nil
}

// mediaTypesTable serves both media_type_major and media_type_minor. IDs are
// "major" or "major/minor".
type mediaTypesTable struct {
	backend *Backend
}

func (mt *mediaTypesTable) Get(id string) (any, error) {
	major, minor, err := splitMediaTypeID(id)
	if err != nil {
		return nil, err
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if minor == "" {
		var m types.MediaTypeMajor
		err = db.QueryRow("SELECT name FROM media_type_major WHERE name = ?", major).Scan(&m.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("getting media type %s: %w", id, err)
		}
		return &m, nil
	}

	var m types.MediaTypeMinor
	err = db.QueryRow(
		"SELECT major, minor FROM media_type_minor WHERE major = ? AND minor = ?", major, minor,
	).Scan(&m.Major, &m.Minor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting media type %s: %w", id, err)
	}
	return &m, nil
}

// Set registers a *types.MediaTypeMajor or *types.MediaTypeMinor. With an
// empty id the type is inserted; with the entity's own id the call is a no-op
// for an existing type; with any other id the type at id is renamed.
func (mt *mediaTypesTable) Set(id string, data any) (string, error) {
	db, release, err := mt.backend.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	switch m := data.(type) {
	case *types.MediaTypeMajor:
		name := normalizeName(m.Name)
		if name == "" || strings.Contains(name, "/") {
			return "", fmt.Errorf("%w: major type %q", types.ErrInvalidData, m.Name)
		}
		m.Name = name
		switch old := normalizeName(id); old {
		case "":
			_, err = db.Exec("INSERT INTO media_type_major (name) VALUES (?)", name)
		case name:
			_, err = db.Exec("INSERT OR IGNORE INTO media_type_major (name) VALUES (?)", name)
		default:
			err = renameMajor(db, old, name)
		}
		if err != nil {
			return "", fmt.Errorf("setting media type %s: %w", name, classifyError(err))
		}
		return name, nil

	case *types.MediaTypeMinor:
		major, minor := normalizeName(m.Major), normalizeName(m.Minor)
		if major == "" || minor == "" || strings.Contains(minor, "/") {
			return "", fmt.Errorf("%w: media type %q", types.ErrInvalidData, m.Full())
		}
		m.Major, m.Minor = major, minor
		full := m.Full()
		switch old := normalizeName(id); old {
		case "":
			_, err = db.Exec("INSERT INTO media_type_minor (major, minor) VALUES (?, ?)", major, minor)
		case full:
			_, err = db.Exec("INSERT OR IGNORE INTO media_type_minor (major, minor) VALUES (?, ?)", major, minor)
		default:
			oldMajor, oldMinor, splitErr := splitMediaTypeID(old)
			if splitErr != nil {
				return "", splitErr
			}
			if oldMinor == "" {
				return "", fmt.Errorf("%w: %q is not a minor type", types.ErrInvalidID, id)
			}
			err = renameMinor(db, oldMajor, oldMinor, major, minor)
		}
		if err != nil {
			return "", fmt.Errorf("setting media type %s: %w", full, classifyError(err))
		}
		return full, nil

	default:
		return "", types.ErrInvalidData
	}
}

// Delete removes a major type (and its minors) or a single minor type.
// Deleting a major that media objects still use fails with ErrForeignKey.
// Deleting a minor clears the type and any charset on media objects that
// used it, since a charset is only valid on text.
func (mt *mediaTypesTable) Delete(id string) error {
	major, minor, err := splitMediaTypeID(id)
	if err != nil {
		return err
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// ON DELETE SET NULL does not re-run CHECK constraints, so the charset
	// is cleared here before the foreign key action nulls the type.
	var res sql.Result
	if minor == "" {
		if _, err := tx.Exec(
			"UPDATE media_object SET charset = NULL WHERE type_major = ? AND type_minor IS NOT NULL AND charset IS NOT NULL",
			major,
		); err != nil {
			return fmt.Errorf("clearing charsets for %s: %w", id, classifyError(err))
		}
		res, err = tx.Exec("DELETE FROM media_type_major WHERE name = ?", major)
	} else {
		if _, err := tx.Exec(
			"UPDATE media_object SET charset = NULL WHERE type_major = ? AND type_minor = ? AND charset IS NOT NULL",
			major, minor,
		); err != nil {
			return fmt.Errorf("clearing charsets for %s: %w", id, classifyError(err))
		}
		res, err = tx.Exec("DELETE FROM media_type_minor WHERE major = ? AND minor = ?", major, minor)
	}
	if err != nil {
		return fmt.Errorf("deleting media type %s: %w", id, classifyError(err))
	}
	if err := rowsAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Fetch returns every major type followed by every minor type. With a
// "major" filter key only the minors of that major are returned.
func (mt *mediaTypesTable) Fetch(filter types.Filter) ([]any, error) {
	if err := checkFilterKeys(filter, "major"); err != nil {
		return nil, err
	}
	onlyMajor, hasMajor, err := filterString(filter, "major")
	if err != nil {
		return nil, err
	}

	db, release, err := mt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	results := []any{}
	if !hasMajor {
		rows, err := db.Query("SELECT name FROM media_type_major ORDER BY name")
		if err != nil {
			return nil, fmt.Errorf("fetching major types: %w", err)
		}
		for rows.Next() {
			var m types.MediaTypeMajor
			if err := rows.Scan(&m.Name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning major type: %w", err)
			}
			results = append(results, &m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating major types: %w", err)
		}
	}

	var q query
	if hasMajor {
		q.where("major = :major", "major", normalizeName(onlyMajor))
	}
	stmt, err := q.build("SELECT major, minor FROM media_type_minor", "major, minor", nil)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching minor types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m types.MediaTypeMinor
		if err := rows.Scan(&m.Major, &m.Minor); err != nil {
			return nil, fmt.Errorf("scanning minor type: %w", err)
		}
		results = append(results, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating minor types: %w", err)
	}
	return results, nil
}

// RenameMajor renames a major type. Minor types and media objects follow
// through ON UPDATE CASCADE.
func (b *Backend) RenameMajor(oldName, newName string) error {
	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := renameMajor(db, normalizeName(oldName), normalizeName(newName)); err != nil {
		return fmt.Errorf("renaming major type %s: %w", oldName, classifyError(err))
	}
	return nil
}

// RenameMinor renames the minor part of major/oldMinor. Media objects using
// the old pair follow through ON UPDATE CASCADE.
func (b *Backend) RenameMinor(major, oldMinor, newMinor string) error {
	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	m := normalizeName(major)
	if err := renameMinor(db, m, normalizeName(oldMinor), m, normalizeName(newMinor)); err != nil {
		return fmt.Errorf("renaming minor type %s/%s: %w", major, oldMinor, classifyError(err))
	}
	return nil
}

func renameMajor(db *sql.DB, oldName, newName string) error {
	if newName == "" || strings.Contains(newName, "/") {
		return fmt.Errorf("%w: major type %q", types.ErrInvalidData, newName)
	}
	res, err := db.Exec("UPDATE media_type_major SET name = ? WHERE name = ?", newName, oldName)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

func renameMinor(db *sql.DB, oldMajor, oldMinor, newMajor, newMinor string) error {
	if newMinor == "" || strings.Contains(newMinor, "/") {
		return fmt.Errorf("%w: minor type %q", types.ErrInvalidData, newMinor)
	}
	res, err := db.Exec(
		"UPDATE media_type_minor SET major = ?, minor = ? WHERE major = ? AND minor = ?",
		newMajor, newMinor, oldMajor, oldMinor,
	)
	if err != nil {
		return err
	}
	return rowsAffected(res)
}

// charsetsTable serves charset_canonical and charset_alias. Get and Delete
// accept either a canonical name or an alias.
type charsetsTable struct {
	backend *Backend
}

func (ct *charsetsTable) Get(id string) (any, error) {
	name := normalizeName(id)
	if name == "" {
		return nil, types.ErrInvalidID
	}

	db, release, err := ct.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := scanCharset(db.QueryRow("SELECT name, is_unicode, notes FROM charset_canonical WHERE name = ?", name))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting charset %s: %w", id, err)
	}

	var a types.CharsetAlias
	err = db.QueryRow("SELECT alias, canonical FROM charset_alias WHERE alias = ?", name).Scan(&a.Alias, &a.Canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting charset alias %s: %w", id, err)
	}
	return &a, nil
}

// Set registers a *types.Charset or a *types.CharsetAlias. For a charset,
// an id naming a different charset renames it; aliases and media objects
// follow. An alias that already exists is repointed.
func (ct *charsetsTable) Set(id string, data any) (string, error) {
	db, release, err := ct.backend.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	switch c := data.(type) {
	case *types.Charset:
		name := normalizeName(c.Name)
		if name == "" {
			return "", fmt.Errorf("%w: empty charset name", types.ErrInvalidData)
		}
		c.Name = name
		old := normalizeName(id)
		if old != "" && old != name {
			res, err := db.Exec(
				"UPDATE charset_canonical SET name = ?, is_unicode = ?, notes = ? WHERE name = ?",
				name, boolToInt(c.IsUnicode), nullString(c.Notes), old,
			)
			if err != nil {
				return "", fmt.Errorf("renaming charset %s: %w", old, classifyError(err))
			}
			if err := rowsAffected(res); err != nil {
				return "", err
			}
			return name, nil
		}
		upsert := ` ON CONFLICT(name) DO UPDATE SET is_unicode = excluded.is_unicode, notes = excluded.notes`
		if old == "" {
			upsert = ""
		}
		_, err = db.Exec(
			"INSERT INTO charset_canonical (name, is_unicode, notes) VALUES (?, ?, ?)"+upsert,
			name, boolToInt(c.IsUnicode), nullString(c.Notes),
		)
		if err != nil {
			return "", fmt.Errorf("setting charset %s: %w", name, classifyError(err))
		}
		return name, nil

	case *types.CharsetAlias:
		alias, canonical := normalizeName(c.Alias), normalizeName(c.Canonical)
		if alias == "" || canonical == "" {
			return "", fmt.Errorf("%w: charset alias %q -> %q", types.ErrInvalidData, c.Alias, c.Canonical)
		}
		if id != "" && normalizeName(id) != alias {
			return "", fmt.Errorf("%w: id %q does not match alias %q", types.ErrInvalidID, id, alias)
		}
		c.Alias, c.Canonical = alias, canonical
		_, err = db.Exec(
			"INSERT INTO charset_alias (alias, canonical) VALUES (?, ?) ON CONFLICT(alias) DO UPDATE SET canonical = excluded.canonical",
			alias, canonical,
		)
		if err != nil {
			return "", fmt.Errorf("setting charset alias %s: %w", alias, classifyError(err))
		}
		return alias, nil

	default:
		return "", types.ErrInvalidData
	}
}

// Delete removes a canonical charset (with its aliases) or a single alias.
// Media objects using a deleted charset have their charset cleared.
func (ct *charsetsTable) Delete(id string) error {
	name := normalizeName(id)
	if name == "" {
		return types.ErrInvalidID
	}

	db, release, err := ct.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.Exec("DELETE FROM charset_canonical WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting charset %s: %w", id, classifyError(err))
	}
	if err := rowsAffected(res); !errors.Is(err, types.ErrNotFound) {
		return err
	}

	res, err = db.Exec("DELETE FROM charset_alias WHERE alias = ?", name)
	if err != nil {
		return fmt.Errorf("deleting charset alias %s: %w", id, err)
	}
	return rowsAffected(res)
}

// Fetch returns canonical charsets by name. With a "canonical" filter key it
// returns the aliases of that charset; with "aliases" set to true it returns
// every alias.
func (ct *charsetsTable) Fetch(filter types.Filter) ([]any, error) {
	if err := checkFilterKeys(filter, "canonical", "aliases"); err != nil {
		return nil, err
	}
	canonical, byCanonical, err := filterString(filter, "canonical")
	if err != nil {
		return nil, err
	}
	allAliases, _, err := filterBool(filter, "aliases")
	if err != nil {
		return nil, err
	}

	db, release, err := ct.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	results := []any{}
	if byCanonical || allAliases {
		var q query
		if byCanonical {
			q.where("canonical = :canonical", "canonical", normalizeName(canonical))
		}
		stmt, err := q.build("SELECT alias, canonical FROM charset_alias", "canonical, alias", nil)
		if err != nil {
			return nil, err
		}
		rows, err := db.Query(stmt, q.args...)
		if err != nil {
			return nil, fmt.Errorf("fetching charset aliases: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var a types.CharsetAlias
			if err := rows.Scan(&a.Alias, &a.Canonical); err != nil {
				return nil, fmt.Errorf("scanning charset alias: %w", err)
			}
			results = append(results, &a)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating charset aliases: %w", err)
		}
		return results, nil
	}

	rows, err := db.Query("SELECT name, is_unicode, notes FROM charset_canonical ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("fetching charsets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanCharset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning charset: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating charsets: %w", err)
	}
	return results, nil
}

func scanCharset(row rowScanner) (*types.Charset, error) {
	var (
		c     types.Charset
		notes sql.NullString
	)
	if err := row.Scan(&c.Name, &c.IsUnicode, &notes); err != nil {
		return nil, err
	}
	c.Notes = notes.String
	return &c, nil
}

// transferEncodingsTable serves transfer_encoding_def.
type transferEncodingsTable struct {
	backend *Backend
}

func (tt *transferEncodingsTable) Get(id string) (any, error) {
	name := normalizeName(id)
	if name == "" {
		return nil, types.ErrInvalidID
	}

	db, release, err := tt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	e, err := scanTransferEncoding(db.QueryRow(
		"SELECT name, is_base64_variant, notes FROM transfer_encoding_def WHERE name = ?", name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer encoding %s: %w", id, err)
	}
	return e, nil
}

// Set registers a *types.TransferEncoding. An id naming a different encoding
// renames it; media objects follow.
func (tt *transferEncodingsTable) Set(id string, data any) (string, error) {
	e, ok := data.(*types.TransferEncoding)
	if !ok || e == nil {
		return "", types.ErrInvalidData
	}
	name := normalizeName(e.Name)
	if name == "" {
		return "", fmt.Errorf("%w: empty transfer encoding name", types.ErrInvalidData)
	}
	e.Name = name

	db, release, err := tt.backend.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	old := normalizeName(id)
	if old != "" && old != name {
		res, err := db.Exec(
			"UPDATE transfer_encoding_def SET name = ?, is_base64_variant = ?, notes = ? WHERE name = ?",
			name, boolToInt(e.IsBase64Variant), nullString(e.Notes), old,
		)
		if err != nil {
			return "", fmt.Errorf("renaming transfer encoding %s: %w", old, classifyError(err))
		}
		if err := rowsAffected(res); err != nil {
			return "", err
		}
		return name, nil
	}

	upsert := ` ON CONFLICT(name) DO UPDATE SET is_base64_variant = excluded.is_base64_variant, notes = excluded.notes`
	if old == "" {
		upsert = ""
	}
	_, err = db.Exec(
		"INSERT INTO transfer_encoding_def (name, is_base64_variant, notes) VALUES (?, ?, ?)"+upsert,
		name, boolToInt(e.IsBase64Variant), nullString(e.Notes),
	)
	if err != nil {
		return "", fmt.Errorf("setting transfer encoding %s: %w", name, classifyError(err))
	}
	return name, nil
}

func (tt *transferEncodingsTable) Delete(id string) error {
	name := normalizeName(id)
	if name == "" {
		return types.ErrInvalidID
	}

	db, release, err := tt.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.Exec("DELETE FROM transfer_encoding_def WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting transfer encoding %s: %w", id, classifyError(err))
	}
	return rowsAffected(res)
}

func (tt *transferEncodingsTable) Fetch(filter types.Filter) ([]any, error) {
	if err := checkFilterKeys(filter, "base64"); err != nil {
		return nil, err
	}
	var q query
	if b64, ok, err := filterBool(filter, "base64"); err != nil {
		return nil, err
	} else if ok {
		q.where("is_base64_variant = :b64", "b64", boolToInt(b64))
	}
	stmt, err := q.build("SELECT name, is_base64_variant, notes FROM transfer_encoding_def", "name", nil)
	if err != nil {
		return nil, err
	}

	db, release, err := tt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.Query(stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching transfer encodings: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		e, err := scanTransferEncoding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer encoding: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transfer encodings: %w", err)
	}
	return results, nil
}

func scanTransferEncoding(row rowScanner) (*types.TransferEncoding, error) {
	var (
		e     types.TransferEncoding
		notes sql.NullString
	)
	if err := row.Scan(&e.Name, &e.IsBase64Variant, &notes); err != nil {
		return nil, err
	}
	e.Notes = notes.String
	return &e, nil
}
