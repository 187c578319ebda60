package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// builtInMinors are the subtypes registered under the standard majors.
var builtInMinors = []types.MediaTypeMinor{
	{Major: "text", Minor: "plain"},
	{Major: "text", Minor: "html"},
	{Major: "text", Minor: "csv"},
	{Major: "text", Minor: "markdown"},
	{Major: "image", Minor: "png"},
	{Major: "image", Minor: "jpeg"},
	{Major: "image", Minor: "gif"},
	{Major: "image", Minor: "svg+xml"},
	{Major: "application", Minor: "json"},
	{Major: "application", Minor: "octet-stream"},
	{Major: "application", Minor: "pdf"},
	{Major: "application", Minor: "xml"},
	{Major: "audio", Minor: "mpeg"},
	{Major: "video", Minor: "mp4"},
	{Major: "font", Minor: "woff2"},
	{Major: "model", Minor: "gltf+json"},
	{Major: "multipart", Minor: "form-data"},
	{Major: "message", Minor: "rfc822"},
}

var builtInCharsets = []types.Charset{
	{Name: "utf-8", IsUnicode: true},
	{Name: "utf-16", IsUnicode: true},
	{Name: "utf-16le", IsUnicode: true},
	{Name: "utf-16be", IsUnicode: true},
	{Name: "us-ascii", Notes: "7-bit ASCII"},
	{Name: "iso-8859-1", Notes: "Latin-1"},
	{Name: "windows-1252"},
}

var builtInCharsetAliases = []types.CharsetAlias{
	{Alias: "utf8", Canonical: "utf-8"},
	{Alias: "utf16", Canonical: "utf-16"},
	{Alias: "ascii", Canonical: "us-ascii"},
	{Alias: "ansi_x3.4-1968", Canonical: "us-ascii"},
	{Alias: "latin1", Canonical: "iso-8859-1"},
	{Alias: "iso8859-1", Canonical: "iso-8859-1"},
	{Alias: "l1", Canonical: "iso-8859-1"},
	{Alias: "cp1252", Canonical: "windows-1252"},
}

var builtInTransferEncodings = []types.TransferEncoding{
	{Name: "binary"},
	{Name: "7bit"},
	{Name: "8bit"},
	{Name: "quoted-printable"},
	{Name: "base64", IsBase64Variant: true, Notes: "RFC 4648 section 4"},
	{Name: "base64url", IsBase64Variant: true, Notes: "RFC 4648 section 5"},
}

var builtInSchemas = []types.SchemaEntry{
	{
		SchemaURI:   types.SchemaURI,
		Name:        "genpub_core",
		Version:     "1",
		Description: "Generation and publication record",
	},
	{
		SchemaURI:   types.MediaTaxonomyURI,
		Name:        "media_object",
		Version:     "1",
		Description: "Media type, charset and transfer encoding taxonomy",
	},
}

// seedReferenceData fills the taxonomy tables and the schema registry when
// they are empty, in a single transaction. Each group is seeded at most once,
// so rows the user removes later are not recreated.
func seedReferenceData(db *sql.DB, log zerolog.Logger) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	taxonomyEmpty, err := tableEmpty(tx, "media_type_major")
	if err != nil {
		return err
	}
	if taxonomyEmpty {
		if err := seedTaxonomy(tx); err != nil {
			return err
		}
	}

	schemasEmpty, err := tableEmpty(tx, "schemas")
	if err != nil {
		return err
	}
	if schemasEmpty {
		if err := seedSchemas(tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}

	if taxonomyEmpty {
		log.Debug().
			Int("majors", len(types.StandardMajorTypes)).
			Int("minors", len(builtInMinors)).
			Int("charsets", len(builtInCharsets)).
			Int("encodings", len(builtInTransferEncodings)).
			Msg("seeded media taxonomy")
	}
	if schemasEmpty {
		log.Debug().Int("schemas", len(builtInSchemas)).Msg("seeded schema registry")
	}
	return nil
}

func tableEmpty(q querier, table string) (bool, error) {
	var count int
	if err := q.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
		return false, fmt.Errorf("counting %s: %w", table, err)
	}
	return count == 0, nil
}

func seedTaxonomy(tx *sql.Tx) error {
	for _, major := range types.StandardMajorTypes {
		if _, err := tx.Exec("INSERT INTO media_type_major (name) VALUES (?)", major); err != nil {
			return fmt.Errorf("seeding major %s: %w", major, err)
		}
	}
	for _, m := range builtInMinors {
		if _, err := tx.Exec("INSERT INTO media_type_minor (major, minor) VALUES (?, ?)", m.Major, m.Minor); err != nil {
			return fmt.Errorf("seeding minor %s: %w", m.Full(), err)
		}
	}
	for _, c := range builtInCharsets {
		_, err := tx.Exec(
			"INSERT INTO charset_canonical (name, is_unicode, notes) VALUES (?, ?, ?)",
			c.Name, boolToInt(c.IsUnicode), nullString(c.Notes),
		)
		if err != nil {
			return fmt.Errorf("seeding charset %s: %w", c.Name, err)
		}
	}
	for _, a := range builtInCharsetAliases {
		if _, err := tx.Exec("INSERT INTO charset_alias (alias, canonical) VALUES (?, ?)", a.Alias, a.Canonical); err != nil {
			return fmt.Errorf("seeding charset alias %s: %w", a.Alias, err)
		}
	}
	for _, e := range builtInTransferEncodings {
		_, err := tx.Exec(
			"INSERT INTO transfer_encoding_def (name, is_base64_variant, notes) VALUES (?, ?, ?)",
			e.Name, boolToInt(e.IsBase64Variant), nullString(e.Notes),
		)
		if err != nil {
			return fmt.Errorf("seeding transfer encoding %s: %w", e.Name, err)
		}
	}

	return nil
}

func seedSchemas(tx *sql.Tx) error {
	now := formatStorageTime(time.Now())

	for _, s := range builtInSchemas {
		_, err := tx.Exec(
			"INSERT INTO schemas (schema_id, schema_uri, name, version, description, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			types.DeriveSchemaID(s.SchemaURI).String(), s.SchemaURI, s.Name, s.Version, s.Description, now,
		)
		if err != nil {
			return fmt.Errorf("seeding schema %s: %w", s.SchemaURI, err)
		}
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
