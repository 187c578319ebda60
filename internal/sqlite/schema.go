package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"text/template"
)

// schemaVersion is written to PRAGMA user_version after the DDL is applied.
const schemaVersion = 1

// Table DDL. Each statement is a template over Capabilities so STRICT and
// generated columns are only used where the engine supports them.
const (
	createRecords = `CREATE TABLE IF NOT EXISTS records (
    id          TEXT PRIMARY KEY,
    gen_name    TEXT NOT NULL,
    gen_domain  TEXT NOT NULL,
    gen_time    TEXT NOT NULL,
    pub_locator TEXT NOT NULL,
    pub_time    TEXT NOT NULL,
    data        BLOB NOT NULL
){{if .Strict}} STRICT{{end}};`

	createMediaTypeMajor = `CREATE TABLE IF NOT EXISTS media_type_major (
    name TEXT PRIMARY KEY
){{if .Strict}} STRICT{{end}};`

	createMediaTypeMinor = `CREATE TABLE IF NOT EXISTS media_type_minor (
    major TEXT NOT NULL REFERENCES media_type_major(name)
        ON UPDATE CASCADE ON DELETE CASCADE,
    minor TEXT NOT NULL,
{{- if .GeneratedColumns}}
    "full" TEXT GENERATED ALWAYS AS (major || '/' || minor) VIRTUAL,
{{- end}}
    PRIMARY KEY (major, minor)
){{if .Strict}} STRICT{{end}};`

	createCharsetCanonical = `CREATE TABLE IF NOT EXISTS charset_canonical (
    name       TEXT PRIMARY KEY,
    is_unicode INTEGER NOT NULL DEFAULT 0 CHECK (is_unicode IN (0, 1)),
    notes      TEXT
){{if .Strict}} STRICT{{end}};`

	createCharsetAlias = `CREATE TABLE IF NOT EXISTS charset_alias (
    alias     TEXT PRIMARY KEY,
    canonical TEXT NOT NULL REFERENCES charset_canonical(name)
        ON UPDATE CASCADE ON DELETE CASCADE
){{if .Strict}} STRICT{{end}};`

	createTransferEncodingDef = `CREATE TABLE IF NOT EXISTS transfer_encoding_def (
    name              TEXT PRIMARY KEY,
    is_base64_variant INTEGER NOT NULL DEFAULT 0 CHECK (is_base64_variant IN (0, 1)),
    notes             TEXT
){{if .Strict}} STRICT{{end}};`

	createMediaObject = `CREATE TABLE IF NOT EXISTS media_object (
    type_major        TEXT,
    type_minor        TEXT,
    charset           TEXT,
    transfer_encoding TEXT,
    data_bytes        BLOB NOT NULL,
    timestamp_ms      INTEGER NOT NULL
        DEFAULT (CAST((julianday('now') - 2440587.5) * 86400000 AS INTEGER)),
    CHECK (type_major IS NOT NULL OR type_minor IS NULL),
    CHECK (charset IS NULL OR type_major = 'text'),
    CHECK (typeof(data_bytes) = 'blob'),
    CHECK (timestamp_ms >= 0 AND timestamp_ms < 5000000000000),
    FOREIGN KEY (type_major) REFERENCES media_type_major(name)
        ON UPDATE CASCADE ON DELETE NO ACTION,
    FOREIGN KEY (type_major, type_minor) REFERENCES media_type_minor(major, minor)
        ON UPDATE CASCADE ON DELETE SET NULL,
    FOREIGN KEY (charset) REFERENCES charset_canonical(name)
        ON UPDATE CASCADE ON DELETE SET NULL,
    FOREIGN KEY (transfer_encoding) REFERENCES transfer_encoding_def(name)
        ON UPDATE CASCADE ON DELETE SET NULL
){{if .Strict}} STRICT{{end}};`

	createSchemas = `CREATE TABLE IF NOT EXISTS schemas (
    schema_id   TEXT PRIMARY KEY,
    schema_uri  TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    version     TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
){{if .Strict}} STRICT{{end}};`

	createTouchTrigger = `CREATE TRIGGER IF NOT EXISTS trg_media_object_touch
AFTER UPDATE ON media_object
FOR EACH ROW
BEGIN
    UPDATE media_object
    SET timestamp_ms = CAST((julianday('now') - 2440587.5) * 86400000 AS INTEGER)
    WHERE rowid = NEW.rowid;
END;`
)

// Index DDL for common queries.
const (
	idxRecordsGenerator   = `CREATE INDEX IF NOT EXISTS idx_records_generator ON records(gen_domain, gen_name);`
	idxRecordsPubTime     = `CREATE INDEX IF NOT EXISTS idx_records_pub_time ON records(pub_time);`
	idxMediaObjectType    = `CREATE INDEX IF NOT EXISTS idx_media_object_type ON media_object(type_major, type_minor);`
	idxCharsetAliasTarget = `CREATE INDEX IF NOT EXISTS idx_charset_alias_canonical ON charset_alias(canonical);`
)

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createRecords,
	createMediaTypeMajor,
	createMediaTypeMinor,
	createCharsetCanonical,
	createCharsetAlias,
	createTransferEncodingDef,
	createMediaObject,
	createSchemas,
	createTouchTrigger,
	idxRecordsGenerator,
	idxRecordsPubTime,
	idxMediaObjectType,
	idxCharsetAliasTarget,
}

var schemaTemplates = func() []*template.Template {
	tmpls := make([]*template.Template, len(schemaDDL))
	for i, ddl := range schemaDDL {
		tmpls[i] = template.Must(template.New(fmt.Sprintf("ddl%d", i)).Parse(ddl))
	}
	return tmpls
}()

// renderSchema expands the DDL templates for caps.
func renderSchema(caps Capabilities) ([]string, error) {
	stmts := make([]string, 0, len(schemaTemplates))
	for _, tmpl := range schemaTemplates {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, caps); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", tmpl.Name(), err)
		}
		stmts = append(stmts, sb.String())
	}
	return stmts, nil
}

// applySchema creates every table, index and trigger that does not exist yet
// and records the schema version.
func applySchema(db *sql.DB, caps Capabilities) error {
	stmts, err := renderSchema(caps)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("setting user_version: %w", err)
	}

	return tx.Commit()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
