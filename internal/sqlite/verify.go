package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// verifyTouchDelay separates the insert and update timestamps so the trigger
// has a measurable effect.
const verifyTouchDelay = 20 * time.Millisecond

// rejectionCheck is a write the media schema must refuse.
type rejectionCheck struct {
	name string
	stmt string
}

var verifyRejections = []rejectionCheck{
	{
		name: "charset on non-text type",
		stmt: "INSERT INTO media_object (type_major, type_minor, charset, data_bytes) VALUES ('image', 'png', 'utf-8', X'')",
	},
	{
		name: "minor without major",
		stmt: "INSERT INTO media_object (type_minor, data_bytes) VALUES ('plain', X'')",
	},
	{
		name: "unknown major type",
		stmt: "INSERT INTO media_object (type_major, data_bytes) VALUES ('bogus', X'')",
	},
	{
		name: "text stored in data_bytes",
		stmt: "INSERT INTO media_object (type_major, data_bytes) VALUES ('text', 'not a blob')",
	},
	{
		name: "timestamp out of range",
		stmt: "INSERT INTO media_object (data_bytes, timestamp_ms) VALUES (X'', -1)",
	},
}

// VerifyMediaSchema builds the full schema in a private in-memory database,
// exercises the media object constraints and the update trigger, and writes
// a report to w. It returns an error if any check fails.
func VerifyMediaSchema(w io.Writer, log zerolog.Logger) error {
	db, err := openDB(":memory:", connPragmas...)
	if err != nil {
		return err
	}
	defer db.Close()

	caps, err := detectCapabilities(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "SQLite version: %s\n", caps.Version)
	fmt.Fprintf(w, "STRICT tables: %t\n", caps.Strict)
	fmt.Fprintf(w, "Generated columns: %t\n", caps.GeneratedColumns)

	if err := applySchema(db, caps); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	if err := seedReferenceData(db, log); err != nil {
		return fmt.Errorf("seeding reference data: %w", err)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		return fmt.Errorf("reading foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		return errors.New("foreign keys are not enabled")
	}

	if _, err := db.Exec(
		"INSERT INTO media_object (type_major, type_minor, charset, transfer_encoding, data_bytes) VALUES ('text', 'plain', 'utf-8', 'binary', ?)",
		[]byte("Hello"),
	); err != nil {
		return fmt.Errorf("inserting text/plain row: %w", classifyError(err))
	}
	if _, err := db.Exec(
		"INSERT INTO media_object (type_major, type_minor, charset, transfer_encoding, data_bytes) VALUES ('image', 'png', NULL, 'binary', ?)",
		[]byte{0x89, 'P', 'N', 'G'},
	); err != nil {
		return fmt.Errorf("inserting image/png row: %w", classifyError(err))
	}
	fmt.Fprintln(w, "[TEST] inserted text/plain and image/png rows")

	if caps.GeneratedColumns {
		var full string
		if err := db.QueryRow(`SELECT "full" FROM media_type_minor WHERE major = 'text' AND minor = 'plain'`).Scan(&full); err != nil {
			return fmt.Errorf("reading generated column: %w", err)
		}
		if full != "text/plain" {
			return fmt.Errorf("generated column: got %q, want %q", full, "text/plain")
		}
		fmt.Fprintln(w, "[TEST] generated column full = text/plain")
	}

	for _, check := range verifyRejections {
		_, err := db.Exec(check.stmt)
		if err == nil {
			return fmt.Errorf("schema accepted %s", check.name)
		}
		if !isConstraint(classifyError(err)) {
			return fmt.Errorf("%s: unexpected error: %w", check.name, err)
		}
		fmt.Fprintf(w, "[TEST] rejected %s\n", check.name)
	}

	rowID, t0, err := firstMediaObject(db)
	if err != nil {
		return err
	}
	time.Sleep(verifyTouchDelay)
	if _, err := db.Exec("UPDATE media_object SET charset = 'us-ascii' WHERE rowid = ?", rowID); err != nil {
		return fmt.Errorf("updating row %d: %w", rowID, classifyError(err))
	}
	var t1 int64
	if err := db.QueryRow("SELECT timestamp_ms FROM media_object WHERE rowid = ?", rowID).Scan(&t1); err != nil {
		return fmt.Errorf("reading updated timestamp: %w", err)
	}
	fmt.Fprintf(w, "[TEST] trigger refreshed timestamp: before=%d after=%d delta=%dms\n", t0, t1, t1-t0)
	if t1 < t0 {
		return fmt.Errorf("timestamp moved backwards: %d -> %d", t0, t1)
	}

	fmt.Fprintln(w, "All checks passed.")
	return nil
}

func firstMediaObject(db *sql.DB) (int64, int64, error) {
	var rowID, ts int64
	if err := db.QueryRow("SELECT rowid, timestamp_ms FROM media_object ORDER BY rowid LIMIT 1").Scan(&rowID, &ts); err != nil {
		return 0, 0, fmt.Errorf("reading first media object: %w", err)
	}
	return rowID, ts, nil
}
