package sqlite

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// ImportStats summarizes an ImportRecords run.
type ImportStats struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
	Malformed  int `json:"malformed"`
}

// ImportRecords loads a JSONL file written by ExportRecords. Lines that are
// not JSON, that fail record validation, or whose ID is already stored are
// skipped and counted. The remaining records are inserted in one
// transaction: a storage failure leaves the database unchanged.
func (b *Backend) ImportRecords(path string) (ImportStats, error) {
	var stats ImportStats

	lines, malformed, err := readJSONL(path)
	if err != nil {
		return stats, err
	}
	stats.Malformed = malformed

	db, release, err := b.acquire()
	if err != nil {
		return stats, err
	}
	defer release()

	tx, err := db.Begin()
	if err != nil {
		return stats, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.Stmt(b.insertRecord)
	defer stmt.Close()

	for i, line := range lines {
		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Invalid++
			b.log.Debug().Int("line", i+1).Err(err).Msg("skipping invalid record")
			continue
		}

		if _, err := stmt.Exec(recordArgs(&rec)...); err != nil {
			err = classifyError(err)
			if errors.Is(err, types.ErrDuplicate) {
				stats.Duplicates++
				continue
			}
			return ImportStats{Malformed: malformed}, fmt.Errorf("importing record %s: %w", rec.ID, err)
		}
		stats.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return ImportStats{Malformed: malformed}, fmt.Errorf("committing import: %w", err)
	}

	b.log.Info().
		Str("path", path).
		Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).
		Int("invalid", stats.Invalid).
		Int("malformed", stats.Malformed).
		Msg("imported records")
	return stats, nil
}
