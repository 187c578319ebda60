package sqlite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// maxJSONLLine bounds a single JSONL line; records carry their payload inline.
const maxJSONLLine = 64 << 20

// readJSONL reads a JSONL file and returns each non-empty, well-formed line
// as a json.RawMessage. Malformed lines are skipped and counted.
func readJSONL(path string) ([]json.RawMessage, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var (
		records   []json.RawMessage
		malformed int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			malformed++
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, malformed, nil
}

// writeJSONL replaces path with records, one per line. The file is written
// to a temporary sibling and renamed into place.
func writeJSONL(path string, records []json.RawMessage) error {
	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(rec)
		buf.WriteByte('\n')
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ExportRecords writes every record to path as JSONL in the canonical JSON
// form, oldest publication first. Returns the number of records written.
func (b *Backend) ExportRecords(path string) (int, error) {
	db, release, err := b.acquire()
	if err != nil {
		return 0, err
	}

	rows, err := db.Query(selectRecordSQL + " ORDER BY pub_time ASC, id ASC")
	if err != nil {
		release()
		return 0, fmt.Errorf("querying records for export: %w", err)
	}

	var lines []json.RawMessage
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			release()
			return 0, fmt.Errorf("hydrating record: %w", err)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			rows.Close()
			release()
			return 0, fmt.Errorf("marshaling record %s: %w", rec.ID, err)
		}
		lines = append(lines, data)
	}
	rows.Close()
	err = rows.Err()
	release()
	if err != nil {
		return 0, fmt.Errorf("iterating records for export: %w", err)
	}

	if err := writeJSONL(path, lines); err != nil {
		return 0, err
	}
	b.log.Info().Str("path", path).Int("records", len(lines)).Msg("exported records")
	return len(lines), nil
}
