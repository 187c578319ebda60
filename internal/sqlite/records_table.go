package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

const insertRecordSQL = `INSERT INTO records (id, gen_name, gen_domain, gen_time, pub_locator, pub_time, data)
VALUES (?, ?, ?, ?, ?, ?, ?)`

const selectRecordSQL = `SELECT id, gen_name, gen_domain, gen_time, pub_locator, pub_time, data FROM records`

// Compile-time interface check.
var _ types.Table = (*recordsTable)(nil)

// recordsTable implements the Table interface for GenPub Core records.
type recordsTable struct {
	backend *Backend
}

// Get retrieves a record by its UUID.
func (rt *recordsTable) Get(id string) (any, error) {
	rid, err := parseRecordID(id)
	if err != nil {
		return nil, err
	}

	db, release, err := rt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := scanRecord(db.QueryRow(selectRecordSQL+" WHERE id = ?", rid.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting record %s: %w", id, err)
	}
	return rec, nil
}

// Set inserts or replaces a record. When id is empty the record's own ID is
// used, or a new UUIDv4 is assigned if it has none. When id is given it must
// agree with any ID already on the record.
func (rt *recordsTable) Set(id string, data any) (string, error) {
	rec, ok := data.(*types.Record)
	if !ok || rec == nil {
		return "", types.ErrInvalidData
	}

	if id == "" {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
	} else {
		rid, err := parseRecordID(id)
		if err != nil {
			return "", err
		}
		if rec.ID != uuid.Nil && rec.ID != rid {
			return "", fmt.Errorf("%w: id %s does not match record %s", types.ErrInvalidID, rid, rec.ID)
		}
		rec.ID = rid
	}
	if rec.Data == nil {
		rec.Data = []byte{}
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	db, release, err := rt.backend.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	var exists bool
	err = db.QueryRow("SELECT 1 FROM records WHERE id = ?", rec.ID.String()).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("checking record existence: %w", err)
	}

	if exists {
		_, err = db.Exec(
			`UPDATE records SET gen_name = ?, gen_domain = ?, gen_time = ?, pub_locator = ?, pub_time = ?, data = ?
WHERE id = ?`,
			rec.GenName, rec.GenDomain, formatStorageTime(rec.GenTime),
			string(rec.PubLocator), formatStorageTime(rec.PubTime), rec.Data, rec.ID.String(),
		)
	} else {
		_, err = rt.backend.insertRecord.Exec(recordArgs(rec)...)
	}
	if err != nil {
		return "", fmt.Errorf("persisting record: %w", classifyError(err))
	}

	return rec.ID.String(), nil
}

// Delete removes a record by ID.
func (rt *recordsTable) Delete(id string) error {
	rid, err := parseRecordID(id)
	if err != nil {
		return err
	}

	db, release, err := rt.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.Exec("DELETE FROM records WHERE id = ?", rid.String())
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return rowsAffected(res)
}

// Fetch returns records newest publication first. Supported filter keys:
// gen_name, gen_domain, pub_locator (string), since and until (time.Time,
// inclusive bounds on pub_time), limit and offset (int).
func (rt *recordsTable) Fetch(filter types.Filter) ([]any, error) {
	if err := checkFilterKeys(filter, "gen_name", "gen_domain", "pub_locator", "since", "until", "limit", "offset"); err != nil {
		return nil, err
	}

	var q query
	for _, key := range []string{"gen_name", "gen_domain", "pub_locator"} {
		v, ok, err := filterString(filter, key)
		if err != nil {
			return nil, err
		}
		if ok {
			q.where(key+" = :"+key, key, v)
		}
	}
	if since, ok, err := filterTime(filter, "since"); err != nil {
		return nil, err
	} else if ok {
		q.where("pub_time >= :since", "since", formatStorageTime(since))
	}
	if until, ok, err := filterTime(filter, "until"); err != nil {
		return nil, err
	} else if ok {
		q.where("pub_time <= :until", "until", formatStorageTime(until))
	}

	stmt, err := q.build(selectRecordSQL, "pub_time DESC, id ASC", filter)
	if err != nil {
		return nil, err
	}

	db, release, err := rt.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.Query(stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating record: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return results, nil
}

// InsertRecord stores a single record through the prepared insert statement.
// A record whose ID already exists fails with ErrDuplicate.
func (b *Backend) InsertRecord(rec *types.Record) error {
	return b.InsertRecords(rec)
}

// InsertRecords stores records in a single transaction. Either every record
// is inserted or none is. A record whose ID already exists fails the batch
// with ErrDuplicate.
func (b *Backend) InsertRecords(records ...*types.Record) error {
	for i, rec := range records {
		if rec == nil {
			return fmt.Errorf("%w: record %d is nil", types.ErrInvalidData, i)
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.Stmt(b.insertRecord)
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(recordArgs(rec)...); err != nil {
			return fmt.Errorf("storing record %s: %w", rec.ID, classifyError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	b.log.Debug().Int("count", len(records)).Msg("stored records")
	return nil
}

// recordArgs returns the positional arguments for insertRecordSQL.
func recordArgs(rec *types.Record) []any {
	data := rec.Data
	if data == nil {
		data = []byte{}
	}
	return []any{
		rec.ID.String(),
		rec.GenName,
		rec.GenDomain,
		formatStorageTime(rec.GenTime),
		string(rec.PubLocator),
		formatStorageTime(rec.PubTime),
		data,
	}
}

func parseRecordID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, types.ErrInvalidID
	}
	rid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", types.ErrInvalidID, err)
	}
	return rid, nil
}

// scanRecord hydrates a records row into a *types.Record.
func scanRecord(row rowScanner) (*types.Record, error) {
	var (
		rec              types.Record
		id               string
		genTime, pubTime string
		locator          string
	)
	if err := row.Scan(&id, &rec.GenName, &rec.GenDomain, &genTime, &locator, &pubTime, &rec.Data); err != nil {
		return nil, err
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}
	if rec.GenTime, err = parseStorageTime(genTime); err != nil {
		return nil, fmt.Errorf("parsing gen_time: %w", err)
	}
	if rec.PubTime, err = parseStorageTime(pubTime); err != nil {
		return nil, fmt.Errorf("parsing pub_time: %w", err)
	}
	rec.PubLocator = types.URI(locator)
	if rec.Data == nil {
		rec.Data = []byte{}
	}
	return &rec, nil
}
