package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

const selectSchemaSQL = `SELECT schema_id, schema_uri, name, version, description, created_at FROM schemas`

var _ types.Table = (*schemasTable)(nil)

// schemasTable is the schema registry: persistent URIs with their UUIDv5.
type schemasTable struct {
	backend *Backend
}

// Get looks an entry up by schema ID, or by URI when id is not a UUID.
func (st *schemasTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}

	db, release, err := st.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var row *sql.Row
	if sid, err := uuid.Parse(id); err == nil {
		row = db.QueryRow(selectSchemaSQL+" WHERE schema_id = ?", sid.String())
	} else {
		row = db.QueryRow(selectSchemaSQL+" WHERE schema_uri = ?", id)
	}

	e, err := scanSchemaEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting schema %s: %w", id, err)
	}
	return e, nil
}

// Set registers or updates a *types.SchemaEntry. The schema ID is always the
// UUIDv5 of the URI; an explicit id that differs fails with ErrInvalidID.
// CreatedAt is kept from the first registration.
func (st *schemasTable) Set(id string, data any) (string, error) {
	e, ok := data.(*types.SchemaEntry)
	if !ok || e == nil {
		return "", types.ErrInvalidData
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	derived := types.DeriveSchemaID(e.SchemaURI).String()
	if id != "" && id != derived {
		return "", fmt.Errorf("%w: %s is not the id of %s", types.ErrInvalidID, id, e.SchemaURI)
	}
	e.SchemaID = derived
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	db, release, err := st.backend.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	_, err = db.Exec(
		`INSERT INTO schemas (schema_id, schema_uri, name, version, description, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(schema_id) DO UPDATE SET name = excluded.name, version = excluded.version, description = excluded.description`,
		e.SchemaID, e.SchemaURI, e.Name, e.Version, e.Description, formatStorageTime(e.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("registering schema %s: %w", e.SchemaURI, classifyError(err))
	}

	var createdAt string
	if err := db.QueryRow("SELECT created_at FROM schemas WHERE schema_id = ?", e.SchemaID).Scan(&createdAt); err != nil {
		return "", fmt.Errorf("reading schema %s: %w", e.SchemaURI, err)
	}
	if e.CreatedAt, err = parseStorageTime(createdAt); err != nil {
		return "", fmt.Errorf("parsing created_at: %w", err)
	}
	return e.SchemaID, nil
}

func (st *schemasTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	db, release, err := st.backend.acquire()
	if err != nil {
		return err
	}
	defer release()

	column := "schema_uri"
	if sid, err := uuid.Parse(id); err == nil {
		column, id = "schema_id", sid.String()
	}
	res, err := db.Exec("DELETE FROM schemas WHERE "+column+" = ?", id)
	if err != nil {
		return fmt.Errorf("deleting schema %s: %w", id, err)
	}
	return rowsAffected(res)
}

// Fetch returns registry entries ordered by URI. The "name" filter key
// restricts the result to one schema family.
func (st *schemasTable) Fetch(filter types.Filter) ([]any, error) {
	if err := checkFilterKeys(filter, "name", "limit", "offset"); err != nil {
		return nil, err
	}
	var q query
	if name, ok, err := filterString(filter, "name"); err != nil {
		return nil, err
	} else if ok {
		q.where("name = :name", "name", name)
	}
	stmt, err := q.build(selectSchemaSQL, "schema_uri", filter)
	if err != nil {
		return nil, err
	}

	db, release, err := st.backend.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.Query(stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching schemas: %w", err)
	}
	defer rows.Close()

	results := []any{}
	for rows.Next() {
		e, err := scanSchemaEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating schema: %w", err)
		}
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schemas: %w", err)
	}
	return results, nil
}

func scanSchemaEntry(row rowScanner) (*types.SchemaEntry, error) {
	var (
		e         types.SchemaEntry
		createdAt string
	)
	if err := row.Scan(&e.SchemaID, &e.SchemaURI, &e.Name, &e.Version, &e.Description, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseStorageTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	e.CreatedAt = t
	return &e, nil
}
