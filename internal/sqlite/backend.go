// Package sqlite implements the SQLite storage backend for GenPub: the
// records table, the media object schema with its reference taxonomies, and
// the schema registry.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// connPragmas are applied to every connection through the DSN so they hold
// regardless of which pooled connection runs a statement.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"recursive_triggers(0)",
}

// filePragmas apply only to on-disk databases.
var filePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Backend implements the Store interface on a single SQLite database file.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dbPath   string
	db       *sql.DB
	caps     Capabilities
	tables   map[string]types.Table
	log      zerolog.Logger

	// insertRecord is prepared once per attach and reused by InsertRecord,
	// recordsTable.Set and ImportRecords.
	insertRecord *sql.Stmt
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for lifecycle and import events.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) {
		b.log = l.With().Str("component", "sqlite").Logger()
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables: make(map[string]types.Table),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetTable returns a Table interface for the specified table name.
// Returns ErrTableNotFound if the table name is not recognized.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	table, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return table, nil
}

// Attach opens (or creates) the database file in DataDir, applies the schema
// for the detected engine capabilities, seeds the reference tables on first
// use, and prepares the record insert statement.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	dbPath := filepath.Join(dataDir, config.DatabaseFile())

	db, err := openDB(dbPath, append(append([]string{}, connPragmas...), filePragmas...)...)
	if err != nil {
		return err
	}

	caps, err := detectCapabilities(db)
	if err != nil {
		db.Close()
		return err
	}

	if err := applySchema(db, caps); err != nil {
		db.Close()
		return fmt.Errorf("applying schema: %w", err)
	}

	if err := seedReferenceData(db, b.log); err != nil {
		db.Close()
		return fmt.Errorf("seeding reference data: %w", err)
	}

	stmt, err := db.Prepare(insertRecordSQL)
	if err != nil {
		db.Close()
		return fmt.Errorf("preparing record insert: %w", err)
	}

	b.db = db
	b.dbPath = dbPath
	b.caps = caps
	b.config = config
	b.insertRecord = stmt
	b.attached = true

	b.tables[types.TableRecords] = &recordsTable{backend: b}
	b.tables[types.TableMediaObjects] = &mediaObjectsTable{backend: b}
	b.tables[types.TableMediaTypes] = &mediaTypesTable{backend: b}
	b.tables[types.TableCharsets] = &charsetsTable{backend: b}
	b.tables[types.TableTransferEncodings] = &transferEncodingsTable{backend: b}
	b.tables[types.TableSchemas] = &schemasTable{backend: b}

	b.log.Info().
		Str("path", dbPath).
		Str("sqlite_version", caps.Version).
		Bool("strict", caps.Strict).
		Bool("generated_columns", caps.GeneratedColumns).
		Msg("attached")

	return nil
}

// Detach releases all resources held by the backend.
// After Detach, all operations return ErrStoreDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if b.insertRecord != nil {
		b.insertRecord.Close()
		b.insertRecord = nil
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]types.Table)
	b.log.Info().Str("path", b.dbPath).Msg("detached")

	return nil
}

// Capabilities reports the engine version and the DDL features in use.
func (b *Backend) Capabilities() (Capabilities, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return Capabilities{}, types.ErrStoreDetached
	}
	return b.caps, nil
}

// Path returns the database file path of the attached backend.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dbPath
}

// acquire takes the read lock and returns the open database. The caller
// must call the returned release function.
func (b *Backend) acquire() (*sql.DB, func(), error) {
	b.mu.RLock()
	if !b.attached || b.db == nil {
		b.mu.RUnlock()
		return nil, func() {}, types.ErrStoreDetached
	}
	return b.db, b.mu.RUnlock, nil
}

// openDB opens a SQLite database with the given per-connection pragmas.
// SQLite allows one writer, so the pool is limited to a single connection.
func openDB(path string, pragmas ...string) (*sql.DB, error) {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	dsn := path
	if len(q) > 0 {
		dsn += "?" + q.Encode()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}
