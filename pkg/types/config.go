package types

import (
	"errors"
	"path/filepath"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
	DBName  string `json:"db_name,omitempty" yaml:"db_name,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultDBName is the database file created inside DataDir when DBName is empty.
const DefaultDBName = "records.db"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDBNameInvalid  = errors.New("db name must be a plain file name")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.DBName != "" && (filepath.Base(c.DBName) != c.DBName || c.DBName == "." || c.DBName == "..") {
		return ErrDBNameInvalid
	}
	return nil
}

// DatabaseFile returns the name of the database file, falling back to
// DefaultDBName.
func (c Config) DatabaseFile() string {
	if c.DBName == "" {
		return DefaultDBName
	}
	return c.DBName
}
