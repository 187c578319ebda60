package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Capabilities describes the SQLite engine behind a database handle.
type Capabilities struct {
	Version          string `json:"version"`
	Strict           bool   `json:"strict"`
	GeneratedColumns bool   `json:"generated_columns"`
}

var (
	// STRICT tables arrived in SQLite 3.37.0.
	strictConstraint = mustConstraint(">= 3.37.0")
	// Generated columns arrived in SQLite 3.31.0.
	generatedColumnsConstraint = mustConstraint(">= 3.31.0")
)

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// detectCapabilities reads sqlite_version() from db.
func detectCapabilities(db *sql.DB) (Capabilities, error) {
	var version string
	if err := db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return Capabilities{}, fmt.Errorf("reading sqlite version: %w", err)
	}
	return capabilitiesFor(version)
}

// capabilitiesFor derives the feature flags from a version string such as
// "3.46.1".
func capabilitiesFor(version string) (Capabilities, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return Capabilities{}, fmt.Errorf("parsing sqlite version %q: %w", version, err)
	}
	return Capabilities{
		Version:          version,
		Strict:           strictConstraint.Check(v),
		GeneratedColumns: generatedColumnsConstraint.Check(v),
	}, nil
}
