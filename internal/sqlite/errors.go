package sqlite

import (
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// classifyError maps SQLite constraint failures onto the types sentinels.
// The driver error stays in the chain so callers can still inspect it.
// Errors that are not constraint failures are returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return err
	}

	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: %w", types.ErrDuplicate, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %w", types.ErrForeignKey, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %w", types.ErrCheck, err)
	}
	if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %w", types.ErrConstraint, err)
	}
	return err
}

// isConstraint reports whether err is any classified constraint failure.
func isConstraint(err error) bool {
	return errors.Is(err, types.ErrDuplicate) ||
		errors.Is(err, types.ErrForeignKey) ||
		errors.Is(err, types.ErrCheck) ||
		errors.Is(err, types.ErrConstraint)
}
