package sqlite

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// storageTimeLayout is a fixed-width UTC layout so that lexical order of the
// stored text matches chronological order.
const storageTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatStorageTime(t time.Time) string {
	return t.UTC().Format(storageTimeLayout)
}

func parseStorageTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// query accumulates WHERE conditions and named arguments for Fetch.
type query struct {
	conditions []string
	args       []any
}

func (q *query) where(cond, name string, value any) {
	q.conditions = append(q.conditions, cond)
	q.args = append(q.args, sql.Named(name, value))
}

// build renders the final statement with the conditions, ordering and any
// limit or offset found in filter.
func (q *query) build(base, orderBy string, filter types.Filter) (string, error) {
	var sb strings.Builder
	sb.WriteString(base)
	if len(q.conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.conditions, " AND "))
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}

	limit, hasLimit, err := filterInt(filter, "limit")
	if err != nil {
		return "", err
	}
	offset, hasOffset, err := filterInt(filter, "offset")
	if err != nil {
		return "", err
	}
	if hasLimit && limit > 0 {
		sb.WriteString(" LIMIT :limit")
		q.args = append(q.args, sql.Named("limit", limit))
	} else if hasOffset && offset > 0 {
		sb.WriteString(" LIMIT -1")
	}
	if hasOffset && offset > 0 {
		sb.WriteString(" OFFSET :offset")
		q.args = append(q.args, sql.Named("offset", offset))
	}
	return sb.String(), nil
}

// filterString returns filter[key] when it is a string.
func filterString(filter types.Filter, key string) (string, bool, error) {
	v, ok := filter[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%w: %s must be a string, got %T", types.ErrInvalidFilter, key, v)
	}
	return s, true, nil
}

func filterInt(filter types.Filter, key string) (int, bool, error) {
	v, ok := filter[key]
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(int)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s must be an int, got %T", types.ErrInvalidFilter, key, v)
	}
	return n, true, nil
}

func filterTime(filter types.Filter, key string) (time.Time, bool, error) {
	v, ok := filter[key]
	if !ok {
		return time.Time{}, false, nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, false, fmt.Errorf("%w: %s must be a time.Time, got %T", types.ErrInvalidFilter, key, v)
	}
	return t, true, nil
}

func filterBool(filter types.Filter, key string) (bool, bool, error) {
	v, ok := filter[key]
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("%w: %s must be a bool, got %T", types.ErrInvalidFilter, key, v)
	}
	return b, true, nil
}

// checkFilterKeys rejects keys a table does not understand.
func checkFilterKeys(filter types.Filter, allowed ...string) error {
	for k := range filter {
		if !slices.Contains(allowed, k) {
			return fmt.Errorf("%w: unknown key %q", types.ErrInvalidFilter, k)
		}
	}
	return nil
}

// rowsAffected turns a zero-row result into ErrNotFound.
func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
