// Shared helpers for genpub CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// noArgs and exactArgs wrap cobra's validators so argument mistakes exit
// with the user error code.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printTable writes rows under header with aligned columns and a total line.
func printTable(w io.Writer, noun string, header []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No %ss found.\n", noun)
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "Total: %d %s(s)\n", len(rows), noun)
}

// readPayload returns the bytes given by --data or --data-file. At most one
// may be set; neither yields an empty payload.
func readPayload(data, dataFile string) ([]byte, error) {
	switch {
	case data != "" && dataFile != "":
		return nil, usageError{fmt.Errorf("--data and --data-file are mutually exclusive")}
	case dataFile == "-":
		return io.ReadAll(os.Stdin)
	case dataFile != "":
		b, err := os.ReadFile(dataFile)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

// parseTimeFlag parses an ISO 8601 flag value; empty means fallback.
func parseTimeFlag(name, value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	t, err := types.ParseISOTime(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

// pageFilter adds limit and offset to filter when they are positive.
func pageFilter(filter types.Filter, limit, offset int) types.Filter {
	if limit > 0 {
		filter["limit"] = limit
	}
	if offset > 0 {
		filter["offset"] = offset
	}
	return filter
}

func parseRowID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a media object rowid", types.ErrInvalidID, s)
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
