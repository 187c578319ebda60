// Record commands: add, get, list, delete, export and import.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

func newRecordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage generation and publication records",
	}
	cmd.AddCommand(
		newRecordAddCmd(a),
		newRecordGetCmd(a),
		newRecordListCmd(a),
		newRecordDeleteCmd(a),
		newRecordExportCmd(a),
		newRecordImportCmd(a),
	)
	return cmd
}

func newRecordAddCmd(a *app) *cobra.Command {
	var (
		genName, genDomain, genTime string
		locator, pubTime            string
		data, dataFile, file        string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store one or more records",
		Long: `Add stores a record built from flags, or the records in a JSON or JSONC
file given with --file. The file holds one record object or an array of
them in the export form; schema_uri and schema_id may be omitted. All
records in a file are stored atomically.

Example:
  genpub record add --gen-name sensorA --gen-domain example.org \
      --locator udp://127.0.0.1:9999 --data hello
  genpub record add --file records.jsonc`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []*types.Record
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read record file: %w", err)
				}
				if records, err = parseRecordFile(raw); err != nil {
					return err
				}
			} else {
				if genName == "" || genDomain == "" || locator == "" {
					return usageError{fmt.Errorf("--gen-name, --gen-domain and --locator are required without --file")}
				}
				now := time.Now()
				gt, err := parseTimeFlag("gen-time", genTime, now)
				if err != nil {
					return err
				}
				pt, err := parseTimeFlag("pub-time", pubTime, now)
				if err != nil {
					return err
				}
				payload, err := readPayload(data, dataFile)
				if err != nil {
					return err
				}
				rec, err := types.NewRecord(genName, genDomain, gt, types.URI(locator), pt, payload)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.InsertRecords(records...); err != nil {
				return fmt.Errorf("add records: %w", err)
			}

			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "Added record: %s\n", r.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&genName, "gen-name", "", "generator name")
	cmd.Flags().StringVar(&genDomain, "gen-domain", "", "generator domain")
	cmd.Flags().StringVar(&genTime, "gen-time", "", "generation time, ISO 8601 (default: now)")
	cmd.Flags().StringVar(&locator, "locator", "", "publication locator URI")
	cmd.Flags().StringVar(&pubTime, "pub-time", "", "publication time, ISO 8601 (default: now)")
	cmd.Flags().StringVar(&data, "data", "", "payload as text")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "read the payload from a file (- for stdin)")
	cmd.Flags().StringVar(&file, "file", "", "JSON or JSONC file with one record or an array of records")
	cmd.MarkFlagsMutuallyExclusive("file", "gen-name")
	cmd.MarkFlagsMutuallyExclusive("file", "data")
	cmd.MarkFlagsMutuallyExclusive("file", "data-file")
	return cmd
}

// parseRecordFile decodes JSONC holding a record object or an array of them.
// Missing schema fields default to the current schema.
func parseRecordFile(raw []byte) ([]*types.Record, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}

	var objs []map[string]any
	if trimmed := bytes.TrimSpace(std); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(std, &objs)
	} else {
		var obj map[string]any
		err = json.Unmarshal(std, &obj)
		objs = append(objs, obj)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}

	records := make([]*types.Record, 0, len(objs))
	for i, obj := range objs {
		if obj == nil {
			return nil, fmt.Errorf("%w: record %d is not an object", types.ErrInvalidData, i)
		}
		if _, ok := obj["schema_uri"]; !ok {
			obj["schema_uri"] = types.SchemaURI
		}
		if _, ok := obj["schema_id"]; !ok {
			obj["schema_id"] = types.SchemaID.String()
		}
		if _, ok := obj["data"]; !ok {
			obj["data"] = ""
		}
		// Round-trip through the wire form so data is read as base64.
		wire, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", types.ErrInvalidData, i, err)
		}
		var rec types.Record
		if err := json.Unmarshal(wire, &rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

func newRecordGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a record",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableRecords)
			if err != nil {
				return err
			}
			entity, err := tbl.Get(args[0])
			if err != nil {
				return fmt.Errorf("get record %s: %w", args[0], err)
			}
			rec := entity.(*types.Record)

			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:          %s\n", rec.ID)
			fmt.Fprintf(out, "gen_name:    %s\n", rec.GenName)
			fmt.Fprintf(out, "gen_domain:  %s\n", rec.GenDomain)
			fmt.Fprintf(out, "gen_time:    %s\n", types.FormatISOTime(rec.GenTime))
			fmt.Fprintf(out, "pub_locator: %s\n", rec.PubLocator)
			fmt.Fprintf(out, "pub_time:    %s\n", types.FormatISOTime(rec.PubTime))
			fmt.Fprintf(out, "data:        %d byte(s)\n", len(rec.Data))
			return nil
		},
	}
}

func newRecordListCmd(a *app) *cobra.Command {
	var (
		genName, genDomain, locator string
		since, until                string
		limit, offset               int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest publication first",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			if genName != "" {
				filter["gen_name"] = genName
			}
			if genDomain != "" {
				filter["gen_domain"] = genDomain
			}
			if locator != "" {
				filter["pub_locator"] = locator
			}
			for flag, value := range map[string]string{"since": since, "until": until} {
				if value == "" {
					continue
				}
				t, err := parseTimeFlag(flag, value, time.Time{})
				if err != nil {
					return err
				}
				filter[flag] = t
			}
			pageFilter(filter, limit, offset)

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableRecords)
			if err != nil {
				return err
			}
			entities, err := tbl.Fetch(filter)
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}

			records := make([]*types.Record, len(entities))
			for i, e := range entities {
				records[i] = e.(*types.Record)
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}

			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.ID.String()[:8],
					r.GenName,
					r.GenDomain,
					types.FormatISOTime(r.PubTime),
					string(r.PubLocator),
					strconv.Itoa(len(r.Data)),
				}
			}
			printTable(cmd.OutOrStdout(), "record", []string{"ID", "GEN_NAME", "GEN_DOMAIN", "PUB_TIME", "LOCATOR", "BYTES"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&genName, "gen-name", "", "filter by generator name")
	cmd.Flags().StringVar(&genDomain, "gen-domain", "", "filter by generator domain")
	cmd.Flags().StringVar(&locator, "locator", "", "filter by publication locator")
	cmd.Flags().StringVar(&since, "since", "", "only records published at or after this time")
	cmd.Flags().StringVar(&until, "until", "", "only records published at or before this time")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = no limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many results")
	return cmd
}

func newRecordDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableRecords)
			if err != nil {
				return err
			}
			if err := tbl.Delete(args[0]); err != nil {
				return fmt.Errorf("delete record %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted record: %s\n", args[0])
			return nil
		},
	}
}

func newRecordExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write all records to a JSONL file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			n, err := backend.ExportRecords(args[0])
			if err != nil {
				return err
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"path": args[0], "records": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", n, args[0])
			return nil
		},
	}
}

func newRecordImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load records from a JSONL file",
		Long: `Import reads a JSONL file written by export. Lines that are not JSON,
records that fail validation, and records whose id is already stored are
skipped and counted.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			stats, err := backend.ImportRecords(args[0])
			if err != nil {
				return err
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s): %d duplicate, %d invalid, %d malformed\n",
				stats.Inserted, stats.Duplicates, stats.Invalid, stats.Malformed)
			return nil
		},
	}
}
