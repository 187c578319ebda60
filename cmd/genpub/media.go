// Media object commands: add, get, list, touch and delete.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/genpub/internal/sqlite"
	"github.com/mesh-intelligence/genpub/pkg/types"
)

func newMediaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage typed media objects",
	}
	cmd.AddCommand(
		newMediaAddCmd(a),
		newMediaGetCmd(a),
		newMediaListCmd(a),
		newMediaTouchCmd(a),
		newMediaDeleteCmd(a),
	)
	return cmd
}

func newMediaAddCmd(a *app) *cobra.Command {
	var (
		mediaType, charset, encoding string
		data, dataFile               string
		detect                       bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a media object",
		Long: `Add stores a blob with an optional media type, charset and transfer
encoding. --type accepts a full media type such as "text/plain; charset=utf-8".
With --detect and no --type, the type is sniffed from the payload; parts of
the detected type that are not registered are dropped.

Example:
  genpub media add --type text/plain --charset utf8 --data "Hello"
  genpub media add --detect --data-file logo.png
  genpub media add --type application/json --encoding base64 --data eyJ9`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(data, dataFile)
			if err != nil {
				return err
			}

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			obj := &types.MediaObject{Data: payload, TransferEncoding: types.StringPtr(encoding)}
			switch {
			case mediaType != "":
				if err := applyMediaType(obj, mediaType); err != nil {
					return err
				}
			case detect:
				if err := a.applyDetectedType(backend, obj); err != nil {
					return err
				}
			}
			if charset != "" {
				obj.Charset = &charset
			}

			tbl, err := backend.GetTable(types.TableMediaObjects)
			if err != nil {
				return err
			}
			id, err := tbl.Set("", obj)
			if err != nil {
				return fmt.Errorf("add media object: %w", err)
			}

			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), obj)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added media object: %s (%s)\n", id, describeType(obj))
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "media type, e.g. image/png or text/plain; charset=utf-8")
	cmd.Flags().StringVar(&charset, "charset", "", "charset name or alias (text types only)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "transfer encoding of the stored bytes")
	cmd.Flags().StringVar(&data, "data", "", "payload as text")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "read the payload from a file (- for stdin)")
	cmd.Flags().BoolVar(&detect, "detect", false, "detect the media type from the payload")
	cmd.MarkFlagsMutuallyExclusive("type", "detect")
	return cmd
}

// applyMediaType sets the type and charset fields from a media type string.
func applyMediaType(obj *types.MediaObject, s string) error {
	major, minor, charset, err := types.ParseMediaType(s)
	if err != nil {
		return err
	}
	obj.TypeMajor = types.StringPtr(major)
	obj.TypeMinor = types.StringPtr(minor)
	obj.Charset = types.StringPtr(charset)
	return nil
}

// applyDetectedType sniffs the payload and keeps only the registered parts
// of the result.
func (a *app) applyDetectedType(backend *sqlite.Backend, obj *types.MediaObject) error {
	detected := mimetype.Detect(obj.Data)
	major, minor, charset, err := types.ParseMediaType(detected.String())
	if err != nil {
		return err
	}

	mediaTypes, err := backend.GetTable(types.TableMediaTypes)
	if err != nil {
		return err
	}
	registered := func(id string) (bool, error) {
		_, err := mediaTypes.Get(id)
		if errors.Is(err, types.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	ok, err := registered(major)
	if err != nil {
		return err
	}
	if !ok {
		a.log.Info().Str("detected", detected.String()).Msg("detected major type is not registered; storing untyped")
		return nil
	}
	obj.TypeMajor = &major

	if minor != "" {
		ok, err := registered(major + "/" + minor)
		if err != nil {
			return err
		}
		if ok {
			obj.TypeMinor = &minor
		} else {
			a.log.Info().Str("detected", detected.String()).Msg("detected subtype is not registered; storing major only")
		}
	}
	if major == types.MajorText && charset != "" {
		if _, err := backend.ResolveCharset(charset); err == nil {
			obj.Charset = &charset
		}
	}
	a.log.Debug().Str("detected", detected.String()).Str("stored", describeType(obj)).Msg("detected media type")
	return nil
}

func describeType(obj *types.MediaObject) string {
	mt := obj.MediaType()
	if mt == "" {
		mt = "untyped"
	}
	if obj.Charset != nil {
		mt += "; charset=" + *obj.Charset
	}
	return mt
}

func newMediaGetCmd(a *app) *cobra.Command {
	var (
		decode bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "get <rowid>",
		Short: "Show a media object or write its payload",
		Long: `Get prints a media object's metadata. With --decode the payload is
decoded according to its transfer encoding and written to stdout, or to
the file named by --output.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableMediaObjects)
			if err != nil {
				return err
			}
			entity, err := tbl.Get(args[0])
			if err != nil {
				return fmt.Errorf("get media object %s: %w", args[0], err)
			}
			obj := entity.(*types.MediaObject)

			if decode {
				payload, err := backend.DecodePayload(obj)
				if err != nil {
					return err
				}
				if output != "" {
					return os.WriteFile(output, payload, 0o644)
				}
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}

			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), obj)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rowid:             %d\n", obj.RowID)
			fmt.Fprintf(out, "type:              %s\n", describeType(obj))
			fmt.Fprintf(out, "transfer_encoding: %s\n", deref(obj.TransferEncoding))
			fmt.Fprintf(out, "size:              %d byte(s)\n", len(obj.Data))
			fmt.Fprintf(out, "updated:           %s\n", obj.Timestamp().Format(time.RFC3339Nano))
			return nil
		},
	}
	cmd.Flags().BoolVar(&decode, "decode", false, "write the decoded payload instead of metadata")
	cmd.Flags().StringVar(&output, "output", "", "with --decode, write to this file")
	return cmd
}

func newMediaListCmd(a *app) *cobra.Command {
	var (
		mediaType, charset, encoding string
		limit, offset                int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media objects",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			if mediaType != "" {
				major, minor, _ := strings.Cut(strings.ToLower(mediaType), "/")
				filter["type_major"] = major
				if minor != "" {
					filter["type_minor"] = minor
				}
			}
			if charset != "" {
				filter["charset"] = charset
			}
			if encoding != "" {
				filter["transfer_encoding"] = encoding
			}
			pageFilter(filter, limit, offset)

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableMediaObjects)
			if err != nil {
				return err
			}
			entities, err := tbl.Fetch(filter)
			if err != nil {
				return fmt.Errorf("list media objects: %w", err)
			}

			objs := make([]*types.MediaObject, len(entities))
			for i, e := range entities {
				objs[i] = e.(*types.MediaObject)
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), objs)
			}

			rows := make([][]string, len(objs))
			for i, o := range objs {
				rows[i] = []string{
					strconv.FormatInt(o.RowID, 10),
					describeType(o),
					deref(o.TransferEncoding),
					strconv.Itoa(len(o.Data)),
					o.Timestamp().Format(time.DateTime),
				}
			}
			printTable(cmd.OutOrStdout(), "media object", []string{"ROWID", "TYPE", "ENCODING", "BYTES", "UPDATED"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "filter by major or major/minor type")
	cmd.Flags().StringVar(&charset, "charset", "", "filter by charset")
	cmd.Flags().StringVar(&encoding, "encoding", "", "filter by transfer encoding")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = no limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many results")
	return cmd
}

func newMediaTouchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <rowid>",
		Short: "Refresh a media object's timestamp",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseRowID(args[0])
			if err != nil {
				return err
			}

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			ts, err := backend.Touch(rowID)
			if err != nil {
				return fmt.Errorf("touch media object %d: %w", rowID, err)
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"rowid": rowID, "timestamp_ms": ts})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Touched media object %d at %s\n", rowID, time.UnixMilli(ts).UTC().Format(time.RFC3339Nano))
			return nil
		},
	}
}

func newMediaDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rowid>",
		Short: "Delete a media object",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableMediaObjects)
			if err != nil {
				return err
			}
			if err := tbl.Delete(args[0]); err != nil {
				return fmt.Errorf("delete media object %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted media object: %s\n", args[0])
			return nil
		},
	}
}
