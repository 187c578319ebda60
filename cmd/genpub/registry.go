// Registry commands: schema URIs and the media taxonomy.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

func newRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the schema registry and media taxonomy",
	}
	cmd.AddCommand(
		newRegistryListCmd(a),
		newRegistryRegisterCmd(a),
		newRegistryCharsetCmd(a),
		newRegistryTypesCmd(a),
		newRegistryAddTypeCmd(a),
	)
	return cmd
}

func newRegistryListCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered schemas",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableSchemas)
			if err != nil {
				return err
			}
			filter := types.Filter{}
			if name != "" {
				filter["name"] = name
			}
			entities, err := tbl.Fetch(filter)
			if err != nil {
				return fmt.Errorf("list schemas: %w", err)
			}

			entries := make([]*types.SchemaEntry, len(entities))
			for i, e := range entities {
				entries[i] = e.(*types.SchemaEntry)
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.SchemaID, e.Name, e.Version, e.SchemaURI}
			}
			printTable(cmd.OutOrStdout(), "schema", []string{"SCHEMA_ID", "NAME", "VERSION", "URI"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "only schemas with this name")
	return cmd
}

func newRegistryRegisterCmd(a *app) *cobra.Command {
	var name, version, description string

	cmd := &cobra.Command{
		Use:   "register <uri>",
		Short: "Register a schema URI and derive its UUIDv5",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableSchemas)
			if err != nil {
				return err
			}
			entry := &types.SchemaEntry{
				SchemaURI:   args[0],
				Name:        name,
				Version:     version,
				Description: description,
			}
			if _, err := tbl.Set("", entry); err != nil {
				return fmt.Errorf("register %s: %w", args[0], err)
			}

			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", entry.SchemaURI, entry.SchemaID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "schema name (required)")
	cmd.Flags().StringVar(&version, "version", "", "schema version (required)")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newRegistryCharsetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "charset <name>",
		Short: "Resolve a charset name or alias to its canonical name",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			canonical, err := backend.ResolveCharset(args[0])
			if err != nil {
				return fmt.Errorf("resolve charset %q: %w", args[0], err)
			}
			tbl, err := backend.GetTable(types.TableCharsets)
			if err != nil {
				return err
			}
			entity, err := tbl.Get(canonical)
			if err != nil {
				return err
			}
			cs := entity.(*types.Charset)

			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), cs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (unicode: %t)\n", cs.Name, cs.IsUnicode)
			return nil
		},
	}
}

func newRegistryTypesCmd(a *app) *cobra.Command {
	var major string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List registered media types",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableMediaTypes)
			if err != nil {
				return err
			}
			filter := types.Filter{}
			if major != "" {
				filter["major"] = strings.ToLower(major)
			}
			entities, err := tbl.Fetch(filter)
			if err != nil {
				return fmt.Errorf("list media types: %w", err)
			}

			var names []string
			for _, e := range entities {
				switch t := e.(type) {
				case *types.MediaTypeMinor:
					names = append(names, t.Full())
				case *types.MediaTypeMajor:
					if major == "" {
						names = append(names, t.Name)
					}
				}
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), names)
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&major, "major", "", "only subtypes of this major type")
	return cmd
}

func newRegistryAddTypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-type <major[/minor]>",
		Short: "Register a media type",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			tbl, err := backend.GetTable(types.TableMediaTypes)
			if err != nil {
				return err
			}
			var entity any = &types.MediaTypeMajor{Name: args[0]}
			if major, minor, ok := strings.Cut(args[0], "/"); ok {
				entity = &types.MediaTypeMinor{Major: major, Minor: minor}
			}
			id, err := tbl.Set("", entity)
			if err != nil {
				return fmt.Errorf("register media type %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered media type: %s\n", id)
			return nil
		},
	}
}
