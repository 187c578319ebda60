package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

type initResult struct {
	ConfigFile   string `json:"config_file"`
	DataDir      string `json:"data_dir"`
	Database     string `json:"database"`
	SQLite       string `json:"sqlite_version"`
	Strict       bool   `json:"strict_tables"`
	ConfigExists bool   `json:"config_existed"`
}

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and the database",
		Long: `Init writes config.yaml to the configuration directory (unless it already
exists, or --force is given) and creates the database with its reference
tables in the data directory.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(a.dirs.Config, configFileExt)
			exists, err := fileExists(path)
			if err != nil {
				return fmt.Errorf("stat config: %w", err)
			}
			if !exists || force {
				fc := fileConfig{
					Backend:   a.cfg.GetString(cfgKeyBackend),
					DataDir:   a.cfg.GetString(cfgKeyDataDir),
					DBName:    a.cfg.GetString(cfgKeyDBName),
					LogLevel:  a.cfg.GetString(cfgKeyLogLevel),
					LogFormat: a.cfg.GetString(cfgKeyLogFormat),
				}
				if a.flagDataDir != "" {
					fc.DataDir = a.dirs.Data
				}
				if _, err := writeConfigFile(a.dirs.Config, fc); err != nil {
					return err
				}
			}

			backend, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			caps, err := backend.Capabilities()
			if err != nil {
				return err
			}

			res := initResult{
				ConfigFile:   path,
				DataDir:      a.dirs.Data,
				Database:     backend.Path(),
				SQLite:       caps.Version,
				Strict:       caps.Strict,
				ConfigExists: exists && !force,
			}
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "genpub initialized")
			fmt.Fprintln(out, "  config:  ", res.ConfigFile)
			fmt.Fprintln(out, "  database:", res.Database)
			fmt.Fprintf(out, "  sqlite:   %s (strict tables: %t)\n", res.SQLite, res.Strict)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")
	return cmd
}
