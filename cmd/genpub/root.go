// Root command, global flags and per-invocation setup.
package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/genpub/internal/logger"
	"github.com/mesh-intelligence/genpub/internal/paths"
	"github.com/mesh-intelligence/genpub/internal/sqlite"
	"github.com/mesh-intelligence/genpub/pkg/genpub"
	"github.com/mesh-intelligence/genpub/pkg/types"
)

// app carries global flag values and the state resolved before a command runs.
type app struct {
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagLogLevel  string
	flagLogFormat string

	cfg  *viper.Viper
	dirs paths.Dirs
	log  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "genpub",
		Short: "GenPub stores generation and publication metadata records",
		Long: `GenPub keeps generation/publication records and typed media objects in a
local SQLite database, alongside the media type, charset and transfer
encoding taxonomies and a registry of schema URIs.`,
		Version:       genpub.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.flagConfigDir, "config-dir", "", "configuration directory (default: ./.genpub or the user config dir)")
	root.PersistentFlags().StringVar(&a.flagDataDir, "data-dir", "", "data directory (default: ./.genpub-db)")
	root.PersistentFlags().BoolVar(&a.flagJSON, "json", false, "output as JSON")
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default: warn)")
	root.PersistentFlags().StringVar(&a.flagLogFormat, "log-format", "", "log format on stderr: console or json (default: console)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newRecordCmd(a),
		newMediaCmd(a),
		newRegistryCmd(a),
		newVerifyCmd(a),
	)
	return root
}

// setup resolves directories, loads config.yaml and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flagConfigDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := a.flagLogLevel
	if level == "" {
		level = cfg.GetString(cfgKeyLogLevel)
	}
	format := a.flagLogFormat
	if format == "" {
		format = cfg.GetString(cfgKeyLogFormat)
	}
	log, err := logger.New(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return usageError{err}
	}
	a.log = log

	dataDir, err := paths.ResolveDataDir(a.flagDataDir, cfg.GetString(cfgKeyDataDir), configDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	a.dirs = paths.Dirs{Config: configDir, Data: dataDir}

	a.log.Debug().Str("config", configDir).Str("data", dataDir).Msg("resolved directories")
	return nil
}

// storeConfig is the backend configuration for this invocation.
func (a *app) storeConfig() types.Config {
	return types.Config{
		Backend: a.cfg.GetString(cfgKeyBackend),
		DataDir: a.dirs.Data,
		DBName:  a.cfg.GetString(cfgKeyDBName),
	}
}

// attach opens the backend. The caller must Detach it.
func (a *app) attach() (*sqlite.Backend, error) {
	backend := sqlite.NewBackend(sqlite.WithLogger(a.log))
	if err := backend.Attach(a.storeConfig()); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}
