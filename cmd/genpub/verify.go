package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/genpub/internal/sqlite"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the media schema against the bundled SQLite engine",
		Long: `Verify builds the schema in a private in-memory database, confirms that
the media object constraints reject invalid rows and that the update
trigger refreshes timestamps, and prints a report. The data directory is
not touched.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sqlite.VerifyMediaSchema(cmd.OutOrStdout(), a.log)
		},
	}
}
