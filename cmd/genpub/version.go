package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/genpub/pkg/genpub"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the genpub version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flagJSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": genpub.Version,
					"module":  genpub.ModulePath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "genpub v%s\nmodule: %s\n", genpub.Version, genpub.ModulePath)
			return nil
		},
	}
}
