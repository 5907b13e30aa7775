package main

import (
	"context"
	"fmt"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"

	"github.com/spf13/cobra"
)

var flagRegistryJSON bool

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "List the registered bubble classes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if flagRegistryJSON {
				return writeJSON(cmd.OutOrStdout(), a.Entries())
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRegistry(a.Entries()))
			return nil
		})
	},
}

func init() {
	registryCmd.Flags().BoolVar(&flagRegistryJSON, "json", false, "print entries as JSON")
}
