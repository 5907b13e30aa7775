package main

import (
	"context"
	"fmt"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"

	"github.com/spf13/cobra"
)

// Version is overridden at link time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

var flagHealth bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", appName, Version)
		if !flagHealth {
			return nil
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return writeJSON(cmd.OutOrStdout(), app.NewHealthService(a).Check(ctx))
		})
	},
}

func init() {
	versionCmd.Flags().BoolVar(&flagHealth, "health", false, "also report component health")
}
