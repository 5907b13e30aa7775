package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir> [dir...]",
	Short: "Re-analyze and re-validate flows as they change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			var mu sync.Mutex
			return a.Watch(ctx, ports.WatchRequest{
				Paths:      args,
				ProjectKey: flagProject,
				OnReport: func(rep ports.WatchReport) {
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprint(cmd.OutOrStdout(), renderReport(rep))
				},
			})
		})
	},
}

func init() {
	watchCmd.Flags().StringVarP(&flagProject, "project", "p", "", "project to validate against (default: each file's directory)")
}
