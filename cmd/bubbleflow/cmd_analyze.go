package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"

	"github.com/spf13/cobra"
)

var (
	flagSummary bool
	flagProject string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Print the bubbles, workflow and payload schema of a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			result, err := analyzeFile(ctx, a, args[0])
			if err != nil {
				return err
			}
			if flagSummary {
				fmt.Fprint(cmd.OutOrStdout(), renderSummary(result))
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), result)
		})
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagSummary, "summary", false, "print a readable tree instead of JSON")
	analyzeCmd.Flags().StringVarP(&flagProject, "project", "p", "", "project used to resolve imported payload types")
}

func analyzeFile(ctx context.Context, a *app.App, path string) (*ports.ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if flagProject != "" {
		return a.AnalyzeInProject(ctx, flagProject, path, source)
	}
	return a.Analyze(ctx, path, source)
}
