package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/validator"

	"github.com/spf13/cobra"
)

var flagValidateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <file|->",
	Short: "Type-check a flow against a project",
	Long: "Type-check a flow against a project. With \"-\" the flow is read from stdin\n" +
		"and checked as a throwaway snippet. Exits 1 when errors remain after suppression.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			path := args[0]
			result, err := validateInput(ctx, a, cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			if flagValidateJSON {
				if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderDiagnostics(path, result))
			}
			if !result.Success {
				return exitError{reason: "validation failed"}
			}
			return nil
		})
	},
}

func init() {
	validateCmd.Flags().StringVarP(&flagProject, "project", "p", "", "project directory or "+validator.ProjectFileName)
	validateCmd.Flags().BoolVar(&flagValidateJSON, "json", false, "print the result as JSON")
}

func validateInput(ctx context.Context, a *app.App, stdin io.Reader, path string) (*validator.Result, error) {
	if path == "-" {
		text, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		key := flagProject
		if key == "" {
			key = a.Config.Validator.DefaultProject
		}
		if key == "" {
			if key, err = os.Getwd(); err != nil {
				return nil, err
			}
		}
		return a.Pool.ValidateSnippet(ctx, key, string(text))
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return a.Validate(ctx, flagProject, abs, string(text))
}
