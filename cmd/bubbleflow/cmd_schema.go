package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"

	"github.com/spf13/cobra"
)

var (
	flagOpenAPI bool
	flagCheck   string
)

var schemaCmd = &cobra.Command{
	Use:   "schema <file>",
	Short: "Print the payload schema of a flow's entry method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			result, err := analyzeFile(ctx, a, args[0])
			if err != nil {
				return err
			}
			payload := result.Payload

			if flagCheck != "" {
				data, err := os.ReadFile(flagCheck)
				if err != nil {
					return err
				}
				var value any
				if err := json.Unmarshal(data, &value); err != nil {
					return fmt.Errorf("decode %s: %w", flagCheck, err)
				}
				if err := payload.Check(value); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), errorStyle.Render("✗ "+flagCheck))
					fmt.Fprintln(cmd.OutOrStdout(), err.Error())
					return exitError{reason: "payload does not match schema"}
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ "+flagCheck))
				return nil
			}

			if flagOpenAPI {
				return writeJSON(cmd.OutOrStdout(), payload.OpenAPI())
			}
			doc, err := payload.JSONSchema()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc)
		})
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&flagOpenAPI, "openapi", false, "print an OpenAPI 3 schema object")
	schemaCmd.Flags().StringVar(&flagCheck, "check", "", "validate a JSON payload file against the schema")
	schemaCmd.Flags().StringVarP(&flagProject, "project", "p", "", "project used to resolve imported payload types")
}
