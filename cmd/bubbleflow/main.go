package main

import (
	"errors"
	"fmt"
	"os"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
)

const appName = "bubbleflow"

var (
	flagConfig    string
	flagVerbose   bool
	flagLogFormat string
)

func init() {
	rootCmd.AddCommand(analyzeCmd, validateCmd, schemaCmd, watchCmd, registryCmd, versionCmd)

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "./"+appName+".toml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json (overrides config)")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitError
		if !errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, "Error:", err.Error())
		}
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for problems in the user's input (flow source, project or
// config) and 1 for everything else.
func exitCode(err error) int {
	switch coreerrors.CodeOf(err) {
	case coreerrors.CodeParseFailed, coreerrors.CodeInvalidProject, coreerrors.CodeValidationError:
		return 2
	}
	return 1
}

// exitError fails the process without printing; the command already reported.
type exitError struct{ reason string }

func (e exitError) Error() string { return e.reason }
