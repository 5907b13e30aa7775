package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   appName + " [command]",
	Short: "Static analysis for bubble flow sources",
	Long: appName + " extracts the bubble dependency graph, execution structure and payload\n" +
		"schema of a flow file, and validates flows incrementally against a project.",
}

// withApp loads configuration, installs logging and telemetry, and runs fn
// with a ready App. Interrupts cancel the context passed to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Log, flagVerbose, flagLogFormat))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdown, err := startTelemetry(ctx, cfg.Observability, app.NewHealthService(a))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	return fn(ctx, a)
}

// newLogger builds the process logger. verbose forces debug; a non-empty
// format overrides the configured one.
func newLogger(w io.Writer, cfg config.Log, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = slog.LevelInfo
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	if format == "" {
		format = cfg.Format
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
