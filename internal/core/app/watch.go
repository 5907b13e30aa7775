package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/watcher"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/util"
)

// Declaration files and tests are project inputs, not flows.
var watchIgnoredSuffixes = []string{".d.ts", ".test.ts", ".spec.ts"}

// Watch re-analyzes and re-validates flow files under req.Paths as they
// change, until ctx is done.
func (a *App) Watch(ctx context.Context, req ports.WatchRequest) error {
	if req.OnReport == nil {
		return errors.New(errors.CodeValidationError, "watch requires a report callback")
	}
	limiter := util.NewKeyedLimiter(a.Config.Watch.Rate, a.Config.Watch.Burst)
	w, err := watcher.New(watcher.Options{
		Debounce:       a.Config.Watch.Debounce,
		ExcludeDirs:    a.Config.Watch.ExcludeDirs,
		ExcludeFiles:   a.Config.Watch.ExcludeFiles,
		Extensions:     a.Parser.Loader().SupportedExtensions(),
		IgnoreSuffixes: watchIgnoredSuffixes,
	}, func(paths []string) {
		a.HandleChanges(ctx, req, limiter, paths)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "start watcher")
	}
	defer w.Close()

	if err := w.Watch(req.Paths); err != nil {
		return errors.Wrap(err, errors.CodeNotFound, "watch paths")
	}
	slog.Info("watching flows", "paths", req.Paths, "project", req.ProjectKey)
	<-ctx.Done()
	return nil
}

// HandleChanges reports on each changed path. Paths over the limiter's rate
// are dropped until the next change.
func (a *App) HandleChanges(ctx context.Context, req ports.WatchRequest, limiter *util.KeyedLimiter, paths []string) {
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		source, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			limiter.Forget(path)
			req.OnReport(ports.WatchReport{Path: path, Removed: true})
			continue
		}
		if !limiter.Allow(path) {
			observability.WatcherThrottledTotal.Inc()
			slog.Debug("re-analysis throttled", "path", path)
			continue
		}
		if err != nil {
			req.OnReport(ports.WatchReport{Path: path, Err: err})
			continue
		}
		req.OnReport(a.report(ctx, req.ProjectKey, path, source))
	}
}

func (a *App) report(ctx context.Context, projectKey, path string, source []byte) ports.WatchReport {
	report := ports.WatchReport{Path: path}
	analysis, err := a.AnalyzeInProject(ctx, a.projectKey(projectKey, path), path, source)
	if err != nil {
		report.Err = err
	} else {
		report.Analysis = analysis
	}

	validation, err := a.Validate(ctx, projectKey, path, string(source))
	if err != nil {
		slog.Warn("validation failed", "path", path, "error", err)
		if report.Err == nil {
			report.Err = err
		}
		return report
	}
	report.Validation = validation
	return report
}
