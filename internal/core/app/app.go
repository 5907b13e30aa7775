// Package app wires configuration, the bubble registry, the parser and the
// validator pool behind the ports interfaces.
package app

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/config"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/secrets"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/validator"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/util"
)

type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Parser   *parser.Parser
	Analyzer *Analyzer
	Pool     *validator.Pool
}

var (
	_ ports.AnalysisService   = (*App)(nil)
	_ ports.ValidationService = (*App)(nil)
	_ ports.RegistryReader    = (*App)(nil)
)

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	reg, err := registry.Load(cfg.Registry.BuiltinEnabled(), cfg.Registry.Manifests)
	if err != nil {
		return nil, err
	}

	p := parser.NewParser(parser.NewGrammarLoader())
	suppress := make([]int, len(cfg.Validator.Suppress))
	copy(suppress, cfg.Validator.Suppress)

	pool := validator.NewPool(validator.Options{
		Size:     cfg.Validator.PoolSize,
		Suppress: suppress,
		Lookup:   reg,
		Loader:   p.Loader(),
	})

	analyzer := NewAnalyzer(p, reg)
	if cfg.Secrets.IsEnabled() {
		detector, err := newDetector(cfg.Secrets)
		if err != nil {
			return nil, err
		}
		analyzer = analyzer.WithDetector(detector)
	}

	slog.Debug("app initialized", "bubbles", reg.Len(), "pool_size", cfg.Validator.PoolSize)
	return &App{
		Config:   cfg,
		Registry: reg,
		Parser:   p,
		Analyzer: analyzer,
		Pool:     pool,
	}, nil
}

func newDetector(cfg config.Secrets) (*secrets.Detector, error) {
	patterns := make([]secrets.PatternConfig, 0, len(cfg.Patterns))
	for _, pattern := range cfg.Patterns {
		patterns = append(patterns, secrets.PatternConfig{
			Name:     pattern.Name,
			Regex:    pattern.Regex,
			Severity: pattern.Severity,
		})
	}
	detector, err := secrets.NewDetector(secrets.Config{
		EntropyThreshold: cfg.EntropyThreshold,
		MinTokenLength:   cfg.MinTokenLength,
		Patterns:         patterns,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile secret patterns")
	}
	return detector, nil
}

// Analyze runs the analyzer. Imported payload types resolve through the
// configured default project when one is set.
func (a *App) Analyze(ctx context.Context, path string, source []byte) (*ports.ParseResult, error) {
	return a.AnalyzeInProject(ctx, a.Config.Validator.DefaultProject, path, source)
}

// AnalyzeInProject analyzes source with payload types resolved through the
// project at projectKey. An empty key or a project that fails to load falls
// back to document-local resolution.
func (a *App) AnalyzeInProject(ctx context.Context, projectKey, path string, source []byte) (*ports.ParseResult, error) {
	analyzer := a.Analyzer
	if projectKey != "" {
		project, err := a.Pool.Project(projectKey)
		if err != nil {
			slog.Warn("project unavailable for type resolution", "project", projectKey, "error", err)
		} else {
			analyzer = analyzer.WithResolver(project)
		}
	}
	return analyzer.Analyze(ctx, path, source)
}

// Validate checks text as the file at path inside the project at projectKey.
// An empty key uses the configured default project, then the file's
// directory.
func (a *App) Validate(ctx context.Context, projectKey, path, text string) (*validator.Result, error) {
	key := a.projectKey(projectKey, path)
	if key == "" {
		return nil, errors.New(errors.CodeValidationError, "no project to validate against")
	}
	if path == "" {
		return a.Pool.Validate(ctx, key, text)
	}
	return a.Pool.ValidateFile(ctx, key, path, text)
}

func (a *App) projectKey(explicit, path string) string {
	switch {
	case explicit != "":
		return explicit
	case a.Config.Validator.DefaultProject != "" && (path == "" || util.WithinDir(absPath(path), absPath(a.projectRoot()))):
		return a.Config.Validator.DefaultProject
	case path != "":
		return filepath.Dir(path)
	}
	return ""
}

// projectRoot is the directory of the default project, which may be given
// as its project file.
func (a *App) projectRoot() string {
	root := a.Config.Validator.DefaultProject
	if filepath.Base(root) == validator.ProjectFileName {
		return filepath.Dir(root)
	}
	return root
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (a *App) Entries() []*registry.Entry {
	return a.Registry.Entries()
}

func (a *App) Close() {
	a.Pool.Close()
}
