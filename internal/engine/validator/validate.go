// Package validator produces line-addressed diagnostics for flow sources
// against a pooled project type graph.
package validator

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"
)

// snippetDir holds the virtual paths of snippet validations.
const snippetDir = ".bubbleflow"

// Validate checks text as the next version of the virtual file at path.
// Relative paths are anchored at the project root. Content issues are
// reported in the result; errors mean the project cannot serve the call.
func (p *Project) Validate(ctx context.Context, path, text string) (*Result, error) {
	path = p.abs(path)
	_, span := observability.Tracer.Start(ctx, "validator.Validate", trace.WithAttributes(
		attribute.String("project", p.Root),
		attribute.String("path", path),
	))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		err := coreerrors.AddContext(coreerrors.New(coreerrors.CodeConflict, "project is closed"), coreerrors.CtxProject, p.Root)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !p.parser.Loader().IsSupportedPath(path) {
		err := coreerrors.AddContext(coreerrors.New(coreerrors.CodeNotSupported, "unsupported file type"), coreerrors.CtxPath, path)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	prev := p.overlay.takeDocument(path)
	version := p.overlay.Set(path, text)
	doc, err := p.parse(prev, path, text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	p.overlay.setDocument(path, doc)

	res := buildResult(p.check(doc), text, p.Suppressed)
	res.Version = version
	observability.ValidationDuration.Observe(time.Since(start).Seconds())
	for _, d := range res.Diagnostics {
		observability.DiagnosticsReported.WithLabelValues(strconv.Itoa(d.Code), "false").Inc()
	}
	if res.Suppressed > 0 {
		observability.DiagnosticsReported.WithLabelValues("policy", "true").Add(float64(res.Suppressed))
	}
	span.SetAttributes(
		attribute.Int("version", version),
		attribute.Int("diagnostics", len(res.Diagnostics)),
	)
	slog.Debug("validated", "path", path, "version", version, "diagnostics", len(res.Diagnostics), "suppressed", res.Suppressed)
	return res, nil
}

func (p *Project) parse(prev *parser.Document, path, text string) (*parser.Document, error) {
	if prev != nil {
		return p.parser.Reparse(prev, []byte(text))
	}
	return p.parser.Parse(path, []byte(text))
}

// ValidateSnippet checks text under a fresh virtual path that is dropped
// afterwards, so concurrent snippets never share a snapshot.
func (p *Project) ValidateSnippet(ctx context.Context, text string) (*Result, error) {
	path := filepath.Join(p.Root, snippetDir, uuid.NewString()+".ts")
	defer p.overlay.DropVirtualFile(path)
	return p.Validate(ctx, path, text)
}
