package app

import (
	"context"
	"time"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/flow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/schema"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/secrets"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/types"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/workflow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Analyzer runs the read-only analyses over one flow source.
type Analyzer struct {
	parser    *parser.Parser
	extractor *bubbles.Extractor
	builder   *workflow.Builder
	resolver  types.Resolver
	detector  *secrets.Detector
}

func NewAnalyzer(p *parser.Parser, lookup registry.Lookup) *Analyzer {
	return &Analyzer{
		parser:    p,
		extractor: bubbles.NewExtractor(lookup),
		builder:   workflow.NewBuilder(),
	}
}

// WithResolver returns a copy of a that resolves payload types imported from
// other modules through r.
func (a *Analyzer) WithResolver(r types.Resolver) *Analyzer {
	cp := *a
	cp.resolver = r
	return &cp
}

// WithDetector returns a copy of a that scans static bubble parameters for
// hardcoded credentials.
func (a *Analyzer) WithDetector(d *secrets.Detector) *Analyzer {
	cp := *a
	cp.detector = d
	return &cp
}

// Analyze requires a syntactically valid source with a flow extension. An
// empty path is analyzed as TypeScript. Content issues never fail the
// analysis; only parse failures do.
func (a *Analyzer) Analyze(ctx context.Context, path string, source []byte) (*ports.ParseResult, error) {
	_, span := observability.Tracer.Start(ctx, "app.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	if path != "" && !a.parser.Loader().IsSupportedPath(path) {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported file type"), errors.CtxPath, path)
	}
	doc, err := a.parser.Parse(path, source)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	defer doc.Close()

	if syntax := doc.SyntaxErrors(); len(syntax) > 0 {
		err := errors.Newf(errors.CodeParseFailed, "%d syntax error(s) in flow source", len(syntax))
		err = errors.AddContext(err, errors.CtxPath, path)
		return nil, errors.AddContext(err, errors.CtxLine, syntax[0].Line)
	}

	start := time.Now()
	b := binding.Resolve(doc)
	entry := flow.Locate(doc)
	observability.AnalysisDuration.WithLabelValues("binding").Observe(time.Since(start).Seconds())

	ex := a.extractor.Extract(doc, b)
	wf := a.builder.Build(doc, b, entry, ex)

	start = time.Now()
	payload := schema.Extract(doc, entry, a.resolver)
	observability.AnalysisDuration.WithLabelValues("schema").Observe(time.Since(start).Seconds())

	result := &ports.ParseResult{
		Bubbles:  ex.Bubbles,
		Workflow: wf,
		Payload:  payload,
	}
	if entry != nil {
		result.EntryClass = entry.ClassName
	}
	if a.detector != nil {
		result.Secrets = a.detector.Scan(ex.Ordered())
		span.SetAttributes(attribute.Int("secrets", len(result.Secrets)))
	}
	span.SetAttributes(attribute.Int("bubbles", len(ex.Bubbles)))
	return result, nil
}
