package observability

import (
	"go.opentelemetry.io/otel"
)

const instrumentationName = "github.com/bubblelabai/BubbleLab-sub013"

// Tracer resolves against the global provider, so spans are no-ops until the
// CLI installs an exporter.
var Tracer = otel.Tracer(instrumentationName)
