// Package ports declares the driving interfaces the CLI consumes and the
// result types crossing them.
package ports

import (
	"context"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/schema"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/secrets"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/validator"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/workflow"
)

// ParseResult is the combined analysis of one flow source.
type ParseResult struct {
	Bubbles    map[int]*bubbles.ParsedBubble `json:"bubbles"`
	Workflow   *workflow.Workflow             `json:"workflow"`
	Payload    *schema.PayloadSchema          `json:"payload,omitempty"`
	EntryClass string                         `json:"entryClass,omitempty"`
	// Secrets lists hardcoded credentials found in static bubble parameters.
	Secrets []secrets.Finding `json:"secrets,omitempty"`
}

// AnalysisService analyzes flow sources.
type AnalysisService interface {
	Analyze(ctx context.Context, path string, source []byte) (*ParseResult, error)
}

// ValidationService validates flow sources against a project.
type ValidationService interface {
	Validate(ctx context.Context, projectKey, path, text string) (*validator.Result, error)
}

// RegistryReader lists the known bubbles.
type RegistryReader interface {
	Entries() []*registry.Entry
}

// WatchReport is delivered for every re-analyzed file in watch mode.
type WatchReport struct {
	Path       string            `json:"path"`
	Analysis   *ParseResult      `json:"analysis,omitempty"`
	Validation *validator.Result `json:"validation,omitempty"`
	Removed    bool              `json:"removed,omitempty"`
	Err        error             `json:"-"`
}

// WatchRequest defines a watch session.
type WatchRequest struct {
	Paths      []string
	ProjectKey string
	OnReport   func(WatchReport)
}
