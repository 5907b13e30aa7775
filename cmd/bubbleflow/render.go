package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/schema"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/validator"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/workflow"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A78BFA")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func span(start, end int) string {
	if start == end {
		return fmt.Sprintf("L%d", start)
	}
	return fmt.Sprintf("L%d-%d", start, end)
}

// renderSummary prints the analysis as an indented tree.
func renderSummary(r *ports.ParseResult) string {
	var b strings.Builder
	entry := r.EntryClass
	if entry == "" {
		entry = "(no flow class)"
	}
	b.WriteString(titleStyle.Render(entry) + "\n")

	ids := make([]int, 0, len(r.Bubbles))
	for id := range r.Bubbles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	b.WriteString(sectionStyle.Render(fmt.Sprintf("bubbles (%d)", len(ids))) + "\n")
	for _, id := range ids {
		bubble := r.Bubbles[id]
		fmt.Fprintf(&b, "  #%d %s %s %s\n", id, bubble.VariableName, bubble.ClassName,
			mutedStyle.Render(span(bubble.Location.Start, bubble.Location.End)))
		for _, p := range bubble.Parameters {
			fmt.Fprintf(&b, "    %s = %s %s\n", p.Name, p.Value, mutedStyle.Render(string(p.Source)))
		}
		if g := bubble.DependencyGraph; g != nil {
			for _, dep := range g.Dependencies {
				renderDependency(&b, dep, 2)
			}
		}
	}

	b.WriteString(sectionStyle.Render("workflow") + "\n")
	if r.Workflow != nil {
		for _, step := range r.Workflow.Root {
			renderStep(&b, step, 1)
		}
	}

	if r.Payload != nil {
		name := r.Payload.TypeName
		if name == "" {
			name = "(inline)"
		}
		b.WriteString(sectionStyle.Render("payload "+name) + "\n")
		for _, prop := range r.Payload.Names() {
			renderProperty(&b, prop, r.Payload.Properties[prop], 1)
		}
	}

	if len(r.Secrets) > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("hardcoded secrets (%d)", len(r.Secrets))) + "\n")
		for _, f := range r.Secrets {
			fmt.Fprintf(&b, "  %s %s.%s %s %s\n", mutedStyle.Render(fmt.Sprintf("L%d", f.Line)),
				f.VariableName, f.Param, f.Kind, f.Masked)
		}
	}
	return b.String()
}

func renderDependency(b *strings.Builder, n *bubbles.DependencyGraphNode, depth int) {
	fmt.Fprintf(b, "%s└ %s %s\n", strings.Repeat("  ", depth), n.Name, mutedStyle.Render(n.UniqueID))
	for _, dep := range n.Dependencies {
		renderDependency(b, dep, depth+1)
	}
}

func renderStep(b *strings.Builder, s *workflow.Step, depth int) {
	label := string(s.Type)
	if s.FunctionName != "" {
		label += " " + s.FunctionName
	}
	if s.VariableName != "" {
		label += " [" + s.VariableName + "]"
	}
	if s.IsDynamic {
		label += " over " + s.SourceArray
	}
	fmt.Fprintf(b, "%s%s %s\n", strings.Repeat("  ", depth), label, mutedStyle.Render(span(s.Location.Start, s.Location.End)))
	for _, child := range s.Children {
		renderStep(b, child, depth+1)
	}
}

func renderProperty(b *strings.Builder, name string, p *schema.Property, depth int) {
	typ := p.Type
	if len(p.Enum) > 0 {
		typ += " (" + strings.Join(p.Enum, " | ") + ")"
	}
	if !p.Required {
		name += "?"
	}
	line := fmt.Sprintf("%s%s: %s", strings.Repeat("  ", depth), name, typ)
	if p.Description != "" {
		line += " " + mutedStyle.Render(p.Description)
	}
	b.WriteString(line + "\n")
	for _, child := range p.Names() {
		renderProperty(b, child, p.Properties[child], depth+1)
	}
	if p.Items != nil && len(p.Items.Properties) > 0 {
		for _, child := range p.Items.Names() {
			renderProperty(b, child, p.Items.Properties[child], depth+1)
		}
	}
}

// renderDiagnostics prints one line per error line, in line order.
func renderDiagnostics(path string, r *validator.Result) string {
	if r.Success {
		return successStyle.Render("✓ "+path) + "\n"
	}
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s (%d lines with errors)", path, len(r.Errors))) + "\n")
	for _, line := range r.Lines() {
		for _, msg := range strings.Split(r.Errors[line], "\n") {
			fmt.Fprintf(&b, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%d:", line)), msg)
		}
	}
	if r.Suppressed > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d suppressed", r.Suppressed)) + "\n")
	}
	return b.String()
}

func renderReport(rep ports.WatchReport) string {
	switch {
	case rep.Removed:
		return mutedStyle.Render("removed "+rep.Path) + "\n"
	case rep.Validation != nil:
		out := renderDiagnostics(rep.Path, rep.Validation)
		if rep.Analysis != nil {
			out += mutedStyle.Render(fmt.Sprintf("  %d bubbles, %d steps", len(rep.Analysis.Bubbles), len(rep.Analysis.Workflow.Root))) + "\n"
		}
		return out
	case rep.Err != nil:
		return errorStyle.Render("✗ "+rep.Path) + " " + rep.Err.Error() + "\n"
	}
	return rep.Path + "\n"
}

// renderRegistry lists entries with their operations.
func renderRegistry(entries []*registry.Entry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d bubbles", len(entries))) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %s\n", sectionStyle.Render(e.Name), e.ClassName, mutedStyle.Render(e.Type))
		if e.ShortDescription != "" {
			fmt.Fprintf(&b, "  %s\n", e.ShortDescription)
		}
		if ops := e.OperationNames(); len(ops) > 0 {
			fmt.Fprintf(&b, "  operations: %s\n", strings.Join(ops, ", "))
		}
	}
	return b.String()
}
