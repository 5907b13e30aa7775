// Package workflow builds the execution skeleton of a flow's entry method.
package workflow

import (
	"time"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/flow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type StepType string

const (
	StepFunctionCall           StepType = "function_call"
	StepTransformationFunction StepType = "transformation_function"
	StepParallelExecution      StepType = "parallel_execution"
)

// Step is one node of the execution skeleton. FunctionName is the called
// method for bubble actions and helpers, the callee text for other calls.
type Step struct {
	Type         StepType         `json:"type"`
	Location     parser.LineRange `json:"location"`
	Code         string           `json:"code"`
	Description  string           `json:"description,omitempty"`
	FunctionName string           `json:"functionName,omitempty"`
	VariableID   int              `json:"variableId,omitempty"`
	VariableName string           `json:"variableName,omitempty"`
	Children     []*Step          `json:"children,omitempty"`
	IsDynamic    bool             `json:"isDynamic,omitempty"`
	SourceArray  string           `json:"sourceArray,omitempty"`
}

type Workflow struct {
	Root []*Step `json:"root"`
}

// Builder derives the execution structure from the entry method's statements.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build walks the entry method's statements in order. Statements that are
// not a fan-out, a bubble action or a same-class helper call are omitted.
func (bd *Builder) Build(doc *parser.Document, b *binding.Bindings, entry *flow.Entry, ex *bubbles.Extraction) *Workflow {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("workflow").Observe(time.Since(start).Seconds())
	}()

	w := &walker{doc: doc, b: b, entry: entry, ex: ex}
	stmts := entry.Statements()
	w.joined = w.joinedAppends(stmts)
	return &Workflow{Root: w.statements(stmts)}
}

type walker struct {
	doc   *parser.Document
	b     *binding.Bindings
	entry *flow.Entry
	ex    *bubbles.Extraction
	// joined holds append calls feeding an array that a later concurrent
	// wait awaits. Calls inside them belong to that fan-out step.
	joined []*sitter.Node
}

func (w *walker) statements(stmts []*sitter.Node) []*Step {
	steps := make([]*Step, 0)
	for _, stmt := range stmts {
		if stmt.Kind() == "try_statement" {
			steps = append(steps, w.statements(parser.NamedChildren(stmt.ChildByFieldName("body")))...)
			continue
		}
		if step := w.statement(stmt); step != nil {
			steps = append(steps, step)
		}
	}
	return steps
}

func (w *walker) statement(stmt *sitter.Node) *Step {
	if parser.IsFunction(stmt) || stmt.Kind() == "class_declaration" {
		return nil
	}
	var step *Step
	if call := findCall(stmt, isPromiseAll(w.doc)); call != nil {
		step = w.parallel(call)
	} else if call := findCall(stmt, w.isSequential); call != nil {
		step = w.classified(call)
	}
	if step == nil {
		return nil
	}
	step.Location = w.doc.Range(stmt)
	step.Code = w.doc.Text(stmt)
	step.Description = parser.CommentBefore(w.doc, stmt)
	return step
}

// isClassified reports whether call is a bubble action or a same-class helper
// call.
func (w *walker) isClassified(call *sitter.Node) bool {
	if _, ok := w.bubbleAction(call); ok {
		return true
	}
	_, ok := w.helper(call)
	return ok
}

// isSequential is isClassified for calls not already counted as a child of
// a fan-out through an append.
func (w *walker) isSequential(call *sitter.Node) bool {
	for _, site := range w.joined {
		if call.StartByte() >= site.StartByte() && call.EndByte() <= site.EndByte() {
			return false
		}
	}
	return w.isClassified(call)
}

func (w *walker) classified(call *sitter.Node) *Step {
	if bubble, ok := w.bubbleAction(call); ok {
		return &Step{
			Type:         StepFunctionCall,
			FunctionName: memberProperty(w.doc, call),
			VariableID:   bubble.VariableID,
			VariableName: bubble.VariableName,
		}
	}
	if name, ok := w.helper(call); ok {
		step := &Step{Type: StepTransformationFunction, FunctionName: name}
		if w.ex.HasBubbleWithin(w.entry.Method(name)) {
			step.Type = StepFunctionCall
		}
		return step
	}
	return nil
}

// bubbleAction resolves `x.action()` on a bound bubble variable or
// `new X(...).action()` to the bubble it invokes.
func (w *walker) bubbleAction(call *sitter.Node) (*bubbles.ParsedBubble, bool) {
	fn := parser.Unwrap(call.ChildByFieldName("function"))
	if fn == nil || fn.Kind() != "member_expression" || memberProperty(w.doc, call) != "action" {
		return nil, false
	}
	object := parser.Unwrap(fn.ChildByFieldName("object"))
	if object == nil {
		return nil, false
	}
	switch object.Kind() {
	case "identifier":
		return w.ex.ForDeclaration(w.b.ResolveBinding(object))
	case "new_expression":
		return w.ex.AtSite(object)
	}
	return nil, false
}

// helper recognizes `this.m(...)` where m is a method of the flow class.
func (w *walker) helper(call *sitter.Node) (string, bool) {
	fn := parser.Unwrap(call.ChildByFieldName("function"))
	if fn == nil || fn.Kind() != "member_expression" {
		return "", false
	}
	object := fn.ChildByFieldName("object")
	if object == nil || object.Kind() != "this" {
		return "", false
	}
	name := memberProperty(w.doc, call)
	if name == "" || name == flow.EntryMethod || w.entry.Method(name) == nil {
		return "", false
	}
	return name, true
}

func memberProperty(doc *parser.Document, call *sitter.Node) string {
	fn := parser.Unwrap(call.ChildByFieldName("function"))
	if fn == nil || fn.Kind() != "member_expression" {
		return ""
	}
	return doc.Text(fn.ChildByFieldName("property"))
}

// findCall returns the first call expression in n, in document order, that
// satisfies match. Nested function bodies are not searched.
func findCall(n *sitter.Node, match func(*sitter.Node) bool) *sitter.Node {
	var found *sitter.Node
	parser.Walk(n, func(cur *sitter.Node) bool {
		if found != nil {
			return false
		}
		if cur != n && parser.IsFunction(cur) {
			return false
		}
		if cur.Kind() == "call_expression" && match(cur) {
			found = cur
			return false
		}
		return true
	})
	return found
}
