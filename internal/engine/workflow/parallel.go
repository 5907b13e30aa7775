package workflow

import (
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var concurrentWaits = map[string]bool{"all": true, "allSettled": true}

// isPromiseAll matches Promise.all and Promise.allSettled calls.
func isPromiseAll(doc *parser.Document) func(*sitter.Node) bool {
	return func(call *sitter.Node) bool {
		fn := parser.Unwrap(call.ChildByFieldName("function"))
		if fn == nil || fn.Kind() != "member_expression" {
			return false
		}
		object := fn.ChildByFieldName("object")
		property := fn.ChildByFieldName("property")
		return object != nil && property != nil &&
			doc.Text(object) == "Promise" && concurrentWaits[doc.Text(property)]
	}
}

// parallel builds the fan-out step of a concurrent-wait call.
func (w *walker) parallel(call *sitter.Node) *Step {
	step := &Step{Type: StepParallelExecution, FunctionName: "Promise." + memberProperty(w.doc, call)}
	arg := parser.Unwrap(parser.FirstNamedChild(call.ChildByFieldName("arguments")))
	if arg == nil {
		step.IsDynamic = true
		return step
	}

	switch {
	case arg.Kind() == "array":
		step.Children = w.elements(parser.NamedChildren(arg))
	case isMapCall(w.doc, arg):
		w.mapped(step, arg)
	case arg.Kind() == "identifier":
		w.appended(step, arg, call)
	default:
		step.IsDynamic = true
	}
	return step
}

// joinedAppends returns the append calls, among stmts, that feed an array
// later awaited through an identifier by a concurrent wait.
func (w *walker) joinedAppends(stmts []*sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	wait := isPromiseAll(w.doc)
	for _, stmt := range stmts {
		parser.Walk(stmt, func(cur *sitter.Node) bool {
			if parser.IsFunction(cur) {
				return false
			}
			if cur.Kind() != "call_expression" || !wait(cur) {
				return true
			}
			arg := parser.Unwrap(parser.FirstNamedChild(cur.ChildByFieldName("arguments")))
			if arg == nil || arg.Kind() != "identifier" {
				return true
			}
			for _, site := range w.priorSites(arg, cur) {
				if site.Kind == binding.SiteAppend {
					out = append(out, site.Node)
				}
			}
			return true
		})
	}
	return out
}

// priorSites lists the value sites of ident's declaration that precede call.
func (w *walker) priorSites(ident, call *sitter.Node) []binding.Site {
	var out []binding.Site
	for _, site := range w.b.AssignmentsTo(w.b.ResolveBinding(ident)) {
		if site.Node.StartByte() >= call.StartByte() {
			break
		}
		out = append(out, site)
	}
	return out
}

// appended collects the children of an array variable from its initializer
// and every prior append site. Appends guarded by conditions are counted.
// An array with no visible value before the wait has an unknown size.
func (w *walker) appended(step *Step, ident, call *sitter.Node) {
	decl := w.b.ResolveBinding(ident)
	sites := w.priorSites(ident, call)
	if decl == nil || len(sites) == 0 {
		step.IsDynamic = true
		return
	}
	var children []*Step
	for _, site := range sites {
		switch site.Kind {
		case binding.SiteInit, binding.SiteAssign:
			value := parser.Unwrap(site.Values[0])
			switch {
			case value == nil:
				children = nil
			case value.Kind() == "array":
				children = w.elements(parser.NamedChildren(value))
			case isMapCall(w.doc, value):
				w.mapped(step, value)
				return
			default:
				step.IsDynamic = true
				return
			}
		case binding.SiteAppend:
			children = append(children, w.elements(site.Values)...)
		}
	}
	step.Children = children
}

// mapped records a `.map(callback)` fan-out with one representative child.
func (w *walker) mapped(step *Step, call *sitter.Node) {
	step.IsDynamic = true
	fn := parser.Unwrap(call.ChildByFieldName("function"))
	if source := parser.Unwrap(fn.ChildByFieldName("object")); source != nil {
		switch source.Kind() {
		case "identifier", "member_expression":
			step.SourceArray = w.doc.Text(source)
		}
	}
	callback := parser.Unwrap(parser.FirstNamedChild(call.ChildByFieldName("arguments")))
	if child := w.representative(callback); child != nil {
		step.Children = []*Step{child}
	}
}

// representative synthesizes the child of a mapped fan-out from the callback
// body: its first bubble action or helper call, else the first call.
func (w *walker) representative(callback *sitter.Node) *Step {
	if !parser.IsFunction(callback) {
		if callback == nil {
			return nil
		}
		return w.element(callback)
	}
	body := callback.ChildByFieldName("body")
	if call := findCall(body, w.isClassified); call != nil {
		return w.element(call)
	}
	if call := findCall(body, func(*sitter.Node) bool { return true }); call != nil {
		return w.element(call)
	}
	return &Step{
		Type:     StepFunctionCall,
		Location: w.doc.Range(body),
		Code:     w.doc.Text(body),
	}
}

func isMapCall(doc *parser.Document, n *sitter.Node) bool {
	if n == nil || n.Kind() != "call_expression" {
		return false
	}
	return memberProperty(doc, n) == "map"
}

func (w *walker) elements(nodes []*sitter.Node) []*Step {
	out := make([]*Step, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, w.element(n))
	}
	return out
}

// element converts one concurrently awaited expression into a child step.
func (w *walker) element(n *sitter.Node) *Step {
	value := parser.Unwrap(n)
	step := &Step{Type: StepFunctionCall, Location: w.doc.Range(n), Code: w.doc.Text(n)}
	if value == nil {
		return step
	}
	switch value.Kind() {
	case "call_expression":
		if classified := w.classified(value); classified != nil {
			classified.Location, classified.Code = step.Location, step.Code
			return classified
		}
		step.FunctionName = w.doc.Text(value.ChildByFieldName("function"))
	case "new_expression":
		if bubble, ok := w.ex.AtSite(value); ok {
			step.VariableID, step.VariableName = bubble.VariableID, bubble.VariableName
		}
	case "identifier":
		if bubble, ok := w.ex.ForDeclaration(w.b.ResolveBinding(value)); ok {
			step.VariableID, step.VariableName = bubble.VariableID, bubble.VariableName
		}
		step.FunctionName = w.doc.Text(value)
	}
	return step
}
