package bubbles

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Extractor builds ParsedBubble records from a document using an injected
// registry lookup.
type Extractor struct {
	lookup registry.Lookup
}

func NewExtractor(lookup registry.Lookup) *Extractor {
	return &Extractor{lookup: lookup}
}

// Extract returns every registered bubble constructed in doc. Top-level ids
// follow document order starting at 1; nested node ids continue after the
// last top-level id, assigned depth-first.
func (x *Extractor) Extract(doc *parser.Document, b *binding.Bindings) *Extraction {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	}()

	out := newExtraction()
	out.Sites = Classify(doc, b, x.lookup)
	ev := evaluator{doc: doc, b: b}

	type pending struct {
		bubble *ParsedBubble
		entry  *registry.Entry
		args   []argument
	}
	var roots []pending
	rootCounts := make(map[string]int)
	nextID := 0

	for _, site := range out.Sites {
		if site.Kind != SiteRegisteredBubble {
			observability.SitesSkipped.Inc()
			if site.ClassName != "" {
				slog.Debug("skipping unregistered constructor", "class", site.ClassName, "line", doc.Line(site.Node))
			}
			continue
		}
		nextID++
		entry := site.Entry
		args := ev.classifyArguments(site.Node.ChildByFieldName("arguments"))
		stmt := statementOf(site.Node)

		rootCounts[entry.Name]++
		bubble := &ParsedBubble{
			VariableID:  nextID,
			UniqueID:    fmt.Sprintf("%s#%d", entry.Name, rootCounts[entry.Name]),
			ClassName:   entry.ClassName,
			BubbleName:  entry.Name,
			Parameters:  make([]Parameter, 0, len(args)),
			Description: parser.CommentBefore(doc, stmt),
			Location:    doc.Range(stmt),
		}
		for _, arg := range args {
			bubble.Parameters = append(bubble.Parameters, arg.Parameter)
		}

		name, decl := boundName(doc, b, site.Node)
		if name == "" {
			name = fmt.Sprintf("_anonymous_%s_%d", entry.ClassName, nextID)
		}
		bubble.VariableName = name
		if decl != nil {
			out.byDecl[decl] = nextID
		}
		out.bySite[parser.KeyOf(site.Node)] = nextID
		out.Bubbles[nextID] = bubble
		roots = append(roots, pending{bubble: bubble, entry: entry, args: args})
	}

	exp := expander{lookup: x.lookup, ev: ev, nextID: nextID}
	for _, root := range roots {
		root.bubble.DependencyGraph = &DependencyGraphNode{
			Name:       root.entry.Name,
			ClassName:  root.entry.ClassName,
			VariableID: root.bubble.VariableID,
			UniqueID:   root.bubble.UniqueID,
		}
		exp.expand(root.bubble.DependencyGraph, root.entry, root.args, true, []string{root.entry.ClassName})
	}

	observability.BubblesExtracted.Add(float64(len(roots)))
	return out
}

// expander synthesizes nested dependency nodes.
type expander struct {
	lookup registry.Lookup
	ev     evaluator
	nextID int
}

// expand appends the nested dependencies of entry to node. args holds the
// constructor arguments when configured is set; internally created bubbles
// have no visible configuration. ancestry lists the classes from the root to
// node; a class already on it is not descended into again.
func (e *expander) expand(node *DependencyGraphNode, entry *registry.Entry, args []argument, configured bool, ancestry []string) {
	node.Dependencies = make([]*DependencyGraphNode, 0)
	counts := make(map[string]int)
	for _, dep := range e.plan(entry, args, configured, ancestry) {
		child, _ := e.lookup.Entry(dep.Class)
		counts[child.Name]++
		e.nextID++
		childNode := &DependencyGraphNode{
			Name:       child.Name,
			ClassName:  child.ClassName,
			VariableID: e.nextID,
			UniqueID:   fmt.Sprintf("%s.%s#%d", node.UniqueID, child.Name, counts[child.Name]),
		}
		node.Dependencies = append(node.Dependencies, childNode)
		e.expand(childNode, child, nil, false, append(slices.Clone(ancestry), dep.Class))
	}
}

// plan lists one nested dependency per child node, in emission order.
// Dependencies carried by the same literal array follow the array's element
// order; the rest follow the registry's declaration order.
func (e *expander) plan(entry *registry.Entry, args []argument, configured bool, ancestry []string) []registry.NestedDependency {
	var out []registry.NestedDependency
	ordered := make(map[string]bool)
	for _, dep := range entry.Nested {
		if !e.eligible(dep, ancestry) {
			continue
		}
		if !configured || dep.Via == "" {
			out = append(out, dep)
			continue
		}
		if ordered[dep.Via] {
			continue
		}
		if seq, ok := e.byElement(entry, dep.Via, args, ancestry); ok {
			out = append(out, seq...)
			ordered[dep.Via] = true
			continue
		}
		for i := e.instances(dep, args); i > 0; i-- {
			out = append(out, dep)
		}
	}
	return out
}

func (e *expander) eligible(dep registry.NestedDependency, ancestry []string) bool {
	if slices.Contains(ancestry, dep.Class) {
		return false
	}
	_, ok := e.lookup.Entry(dep.Class)
	return ok
}

// byElement walks the literal array passed as via once, emitting every
// dependency carried by via that an element matches. It fails when the
// array or any element match is not statically known.
func (e *expander) byElement(entry *registry.Entry, via string, args []argument, ancestry []string) ([]registry.NestedDependency, bool) {
	var value *sitter.Node
	for _, arg := range args {
		if arg.Source == SourceObjectProperty && arg.Name == via {
			value = arg.node
		}
	}
	if value == nil {
		return nil, false
	}
	elements, ok := e.arrayElements(value, 0)
	if !ok {
		return nil, false
	}
	var out []registry.NestedDependency
	for _, el := range elements {
		for _, dep := range entry.Nested {
			if dep.Via != via || !e.eligible(dep, ancestry) {
				continue
			}
			match, known := e.matches(el, dep.Match, 0)
			if !known {
				return nil, false
			}
			if match {
				out = append(out, dep)
			}
		}
	}
	return out, true
}

// instances counts the configured instances of a nested dependency. An
// unconditional dependency yields one. A carrying parameter that is absent
// yields zero, unless an opaque argument or spread may supply it. A literal
// array yields its matching elements; anything not statically countable
// yields one representative.
func (e *expander) instances(dep registry.NestedDependency, args []argument) int {
	if dep.Via == "" {
		return 1
	}
	var value *sitter.Node
	found, opaque := false, false
	for _, arg := range args {
		switch {
		case arg.Source == SourceObjectProperty && arg.Name == dep.Via:
			value, found = arg.node, true
		case arg.Source == SourceFirstArg || arg.Source == SourceSpread:
			opaque = true
		}
	}
	if !found {
		if opaque {
			return 1
		}
		return 0
	}
	elements, ok := e.arrayElements(value, 0)
	if !ok {
		return 1
	}
	count := 0
	for _, el := range elements {
		match, known := e.matches(el, dep.Match, 0)
		if !known {
			return 1
		}
		if match {
			count++
		}
	}
	return count
}

// arrayElements returns the elements of a literal array, following const
// bindings and flattening spreads of literal arrays.
func (e *expander) arrayElements(n *sitter.Node, depth int) ([]*sitter.Node, bool) {
	n = parser.Unwrap(n)
	if n == nil || depth > maxConstDepth {
		return nil, false
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier":
		decl := e.ev.b.ResolveBinding(n)
		if decl == nil || !decl.Const || decl.Init == nil {
			return nil, false
		}
		return e.arrayElements(decl.Init, depth+1)
	case "array":
		var out []*sitter.Node
		for _, el := range parser.NamedChildren(n) {
			if el.Kind() == "spread_element" {
				inner, ok := e.arrayElements(parser.FirstNamedChild(el), depth+1)
				if !ok {
					return nil, false
				}
				out = append(out, inner...)
				continue
			}
			out = append(out, el)
		}
		return out, true
	}
	return nil, false
}

// matches reports whether an array element selects the dependency. known is
// false when the element's name cannot be determined statically.
func (e *expander) matches(el *sitter.Node, match string, depth int) (matched, known bool) {
	el = parser.Unwrap(el)
	if el == nil || depth > maxConstDepth {
		return false, false
	}
	if match == "" {
		return true, true
	}
	switch el.Kind() {
	case "string", "template_string":
		v, ok := parser.StringValue(e.ev.doc, el)
		return ok && v == match, ok
	case "identifier":
		decl := e.ev.b.ResolveBinding(el)
		if decl == nil || !decl.Const || decl.Init == nil {
			return false, false
		}
		return e.matches(decl.Init, match, depth+1)
	case "object":
		for _, member := range parser.NamedChildren(el) {
			switch member.Kind() {
			case "spread_element":
				return false, false
			case "pair":
				if e.ev.keyName(member.ChildByFieldName("key")) != "name" {
					continue
				}
				v, ok := e.ev.value(member.ChildByFieldName("value"))
				name, isString := v.(string)
				if !ok || !isString {
					return false, false
				}
				return name == match, true
			case "shorthand_property_identifier":
				if e.ev.doc.Text(member) != "name" {
					continue
				}
				v, ok := e.ev.value(member)
				name, isString := v.(string)
				if !ok || !isString {
					return false, false
				}
				return name == match, true
			}
		}
		return false, true
	}
	return false, false
}

// statementOf returns the statement or class member containing n.
func statementOf(n *sitter.Node) *sitter.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil {
			return cur
		}
		switch parent.Kind() {
		case "program", "statement_block", "class_body", "switch_case", "switch_default":
			return cur
		}
	}
	return n
}

var wrapperKinds = map[string]bool{
	"parenthesized_expression": true,
	"await_expression":         true,
	"non_null_expression":      true,
	"as_expression":            true,
	"satisfies_expression":     true,
}

// boundName returns the variable a new expression is assigned to, if any.
func boundName(doc *parser.Document, b *binding.Bindings, newExpr *sitter.Node) (string, *binding.Declaration) {
	cur := newExpr
	parent := cur.Parent()
	for parent != nil && wrapperKinds[parent.Kind()] {
		cur, parent = parent, parent.Parent()
	}
	if parent == nil {
		return "", nil
	}
	switch parent.Kind() {
	case "variable_declarator":
		name := parent.ChildByFieldName("name")
		if name == nil || name.Kind() != "identifier" {
			return "", nil
		}
		return doc.Text(name), b.ResolveBinding(name)
	case "assignment_expression":
		left := parent.ChildByFieldName("left")
		right := parent.ChildByFieldName("right")
		if left == nil || right == nil || parser.KeyOf(right) != parser.KeyOf(cur) {
			return "", nil
		}
		if left.Kind() == "identifier" {
			return doc.Text(left), b.ResolveBinding(left)
		}
		return doc.Text(left), nil
	case "public_field_definition":
		if name := parent.ChildByFieldName("name"); name != nil {
			return doc.Text(name), nil
		}
	}
	return "", nil
}

// SkippedSites counts constructor sites that are not registered bubbles.
func (e *Extraction) SkippedSites() int {
	skipped := 0
	for _, site := range e.Sites {
		if site.Kind != SiteRegisteredBubble {
			skipped++
		}
	}
	return skipped
}
