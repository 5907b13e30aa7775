package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Walk visits n and its descendants in document order. Returning false from
// visit skips the node's children.
func Walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		Walk(n.Child(i), visit)
	}
}

// NodeHandler processes a node during a dispatched walk.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(node *sitter.Node) bool

// Dispatcher walks the syntax tree and dispatches node handlers by kind.
type Dispatcher struct {
	handlers map[string]NodeHandler
}

func NewDispatcher(handlers map[string]NodeHandler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

func (d *Dispatcher) Walk(node *sitter.Node) {
	if node == nil {
		return
	}
	if handler, ok := d.handlers[node.Kind()]; ok && handler(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		d.Walk(node.Child(i))
	}
}

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// FirstNamedChild returns the first non-comment named child.
func FirstNamedChild(n *sitter.Node) *sitter.Node {
	children := NamedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// ChildOfKind returns the first named child whose kind is one of kinds.
func ChildOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	for _, child := range NamedChildren(n) {
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// HasToken reports whether n has a direct anonymous child token such as "?",
// "const" or "type".
func HasToken(n *sitter.Node, token string) bool {
	if n == nil {
		return false
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}

// Unwrap strips wrappers that do not change which value an expression yields.
func Unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "parenthesized_expression", "await_expression", "non_null_expression":
			n = FirstNamedChild(n)
		case "as_expression", "satisfies_expression":
			n = n.NamedChild(0)
		default:
			return n
		}
	}
	return nil
}

var functionKinds = map[string]bool{
	"arrow_function":                 true,
	"function_expression":            true,
	"function":                       true,
	"function_declaration":           true,
	"generator_function":             true,
	"generator_function_declaration": true,
	"method_definition":              true,
}

func IsFunction(n *sitter.Node) bool {
	return n != nil && functionKinds[n.Kind()]
}

// Enclosing returns the nearest ancestor of n whose kind is one of kinds.
func Enclosing(n *sitter.Node, kinds ...string) *sitter.Node {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		for _, kind := range kinds {
			if cur.Kind() == kind {
				return cur
			}
		}
	}
	return nil
}

// Contains reports whether inner lies within outer's byte span.
func Contains(outer, inner *sitter.Node) bool {
	if outer == nil || inner == nil {
		return false
	}
	return inner.StartByte() >= outer.StartByte() && inner.EndByte() <= outer.EndByte()
}

// StringValue returns the content of a string literal or a template string
// without substitutions.
func StringValue(doc *Document, n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case "string":
		return trimQuoted(doc.Text(n)), true
	case "template_string":
		if ChildOfKind(n, "template_substitution") != nil {
			return "", false
		}
		return strings.Trim(doc.Text(n), "`"), true
	}
	return "", false
}

func trimQuoted(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}
