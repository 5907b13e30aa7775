package bubbles

import (
	"strconv"
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxConstDepth bounds how many const bindings are followed while folding.
const maxConstDepth = 8

// evaluator folds expressions built from literals and const bindings.
type evaluator struct {
	doc *parser.Document
	b   *binding.Bindings
}

func (ev evaluator) value(n *sitter.Node) (any, bool) {
	return ev.fold(n, 0)
}

func (ev evaluator) fold(n *sitter.Node, depth int) (any, bool) {
	n = parser.Unwrap(n)
	if n == nil || depth > maxConstDepth {
		return nil, false
	}
	switch n.Kind() {
	case "string", "template_string":
		return parser.StringValue(ev.doc, n)
	case "number":
		return parseNumber(ev.doc.Text(n))
	case "true":
		return true, true
	case "false":
		return false, true
	case "null", "undefined":
		return nil, true
	case "unary_expression":
		arg := n.ChildByFieldName("argument")
		v, ok := ev.fold(arg, depth)
		if !ok {
			return nil, false
		}
		f, isNum := v.(float64)
		switch {
		case parser.HasToken(n, "-") && isNum:
			return -f, true
		case parser.HasToken(n, "+") && isNum:
			return f, true
		case parser.HasToken(n, "!"):
			return !truthy(v), true
		}
		return nil, false
	case "identifier", "shorthand_property_identifier":
		decl := ev.b.ResolveBinding(n)
		if decl == nil || !decl.Const || decl.Init == nil {
			return nil, false
		}
		return ev.fold(decl.Init, depth+1)
	case "array":
		out := make([]any, 0, n.NamedChildCount())
		for _, el := range parser.NamedChildren(n) {
			if el.Kind() == "spread_element" {
				v, ok := ev.fold(parser.FirstNamedChild(el), depth)
				items, isSlice := v.([]any)
				if !ok || !isSlice {
					return nil, false
				}
				out = append(out, items...)
				continue
			}
			v, ok := ev.fold(el, depth)
			if !ok {
				return nil, false
			}
			out = append(out, v)
		}
		return out, true
	case "object":
		out := make(map[string]any)
		for _, member := range parser.NamedChildren(n) {
			switch member.Kind() {
			case "pair":
				key, ok := ev.key(member.ChildByFieldName("key"), depth)
				if !ok {
					return nil, false
				}
				v, ok := ev.fold(member.ChildByFieldName("value"), depth)
				if !ok {
					return nil, false
				}
				out[key] = v
			case "shorthand_property_identifier":
				decl := ev.b.ResolveBinding(member)
				if decl == nil || !decl.Const || decl.Init == nil {
					return nil, false
				}
				v, ok := ev.fold(decl.Init, depth+1)
				if !ok {
					return nil, false
				}
				out[ev.doc.Text(member)] = v
			case "spread_element":
				v, ok := ev.fold(parser.FirstNamedChild(member), depth)
				fields, isMap := v.(map[string]any)
				if !ok || !isMap {
					return nil, false
				}
				for k, fv := range fields {
					out[k] = fv
				}
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// key resolves a property key: identifiers, strings and numbers verbatim,
// computed keys when they fold to a string or number.
func (ev evaluator) key(n *sitter.Node, depth int) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case "property_identifier", "private_property_identifier":
		return ev.doc.Text(n), true
	case "string":
		return parser.StringValue(ev.doc, n)
	case "number":
		return ev.doc.Text(n), true
	case "computed_property_name":
		v, ok := ev.fold(parser.FirstNamedChild(n), depth)
		if !ok {
			return "", false
		}
		switch val := v.(type) {
		case string:
			return val, true
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), true
		}
	}
	return "", false
}

// keyName names an object property: the static key when known, otherwise
// the key text without brackets.
func (ev evaluator) keyName(n *sitter.Node) string {
	if name, ok := ev.key(n, 0); ok {
		return name
	}
	if n == nil {
		return ""
	}
	if n.Kind() == "computed_property_name" {
		return strings.TrimSpace(ev.doc.Text(parser.FirstNamedChild(n)))
	}
	return ev.doc.Text(n)
}

func parseNumber(text string) (any, bool) {
	text = strings.ReplaceAll(text, "_", "")
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f, true
	}
	if i, err := strconv.ParseInt(strings.TrimSuffix(text, "n"), 0, 64); err == nil {
		return float64(i), true
	}
	return nil, false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	}
	return true
}

// valueType classifies the shape of an expression.
func valueType(n *sitter.Node) ValueType {
	n = parser.Unwrap(n)
	if n == nil {
		return TypeExpression
	}
	switch n.Kind() {
	case "string", "template_string":
		return TypeString
	case "number":
		return TypeNumber
	case "true", "false":
		return TypeBoolean
	case "null", "undefined":
		return TypeNull
	case "array":
		return TypeArray
	case "object":
		return TypeObject
	case "identifier", "shorthand_property_identifier", "member_expression", "subscript_expression", "this":
		return TypeVariable
	case "unary_expression":
		if inner := valueType(n.ChildByFieldName("argument")); inner == TypeNumber {
			return TypeNumber
		}
	}
	return TypeExpression
}

func isLiteral(n *sitter.Node) bool {
	switch valueType(n) {
	case TypeString, TypeNumber, TypeBoolean, TypeNull:
		n = parser.Unwrap(n)
		return n.Kind() != "template_string" || parser.ChildOfKind(n, "template_substitution") == nil
	}
	return false
}
