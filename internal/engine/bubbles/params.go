package bubbles

import (
	"fmt"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// argument is a classified parameter with the node its value came from.
type argument struct {
	Parameter
	node *sitter.Node
}

// classifyArguments maps every constructor argument to exactly one parameter,
// destructuring an object-literal first argument property by property.
func (ev evaluator) classifyArguments(args *sitter.Node) []argument {
	var out []argument
	for i, arg := range parser.NamedChildren(args) {
		if i == 0 {
			out = append(out, ev.firstArgument(arg)...)
			continue
		}
		name := fmt.Sprintf("arg%d", i)
		source := SourceVariable
		if isLiteral(arg) {
			source = SourceLiteral
		}
		out = append(out, ev.argument(name, source, arg, arg))
	}
	return out
}

func (ev evaluator) firstArgument(arg *sitter.Node) []argument {
	value := parser.Unwrap(arg)
	switch {
	case value != nil && value.Kind() == "identifier":
		p := ev.argument(ev.doc.Text(value), SourceFirstArg, arg, arg)
		p.Type = TypeVariable
		return []argument{p}
	case value != nil && value.Kind() == "object":
		return ev.objectProperties(value)
	case isLiteral(arg):
		return []argument{ev.argument("arg0", SourceLiteral, arg, arg)}
	}
	return []argument{ev.argument("arg0", SourceFirstArg, arg, arg)}
}

func (ev evaluator) objectProperties(obj *sitter.Node) []argument {
	var out []argument
	for _, member := range parser.NamedChildren(obj) {
		switch member.Kind() {
		case "pair":
			key := member.ChildByFieldName("key")
			value := member.ChildByFieldName("value")
			out = append(out, ev.argument(ev.keyName(key), SourceObjectProperty, member, value))
		case "shorthand_property_identifier":
			out = append(out, ev.argument(ev.doc.Text(member), SourceObjectProperty, member, member))
		case "spread_element":
			inner := parser.FirstNamedChild(member)
			p := ev.argument(ev.doc.Text(inner), SourceSpread, member, inner)
			out = append(out, p)
		case "method_definition":
			name := ev.keyName(member.ChildByFieldName("name"))
			p := ev.argument(name, SourceObjectProperty, member, member)
			p.Type = TypeExpression
			out = append(out, p)
		}
	}
	return out
}

// argument builds a parameter. site spans the whole argument or property;
// value is the expression holding its value.
func (ev evaluator) argument(name string, source ParamSource, site, value *sitter.Node) argument {
	p := argument{
		Parameter: Parameter{
			Name:     name,
			Source:   source,
			Type:     valueType(value),
			Value:    ev.doc.Text(value),
			Location: ev.doc.Range(site),
		},
		node: value,
	}
	if v, ok := ev.value(value); ok {
		p.Resolved = v
		p.Static = true
	}
	return p
}
