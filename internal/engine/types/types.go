// Package types converts TypeScript type syntax into a small structural model
// and indexes the type-level declarations of a document.
package types

import (
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Kind string

const (
	KindString       Kind = "string"
	KindNumber       Kind = "number"
	KindBoolean      Kind = "boolean"
	KindNull         Kind = "null"
	KindUndefined    Kind = "undefined"
	KindAny          Kind = "any"
	KindUnknown      Kind = "unknown"
	KindVoid         Kind = "void"
	KindNever        Kind = "never"
	KindArray        Kind = "array"
	KindTuple        Kind = "tuple"
	KindObject       Kind = "object"
	KindRef          Kind = "ref"
	KindUnion        Kind = "union"
	KindIntersection Kind = "intersection"
	KindLiteral      Kind = "literal"
	KindFunction     Kind = "function"
)

type Type struct {
	Kind Kind
	// Name is the referenced name for refs.
	Name string
	// Literal holds the unquoted value of a literal type, LiteralKind its base.
	Literal     string
	LiteralKind Kind
	Elem        *Type
	// Members holds union, intersection and tuple members, or the type
	// arguments of a ref.
	Members []*Type
	Props   []Property
	Text    string
}

type Property struct {
	Name     string
	Optional bool
	Type     *Type
	Doc      string
	Line     int
}

var primitives = map[string]Kind{
	"string":    KindString,
	"number":    KindNumber,
	"bigint":    KindNumber,
	"boolean":   KindBoolean,
	"null":      KindNull,
	"undefined": KindUndefined,
	"any":       KindAny,
	"unknown":   KindUnknown,
	"void":      KindVoid,
	"never":     KindNever,
	"object":    KindObject,
	"symbol":    KindAny,
}

// FromNode converts a type node. Unsupported syntax becomes any.
func FromNode(doc *parser.Document, n *sitter.Node) *Type {
	if n == nil {
		return &Type{Kind: KindAny}
	}
	text := doc.Text(n)
	switch n.Kind() {
	case "type_annotation", "parenthesized_type", "readonly_type", "opting_type_annotation", "omitting_type_annotation":
		return FromNode(doc, parser.FirstNamedChild(n))
	case "predefined_type":
		if kind, ok := primitives[text]; ok {
			return &Type{Kind: kind, Text: text}
		}
		return &Type{Kind: KindAny, Text: text}
	case "type_identifier", "nested_type_identifier", "identifier":
		return &Type{Kind: KindRef, Name: text, Text: text}
	case "generic_type":
		name := doc.Text(n.ChildByFieldName("name"))
		var args []*Type
		for _, arg := range parser.NamedChildren(n.ChildByFieldName("type_arguments")) {
			args = append(args, FromNode(doc, arg))
		}
		if (name == "Array" || name == "ReadonlyArray") && len(args) == 1 {
			return &Type{Kind: KindArray, Elem: args[0], Text: text}
		}
		return &Type{Kind: KindRef, Name: name, Members: args, Text: text}
	case "array_type":
		return &Type{Kind: KindArray, Elem: FromNode(doc, parser.FirstNamedChild(n)), Text: text}
	case "tuple_type":
		t := &Type{Kind: KindTuple, Text: text}
		for _, member := range parser.NamedChildren(n) {
			t.Members = append(t.Members, FromNode(doc, member))
		}
		return t
	case "union_type", "intersection_type":
		kind := KindUnion
		if n.Kind() == "intersection_type" {
			kind = KindIntersection
		}
		t := &Type{Kind: kind, Text: text}
		for _, member := range parser.NamedChildren(n) {
			m := FromNode(doc, member)
			if m.Kind == kind {
				t.Members = append(t.Members, m.Members...)
				continue
			}
			t.Members = append(t.Members, m)
		}
		return t
	case "literal_type":
		return literal(doc, parser.FirstNamedChild(n))
	case "template_literal_type":
		return &Type{Kind: KindString, Text: text}
	case "object_type":
		return &Type{Kind: KindObject, Props: objectMembers(doc, n), Text: text}
	case "function_type", "constructor_type":
		return &Type{Kind: KindFunction, Text: text}
	}
	return &Type{Kind: KindAny, Text: text}
}

func literal(doc *parser.Document, n *sitter.Node) *Type {
	if n == nil {
		return &Type{Kind: KindAny}
	}
	text := doc.Text(n)
	t := &Type{Kind: KindLiteral, Literal: text, Text: text}
	switch n.Kind() {
	case "string", "template_string":
		t.LiteralKind = KindString
		t.Literal, _ = parser.StringValue(doc, n)
	case "number", "unary_expression":
		t.LiteralKind = KindNumber
	case "true", "false":
		t.LiteralKind = KindBoolean
	case "null":
		return &Type{Kind: KindNull, Text: text}
	case "undefined":
		return &Type{Kind: KindUndefined, Text: text}
	default:
		return &Type{Kind: KindAny, Text: text}
	}
	return t
}

// objectMembers converts the members of an object type or interface body.
func objectMembers(doc *parser.Document, body *sitter.Node) []Property {
	var props []Property
	for _, member := range parser.NamedChildren(body) {
		switch member.Kind() {
		case "property_signature":
			props = append(props, Property{
				Name:     propertyName(doc, member.ChildByFieldName("name")),
				Optional: parser.HasToken(member, "?"),
				Type:     FromNode(doc, member.ChildByFieldName("type")),
				Doc:      parser.CommentBefore(doc, member),
				Line:     doc.Line(member),
			})
		case "method_signature":
			props = append(props, Property{
				Name:     propertyName(doc, member.ChildByFieldName("name")),
				Optional: parser.HasToken(member, "?"),
				Type:     &Type{Kind: KindFunction, Text: doc.Text(member)},
				Doc:      parser.CommentBefore(doc, member),
				Line:     doc.Line(member),
			})
		}
	}
	return props
}

func propertyName(doc *parser.Document, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if value, ok := parser.StringValue(doc, n); ok {
		return value
	}
	return doc.Text(n)
}

// String renders t in TypeScript syntax.
func (t *Type) String() string {
	if t == nil {
		return "any"
	}
	if t.Text != "" {
		return t.Text
	}
	switch t.Kind {
	case KindRef:
		return t.Name
	case KindArray:
		return t.Elem.String() + "[]"
	case KindLiteral:
		if t.LiteralKind == KindString {
			return "'" + t.Literal + "'"
		}
		return t.Literal
	case KindUnion, KindIntersection:
		sep := " | "
		if t.Kind == KindIntersection {
			sep = " & "
		}
		parts := make([]string, 0, len(t.Members))
		for _, m := range t.Members {
			parts = append(parts, m.String())
		}
		return strings.Join(parts, sep)
	}
	return string(t.Kind)
}

// StringLiterals returns the values of a union made only of string literals.
func (t *Type) StringLiterals() ([]string, bool) {
	if t == nil {
		return nil, false
	}
	members := []*Type{t}
	if t.Kind == KindUnion {
		members = t.Members
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.Kind != KindLiteral || m.LiteralKind != KindString {
			return nil, false
		}
		out = append(out, m.Literal)
	}
	return out, true
}

// WithoutNullish drops null and undefined members from a union.
func (t *Type) WithoutNullish() *Type {
	if t == nil || t.Kind != KindUnion {
		return t
	}
	var kept []*Type
	for _, m := range t.Members {
		if m.Kind != KindNull && m.Kind != KindUndefined {
			kept = append(kept, m)
		}
	}
	switch len(kept) {
	case 0:
		return t
	case 1:
		return kept[0]
	case len(t.Members):
		return t
	}
	return &Type{Kind: KindUnion, Members: kept}
}

// Nullable reports whether a union admits null or undefined.
func (t *Type) Nullable() bool {
	if t == nil || t.Kind != KindUnion {
		return false
	}
	for _, m := range t.Members {
		if m.Kind == KindNull || m.Kind == KindUndefined {
			return true
		}
	}
	return false
}
