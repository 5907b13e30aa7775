// Package schema describes the declared input type of a flow's entry method.
package schema

import (
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/flow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/types"
)

// maxDepth bounds nested property expansion.
const maxDepth = 6

type Property struct {
	Type        string               `json:"type"`
	TSType      string               `json:"tsType,omitempty"`
	Required    bool                 `json:"required"`
	Nullable    bool                 `json:"nullable,omitempty"`
	Description string               `json:"description,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Line        int                  `json:"line,omitempty"`

	order []string
}

// Names returns nested property names in declaration order.
func (p *Property) Names() []string {
	return append([]string(nil), p.order...)
}

type PayloadSchema struct {
	TypeName   string               `json:"typeName,omitempty"`
	Properties map[string]*Property `json:"properties"`

	order []string
}

// Names returns property names in declaration order.
func (s *PayloadSchema) Names() []string {
	return append([]string(nil), s.order...)
}

// Extract resolves the declared type of the entry method's first parameter.
// r resolves names the document imports; nil restricts resolution to local
// declarations. An untyped or unresolvable parameter yields an empty schema.
func Extract(doc *parser.Document, entry *flow.Entry, r types.Resolver) *PayloadSchema {
	out := &PayloadSchema{Properties: make(map[string]*Property)}
	if entry == nil || entry.ParamType == nil {
		return out
	}
	ix := types.Build(doc)
	declared := types.FromNode(doc, entry.ParamType)
	if declared.Kind == types.KindRef {
		out.TypeName = declared.Name
	}
	c := converter{r: r, visited: make(map[string]bool)}
	props, ok := ix.PropertiesOf(declared, r)
	if !ok {
		return out
	}
	for _, p := range props {
		out.Properties[p.Name] = c.property(ix, p, 0)
		out.order = append(out.order, p.Name)
	}
	return out
}

type converter struct {
	r       types.Resolver
	visited map[string]bool
}

func (c *converter) property(ix *types.Index, p types.Property, depth int) *Property {
	prop := c.shape(ix, p.Type, depth)
	prop.Required = !p.Optional && !includesUndefined(p.Type)
	prop.Line = p.Line
	prop.Description, prop.Tags = parser.ParseDocComment(p.Doc)
	return prop
}

// shape converts a type into a property without presence information.
func (c *converter) shape(ix *types.Index, t *types.Type, depth int) *Property {
	prop := &Property{TSType: t.String()}
	if t.Nullable() {
		prop.Nullable = true
		t = t.WithoutNullish()
	}
	switch t.Kind {
	case types.KindString, types.KindNumber, types.KindBoolean, types.KindNull:
		prop.Type = string(t.Kind)
	case types.KindLiteral:
		prop.Type = string(t.LiteralKind)
		prop.Enum = []string{t.Literal}
	case types.KindArray:
		prop.Type = "array"
		prop.Items = c.shape(ix, t.Elem, depth+1)
	case types.KindTuple:
		prop.Type = "array"
	case types.KindUnion:
		if values, ok := t.StringLiterals(); ok {
			prop.Type = "string"
			prop.Enum = values
			break
		}
		prop.Type = "any"
	case types.KindRef:
		c.ref(ix, t, prop, depth)
	case types.KindObject, types.KindIntersection:
		prop.Type = "object"
		c.nested(ix, t, prop, depth)
	default:
		prop.Type = "any"
	}
	return prop
}

func (c *converter) ref(ix *types.Index, t *types.Type, prop *Property, depth int) {
	switch t.Name {
	case "Date":
		prop.Type = "string"
		return
	case "Record", "Map":
		prop.Type = "object"
		return
	case "File", "Blob", "Buffer":
		prop.Type = "string"
		return
	}
	under, uix := ix.Underlying(t, c.r)
	if under != t {
		shaped := c.shape(uix, under, depth)
		shaped.TSType = prop.TSType
		shaped.Nullable = shaped.Nullable || prop.Nullable
		*prop = *shaped
		return
	}
	d, dix, ok := ix.Resolve(t.Name, c.r)
	if !ok {
		prop.Type = "any"
		return
	}
	if d.Kind == types.DeclEnum {
		prop.Type = "string"
		prop.Enum = d.Enum
		return
	}
	prop.Type = "object"
	c.nested(dix, &types.Type{Kind: types.KindRef, Name: d.Name}, prop, depth)
}

// nested fills prop.Properties from an object-like type. Recursion through a
// named type already being expanded stops with an empty object.
func (c *converter) nested(ix *types.Index, t *types.Type, prop *Property, depth int) {
	if depth >= maxDepth {
		return
	}
	if t.Kind == types.KindRef {
		if c.visited[t.Name] {
			return
		}
		c.visited[t.Name] = true
		defer delete(c.visited, t.Name)
	}
	props, ok := ix.PropertiesOf(t, c.r)
	if !ok {
		return
	}
	prop.Properties = make(map[string]*Property, len(props))
	for _, p := range props {
		prop.Properties[p.Name] = c.property(ix, p, depth+1)
		prop.order = append(prop.order, p.Name)
	}
}

func includesUndefined(t *types.Type) bool {
	if t == nil || t.Kind != types.KindUnion {
		return false
	}
	for _, m := range t.Members {
		if m.Kind == types.KindUndefined {
			return true
		}
	}
	return false
}

// Tag returns the first verbatim tag line starting with name, such as
// "@default".
func (p *Property) Tag(name string) (string, bool) {
	for _, tag := range p.Tags {
		if tag == name || strings.HasPrefix(tag, name+" ") {
			return tag, true
		}
	}
	return "", false
}
