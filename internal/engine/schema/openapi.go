package schema

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// TagsExtension carries verbatim doc-comment tags on generated schemas.
const TagsExtension = "x-bubble-tags"

// OpenAPI renders the payload as an OpenAPI object schema.
func (s *PayloadSchema) OpenAPI() *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	if s == nil {
		return out
	}
	if s.TypeName != "" {
		out.Title = s.TypeName
	}
	for _, name := range s.order {
		p := s.Properties[name]
		out.WithProperty(name, p.OpenAPI())
		if p.Required {
			out.Required = append(out.Required, name)
		}
	}
	return out
}

// OpenAPI renders a single property.
func (p *Property) OpenAPI() *openapi3.Schema {
	var out *openapi3.Schema
	switch p.Type {
	case "string":
		out = openapi3.NewStringSchema()
	case "number":
		out = openapi3.NewFloat64Schema()
	case "boolean":
		out = openapi3.NewBoolSchema()
	case "array":
		out = openapi3.NewArraySchema()
		if p.Items != nil {
			out.WithItems(p.Items.OpenAPI())
		}
	case "object":
		out = openapi3.NewObjectSchema()
		for _, name := range p.order {
			child := p.Properties[name]
			out.WithProperty(name, child.OpenAPI())
			if child.Required {
				out.Required = append(out.Required, name)
			}
		}
	case "null":
		out = openapi3.NewSchema().WithNullable()
	default:
		out = openapi3.NewSchema()
	}
	if len(p.Enum) > 0 {
		values := make([]interface{}, len(p.Enum))
		for i, v := range p.Enum {
			values[i] = v
		}
		out.WithEnum(values...)
	}
	if p.Nullable {
		out.WithNullable()
	}
	out.Description = p.Description
	if len(p.Tags) > 0 {
		out.Extensions = map[string]interface{}{TagsExtension: p.Tags}
	}
	return out
}

// JSONSchema renders the payload as a generic map, the form tool manifests
// and the CLI emit.
func (s *PayloadSchema) JSONSchema() (map[string]any, error) {
	data, err := json.Marshal(s.OpenAPI())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out, nil
}

// Check validates a decoded JSON payload against the schema.
func (s *PayloadSchema) Check(payload any) error {
	return s.OpenAPI().VisitJSON(payload, openapi3.MultiErrors())
}
