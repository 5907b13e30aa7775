package schema

import (
	"encoding/json"
	"testing"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/flow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *parser.Document {
	t.Helper()
	doc, err := parser.NewParser(parser.NewGrammarLoader()).Parse(path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

const ticketFlow = `import { BubbleFlow } from '@bubblelab/bubble-core';

enum Priority {
  Low = 'low',
  High = 'high',
}

interface Reporter {
  email: string;
  name?: string;
}

interface Base {
  /** Tenant identifier */
  tenant: string;
}

interface TicketPayload extends Base {
  /**
   * Short summary shown in the queue
   * @canBeFile false
   */
  title: string;
  body: string | undefined;
  priority: Priority;
  channel: 'email' | 'chat';
  labels?: string[];
  reporter: Reporter;
  dueAt: Date | null;
  extra: Unknown;
}

export class TicketFlow extends BubbleFlow<'webhook/http'> {
  async handle(payload: TicketPayload) {
    return payload.title;
  }
}
`

func TestExtract_Payload(t *testing.T) {
	doc := parse(t, "flow.ts", ticketFlow)
	got := Extract(doc, flow.Locate(doc), nil)

	assert.Equal(t, "TicketPayload", got.TypeName)
	assert.Equal(t, []string{"tenant", "title", "body", "priority", "channel", "labels", "reporter", "dueAt", "extra"}, got.Names())

	tenant := got.Properties["tenant"]
	assert.Equal(t, "string", tenant.Type)
	assert.True(t, tenant.Required)
	assert.Equal(t, "Tenant identifier", tenant.Description)

	title := got.Properties["title"]
	assert.Equal(t, "Short summary shown in the queue", title.Description)
	assert.Equal(t, []string{"@canBeFile false"}, title.Tags)
	tag, ok := title.Tag("@canBeFile")
	assert.True(t, ok)
	assert.Equal(t, "@canBeFile false", tag)

	assert.False(t, got.Properties["body"].Required, "undefined unions are optional")
	assert.Equal(t, []string{"low", "high"}, got.Properties["priority"].Enum)
	assert.Equal(t, []string{"email", "chat"}, got.Properties["channel"].Enum)

	labels := got.Properties["labels"]
	assert.False(t, labels.Required)
	assert.Equal(t, "array", labels.Type)
	require.NotNil(t, labels.Items)
	assert.Equal(t, "string", labels.Items.Type)

	reporter := got.Properties["reporter"]
	assert.Equal(t, "object", reporter.Type)
	assert.Equal(t, []string{"email", "name"}, reporter.Names())
	assert.False(t, reporter.Properties["name"].Required)

	due := got.Properties["dueAt"]
	assert.Equal(t, "string", due.Type)
	assert.True(t, due.Nullable)

	assert.Equal(t, "any", got.Properties["extra"].Type)
}

func TestExtract_NoEntryOrType(t *testing.T) {
	doc := parse(t, "flow.ts", "export class Plain extends BubbleFlow<'webhook/http'> {\n  async handle(payload) {}\n}\n")
	got := Extract(doc, flow.Locate(doc), nil)
	assert.Empty(t, got.Properties)
	assert.Empty(t, got.TypeName)

	assert.Empty(t, Extract(doc, nil, nil).Properties)
}

func TestExtract_InlineAndRecursive(t *testing.T) {
	doc := parse(t, "flow.ts", `interface Node { value: number; next?: Node }
export class Walk extends BubbleFlow<'webhook/http'> {
  async handle(payload: { head: Node; dryRun: boolean }) {}
}
`)
	got := Extract(doc, flow.Locate(doc), nil)
	assert.Empty(t, got.TypeName)
	assert.Equal(t, []string{"head", "dryRun"}, got.Names())

	head := got.Properties["head"]
	assert.Equal(t, []string{"value", "next"}, head.Names())
	next := head.Properties["next"]
	assert.Equal(t, "object", next.Type)
	assert.Empty(t, next.Properties, "recursion through Node stops")
}

type singleResolver struct{ ix *types.Index }

func (r singleResolver) ResolveType(_ *types.Index, name string) (*types.Decl, *types.Index, bool) {
	d, ok := r.ix.Lookup(name)
	if !ok {
		return nil, nil, false
	}
	return d, r.ix, true
}

func TestExtract_ImportedPayload(t *testing.T) {
	shared := types.Build(parse(t, "shared.ts", "export interface Shared { id: string; count?: number }\n"))
	doc := parse(t, "flow.ts", `import { Shared } from './shared';
export class Imported extends BubbleFlow<'webhook/http'> {
  async handle(payload: Shared) {}
}
`)
	got := Extract(doc, flow.Locate(doc), singleResolver{shared})
	assert.Equal(t, []string{"id", "count"}, got.Names())
	assert.Equal(t, "number", got.Properties["count"].Type)
}

func TestOpenAPI(t *testing.T) {
	doc := parse(t, "flow.ts", ticketFlow)
	got := Extract(doc, flow.Locate(doc), nil)

	schema, err := got.JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, "TicketPayload", schema["title"])
	assert.ElementsMatch(t, []any{"tenant", "title", "priority", "channel", "reporter", "dueAt", "extra"}, schema["required"])

	props := schema["properties"].(map[string]any)
	title := props["title"].(map[string]any)
	assert.Equal(t, "string", title["type"])
	assert.Equal(t, []any{"@canBeFile false"}, title[TagsExtension])
	assert.Equal(t, []any{"low", "high"}, props["priority"].(map[string]any)["enum"])
	assert.Equal(t, true, props["dueAt"].(map[string]any)["nullable"])

	var payload any
	require.NoError(t, json.Unmarshal([]byte(`{"tenant":"t","title":"x","priority":"low","channel":"chat","reporter":{"email":"a@b"},"dueAt":null,"extra":1}`), &payload))
	assert.NoError(t, got.Check(payload))

	require.NoError(t, json.Unmarshal([]byte(`{"tenant":"t","title":"x","priority":"urgent","channel":"chat","reporter":{},"dueAt":null,"extra":1}`), &payload))
	assert.Error(t, got.Check(payload))
}
