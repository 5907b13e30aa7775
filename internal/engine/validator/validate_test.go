package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/types"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"
)

const coreDeclarations = `declare module '@bubblelab/bubble-core' {
  export abstract class BubbleFlow<T extends string> {
    abstract handle(payload: unknown): Promise<unknown>;
  }
  export class SlackBubble {
    constructor(params: unknown);
    action(): Promise<unknown>;
  }
  export class HttpBubble {
    constructor(params: unknown);
    action(): Promise<unknown>;
  }
}
`

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// fixtureProject writes a project with ambient bubble declarations, a
// script global and a mapped shared module.
func fixtureProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ProjectFileName: `name = "fixture"
include = ["types/**.ts"]

[paths]
"@shared/*" = "shared/*"
`,
		"types/bubble-core.d.ts": coreDeclarations,
		"types/globals.d.ts":     "declare const FLOW_ENV: string;\n",
		"shared/format.ts": `export function format(s: string): string { return s.trim(); }
export interface Shape { id: string }
export * from './more';
`,
		"shared/more.ts": "export const extra = 1;\n",
	})
	return dir
}

func builtinLookup(t *testing.T) registry.Lookup {
	t.Helper()
	reg, err := registry.Builtin()
	require.NoError(t, err)
	return reg
}

func loadFixture(t *testing.T, opts Options) *Project {
	t.Helper()
	if opts.Lookup == nil {
		opts.Lookup = builtinLookup(t)
	}
	project, err := LoadProject(fixtureProject(t), opts)
	require.NoError(t, err)
	t.Cleanup(project.Close)
	return project
}

const cleanFlow = `import { BubbleFlow, SlackBubble } from '@bubblelab/bubble-core';
import { format, extra } from '@shared/format';

export class NotifyFlow extends BubbleFlow<'webhook/http'> {
  async handle(payload: { text: string }) {
    const message = format(payload.text) + FLOW_ENV + extra;
    const result = await new SlackBubble({
      operation: 'send_message',
      channel: 'general',
      text: message,
    }).action();
    return result;
  }
}
`

func TestValidate_CleanRoundTrip(t *testing.T) {
	project := loadFixture(t, Options{})
	ctx := context.Background()

	first, err := project.Validate(ctx, "flow.ts", cleanFlow)
	require.NoError(t, err)
	assert.True(t, first.Success, "unexpected errors: %v", first.Errors)
	assert.Empty(t, first.Errors)
	assert.Equal(t, 1, first.Version)

	second, err := project.Validate(ctx, "flow.ts", cleanFlow)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 2, project.Overlay().Version(filepath.Join(project.Root, "flow.ts")))
}

const badFlow = `import { BubbleFlow, SlackBubble, Missing } from '@bubblelab/bubble-core';
import { nothing } from './nowhere';

export class BadFlow extends BubbleFlow<'webhook/http'> {
  async handle(payload: any) {
    const unusedLocal = 1;
    await this.notify();
    await new SlackBubble({
      operation: 'send_mesage',
      channel: 42,
      colour: 'red',
    }).action();
    return undefinedThing;
  }
}
`

func TestValidate_Diagnostics(t *testing.T) {
	project := loadFixture(t, Options{})

	res, err := project.Validate(context.Background(), "flow.ts", badFlow)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []int{1, 2, 7, 9, 10, 11, 13}, res.Lines())

	assert.Equal(t, `Module '"@bubblelab/bubble-core"' has no exported member 'Missing'.`, res.Errors[1])
	assert.Equal(t, "Cannot find module './nowhere' or its corresponding type declarations.", res.Errors[2])
	assert.Equal(t, "Property 'notify' does not exist on type 'BadFlow'.", res.Errors[7])
	assert.Equal(t, `Type '"send_mesage"' is not assignable to type '"send_message" | "list_channels" | "get_channel_info"'.`, res.Errors[9])
	assert.Equal(t, "Type 'number' is not assignable to type 'string'.", res.Errors[10])
	assert.Equal(t, "Object literal may only specify known properties, and 'colour' does not exist in type 'SlackBubbleParams'.", res.Errors[11])
	assert.Equal(t, "Cannot find name 'undefinedThing'.", res.Errors[13])
	assert.Equal(t, 3, res.Suppressed, "unused imports and locals are policy noise")
}

func TestValidate_NoStaleDiagnostics(t *testing.T) {
	project := loadFixture(t, Options{})
	ctx := context.Background()

	bad, err := project.Validate(ctx, "flow.ts", badFlow)
	require.NoError(t, err)
	require.False(t, bad.Success)

	good, err := project.Validate(ctx, "flow.ts", cleanFlow)
	require.NoError(t, err)
	assert.True(t, good.Success, "unexpected errors: %v", good.Errors)
}

func TestValidate_RequiredAndEnumParams(t *testing.T) {
	project := loadFixture(t, Options{})
	src := `import { BubbleFlow, SlackBubble, HttpBubble } from '@bubblelab/bubble-core';

export class ParamFlow extends BubbleFlow<'webhook/http'> {
  async handle() {
    await new SlackBubble({ operation: 'send_message', channel: 'c' }).action();
    await new HttpBubble({ url: 'https://example.com', method: 'FETCH' }).action();
    const shared = { url: 'x' };
    await new HttpBubble({ ...shared }).action();
  }
}
`
	res, err := project.Validate(context.Background(), "params.ts", src)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, res.Lines())
	assert.Equal(t, `Property 'text' is missing in type '{ operation: "send_message"; channel: string; }' but required in type 'SlackBubbleParams'.`, res.Errors[5])
	assert.Equal(t, `Type '"FETCH"' is not assignable to type '"GET" | "POST" | "PUT" | "PATCH" | "DELETE" | "HEAD" | "OPTIONS"'.`, res.Errors[6])
}

func TestValidate_SuppressionPolicy(t *testing.T) {
	project := loadFixture(t, Options{Suppress: []int{}})
	src := `import { SlackBubble, HttpBubble } from '@bubblelab/bubble-core';
const lonely = 1;
`
	res, err := project.Validate(context.Background(), "unused.ts", src)
	require.NoError(t, err)
	assert.Equal(t, "All imports in import declaration are unused.", res.Errors[1])
	assert.Equal(t, "'lonely' is declared but its value is never read.", res.Errors[2])
	assert.Equal(t, 0, res.Suppressed)
}

func TestValidate_SameLineMessagesAreJoined(t *testing.T) {
	project := loadFixture(t, Options{})
	res, err := project.Validate(context.Background(), "line.ts", "const v = first + second;\nexport { v };\n")
	require.NoError(t, err)
	assert.Equal(t, "Cannot find name 'first'.\nCannot find name 'second'.", res.Errors[1])
}

func TestValidate_SyntaxErrors(t *testing.T) {
	project := loadFixture(t, Options{})
	res, err := project.Validate(context.Background(), "syntax.ts", "const ok = 1;\nconst broken = ;\nexport { ok, broken };\n")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotEmpty(t, res.Diagnostics)
	for _, d := range res.Diagnostics {
		assert.Contains(t, []int{CodeMissingToken, CodeExpressionExpected}, d.Code)
	}
	assert.Contains(t, res.Errors, 2)
}

func TestValidate_UnsupportedPath(t *testing.T) {
	project := loadFixture(t, Options{})
	_, err := project.Validate(context.Background(), "notes.md", "# hi")
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotSupported))
}

func TestValidateSnippet_DropsVirtualFile(t *testing.T) {
	project := loadFixture(t, Options{})
	res, err := project.ValidateSnippet(context.Background(), "export const n: number = missingName;\n")
	require.NoError(t, err)
	assert.Equal(t, "Cannot find name 'missingName'.", res.Errors[1])
	assert.Empty(t, project.Overlay().Paths())
}

func TestModuleCache_ReadsOnce(t *testing.T) {
	project := loadFixture(t, Options{})
	ctx := context.Background()

	_, err := project.Validate(ctx, "flow.ts", cleanFlow)
	require.NoError(t, err)
	before := testutil.ToFloat64(observability.ModuleReads)

	_, err = project.Validate(ctx, "flow.ts", strings.Replace(cleanFlow, "general", "random", 1))
	require.NoError(t, err)
	assert.Equal(t, before, testutil.ToFloat64(observability.ModuleReads))
}

func TestProject_ResolveType(t *testing.T) {
	project := loadFixture(t, Options{})
	doc, err := parser.NewParser(parser.NewGrammarLoader()).Parse(filepath.Join(project.Root, "flow.ts"),
		[]byte("import { Shape } from '@shared/format';\nimport * as core from '@bubblelab/bubble-core';\n"))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	ix := types.Build(doc)

	decl, _, ok := project.ResolveType(ix, "Shape")
	require.True(t, ok)
	assert.Equal(t, types.DeclInterface, decl.Kind)

	decl, _, ok = project.ResolveType(ix, "core.SlackBubble")
	require.True(t, ok)
	assert.Equal(t, types.DeclClass, decl.Kind)

	_, _, ok = project.ResolveType(ix, "Nope")
	assert.False(t, ok)
}

func TestLoadProject_FailsFast(t *testing.T) {
	cases := []struct {
		name  string
		files map[string]string
		key   string
	}{
		{name: "MissingDirectory", key: "missing"},
		{name: "BadToml", files: map[string]string{ProjectFileName: "include = [\n"}},
		{name: "UnknownKey", files: map[string]string{ProjectFileName: "colour = \"red\"\n"}},
		{name: "BadGlob", files: map[string]string{ProjectFileName: "include = [\"[\"]\n"}},
		{name: "NegativeSuppress", files: map[string]string{ProjectFileName: "suppress = [-4]\n"}},
		{name: "BadPaths", files: map[string]string{ProjectFileName: "[paths]\n\"a*b\" = \"x\"\n"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tc.files)
			key := dir
			if tc.key != "" {
				key = filepath.Join(dir, tc.key)
			}
			_, err := NewPool(Options{}).Project(key)
			require.Error(t, err)
			assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidProject), "got %v", err)
		})
	}
}

func TestLoadProject_ConfigFileKey(t *testing.T) {
	dir := fixtureProject(t)
	project, err := LoadProject(filepath.Join(dir, ProjectFileName), Options{})
	require.NoError(t, err)
	defer project.Close()
	assert.Equal(t, dir, project.Root)
	assert.Len(t, project.Files(), 2)
	assert.True(t, project.Suppressed(CodeUnusedDeclaration))
}

func TestPool_EvictionAndReload(t *testing.T) {
	pool := NewPool(Options{Size: 1, Lookup: builtinLookup(t)})
	defer pool.Close()
	a, b := fixtureProject(t), fixtureProject(t)
	ctx := context.Background()

	first, err := pool.Project(a)
	require.NoError(t, err)
	_, err = pool.Project(b)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, pool.Keys())

	_, err = first.Validate(ctx, "flow.ts", cleanFlow)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConflict), "evicted projects are closed")

	res, err := pool.ValidateFile(ctx, a, "flow.ts", cleanFlow)
	require.NoError(t, err)
	assert.True(t, res.Success, "unexpected errors: %v", res.Errors)
}

func TestPool_RetriesOnceAfterEviction(t *testing.T) {
	pool := NewPool(Options{Size: 1, Lookup: builtinLookup(t)})
	defer pool.Close()
	key := fixtureProject(t)
	ctx := context.Background()

	calls := 0
	res, err := pool.withProject(key, func(project *Project) (*Result, error) {
		calls++
		if calls == 1 {
			pool.Evict(key)
		}
		return project.ValidateSnippet(ctx, cleanFlow)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, res.Success, "unexpected errors: %v", res.Errors)

	calls = 0
	_, err = pool.withProject(key, func(project *Project) (*Result, error) {
		calls++
		pool.Evict(key)
		return project.ValidateSnippet(ctx, cleanFlow)
	})
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConflict), "got %v", err)
	assert.Equal(t, 2, calls)

	res, err = pool.ValidateSnippet(ctx, key, cleanFlow)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPool_SerializesPerProject(t *testing.T) {
	pool := NewPool(Options{Lookup: builtinLookup(t)})
	defer pool.Close()
	key := fixtureProject(t)
	ctx := context.Background()

	const callers = 8
	versions := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := pool.Validate(ctx, key, fmt.Sprintf("export const v%d = %d;\n", i, i))
			if assert.NoError(t, err) {
				assert.True(t, res.Success)
				versions <- res.Version
			}
		}(i)
	}
	wg.Wait()
	close(versions)

	seen := make(map[int]bool)
	for v := range versions {
		assert.False(t, seen[v], "version %d handed out twice", v)
		seen[v] = true
	}
	assert.Len(t, seen, callers)

	project, err := pool.Project(key)
	require.NoError(t, err)
	assert.Equal(t, callers, project.Overlay().Version(filepath.Join(key, VirtualPath)))
}
