package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/app"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/config"
	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/core/ports"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/validator"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/workflow"
)

const flowSource = `import { BubbleFlow, SlackBubble } from '@bubblelab/bubble-core';

interface Payload {
  /** Where to post */
  channel: string;
}

export class PostFlow extends BubbleFlow<'webhook/http'> {
  async handle(payload: Payload) {
    const slack = new SlackBubble({ operation: 'send_message', channel: payload.channel, text: 'hi' });
    await slack.action();
  }
}
`

const coreDeclarations = `declare module '@bubblelab/bubble-core' {
  export abstract class BubbleFlow<T extends string> {
    abstract handle(payload: unknown): Promise<unknown>;
  }
  export class SlackBubble {
    constructor(params: unknown);
    action(): Promise<unknown>;
  }
}
`

func writeProject(t *testing.T, flow string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		validator.ProjectFileName: "include = [\"types/**.ts\"]\n",
		"types/core.d.ts":         coreDeclarations,
		"flow.ts":                 flow,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir, filepath.Join(dir, "flow.ts")
}

// execute runs the root command with args and a missing config file so
// defaults apply.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagProject, flagSummary, flagOpenAPI, flagCheck = "", false, false, ""
	flagValidateJSON, flagRegistryJSON, flagHealth = false, false, false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.toml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	_, flow := writeProject(t, flowSource)
	out, err := execute(t, "analyze", flow)
	require.NoError(t, err)

	var result struct {
		EntryClass string                     `json:"entryClass"`
		Bubbles    map[string]json.RawMessage `json:"bubbles"`
		Workflow   struct {
			Root []json.RawMessage `json:"root"`
		} `json:"workflow"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "PostFlow", result.EntryClass)
	assert.Len(t, result.Bubbles, 1)
	assert.Len(t, result.Workflow.Root, 1)
}

func TestAnalyzeCommand_Summary(t *testing.T) {
	_, flow := writeProject(t, flowSource)
	out, err := execute(t, "analyze", flow, "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "PostFlow")
	assert.Contains(t, out, "bubbles (1)")
	assert.Contains(t, out, "channel: string")
}

func TestValidateCommand(t *testing.T) {
	dir, flow := writeProject(t, flowSource)
	out, err := execute(t, "validate", flow, "--project", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")

	_, broken := writeProject(t, flowSource+"\nconst x = missingName;\n")
	out, err = execute(t, "validate", broken, "--project", filepath.Dir(broken), "--json")
	var exit exitError
	require.True(t, errors.As(err, &exit), "expected exit error, got %v", err)

	var result validator.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[15], "Cannot find name 'missingName'.")
}

func TestSchemaCommand(t *testing.T) {
	_, flow := writeProject(t, flowSource)
	out, err := execute(t, "schema", flow)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []any{"channel"}, doc["required"])

	out, err = execute(t, "schema", flow, "--openapi")
	require.NoError(t, err)
	assert.Contains(t, out, "\"title\": \"Payload\"")

	good := filepath.Join(t.TempDir(), "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"channel":"general"}`), 0o644))
	_, err = execute(t, "schema", flow, "--check", good)
	require.NoError(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"channel":3}`), 0o644))
	_, err = execute(t, "schema", flow, "--check", bad)
	var exit exitError
	assert.True(t, errors.As(err, &exit))
}

func TestRegistryCommand(t *testing.T) {
	out, err := execute(t, "registry")
	require.NoError(t, err)
	assert.Contains(t, out, "SlackBubble")
	assert.Contains(t, out, "send_message")
}

func TestVersionCommand_Health(t *testing.T) {
	out, err := execute(t, "version", "--health")
	require.NoError(t, err)
	assert.Contains(t, out, appName+" v"+Version)
	assert.Contains(t, out, "\"registry\"")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.Log{Level: "warn", Format: "text"}, false, "")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger = newLogger(&buf, config.Log{Level: "warn"}, true, "json")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	logger.Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestObservabilityServer_Health(t *testing.T) {
	a, err := app.New(config.DefaultConfig())
	require.NoError(t, err)
	defer a.Close()

	srv := newObservabilityServer("", app.NewHealthService(a))
	rec := httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)

	rec = httptest.NewRecorder()
	srv.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bubbleflow_")
}

func TestRenderReport(t *testing.T) {
	assert.Contains(t, renderReport(ports.WatchReport{Path: "a.ts", Removed: true}), "removed a.ts")

	rep := ports.WatchReport{
		Path: "b.ts",
		Analysis: &ports.ParseResult{
			Bubbles:  map[int]*bubbles.ParsedBubble{1: {VariableID: 1}},
			Workflow: &workflow.Workflow{Root: []*workflow.Step{{Type: workflow.StepFunctionCall, Location: parser.LineRange{Start: 2, End: 2}}}},
		},
		Validation: &validator.Result{Success: false, Errors: map[int]string{3: "first\nsecond"}},
	}
	out := renderReport(rep)
	assert.Contains(t, out, "3: first")
	assert.Contains(t, out, "3: second")
	assert.Contains(t, out, "1 bubbles, 1 steps")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(coreerrors.New(coreerrors.CodeParseFailed, "syntax")))
	assert.Equal(t, 2, exitCode(coreerrors.New(coreerrors.CodeInvalidProject, "bad project")))
	assert.Equal(t, 1, exitCode(coreerrors.New(coreerrors.CodeNotFound, "missing")))
	assert.Equal(t, 1, exitCode(errors.New("plain")))
	assert.Equal(t, 1, exitCode(exitError{reason: "validation failed"}))
}
