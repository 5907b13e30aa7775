package workflow

import (
	"testing"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/flow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportFlow = `import { BubbleFlow, SlackBubble, HttpBubble } from '@bubblelab/bubble-core';

export class ReportFlow extends BubbleFlow<'webhook/http'> {
  async handle(payload: Payload) {
    const range = this.timeRange(payload.days);
    const slack = new SlackBubble({ operation: 'send_message', channel: 'c', text: 't' });
    // Fetch both
    const [a, b] = await Promise.all([fetchA(), new HttpBubble({ url: 'x' }).action(), this.fetchAll()]);
    const tasks = [checkOne()];
    tasks.push(checkTwo());
    if (payload.flag) {
      tasks.push(slack.action());
    }
    await Promise.allSettled(tasks);
    const results = await Promise.all(payload.items.map((item) => this.fetchAll(item)));
    const mapped = items.map(async (i) => f(i));
    await Promise.all(mapped);
    try {
      await slack.action();
    } catch (err) {
      console.log(err);
    }
    await Promise.all(dynamicList());
    return results;
  }

  private timeRange(days: number) {
    return { from: Date.now() - days, to: Date.now() };
  }

  private async fetchAll() {
    return new HttpBubble({ url: 'y' }).action();
  }
}
`

func build(t *testing.T, src string) *Workflow {
	t.Helper()
	doc, err := parser.NewParser(parser.NewGrammarLoader()).Parse("flow.ts", []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)

	reg, err := registry.Builtin()
	require.NoError(t, err)
	b := binding.Resolve(doc)
	entry := flow.Locate(doc)
	require.NotNil(t, entry)
	ex := bubbles.NewExtractor(reg).Extract(doc, b)
	return NewBuilder().Build(doc, b, entry, ex)
}

func childNames(step *Step) []string {
	var names []string
	for _, c := range step.Children {
		names = append(names, c.FunctionName)
	}
	return names
}

func TestBuild_Structure(t *testing.T) {
	w := build(t, reportFlow)
	require.Len(t, w.Root, 7)

	helper := w.Root[0]
	assert.Equal(t, StepTransformationFunction, helper.Type)
	assert.Equal(t, "timeRange", helper.FunctionName)
	assert.Equal(t, parser.LineRange{Start: 5, End: 5}, helper.Location)

	literal := w.Root[1]
	assert.Equal(t, StepParallelExecution, literal.Type)
	assert.False(t, literal.IsDynamic)
	assert.Equal(t, "Fetch both", literal.Description)
	require.Len(t, literal.Children, 3)
	assert.Equal(t, []string{"fetchA", "action", "fetchAll"}, childNames(literal))
	assert.Equal(t, 2, literal.Children[1].VariableID)
	assert.Equal(t, StepFunctionCall, literal.Children[2].Type, "helpers constructing bubbles are orchestration calls")

	appended := w.Root[2]
	assert.Equal(t, StepParallelExecution, appended.Type)
	assert.Equal(t, "Promise.allSettled", appended.FunctionName)
	assert.False(t, appended.IsDynamic)
	assert.Equal(t, []string{"checkOne", "checkTwo", "action"}, childNames(appended))
	assert.Equal(t, 1, appended.Children[2].VariableID)

	mapped := w.Root[3]
	assert.True(t, mapped.IsDynamic)
	assert.Equal(t, "payload.items", mapped.SourceArray)
	assert.Equal(t, []string{"fetchAll"}, childNames(mapped))

	viaVariable := w.Root[4]
	assert.True(t, viaVariable.IsDynamic)
	assert.Equal(t, "items", viaVariable.SourceArray)
	assert.Equal(t, []string{"f"}, childNames(viaVariable))

	action := w.Root[5]
	assert.Equal(t, StepFunctionCall, action.Type)
	assert.Equal(t, "action", action.FunctionName)
	assert.Equal(t, 1, action.VariableID)
	assert.Equal(t, parser.LineRange{Start: 19, End: 19}, action.Location)

	unknown := w.Root[6]
	assert.Equal(t, StepParallelExecution, unknown.Type)
	assert.True(t, unknown.IsDynamic)
	assert.Empty(t, unknown.Children)
}

func TestBuild_AwaitAllShapes(t *testing.T) {
	w := build(t, `export class F extends BubbleFlow {
  async handle() {
    await Promise.all([a(), b(), c()]);
    await Promise.all(items.map(i => f(i)));
  }
}
`)
	require.Len(t, w.Root, 2)
	assert.Len(t, w.Root[0].Children, 3)
	assert.False(t, w.Root[0].IsDynamic)
	assert.True(t, w.Root[1].IsDynamic)
	assert.Equal(t, "items", w.Root[1].SourceArray)
	assert.Len(t, w.Root[1].Children, 1)
}

func TestBuild_OmitsPlainStatements(t *testing.T) {
	w := build(t, `export class F extends BubbleFlow {
  async handle() {
    const x = 1;
    console.log(x);
    return x;
  }
}
`)
	assert.NotNil(t, w.Root)
	assert.Empty(t, w.Root)
}

func TestBuild_AppendedActionsBelongToFanOut(t *testing.T) {
	w := build(t, `import { BubbleFlow, SlackBubble } from '@bubblelab/bubble-core';

export class F extends BubbleFlow<'webhook/http'> {
  async handle(payload: Payload) {
    const s = new SlackBubble({ operation: 'send_message', channel: 'c', text: 't' });
    const acc = [];
    for (const x of payload.xs) {
      acc.push(s.action());
    }
    await Promise.all(acc);
    await s.action();
  }
}
`)
	require.Len(t, w.Root, 2)
	fanOut := w.Root[0]
	assert.Equal(t, StepParallelExecution, fanOut.Type)
	require.Len(t, fanOut.Children, 1)
	assert.Equal(t, "action", fanOut.Children[0].FunctionName)
	assert.Equal(t, 1, fanOut.Children[0].VariableID)

	after := w.Root[1]
	assert.Equal(t, StepFunctionCall, after.Type)
	assert.Equal(t, 1, after.VariableID)
}

func TestBuild_AppendWithoutLaterWaitStaysSequential(t *testing.T) {
	w := build(t, `import { BubbleFlow, SlackBubble } from '@bubblelab/bubble-core';

export class F extends BubbleFlow<'webhook/http'> {
  async handle() {
    const s = new SlackBubble({ operation: 'send_message', channel: 'c', text: 't' });
    const log = [];
    log.push(await s.action());
    return log;
  }
}
`)
	require.Len(t, w.Root, 1)
	assert.Equal(t, StepFunctionCall, w.Root[0].Type)
	assert.Equal(t, 1, w.Root[0].VariableID)
}

func TestBuild_AwaitedParameterIsDynamic(t *testing.T) {
	w := build(t, `export class F extends BubbleFlow {
  async handle(payload: unknown, tasks: Promise<any>[]) {
    await Promise.all(tasks);
  }
}
`)
	require.Len(t, w.Root, 1)
	assert.Equal(t, StepParallelExecution, w.Root[0].Type)
	assert.True(t, w.Root[0].IsDynamic)
	assert.Empty(t, w.Root[0].Children)
}
