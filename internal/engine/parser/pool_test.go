package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flowPool(t *testing.T, id string) *ParserPool {
	t.Helper()
	lang, ok := NewGrammarLoader().Language(id)
	require.True(t, ok, "missing grammar %s", id)
	return NewParserPool(lang)
}

func TestParserPool_LeaseLifecycle(t *testing.T) {
	pool := flowPool(t, LangTypeScript)

	sp := pool.Get()
	require.NotNil(t, sp)
	assert.Equal(t, 1, pool.Leased())

	pool.Put(sp)
	pool.Put(nil)
	assert.Equal(t, 0, pool.Leased())
}

func TestParserPool_LanguageSurvivesReset(t *testing.T) {
	pool := flowPool(t, LangTSX)

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp = pool.Get()
	defer pool.Put(sp)
	tree := sp.Parse([]byte("export const View = () => <div>{flow.name}</div>;\n"), nil)
	require.NotNil(t, tree)
	defer tree.Close()
	assert.False(t, tree.RootNode().HasError())
}

func TestParserPool_ConcurrentFlowParses(t *testing.T) {
	pool := flowPool(t, LangTypeScript)
	src := []byte(`export class Flow extends BubbleFlow<'webhook/http'> {
  async handle(payload: { id: string }) {
    return await new HttpBubble({ url: payload.id }).action();
  }
}
`)

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				sp := pool.Get()
				tree := sp.Parse(src, nil)
				if assert.NotNil(t, tree) {
					assert.False(t, tree.RootNode().HasError())
					tree.Close()
				}
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, pool.Leased())
}
