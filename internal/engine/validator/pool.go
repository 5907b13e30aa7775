package validator

import (
	"context"
	"path/filepath"
	"sync"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"
)

// Pool keeps loaded projects keyed by absolute project path. Projects share
// one module cache, so a declaration file is read once per pool.
type Pool struct {
	opts     Options
	parser   *parser.Parser
	modules  *moduleCache
	projects *lru[string, *Project]

	// loadMu serializes project loads.
	loadMu sync.Mutex
}

func NewPool(opts Options) *Pool {
	opts = opts.withDefaults()
	p := parser.NewParser(opts.Loader)
	pool := &Pool{
		opts:    opts,
		parser:  p,
		modules: newModuleCache(p),
	}
	pool.projects = newLRU(opts.Size, func(_ string, project *Project) {
		project.Close()
	})
	return pool
}

var (
	sharedOnce sync.Once
	sharedPool *Pool
)

// SharedPool returns the process-wide pool, checking bubble parameters
// against the builtin registry.
func SharedPool() *Pool {
	sharedOnce.Do(func() {
		opts := Options{}
		if reg, err := registry.Builtin(); err == nil {
			opts.Lookup = reg
		}
		sharedPool = NewPool(opts)
	})
	return sharedPool
}

// Project returns the loaded project for key, loading it on first use.
// Configuration errors are returned as CodeInvalidProject.
func (pool *Pool) Project(key string) (*Project, error) {
	abs, err := filepath.Abs(key)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInvalidProject, "resolve project path")
	}
	if project, ok := pool.projects.get(abs); ok {
		return project, nil
	}

	pool.loadMu.Lock()
	defer pool.loadMu.Unlock()
	if project, ok := pool.projects.get(abs); ok {
		return project, nil
	}
	project, err := loadProject(abs, pool.opts, pool.parser, pool.modules)
	recordLoad(err)
	if err != nil {
		return nil, err
	}
	pool.projects.put(abs, project)
	observability.ProjectPoolSize.Set(float64(pool.projects.len()))
	return project, nil
}

// VirtualPath is the overlay path Pool.Validate checks text under.
const VirtualPath = "bubbleflow.virtual.ts"

// Validate checks text as the next version of the project's default virtual
// file.
func (pool *Pool) Validate(ctx context.Context, key, text string) (*Result, error) {
	return pool.ValidateFile(ctx, key, VirtualPath, text)
}

// ValidateFile checks text as path inside the project named by key. A project
// evicted between lookup and use is reloaded once.
func (pool *Pool) ValidateFile(ctx context.Context, key, path, text string) (*Result, error) {
	return pool.withProject(key, func(project *Project) (*Result, error) {
		return project.Validate(ctx, path, text)
	})
}

// withProject runs fn on the project for key, reloading and retrying once
// when fn reports the project was closed by eviction.
func (pool *Pool) withProject(key string, fn func(*Project) (*Result, error)) (*Result, error) {
	for attempt := 0; ; attempt++ {
		project, err := pool.Project(key)
		if err != nil {
			return nil, err
		}
		res, err := fn(project)
		if err != nil && coreerrors.IsCode(err, coreerrors.CodeConflict) && attempt == 0 {
			continue
		}
		return res, err
	}
}

// ValidateSnippet validates text under a unique virtual path of the project
// named by key. It retries on eviction like ValidateFile.
func (pool *Pool) ValidateSnippet(ctx context.Context, key, text string) (*Result, error) {
	return pool.withProject(key, func(project *Project) (*Result, error) {
		return project.ValidateSnippet(ctx, text)
	})
}

// Evict closes and forgets the project for key.
func (pool *Pool) Evict(key string) {
	abs, err := filepath.Abs(key)
	if err != nil {
		return
	}
	pool.projects.remove(abs)
	observability.ProjectPoolSize.Set(float64(pool.projects.len()))
}

// Keys returns loaded project paths, most recently used first.
func (pool *Pool) Keys() []string {
	return pool.projects.keys()
}

// Close releases every project and the shared module cache.
func (pool *Pool) Close() {
	pool.projects.purge()
	pool.modules.close()
	observability.ProjectPoolSize.Set(0)
}

func recordLoad(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.ProjectLoads.WithLabelValues(outcome).Inc()
}
