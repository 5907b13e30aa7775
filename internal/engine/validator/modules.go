package validator

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/types"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"
)

// moduleCache indexes declaration files by absolute path. Each path is read
// at most once; misses are remembered too.
type moduleCache struct {
	mu      sync.Mutex
	parser  *parser.Parser
	entries map[string]*types.Index
	docs    []*parser.Document
}

func newModuleCache(p *parser.Parser) *moduleCache {
	return &moduleCache{parser: p, entries: make(map[string]*types.Index)}
}

// load returns the index of path, reading and parsing it on first use.
func (c *moduleCache) load(path string) (*types.Index, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ix, ok := c.entries[path]; ok {
		return ix, ix != nil
	}
	ix := c.readLocked(path)
	c.entries[path] = ix
	return ix, ix != nil
}

func (c *moduleCache) readLocked(path string) *types.Index {
	if !c.parser.Loader().IsSupportedPath(path) {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	observability.ModuleReads.Inc()
	doc, err := c.parser.Parse(path, data)
	if err != nil {
		slog.Debug("module parse failed", "path", path, "error", err)
		return nil
	}
	c.docs = append(c.docs, doc)
	return types.Build(doc)
}

func (c *moduleCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ix := range c.entries {
		if ix != nil {
			n++
		}
	}
	return n
}

func (c *moduleCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		doc.Close()
	}
	c.docs = nil
	c.entries = make(map[string]*types.Index)
}

var moduleExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".mjs", ".cjs"}

// fileCandidates lists the paths a module specifier may name on disk.
func fileCandidates(base string) []string {
	out := []string{base}
	ext := filepath.Ext(base)
	switch ext {
	case ".js", ".mjs", ".cjs", ".jsx":
		stem := strings.TrimSuffix(base, ext)
		out = append(out, stem+".ts", stem+".tsx", stem+".d.ts")
	}
	for _, e := range moduleExtensions {
		out = append(out, base+e)
	}
	for _, e := range moduleExtensions {
		out = append(out, filepath.Join(base, "index"+e))
	}
	return out
}

// resolveModule finds the index for a module specifier imported from the
// file at fromPath.
func (p *Project) resolveModule(fromPath, spec string) (*types.Index, bool) {
	if spec == "" {
		return nil, false
	}
	if strings.HasPrefix(spec, ".") || filepath.IsAbs(spec) {
		base := spec
		if !filepath.IsAbs(base) {
			base = filepath.Join(filepath.Dir(fromPath), spec)
		}
		return p.loadFirst(fileCandidates(base))
	}
	if target, ok := p.mapPath(spec); ok {
		if ix, ok := p.loadFirst(fileCandidates(target)); ok {
			return ix, true
		}
	}
	if ix, ok := p.ambient[spec]; ok {
		return ix, true
	}
	return p.resolvePackage(spec)
}

// mapPath applies the project's paths table. Keys are either exact module
// names or a prefix followed by "*".
func (p *Project) mapPath(spec string) (string, bool) {
	if target, ok := p.Config.Paths[spec]; ok {
		return p.abs(target), true
	}
	best := ""
	for key := range p.Config.Paths {
		prefix, ok := strings.CutSuffix(key, "*")
		if !ok || !strings.HasPrefix(spec, prefix) || len(prefix) < len(best) {
			continue
		}
		best = key
	}
	if best == "" {
		return "", false
	}
	prefix := strings.TrimSuffix(best, "*")
	target := strings.Replace(p.Config.Paths[best], "*", strings.TrimPrefix(spec, prefix), 1)
	return p.abs(target), true
}

type packageManifest struct {
	Types   string `json:"types"`
	Typings string `json:"typings"`
}

// resolvePackage looks up a bare specifier under node_modules, preferring
// bundled declarations over DefinitelyTyped ones.
func (p *Project) resolvePackage(spec string) (*types.Index, bool) {
	modules := filepath.Join(p.Root, "node_modules")
	dirs := []string{filepath.Join(modules, spec)}
	typesName := spec
	if scope, name, ok := strings.Cut(strings.TrimPrefix(spec, "@"), "/"); ok && strings.HasPrefix(spec, "@") {
		typesName = scope + "__" + name
	}
	dirs = append(dirs, filepath.Join(modules, "@types", typesName))

	for _, dir := range dirs {
		if data, err := os.ReadFile(filepath.Join(dir, "package.json")); err == nil {
			var manifest packageManifest
			if json.Unmarshal(data, &manifest) == nil {
				entry := manifest.Types
				if entry == "" {
					entry = manifest.Typings
				}
				if entry != "" {
					if ix, ok := p.loadFirst(fileCandidates(filepath.Join(dir, entry))); ok {
						return ix, true
					}
				}
			}
		}
		if ix, ok := p.loadFirst([]string{filepath.Join(dir, "index.d.ts"), dir + ".d.ts"}); ok {
			return ix, true
		}
	}
	return nil, false
}

func (p *Project) loadFirst(candidates []string) (*types.Index, bool) {
	for _, path := range candidates {
		if ix, ok := p.modules.load(filepath.Clean(path)); ok {
			return ix, true
		}
	}
	return nil, false
}

// export is the result of looking up an exported name. uncertain is set when
// a re-export chain passes through a module that cannot be resolved.
type export struct {
	decl      *types.Decl
	index     *types.Index
	found     bool
	uncertain bool
}

const maxExportDepth = 16

func (p *Project) findExport(ix *types.Index, name string, depth int) export {
	if ix == nil || depth > maxExportDepth {
		return export{uncertain: true}
	}
	if local, ok := ix.Export(name); ok {
		if d, ok := ix.Lookup(local); ok {
			return export{decl: d, index: ix, found: true}
		}
		if imp, ok := ix.Imports[local]; ok {
			target, ok := p.resolveModule(ix.Path, imp.Module)
			if !ok {
				return export{found: true, uncertain: true}
			}
			if imp.Name == "*" {
				return export{index: target, found: true}
			}
			if res := p.findExport(target, imp.Name, depth+1); res.found {
				return res
			}
		}
		return export{index: ix, found: true}
	}

	var uncertain bool
	for _, re := range ix.ReExports {
		mapped, named := re.Names[name]
		if !named && !re.All {
			continue
		}
		target, ok := p.resolveModule(ix.Path, re.Module)
		if !ok {
			uncertain = true
			if named {
				return export{found: true, uncertain: true}
			}
			continue
		}
		if named && mapped == "*" {
			return export{index: target, found: true}
		}
		lookup := name
		if named {
			lookup = mapped
		}
		res := p.findExport(target, lookup, depth+1)
		if res.found {
			return res
		}
		uncertain = uncertain || res.uncertain
	}
	return export{uncertain: uncertain}
}

// ResolveType resolves names declared outside from: imports, dotted
// namespace references and project globals.
func (p *Project) ResolveType(from *types.Index, name string) (*types.Decl, *types.Index, bool) {
	head, rest, dotted := strings.Cut(name, ".")
	if imp, ok := from.Imports[head]; ok {
		target, ok := p.resolveModule(from.Path, imp.Module)
		if !ok {
			return nil, nil, false
		}
		lookup := imp.Name
		if imp.Name == "*" {
			if !dotted {
				return nil, nil, false
			}
			lookup = rest
		} else if dotted {
			return nil, nil, false
		}
		res := p.findExport(target, lookup, 0)
		return res.decl, res.index, res.decl != nil
	}
	if g, ok := p.globalTypes[name]; ok {
		return g.decl, g.index, true
	}
	return nil, nil, false
}
