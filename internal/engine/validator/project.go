package validator

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/types"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/util"
)

// ProjectFileName is looked up in a project directory.
const ProjectFileName = "bubbleflow.project.toml"

// DefaultSuppressed are the codes dropped when Options.Suppress is nil.
var DefaultSuppressed = []int{6133, 6192}

type ProjectConfig struct {
	Name    string   `toml:"name"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
	// Paths maps module specifiers, optionally ending in "*", to files
	// relative to the project root.
	Paths    map[string]string `toml:"paths"`
	Suppress []int             `toml:"suppress"`
	// Globals are extra value and type names assumed to exist.
	Globals []string `toml:"globals"`
}

// Options configure how projects are loaded and checked.
type Options struct {
	// Size bounds the number of projects a Pool keeps loaded.
	Size int
	// Suppress replaces DefaultSuppressed when non-nil.
	Suppress []int
	Lookup   registry.Lookup
	Loader   *parser.GrammarLoader
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 8
	}
	if o.Suppress == nil {
		o.Suppress = DefaultSuppressed
	}
	if o.Loader == nil {
		o.Loader = parser.NewGrammarLoader()
	}
	return o
}

type globalDecl struct {
	decl  *types.Decl
	index *types.Index
}

// Project is a loaded type graph plus the overlay of virtual files validated
// against it. Validations of one project are serialized.
type Project struct {
	Root   string
	Config ProjectConfig

	files       []string
	modules     *moduleCache
	ownsModules bool
	ambient     map[string]*types.Index
	globals     map[string]bool
	globalTypes map[string]globalDecl
	suppress    map[int]bool
	lookup      registry.Lookup
	parser      *parser.Parser
	overlay     *Overlay

	mu     sync.Mutex
	closed bool
}

// LoadProject loads the project named by key with its own module cache.
func LoadProject(key string, opts Options) (*Project, error) {
	opts = opts.withDefaults()
	p := parser.NewParser(opts.Loader)
	project, err := loadProject(key, opts, p, newModuleCache(p))
	if err != nil {
		return nil, err
	}
	project.ownsModules = true
	return project, nil
}

func loadProject(key string, opts Options, p *parser.Parser, modules *moduleCache) (*Project, error) {
	root, cfgPath, err := locateProject(key)
	if err != nil {
		return nil, err
	}
	cfg, err := readProjectConfig(cfgPath)
	if err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxProject, key)
	}
	include, err := compileGlobs("include", cfg.Include)
	if err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxProject, key)
	}
	exclude, err := compileGlobs("exclude", cfg.Exclude)
	if err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxProject, key)
	}

	project := &Project{
		Root:        root,
		Config:      cfg,
		modules:     modules,
		ambient:     make(map[string]*types.Index),
		globals:     make(map[string]bool),
		globalTypes: make(map[string]globalDecl),
		suppress:    make(map[int]bool),
		lookup:      opts.Lookup,
		parser:      p,
		overlay:     NewOverlay(),
	}
	for _, code := range opts.Suppress {
		project.suppress[code] = true
	}
	for _, code := range cfg.Suppress {
		project.suppress[code] = true
	}
	for _, name := range cfg.Globals {
		project.globals[name] = true
	}

	if err := project.scan(include, exclude); err != nil {
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInvalidProject, "scan project"), coreerrors.CtxProject, key)
	}
	slog.Debug("project loaded", "root", root, "files", len(project.files), "ambient_modules", len(project.ambient))
	return project, nil
}

// locateProject maps a key to the project root and its config file. The
// config path is empty when a directory carries no project file.
func locateProject(key string) (string, string, error) {
	abs, err := filepath.Abs(key)
	if err != nil {
		return "", "", coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInvalidProject, "resolve project path"), coreerrors.CtxProject, key)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", "", coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInvalidProject, "project not found"), coreerrors.CtxProject, key)
	}
	if !info.IsDir() {
		return filepath.Dir(abs), abs, nil
	}
	cfgPath := filepath.Join(abs, ProjectFileName)
	if _, err := os.Stat(cfgPath); err != nil {
		return abs, "", nil
	}
	return abs, cfgPath, nil
}

func readProjectConfig(path string) (ProjectConfig, error) {
	var cfg ProjectConfig
	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeInvalidProject, "decode project file"), coreerrors.CtxPath, path)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return cfg, coreerrors.AddContext(coreerrors.Newf(coreerrors.CodeInvalidProject, "unknown project key %q", undecoded[0].String()), coreerrors.CtxPath, path)
		}
	}
	cfg.Include = util.TrimAll(cfg.Include)
	cfg.Exclude = util.TrimAll(cfg.Exclude)
	cfg.Globals = util.TrimAll(cfg.Globals)
	if len(cfg.Include) == 0 {
		cfg.Include = []string{"**.ts", "**.tsx"}
	}
	for i, code := range cfg.Suppress {
		if code <= 0 {
			return cfg, coreerrors.Newf(coreerrors.CodeInvalidProject, "suppress[%d] must be a positive diagnostic code, got %d", i, code)
		}
	}
	for spec, target := range cfg.Paths {
		if strings.TrimSpace(spec) == "" || strings.TrimSpace(target) == "" {
			return cfg, coreerrors.Newf(coreerrors.CodeInvalidProject, "paths entry %q must map a module name to a file", spec)
		}
		if strings.Count(spec, "*") > 1 || (strings.Contains(spec, "*") && !strings.HasSuffix(spec, "*")) {
			return cfg, coreerrors.Newf(coreerrors.CodeInvalidProject, "paths entry %q may only end in a single *", spec)
		}
	}
	return cfg, nil
}

func compileGlobs(field string, patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for i, pattern := range patterns {
		g, err := glob.Compile(strings.TrimSpace(pattern), '/')
		if err != nil {
			return nil, coreerrors.Wrap(err, coreerrors.CodeInvalidProject, fmt.Sprintf("%s[%d] is not a valid glob", field, i))
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

var skippedDirs = map[string]bool{"node_modules": true, ".git": true, "dist": true}

// scan indexes every included project file. Script declarations become
// globals and `declare module` bodies become resolvable modules.
func (p *Project) scan(include, exclude []glob.Glob) error {
	err := filepath.WalkDir(p.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != p.Root && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !p.parser.Loader().IsSupportedPath(path) {
			return nil
		}
		rel, err := filepath.Rel(p.Root, path)
		if err != nil {
			return err
		}
		rel = util.SlashPath(rel)
		if !matchAny(include, rel) || matchAny(exclude, rel) {
			return nil
		}
		p.files = append(p.files, path)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(p.files)

	for _, path := range p.files {
		ix, ok := p.modules.load(path)
		if !ok {
			continue
		}
		for name, sub := range ix.Modules {
			if _, dup := p.ambient[name]; !dup {
				p.ambient[name] = sub
			}
		}
		if ix.Module {
			continue
		}
		for _, d := range ix.Decls() {
			p.globals[d.Name] = true
			if _, dup := p.globalTypes[d.Name]; !dup {
				p.globalTypes[d.Name] = globalDecl{decl: d, index: ix}
			}
		}
	}
	return nil
}

// Files returns the indexed project files.
func (p *Project) Files() []string {
	return append([]string(nil), p.files...)
}

// Overlay exposes the project's virtual files.
func (p *Project) Overlay() *Overlay {
	return p.overlay
}

// Suppressed reports whether code is dropped from results.
func (p *Project) Suppressed(code int) bool {
	return p.suppress[code]
}

func (p *Project) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Root, path)
}

// Close releases the overlay and, for standalone projects, the module cache.
// It waits for an in-flight validation.
func (p *Project) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.overlay.close()
	if p.ownsModules {
		p.modules.close()
	}
}
