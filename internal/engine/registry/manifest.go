package registry

import (
	_ "embed"
	"fmt"
	"os"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinManifest []byte

const manifestVersion = 1

type manifest struct {
	Version int      `yaml:"version"`
	Bubbles []*Entry `yaml:"bubbles"`
}

var paramTypes = map[string]bool{
	"string": true, "number": true, "boolean": true,
	"array": true, "object": true, "any": true,
}

// ParseManifest decodes a YAML bubble manifest. source names the manifest in
// error messages.
func ParseManifest(data []byte, source string) ([]*Entry, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeValidationError, "decode manifest"),
			coreerrors.CtxPath, source,
		)
	}
	if m.Version != 0 && m.Version != manifestVersion {
		return nil, coreerrors.AddContext(
			coreerrors.Newf(coreerrors.CodeNotSupported, "unsupported manifest version %d", m.Version),
			coreerrors.CtxPath, source,
		)
	}
	for i, entry := range m.Bubbles {
		if err := validateEntry(entry); err != nil {
			return nil, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeValidationError, fmt.Sprintf("bubbles[%d]", i)),
				coreerrors.CtxPath, source,
			)
		}
	}
	return m.Bubbles, nil
}

func LoadManifest(path string) ([]*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeNotFound, "read manifest"),
			coreerrors.CtxPath, path,
		)
	}
	return ParseManifest(data, path)
}

func validateEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("empty entry")
	}
	if e.ClassName == "" || e.Name == "" {
		return fmt.Errorf("class and name are required")
	}
	switch e.Type {
	case "":
		e.Type = TypeService
	case TypeService, TypeTool, TypeWorkflow:
	default:
		return fmt.Errorf("%s: unknown type %q", e.ClassName, e.Type)
	}
	params := make(map[string]bool, len(e.Params))
	for _, p := range e.Params {
		if err := validateParam(e.ClassName, p); err != nil {
			return err
		}
		params[p.Name] = true
	}
	for _, op := range e.Operations {
		if op.Name == "" {
			return fmt.Errorf("%s: operation without name", e.ClassName)
		}
		for _, p := range op.Params {
			if err := validateParam(e.ClassName, p); err != nil {
				return err
			}
		}
	}
	for _, dep := range e.Nested {
		if dep.Class == "" {
			return fmt.Errorf("%s: nested dependency without class", e.ClassName)
		}
		if dep.Via != "" && !params[dep.Via] {
			return fmt.Errorf("%s: nested dependency %s reads undeclared param %q", e.ClassName, dep.Class, dep.Via)
		}
	}
	return nil
}

func validateParam(class string, p ParamSpec) error {
	if p.Name == "" {
		return fmt.Errorf("%s: param without name", class)
	}
	if p.Type != "" && !paramTypes[p.Type] {
		return fmt.Errorf("%s: param %s has unknown type %q", class, p.Name, p.Type)
	}
	return nil
}

// Builtin returns a registry holding the core bubble catalog.
func Builtin() (*Registry, error) {
	return Load(true, nil)
}

// Load builds a registry from the builtin catalog, when enabled, followed by
// the given manifests. A class declared twice is a conflict.
func Load(includeBuiltin bool, manifests []string) (*Registry, error) {
	r := New()
	if includeBuiltin {
		entries, err := ParseManifest(builtinManifest, "builtin.yaml")
		if err != nil {
			return nil, err
		}
		if err := r.RegisterAll(entries); err != nil {
			return nil, err
		}
	}
	for _, path := range manifests {
		entries, err := LoadManifest(path)
		if err != nil {
			return nil, err
		}
		if err := r.RegisterAll(entries); err != nil {
			return nil, coreerrors.AddContext(err, coreerrors.CtxPath, path)
		}
	}
	return r, nil
}
