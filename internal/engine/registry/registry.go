// Package registry maps bubble class names to their declared parameter shapes,
// operation variants and nested-dependency specs.
package registry

import (
	"sync"

	coreerrors "github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
)

const (
	TypeService  = "service"
	TypeTool     = "tool"
	TypeWorkflow = "workflow"
)

// OperationParam is the discriminant parameter of bubbles with operation
// variants.
const OperationParam = "operation"

type ParamSpec struct {
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Enum        []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

type OperationVariant struct {
	Name   string      `yaml:"name" json:"name"`
	Params []ParamSpec `yaml:"params,omitempty" json:"params,omitempty"`
}

// NestedDependency declares that instances of a class embed further bubbles.
// Via names the constructor parameter holding the configured instances; Match
// selects elements by their `name` field or string value. With no Via the
// dependency is always present exactly once.
type NestedDependency struct {
	Class string `yaml:"class" json:"class"`
	Via   string `yaml:"via,omitempty" json:"via,omitempty"`
	Match string `yaml:"match,omitempty" json:"match,omitempty"`
}

type Entry struct {
	ClassName        string             `yaml:"class" json:"className"`
	Name             string             `yaml:"name" json:"bubbleName"`
	Type             string             `yaml:"type,omitempty" json:"type"`
	ShortDescription string             `yaml:"short_description,omitempty" json:"shortDescription,omitempty"`
	Params           []ParamSpec        `yaml:"params,omitempty" json:"params,omitempty"`
	Operations       []OperationVariant `yaml:"operations,omitempty" json:"operations,omitempty"`
	Nested           []NestedDependency `yaml:"nested,omitempty" json:"nested,omitempty"`
}

func (e *Entry) Param(name string) (ParamSpec, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

func (e *Entry) Operation(name string) (*OperationVariant, bool) {
	for i := range e.Operations {
		if e.Operations[i].Name == name {
			return &e.Operations[i], true
		}
	}
	return nil, false
}

func (e *Entry) OperationNames() []string {
	names := make([]string, 0, len(e.Operations))
	for _, op := range e.Operations {
		names = append(names, op.Name)
	}
	return names
}

// ParamsFor returns the parameters accepted when operation is selected: the
// shared parameters followed by the variant's own. An unknown or empty
// operation yields only the shared parameters.
func (e *Entry) ParamsFor(operation string) []ParamSpec {
	out := append([]ParamSpec(nil), e.Params...)
	if op, ok := e.Operation(operation); ok {
		out = append(out, op.Params...)
	}
	return out
}

// Lookup is the read side of the registry consumed by the analyzers.
type Lookup interface {
	Entry(className string) (*Entry, bool)
}

// Registry is append-only and safe for concurrent reads.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	byName  map[string]*Entry
	order   []string
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		byName:  make(map[string]*Entry),
		order:   make([]string, 0),
	}
}

func (r *Registry) Register(entry *Entry) error {
	if entry == nil {
		return coreerrors.New(coreerrors.CodeValidationError, "entry is required")
	}
	if entry.ClassName == "" {
		return coreerrors.New(coreerrors.CodeValidationError, "class name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ClassName]; exists {
		return coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeConflict, "bubble class already registered"),
			coreerrors.CtxClass, entry.ClassName,
		)
	}
	r.entries[entry.ClassName] = entry
	if entry.Name != "" {
		if _, exists := r.byName[entry.Name]; !exists {
			r.byName[entry.Name] = entry
		}
	}
	r.order = append(r.order, entry.ClassName)
	return nil
}

func (r *Registry) RegisterAll(entries []*Entry) error {
	for _, entry := range entries {
		if err := r.Register(entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Entry(className string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[className]
	return e, ok
}

// ByName finds an entry by its bubble name.
func (r *Registry) ByName(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	return e, ok
}

// Classes returns registered class names in registration order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entries returns every entry in registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.order))
	for _, class := range r.order {
		out = append(out, r.entries[class])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
