// Package bubbles extracts the dependency graph of every registered bubble
// instantiated in a flow document.
package bubbles

import (
	"sort"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParamSource is the syntactic position a parameter was taken from.
type ParamSource string

const (
	SourceLiteral        ParamSource = "literal"
	SourceVariable       ParamSource = "variable-reference"
	SourceObjectProperty ParamSource = "object-property"
	SourceSpread         ParamSource = "spread"
	SourceFirstArg       ParamSource = "first-arg"
)

// ValueType classifies a parameter value by its expression shape.
type ValueType string

const (
	TypeString     ValueType = "string"
	TypeNumber     ValueType = "number"
	TypeBoolean    ValueType = "boolean"
	TypeNull       ValueType = "null"
	TypeArray      ValueType = "array"
	TypeObject     ValueType = "object"
	TypeVariable   ValueType = "variable"
	TypeExpression ValueType = "expression"
)

// Parameter is one classified constructor argument. Value is the raw source
// text of the value; Resolved holds its statically known value when Static
// is set.
type Parameter struct {
	Name     string           `json:"name"`
	Source   ParamSource      `json:"source"`
	Type     ValueType        `json:"type"`
	Value    string           `json:"value"`
	Resolved any              `json:"resolved,omitempty"`
	Static   bool             `json:"static"`
	Location parser.LineRange `json:"location"`
}

// DependencyGraphNode is a bubble in the ownership tree rooted at a top-level
// instantiation. UniqueID is the dotted path of name#k segments from the root.
type DependencyGraphNode struct {
	Name         string                 `json:"name"`
	ClassName    string                 `json:"className"`
	VariableID   int                    `json:"variableId"`
	UniqueID     string                 `json:"uniqueId"`
	Dependencies []*DependencyGraphNode `json:"dependencies"`
}

// Walk visits the node and its dependencies depth-first.
func (n *DependencyGraphNode) Walk(visit func(*DependencyGraphNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, dep := range n.Dependencies {
		dep.Walk(visit)
	}
}

// Depth is the number of levels below and including n.
func (n *DependencyGraphNode) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, dep := range n.Dependencies {
		if d := dep.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// ParsedBubble is one top-level registered bubble instantiated in the flow.
type ParsedBubble struct {
	VariableID      int                  `json:"variableId"`
	UniqueID        string               `json:"uniqueId"`
	ClassName       string               `json:"className"`
	BubbleName      string               `json:"bubbleName"`
	VariableName    string               `json:"variableName"`
	Parameters      []Parameter          `json:"parameters"`
	DependencyGraph *DependencyGraphNode `json:"dependencyGraph"`
	Description     string               `json:"description,omitempty"`
	Location        parser.LineRange     `json:"location"`
}

// Param returns the first parameter with the given name.
func (b *ParsedBubble) Param(name string) (Parameter, bool) {
	for _, p := range b.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Extraction is the result of one extractor pass over a document.
type Extraction struct {
	Bubbles map[int]*ParsedBubble
	// Sites is the classification of every constructor site in document
	// order.
	Sites []Site

	bySite map[parser.NodeKey]int
	byDecl map[*binding.Declaration]int
}

func newExtraction() *Extraction {
	return &Extraction{
		Bubbles: make(map[int]*ParsedBubble),
		bySite:  make(map[parser.NodeKey]int),
		byDecl:  make(map[*binding.Declaration]int),
	}
}

// IDs returns the top-level bubble ids in ascending order.
func (e *Extraction) IDs() []int {
	ids := make([]int, 0, len(e.Bubbles))
	for id := range e.Bubbles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Ordered returns the top-level bubbles in id order.
func (e *Extraction) Ordered() []*ParsedBubble {
	ids := e.IDs()
	out := make([]*ParsedBubble, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.Bubbles[id])
	}
	return out
}

// AtSite returns the bubble constructed by a new expression.
func (e *Extraction) AtSite(newExpr *sitter.Node) (*ParsedBubble, bool) {
	if newExpr == nil {
		return nil, false
	}
	id, ok := e.bySite[parser.KeyOf(newExpr)]
	if !ok {
		return nil, false
	}
	return e.Bubbles[id], true
}

// ForDeclaration returns the bubble a variable was initialized with.
func (e *Extraction) ForDeclaration(decl *binding.Declaration) (*ParsedBubble, bool) {
	if decl == nil {
		return nil, false
	}
	id, ok := e.byDecl[decl]
	if !ok {
		return nil, false
	}
	return e.Bubbles[id], true
}

// HasBubbleWithin reports whether a registered bubble is constructed inside n.
func (e *Extraction) HasBubbleWithin(n *sitter.Node) bool {
	for _, site := range e.Sites {
		if site.Kind == SiteRegisteredBubble && parser.Contains(n, site.Node) {
			return true
		}
	}
	return false
}
