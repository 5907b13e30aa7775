// Package binding resolves identifiers in a parsed flow to their declaration
// sites using a lexical scope tree.
package binding

import (
	"sort"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type DeclKind string

const (
	KindImport    DeclKind = "import"
	KindClass     DeclKind = "class"
	KindFunction  DeclKind = "function"
	KindVariable  DeclKind = "variable"
	KindParameter DeclKind = "parameter"
	KindInterface DeclKind = "interface"
	KindTypeAlias DeclKind = "type"
	KindTypeParam DeclKind = "type_parameter"
	KindEnum      DeclKind = "enum"
)

// Declaration is one binding site.
type Declaration struct {
	Name  string
	Kind  DeclKind
	Ident *sitter.Node
	// Node is the declaring construct: variable_declarator, import_specifier,
	// class_declaration, required_parameter, ...
	Node *sitter.Node
	// Init is the initializer of a simple `name = value` declarator.
	Init  *sitter.Node
	Const bool

	// Imported is the name in the source module: the specifier name,
	// "default" or "*".
	Imported string
	Module   string
	TypeOnly bool
	Exported bool

	Scope *Scope
	refs  []*Reference
}

// References returns the resolved uses of the declaration in document order.
func (d *Declaration) References() []*Reference {
	return d.refs
}

func (d *Declaration) Used() bool {
	return len(d.refs) > 0
}

// Scope is one lexical scope.
type Scope struct {
	Kind    string
	Node    *sitter.Node
	Parent  *Scope
	symbols map[string]*Declaration
}

func newScope(kind string, node *sitter.Node, parent *Scope) *Scope {
	return &Scope{Kind: kind, Node: node, Parent: parent, symbols: make(map[string]*Declaration)}
}

// Lookup searches the scope and its parents.
func (s *Scope) Lookup(name string) *Declaration {
	for cur := s; cur != nil; cur = cur.Parent {
		if decl, ok := cur.symbols[name]; ok {
			return decl
		}
	}
	return nil
}

// Reference is one identifier use.
type Reference struct {
	Name string
	Node *sitter.Node
	Decl *Declaration
	Type bool
}

// Bindings is the resolved binding table of one document.
type Bindings struct {
	doc       *parser.Document
	root      *Scope
	scopes    map[parser.NodeKey]*Scope
	decls     []*Declaration
	declNames map[parser.NodeKey]*Declaration
	skip      map[parser.NodeKey]bool
	refs      map[parser.NodeKey]*Reference
	ordered   []*Reference
}

// Resolve builds the scope tree of doc and resolves every reference.
func Resolve(doc *parser.Document) *Bindings {
	b := &Bindings{
		doc:       doc,
		scopes:    make(map[parser.NodeKey]*Scope),
		declNames: make(map[parser.NodeKey]*Declaration),
		skip:      make(map[parser.NodeKey]bool),
		refs:      make(map[parser.NodeKey]*Reference),
	}
	root := doc.Root()
	b.root = newScope("program", root, nil)
	if root == nil {
		return b
	}
	b.scopes[parser.KeyOf(root)] = b.root
	b.declare(root, b.root)
	b.resolveReferences(root)
	return b
}

func (b *Bindings) Document() *parser.Document {
	return b.doc
}

func (b *Bindings) Root() *Scope {
	return b.root
}

// Declarations returns every declaration in document order.
func (b *Bindings) Declarations() []*Declaration {
	return b.decls
}

// ResolveBinding returns the declaration an identifier refers to, or the
// declaration it names. Nil when the identifier is unbound.
func (b *Bindings) ResolveBinding(ident *sitter.Node) *Declaration {
	if ident == nil {
		return nil
	}
	key := parser.KeyOf(ident)
	if decl, ok := b.declNames[key]; ok {
		return decl
	}
	if ref, ok := b.refs[key]; ok {
		return ref.Decl
	}
	return nil
}

// Lookup resolves name from the scope enclosing node.
func (b *Bindings) Lookup(node *sitter.Node, name string) *Declaration {
	return b.scopeFor(node).Lookup(name)
}

// Unresolved returns references with no declaration in document order.
func (b *Bindings) Unresolved() []*Reference {
	var out []*Reference
	for _, ref := range b.ordered {
		if ref.Decl == nil {
			out = append(out, ref)
		}
	}
	return out
}

// References returns every reference in document order.
func (b *Bindings) References() []*Reference {
	return b.ordered
}

func (b *Bindings) scopeFor(n *sitter.Node) *Scope {
	for cur := n; cur != nil; cur = cur.Parent() {
		if s, ok := b.scopes[parser.KeyOf(cur)]; ok {
			return s
		}
	}
	return b.root
}

func (b *Bindings) resolveReferences(root *sitter.Node) {
	parser.Walk(root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "identifier", "shorthand_property_identifier":
			b.addReference(n, false)
		case "type_identifier":
			if parent := n.Parent(); parent != nil && parent.Kind() == "nested_type_identifier" {
				return false
			}
			b.addReference(n, true)
		case "comment", "string", "regex":
			return false
		}
		return true
	})
	sort.SliceStable(b.ordered, func(i, j int) bool {
		return b.ordered[i].Node.StartByte() < b.ordered[j].Node.StartByte()
	})
}

func (b *Bindings) addReference(n *sitter.Node, isType bool) {
	key := parser.KeyOf(n)
	if _, ok := b.declNames[key]; ok || b.skip[key] {
		return
	}
	if parent := n.Parent(); parent != nil {
		switch parent.Kind() {
		case "labeled_statement", "break_statement", "continue_statement":
			return
		case "export_specifier":
			if alias := parent.ChildByFieldName("alias"); alias != nil && parser.KeyOf(alias) == key {
				return
			}
			if stmt := parser.Enclosing(parent, "export_statement"); stmt != nil && stmt.ChildByFieldName("source") != nil {
				return
			}
		}
	}
	name := b.doc.Text(n)
	ref := &Reference{Name: name, Node: n, Type: isType}
	if decl := b.scopeFor(n).Lookup(name); decl != nil {
		ref.Decl = decl
		decl.refs = append(decl.refs, ref)
		if parent := n.Parent(); parent != nil && parent.Kind() == "export_specifier" {
			decl.Exported = true
		}
	}
	b.refs[key] = ref
	b.ordered = append(b.ordered, ref)
}
