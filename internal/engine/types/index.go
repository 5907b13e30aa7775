package types

import (
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type DeclKind string

const (
	DeclInterface DeclKind = "interface"
	DeclAlias     DeclKind = "type"
	DeclClass     DeclKind = "class"
	DeclEnum      DeclKind = "enum"
	DeclFunction  DeclKind = "function"
	DeclVariable  DeclKind = "variable"
	DeclNamespace DeclKind = "namespace"
)

type Param struct {
	Name     string
	Optional bool
	Type     *Type
}

// Decl is one named type-level or value-level declaration.
type Decl struct {
	Name     string
	Kind     DeclKind
	Node     *sitter.Node
	Line     int
	Exported bool
	Ambient  bool
	Doc      string

	Extends []*Type
	Props   []Property
	Alias   *Type
	// Params are the constructor parameters of a class or the parameters of
	// a function.
	Params []Param
	Enum   []string
	Value  *Type
}

// ReExport is an `export ... from` clause. Names maps exported names to the
// names imported from Module; All marks `export *`.
type ReExport struct {
	Module string
	Names  map[string]string
	All    bool
}

// Import is one imported binding. Name is the specifier name in Module,
// "default" or "*".
type Import struct {
	Module string
	Name   string
}

// Index holds the declarations of one document or ambient module body.
type Index struct {
	Path string
	// Module reports whether the document uses import or export syntax.
	// Declarations of a script are global.
	Module bool

	doc       *parser.Document
	decls     map[string]*Decl
	order     []string
	exports   map[string]string
	ReExports []ReExport
	// Imports maps local names to their import sites.
	Imports map[string]Import
	// Modules holds `declare module "x" { ... }` bodies.
	Modules map[string]*Index
}

// Build indexes the top-level declarations of doc.
func Build(doc *parser.Document) *Index {
	ix := newIndex(doc)
	ix.collect(doc.Root(), false, false)
	return ix
}

func newIndex(doc *parser.Document) *Index {
	return &Index{
		Path:    doc.Path,
		doc:     doc,
		decls:   make(map[string]*Decl),
		exports: make(map[string]string),
		Imports: make(map[string]Import),
		Modules: make(map[string]*Index),
	}
}

func (ix *Index) Document() *parser.Document {
	return ix.doc
}

func (ix *Index) Lookup(name string) (*Decl, bool) {
	d, ok := ix.decls[name]
	return d, ok
}

// Decls returns declarations in document order.
func (ix *Index) Decls() []*Decl {
	out := make([]*Decl, 0, len(ix.order))
	for _, name := range ix.order {
		out = append(out, ix.decls[name])
	}
	return out
}

// Export resolves an exported name to its local declaration name. Re-exports
// are not followed.
func (ix *Index) Export(name string) (string, bool) {
	if local, ok := ix.exports[name]; ok {
		return local, true
	}
	if d, ok := ix.decls[name]; ok && d.Exported {
		return name, true
	}
	return "", false
}

// Exports returns every exported name excluding re-exports.
func (ix *Index) Exports() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range ix.order {
		if ix.decls[name].Exported {
			seen[name] = true
			out = append(out, name)
		}
	}
	for name := range ix.exports {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

func (ix *Index) collect(container *sitter.Node, exported, ambient bool) {
	for _, stmt := range parser.NamedChildren(container) {
		ix.statement(stmt, exported, ambient)
	}
}

func (ix *Index) statement(stmt *sitter.Node, exported, ambient bool) {
	doc := ix.doc
	switch stmt.Kind() {
	case "import_statement":
		ix.Module = true
		ix.imports(stmt)
	case "export_statement":
		ix.Module = true
		ix.export(stmt, ambient)
	case "ambient_declaration":
		for _, child := range parser.NamedChildren(stmt) {
			if child.Kind() == "module" || child.Kind() == "internal_module" {
				if name := child.ChildByFieldName("name"); name != nil && name.Kind() == "string" {
					ix.ambientModule(child)
					continue
				}
			}
			if child.Kind() == "statement_block" {
				// declare global { ... }
				ix.collect(child, false, true)
				continue
			}
			ix.statement(child, exported, true)
		}
	case "interface_declaration":
		d := ix.add(stmt, DeclInterface, exported, ambient)
		if d == nil {
			return
		}
		if clause := parser.ChildOfKind(stmt, "extends_type_clause"); clause != nil {
			for _, t := range parser.NamedChildren(clause) {
				d.Extends = append(d.Extends, FromNode(doc, t))
			}
		}
		d.Props = append(d.Props, objectMembers(doc, stmt.ChildByFieldName("body"))...)
	case "type_alias_declaration":
		if d := ix.add(stmt, DeclAlias, exported, ambient); d != nil {
			d.Alias = FromNode(doc, stmt.ChildByFieldName("value"))
		}
	case "class_declaration", "abstract_class_declaration":
		if d := ix.add(stmt, DeclClass, exported, ambient); d != nil {
			ix.classMembers(d, stmt)
		}
	case "enum_declaration":
		if d := ix.add(stmt, DeclEnum, exported, ambient); d != nil {
			d.Enum = enumMembers(doc, stmt.ChildByFieldName("body"))
		}
	case "function_declaration", "function_signature", "generator_function_declaration":
		if d := ix.add(stmt, DeclFunction, exported, ambient); d != nil {
			d.Params = params(doc, stmt.ChildByFieldName("parameters"))
		}
	case "lexical_declaration", "variable_declaration":
		for _, declarator := range parser.NamedChildren(stmt) {
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			name := declarator.ChildByFieldName("name")
			if name == nil || name.Kind() != "identifier" {
				continue
			}
			d := ix.addNamed(doc.Text(name), declarator, DeclVariable, exported, ambient)
			if d == nil {
				continue
			}
			if annotation := declarator.ChildByFieldName("type"); annotation != nil {
				d.Value = FromNode(doc, annotation)
			}
		}
	case "module", "internal_module":
		ix.add(stmt, DeclNamespace, exported, ambient)
	case "expression_statement":
		// `namespace X {}` parses as an expression statement in some positions
		if inner := parser.FirstNamedChild(stmt); inner != nil && inner.Kind() == "internal_module" {
			ix.add(inner, DeclNamespace, exported, ambient)
		}
	}
}

func (ix *Index) export(stmt *sitter.Node, ambient bool) {
	doc := ix.doc
	source := stmt.ChildByFieldName("source")
	module := ""
	if source != nil {
		module, _ = parser.StringValue(doc, source)
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		ix.statement(decl, true, ambient)
		if parser.HasToken(stmt, "default") {
			if name := decl.ChildByFieldName("name"); name != nil {
				ix.exports["default"] = doc.Text(name)
			}
		}
		return
	}
	if clause := parser.ChildOfKind(stmt, "export_clause"); clause != nil {
		re := ReExport{Module: module, Names: make(map[string]string)}
		for _, spec := range parser.NamedChildren(clause) {
			if spec.Kind() != "export_specifier" {
				continue
			}
			local := propertyName(doc, spec.ChildByFieldName("name"))
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = propertyName(doc, alias)
			}
			if source != nil {
				re.Names[exported] = local
			} else {
				ix.exports[exported] = local
			}
		}
		if source != nil {
			ix.ReExports = append(ix.ReExports, re)
		}
		return
	}
	if source != nil && parser.HasToken(stmt, "*") {
		if ns := parser.ChildOfKind(stmt, "namespace_export"); ns != nil {
			re := ReExport{Module: module, Names: map[string]string{propertyName(doc, parser.FirstNamedChild(ns)): "*"}}
			ix.ReExports = append(ix.ReExports, re)
			return
		}
		ix.ReExports = append(ix.ReExports, ReExport{Module: module, All: true})
		return
	}
	if value := stmt.ChildByFieldName("value"); value != nil && parser.HasToken(stmt, "default") {
		if value.Kind() == "identifier" {
			ix.exports["default"] = doc.Text(value)
		} else {
			ix.exports["default"] = ""
		}
	}
}

func (ix *Index) imports(stmt *sitter.Node) {
	doc := ix.doc
	module, _ := parser.StringValue(doc, stmt.ChildByFieldName("source"))
	for _, part := range parser.NamedChildren(parser.ChildOfKind(stmt, "import_clause")) {
		switch part.Kind() {
		case "identifier":
			ix.Imports[doc.Text(part)] = Import{Module: module, Name: "default"}
		case "namespace_import":
			if ident := parser.ChildOfKind(part, "identifier"); ident != nil {
				ix.Imports[doc.Text(ident)] = Import{Module: module, Name: "*"}
			}
		case "named_imports":
			for _, spec := range parser.NamedChildren(part) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := propertyName(doc, spec.ChildByFieldName("name"))
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = propertyName(doc, alias)
				}
				ix.Imports[local] = Import{Module: module, Name: name}
			}
		}
	}
}

func (ix *Index) ambientModule(n *sitter.Node) {
	name, _ := parser.StringValue(ix.doc, n.ChildByFieldName("name"))
	sub, ok := ix.Modules[name]
	if !ok {
		sub = newIndex(ix.doc)
		sub.Module = true
		ix.Modules[name] = sub
	}
	body := n.ChildByFieldName("body")
	sub.collect(body, true, true)
}

func (ix *Index) add(n *sitter.Node, kind DeclKind, exported, ambient bool) *Decl {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	return ix.addNamed(ix.doc.Text(name), n, kind, exported, ambient)
}

// addNamed records a declaration. Interfaces sharing a name merge their
// members; any other redeclaration keeps the first.
func (ix *Index) addNamed(name string, n *sitter.Node, kind DeclKind, exported, ambient bool) *Decl {
	if existing, ok := ix.decls[name]; ok {
		existing.Exported = existing.Exported || exported
		if existing.Kind == DeclInterface && kind == DeclInterface {
			return existing
		}
		return nil
	}
	d := &Decl{
		Name:     name,
		Kind:     kind,
		Node:     n,
		Line:     ix.doc.Line(n),
		Exported: exported,
		Ambient:  ambient,
		Doc:      parser.CommentBefore(ix.doc, docAnchor(n)),
	}
	ix.decls[name] = d
	ix.order = append(ix.order, name)
	return d
}

// docAnchor returns the statement a declaration's comment attaches to.
func docAnchor(n *sitter.Node) *sitter.Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		parent := cur.Parent()
		if parent == nil || parent.Kind() == "program" || parent.Kind() == "statement_block" {
			return cur
		}
	}
	return n
}

func (ix *Index) classMembers(d *Decl, class *sitter.Node) {
	doc := ix.doc
	if heritage := parser.ChildOfKind(class, "class_heritage"); heritage != nil {
		if extends := parser.ChildOfKind(heritage, "extends_clause"); extends != nil {
			if value := extends.ChildByFieldName("value"); value != nil {
				d.Extends = append(d.Extends, &Type{Kind: KindRef, Name: doc.Text(value), Text: doc.Text(value)})
			}
		}
	}
	for _, member := range parser.NamedChildren(class.ChildByFieldName("body")) {
		switch member.Kind() {
		case "public_field_definition":
			d.Props = append(d.Props, Property{
				Name:     propertyName(doc, member.ChildByFieldName("name")),
				Optional: parser.HasToken(member, "?"),
				Type:     FromNode(doc, member.ChildByFieldName("type")),
				Doc:      parser.CommentBefore(doc, member),
				Line:     doc.Line(member),
			})
		case "method_definition", "method_signature":
			name := propertyName(doc, member.ChildByFieldName("name"))
			if name == "constructor" {
				d.Params = params(doc, member.ChildByFieldName("parameters"))
				continue
			}
			d.Props = append(d.Props, Property{
				Name: name,
				Type: &Type{Kind: KindFunction},
				Doc:  parser.CommentBefore(doc, member),
				Line: doc.Line(member),
			})
		}
	}
}

func params(doc *parser.Document, list *sitter.Node) []Param {
	var out []Param
	for _, p := range parser.NamedChildren(list) {
		param := Param{Optional: p.Kind() == "optional_parameter", Type: &Type{Kind: KindAny}}
		pattern := p
		if pat := p.ChildByFieldName("pattern"); pat != nil {
			pattern = pat
		}
		param.Name = doc.Text(pattern)
		if annotation := p.ChildByFieldName("type"); annotation != nil {
			param.Type = FromNode(doc, annotation)
		}
		if p.ChildByFieldName("value") != nil {
			param.Optional = true
		}
		out = append(out, param)
	}
	return out
}

func enumMembers(doc *parser.Document, body *sitter.Node) []string {
	var out []string
	for _, member := range parser.NamedChildren(body) {
		switch member.Kind() {
		case "enum_assignment":
			if value, ok := parser.StringValue(doc, member.ChildByFieldName("value")); ok {
				out = append(out, value)
				continue
			}
			out = append(out, propertyName(doc, member.ChildByFieldName("name")))
		default:
			out = append(out, propertyName(doc, member))
		}
	}
	return out
}
