package binding

import (
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// signatureKinds declare parameters without a body.
var signatureKinds = map[string]bool{
	"function_signature":        true,
	"method_signature":          true,
	"abstract_method_signature": true,
	"call_signature":            true,
	"construct_signature":       true,
	"function_type":             true,
	"constructor_type":          true,
}

var classKinds = map[string]bool{
	"class_declaration":          true,
	"abstract_class_declaration": true,
	"class":                      true,
}

// declare walks n, creating scopes and hoisting declarations into them.
func (b *Bindings) declare(n *sitter.Node, scope *Scope) {
	if n == nil {
		return
	}
	kind := n.Kind()
	switch {
	case kind == "import_statement":
		b.declareImport(n, scope)
		return
	case parser.IsFunction(n) || signatureKinds[kind]:
		b.declareFunction(n, scope)
		return
	case classKinds[kind]:
		if name := n.ChildByFieldName("name"); name != nil && kind != "class" {
			b.add(scope, name, n, KindClass)
		}
		inner := b.open("class", n, scope)
		if kind == "class" {
			if name := n.ChildByFieldName("name"); name != nil {
				b.add(inner, name, n, KindClass)
			}
		}
		b.declareChildren(n, inner)
		return
	case kind == "statement_block" && n.Parent() != nil && !parser.IsFunction(n.Parent()):
		b.declareChildren(n, b.open("block", n, scope))
		return
	case kind == "for_statement" || kind == "for_in_statement":
		inner := b.open("loop", n, scope)
		if kind == "for_in_statement" && declarationKeyword(n) != "" {
			for _, ident := range patternNames(n.ChildByFieldName("left")) {
				decl := b.add(inner, ident, n, KindVariable)
				if decl != nil {
					decl.Const = declarationKeyword(n) == "const"
				}
			}
		}
		b.declareChildren(n, inner)
		return
	case kind == "catch_clause":
		inner := b.open("catch", n, scope)
		for _, ident := range patternNames(n.ChildByFieldName("parameter")) {
			b.add(inner, ident, n, KindParameter)
		}
		b.declareChildren(n, inner)
		return
	case kind == "lexical_declaration" || kind == "variable_declaration":
		constant := declarationKeyword(n) == "const"
		for _, declarator := range parser.NamedChildren(n) {
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			name := declarator.ChildByFieldName("name")
			value := declarator.ChildByFieldName("value")
			for _, ident := range patternNames(name) {
				decl := b.add(scope, ident, declarator, KindVariable)
				if decl == nil {
					continue
				}
				decl.Const = constant
				if name.Kind() == "identifier" {
					decl.Init = value
				}
			}
			b.declare(value, scope)
		}
		return
	case kind == "interface_declaration":
		b.add(scope, n.ChildByFieldName("name"), n, KindInterface)
	case kind == "type_alias_declaration":
		b.add(scope, n.ChildByFieldName("name"), n, KindTypeAlias)
	case kind == "enum_declaration":
		b.add(scope, n.ChildByFieldName("name"), n, KindEnum)
	case kind == "type_parameter":
		b.add(scope, n.ChildByFieldName("name"), n, KindTypeParam)
	case kind == "index_signature":
		inner := b.open("signature", n, scope)
		if name := n.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
			b.add(inner, name, n, KindParameter)
		}
		b.declareChildren(n, inner)
		return
	case kind == "mapped_type_clause":
		b.add(scope, n.ChildByFieldName("name"), n, KindTypeParam)
	case kind == "infer_type":
		b.add(scope, parser.ChildOfKind(n, "type_identifier"), n, KindTypeParam)
	case kind == "internal_module" || kind == "module":
		if name := n.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
			b.add(scope, name, n, KindVariable)
		}
	}
	b.declareChildren(n, scope)
}

func (b *Bindings) declareChildren(n *sitter.Node, scope *Scope) {
	for i := uint(0); i < n.ChildCount(); i++ {
		b.declare(n.Child(i), scope)
	}
}

func (b *Bindings) open(kind string, n *sitter.Node, parent *Scope) *Scope {
	s := newScope(kind, n, parent)
	b.scopes[parser.KeyOf(n)] = s
	return s
}

func (b *Bindings) declareFunction(n *sitter.Node, scope *Scope) {
	name := n.ChildByFieldName("name")
	inner := b.open("function", n, scope)
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		b.add(scope, name, n, KindFunction)
	case "function_expression", "function", "generator_function":
		b.add(inner, name, n, KindFunction)
	}

	if param := n.ChildByFieldName("parameter"); param != nil {
		b.add(inner, param, n, KindParameter)
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		b.declare(tp, inner)
	}
	params := n.ChildByFieldName("parameters")
	if params == nil {
		params = parser.ChildOfKind(n, "formal_parameters")
	}
	if params != nil {
		for _, param := range parser.NamedChildren(params) {
			pattern := param
			if param.Kind() == "required_parameter" || param.Kind() == "optional_parameter" {
				pattern = param.ChildByFieldName("pattern")
			}
			for _, ident := range patternNames(pattern) {
				b.add(inner, ident, param, KindParameter)
			}
			b.declareChildren(param, inner)
		}
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		b.declare(ret, inner)
	}
	body := n.ChildByFieldName("body")
	switch {
	case body == nil:
	case body.Kind() == "statement_block":
		b.declareChildren(body, b.open("block", body, inner))
	default:
		b.declare(body, inner)
	}
}

func (b *Bindings) declareImport(n *sitter.Node, scope *Scope) {
	module := ""
	if source := n.ChildByFieldName("source"); source != nil {
		module, _ = parser.StringValue(b.doc, source)
	}
	statementTypeOnly := parser.HasToken(n, "type")
	clause := parser.ChildOfKind(n, "import_clause")
	if clause == nil {
		return
	}
	for _, part := range parser.NamedChildren(clause) {
		switch part.Kind() {
		case "identifier":
			if decl := b.add(scope, part, part, KindImport); decl != nil {
				decl.Imported, decl.Module, decl.TypeOnly = "default", module, statementTypeOnly
			}
		case "namespace_import":
			ident := parser.ChildOfKind(part, "identifier")
			if decl := b.add(scope, ident, part, KindImport); decl != nil {
				decl.Imported, decl.Module, decl.TypeOnly = "*", module, statementTypeOnly
			}
		case "named_imports":
			for _, spec := range parser.NamedChildren(part) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias
					b.skip[parser.KeyOf(name)] = true
				}
				if decl := b.add(scope, local, spec, KindImport); decl != nil {
					decl.Imported = b.doc.Text(name)
					decl.Module = module
					decl.TypeOnly = statementTypeOnly || parser.HasToken(spec, "type")
				}
			}
		}
	}
}

// add declares ident in scope. A name already declared in the same scope keeps
// its first declaration; later sites are still recorded as declaration names.
func (b *Bindings) add(scope *Scope, ident, node *sitter.Node, kind DeclKind) *Declaration {
	if ident == nil {
		return nil
	}
	name := b.doc.Text(ident)
	if name == "" || name == "this" {
		return nil
	}
	if existing, ok := scope.symbols[name]; ok {
		b.declNames[parser.KeyOf(ident)] = existing
		return nil
	}
	decl := &Declaration{
		Name:     name,
		Kind:     kind,
		Ident:    ident,
		Node:     node,
		Scope:    scope,
		Exported: isExported(node),
	}
	scope.symbols[name] = decl
	b.declNames[parser.KeyOf(ident)] = decl
	b.decls = append(b.decls, decl)
	return decl
}

func isExported(node *sitter.Node) bool {
	for cur, hops := node, 0; cur != nil && hops < 3; cur, hops = cur.Parent(), hops+1 {
		switch cur.Kind() {
		case "export_statement":
			return true
		case "program", "statement_block", "class_body":
			return false
		}
	}
	return false
}

func declarationKeyword(n *sitter.Node) string {
	for _, kw := range []string{"const", "let", "var"} {
		if parser.HasToken(n, kw) {
			return kw
		}
	}
	return ""
}

// patternNames collects the identifiers bound by a declaration pattern.
func patternNames(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []*sitter.Node{n}
	case "pair_pattern":
		return patternNames(n.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return patternNames(n.ChildByFieldName("left"))
	case "object_pattern", "array_pattern", "rest_pattern":
		var out []*sitter.Node
		for _, child := range parser.NamedChildren(n) {
			out = append(out, patternNames(child)...)
		}
		return out
	}
	return nil
}
