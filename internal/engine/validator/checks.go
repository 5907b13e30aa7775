package validator

import (
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/flow"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type checker struct {
	p     *Project
	doc   *parser.Document
	b     *binding.Bindings
	entry *flow.Entry
	diags []Diagnostic
}

// check runs every check over doc. A document with syntax errors reports
// only those.
func (p *Project) check(doc *parser.Document) []Diagnostic {
	c := &checker{p: p, doc: doc}
	if c.syntax() {
		return c.diags
	}
	c.b = binding.Resolve(doc)
	c.entry = flow.Locate(doc)

	c.modules()
	c.names()
	c.thisMembers()
	c.bubbleParams()
	c.unused()
	return c.diags
}

func (c *checker) report(code int, n *sitter.Node, format string, args ...any) {
	c.diags = append(c.diags, newDiagnostic(code, int(n.StartByte()), format, args...))
}

func (c *checker) syntax() bool {
	errs := c.doc.SyntaxErrors()
	for _, e := range errs {
		if e.Missing {
			c.diags = append(c.diags, newDiagnostic(CodeMissingToken, e.Offset, "%s expected.", expectedToken(e.Token)))
			continue
		}
		c.diags = append(c.diags, newDiagnostic(CodeExpressionExpected, e.Offset, "Expression expected."))
	}
	return len(errs) > 0
}

func expectedToken(kind string) string {
	if kind == "" {
		return "Token"
	}
	if strings.IndexFunc(kind, func(r rune) bool { return r >= 'a' && r <= 'z' }) < 0 {
		return "'" + kind + "'"
	}
	if kind == "identifier" || strings.HasSuffix(kind, "_identifier") {
		return "Identifier"
	}
	return "'" + kind + "'"
}

// modules checks import and re-export clauses against the project graph.
func (c *checker) modules() {
	for _, stmt := range parser.NamedChildren(c.doc.Root()) {
		var source *sitter.Node
		switch stmt.Kind() {
		case "import_statement", "export_statement":
			source = stmt.ChildByFieldName("source")
		}
		if source == nil {
			continue
		}
		spec, _ := parser.StringValue(c.doc, source)
		if stmt.Kind() == "import_statement" && parser.ChildOfKind(stmt, "import_clause") == nil {
			// side-effect imports are not resolved
			continue
		}
		target, ok := c.p.resolveModule(c.doc.Path, spec)
		if !ok {
			c.report(CodeCannotFindModule, source, "Cannot find module '%s' or its corresponding type declarations.", spec)
			continue
		}
		for _, name := range importedNames(stmt) {
			res := c.p.findExport(target, c.doc.Text(name), 0)
			if !res.found && !res.uncertain {
				c.report(CodeNoExportedMember, name, "Module '\"%s\"' has no exported member '%s'.", spec, c.doc.Text(name))
			}
		}
	}
}

// importedNames returns the source-side name nodes of named import and
// re-export specifiers.
func importedNames(stmt *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	var specs []*sitter.Node
	if clause := parser.ChildOfKind(stmt, "import_clause"); clause != nil {
		specs = parser.NamedChildren(parser.ChildOfKind(clause, "named_imports"))
	} else {
		specs = parser.NamedChildren(parser.ChildOfKind(stmt, "export_clause"))
	}
	for _, spec := range specs {
		switch spec.Kind() {
		case "import_specifier", "export_specifier":
			if name := spec.ChildByFieldName("name"); name != nil {
				out = append(out, name)
			}
		}
	}
	return out
}

func (c *checker) names() {
	for _, ref := range c.b.Unresolved() {
		if builtinGlobals[ref.Name] || c.p.globals[ref.Name] {
			continue
		}
		if ref.Name == "arguments" && insidePlainFunction(ref.Node) {
			continue
		}
		c.report(CodeCannotFindName, ref.Node, "Cannot find name '%s'.", ref.Name)
	}
}

// insidePlainFunction reports whether n runs in a function with its own
// `this` and `arguments`.
func insidePlainFunction(n *sitter.Node) bool {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "arrow_function":
			continue
		case "function_expression", "function", "function_declaration", "generator_function",
			"generator_function_declaration", "method_definition":
			return true
		case "class_body":
			return false
		}
	}
	return false
}

// thisMembers reports `this.x` accesses in the flow class naming no declared
// or inherited member. Classes extending anything but BubbleFlow are skipped.
func (c *checker) thisMembers() {
	e := c.entry
	if e == nil {
		return
	}
	if base := e.Superclass(); base != "" && base != flow.BaseClass && !strings.HasSuffix(base, "."+flow.BaseClass) {
		return
	}
	body := e.Class.ChildByFieldName("body")
	parser.Walk(body, func(n *sitter.Node) bool {
		if n.Kind() != "member_expression" {
			return true
		}
		object := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if object == nil || object.Kind() != "this" || prop == nil || prop.Kind() != "property_identifier" {
			return true
		}
		if c.thisBoundTo(n) != parser.KeyOf(e.Class) {
			return true
		}
		name := c.doc.Text(prop)
		if !e.HasMember(name) && !flow.BaseMembers[name] {
			c.report(CodePropertyMissingOn, prop, "Property '%s' does not exist on type '%s'.", name, e.ClassName)
		}
		return true
	})
}

// thisBoundTo returns the class `this` refers to at n, or the zero key when a
// plain function rebinds it.
func (c *checker) thisBoundTo(n *sitter.Node) parser.NodeKey {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "function_expression", "function", "function_declaration", "generator_function", "generator_function_declaration":
			return parser.NodeKey{}
		case "method_definition":
			if parent := cur.Parent(); parent != nil && parent.Kind() == "object" {
				return parser.NodeKey{}
			}
		case "class_declaration", "abstract_class_declaration", "class":
			return parser.KeyOf(cur)
		}
	}
	return parser.NodeKey{}
}

// bubbleParams checks object-literal constructor arguments of registered
// bubbles against the parameters the selected operation accepts.
func (c *checker) bubbleParams() {
	if c.p.lookup == nil {
		return
	}
	for _, site := range bubbles.Classify(c.doc, c.b, c.p.lookup) {
		if site.Kind != bubbles.SiteRegisteredBubble {
			continue
		}
		arg := parser.Unwrap(parser.FirstNamedChild(site.Node.ChildByFieldName("arguments")))
		if arg == nil || arg.Kind() != "object" {
			continue
		}
		c.objectArgument(site.Entry, arg)
	}
}

type objectProp struct {
	name  string
	key   *sitter.Node
	value *sitter.Node
}

func (c *checker) objectProps(obj *sitter.Node) ([]objectProp, bool) {
	var props []objectProp
	spread := false
	for _, member := range parser.NamedChildren(obj) {
		switch member.Kind() {
		case "pair":
			key := member.ChildByFieldName("key")
			if key == nil || key.Kind() == "computed_property_name" {
				spread = true
				continue
			}
			props = append(props, objectProp{name: propertyKey(c.doc, key), key: key, value: member.ChildByFieldName("value")})
		case "shorthand_property_identifier":
			props = append(props, objectProp{name: c.doc.Text(member), key: member})
		case "method_definition":
			if name := member.ChildByFieldName("name"); name != nil {
				props = append(props, objectProp{name: propertyKey(c.doc, name), key: name})
			}
		case "spread_element":
			spread = true
		}
	}
	return props, spread
}

func propertyKey(doc *parser.Document, key *sitter.Node) string {
	if value, ok := parser.StringValue(doc, key); ok {
		return value
	}
	return doc.Text(key)
}

func (c *checker) objectArgument(entry *registry.Entry, obj *sitter.Node) {
	props, spread := c.objectProps(obj)
	typeName := entry.ClassName + "Params"

	op, opKnown := "", len(entry.Operations) == 0
	for _, prop := range props {
		if prop.name != registry.OperationParam || len(entry.Operations) == 0 {
			continue
		}
		value, ok := parser.StringValue(c.doc, parser.Unwrap(prop.value))
		if !ok {
			// dynamic operation: accept any variant
			continue
		}
		op = value
		if _, opKnown = entry.Operation(value); !opKnown {
			c.report(CodeNotAssignable, prop.value, "Type '\"%s\"' is not assignable to type '%s'.", value, quotedUnion(entry.OperationNames()))
		}
	}

	accepted := make(map[string]registry.ParamSpec)
	for _, spec := range entry.ParamsFor(op) {
		accepted[spec.Name] = spec
	}
	if !opKnown {
		for _, variant := range entry.Operations {
			for _, spec := range variant.Params {
				if _, ok := accepted[spec.Name]; !ok {
					accepted[spec.Name] = spec
				}
			}
		}
	}

	present := make(map[string]bool, len(props))
	for _, prop := range props {
		present[prop.name] = true
		spec, ok := accepted[prop.name]
		if !ok {
			c.report(CodeExcessProperty, prop.key, "Object literal may only specify known properties, and '%s' does not exist in type '%s'.", prop.name, typeName)
			continue
		}
		if prop.name == registry.OperationParam && len(entry.Operations) > 0 {
			continue
		}
		c.literalValue(spec, prop.value)
	}

	if spread {
		return
	}
	for _, spec := range entry.ParamsFor(op) {
		if spec.Required && !present[spec.Name] {
			c.report(CodeMissingProperty, obj, "Property '%s' is missing in type '%s' but required in type '%s'.", spec.Name, c.literalShape(props), typeName)
		}
	}
}

// literalValue reports a literal initializer that cannot satisfy spec.
func (c *checker) literalValue(spec registry.ParamSpec, value *sitter.Node) {
	value = parser.Unwrap(value)
	widened, literal, ok := literalType(c.doc, value)
	if !ok || spec.Type == "" || spec.Type == "any" {
		return
	}
	if len(spec.Enum) > 0 && widened == "string" {
		for _, allowed := range spec.Enum {
			if allowed == literal {
				return
			}
		}
		c.report(CodeNotAssignable, value, "Type '\"%s\"' is not assignable to type '%s'.", literal, quotedUnion(spec.Enum))
		return
	}
	if widened == spec.Type {
		return
	}
	c.report(CodeNotAssignable, value, "Type '%s' is not assignable to type '%s'.", tsTypeName(widened), tsTypeName(spec.Type))
}

// literalType classifies primitive literal nodes. literal is the unquoted
// string value for strings.
func literalType(doc *parser.Document, n *sitter.Node) (string, string, bool) {
	if n == nil {
		return "", "", false
	}
	if value, ok := parser.StringValue(doc, n); ok {
		return "string", value, true
	}
	switch n.Kind() {
	case "number":
		return "number", doc.Text(n), true
	case "true", "false":
		return "boolean", doc.Text(n), true
	case "null":
		return "null", "null", true
	case "unary_expression":
		if arg := n.ChildByFieldName("argument"); arg != nil && arg.Kind() == "number" {
			return "number", doc.Text(n), true
		}
	case "array":
		return "array", "", true
	}
	return "", "", false
}

func tsTypeName(specType string) string {
	switch specType {
	case "array":
		return "unknown[]"
	case "object":
		return "Record<string, unknown>"
	}
	return specType
}

func quotedUnion(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "\"" + v + "\""
	}
	return strings.Join(quoted, " | ")
}

// literalShape renders the object literal type for messages.
func (c *checker) literalShape(props []objectProp) string {
	if len(props) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(props))
	for _, prop := range props {
		t := "any"
		if widened, literal, ok := literalType(c.doc, parser.Unwrap(prop.value)); ok {
			t = widened
			if widened == "string" && prop.name == registry.OperationParam {
				t = "\"" + literal + "\""
			} else if widened == "array" {
				t = "any[]"
			}
		}
		parts = append(parts, prop.name+": "+t+";")
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// unused reports declarations that are never referenced. Imports whose whole
// clause is unused collapse into one finding on the statement.
func (c *checker) unused() {
	type importGroup struct {
		stmt   *sitter.Node
		total  int
		unused []*binding.Declaration
	}
	groups := make(map[parser.NodeKey]*importGroup)
	var order []parser.NodeKey

	for _, decl := range c.b.Declarations() {
		if decl.Kind == binding.KindImport {
			stmt := parser.Enclosing(decl.Node, "import_statement")
			if stmt == nil {
				continue
			}
			key := parser.KeyOf(stmt)
			g, ok := groups[key]
			if !ok {
				g = &importGroup{stmt: stmt}
				groups[key] = g
				order = append(order, key)
			}
			g.total++
			if !decl.Used() {
				g.unused = append(g.unused, decl)
			}
			continue
		}
		if decl.Used() || c.ignoredUnused(decl) {
			continue
		}
		c.report(CodeUnusedDeclaration, decl.Ident, "%s", unusedMessage(decl))
	}

	for _, key := range order {
		g := groups[key]
		if len(g.unused) == 0 {
			continue
		}
		if len(g.unused) == g.total && g.total > 1 {
			c.report(CodeUnusedImports, g.stmt, "All imports in import declaration are unused.")
			continue
		}
		for _, decl := range g.unused {
			c.report(CodeUnusedDeclaration, decl.Ident, "%s", unusedMessage(decl))
		}
	}
}

func (c *checker) ignoredUnused(decl *binding.Declaration) bool {
	switch decl.Kind {
	case binding.KindParameter, binding.KindTypeParam:
		return true
	}
	if decl.Exported || decl.Ident == nil {
		return true
	}
	if decl.Scope != nil && decl.Scope.Kind == "catch" {
		return true
	}
	switch decl.Node.Kind() {
	case "function_expression", "class", "generator_function":
		// the name of a function or class expression
		return true
	}
	if c.entry != nil && parser.KeyOf(decl.Node) == parser.KeyOf(c.entry.Class) {
		return true
	}
	return parser.Enclosing(decl.Node, "ambient_declaration") != nil
}

func unusedMessage(decl *binding.Declaration) string {
	switch decl.Kind {
	case binding.KindInterface, binding.KindTypeAlias, binding.KindClass, binding.KindEnum:
		return "'" + decl.Name + "' is declared but never used."
	}
	return "'" + decl.Name + "' is declared but its value is never read."
}
