// Package flow locates the flow class and its entry method in a document.
package flow

import (
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	BaseClass   = "BubbleFlow"
	EntryMethod = "handle"
)

type Entry struct {
	Class     *sitter.Node
	ClassName string
	// Handle is the entry method; Body its statement block.
	Handle *sitter.Node
	Body   *sitter.Node
	// Param is the first declared parameter of the entry method, ParamType the
	// node of its type annotation.
	Param     *sitter.Node
	ParamName string
	ParamType *sitter.Node

	methods map[string]*sitter.Node
	order   []string
	members map[string]bool
	base    string
}

// BaseMembers are the members a flow class inherits from BubbleFlow.
var BaseMembers = map[string]bool{
	"handle":         true,
	"name":           true,
	"description":    true,
	"trigger":        true,
	"getName":        true,
	"getDescription": true,
	"logger":         true,
}

// Locate finds the class extending BubbleFlow, or failing that the first class
// declaring a handle method. Nil when the document has neither.
func Locate(doc *parser.Document) *Entry {
	var fallback *Entry
	var found *Entry
	parser.Walk(doc.Root(), func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		switch n.Kind() {
		case "class_declaration", "abstract_class_declaration", "class":
		default:
			return true
		}
		entry := newEntry(doc, n)
		entry.base = superclass(doc, n)
		if entry.base == BaseClass || strings.HasSuffix(entry.base, "."+BaseClass) {
			found = entry
			return false
		}
		if fallback == nil && entry.Handle != nil {
			fallback = entry
		}
		return true
	})
	if found != nil {
		return found
	}
	return fallback
}

func newEntry(doc *parser.Document, class *sitter.Node) *Entry {
	e := &Entry{Class: class, methods: make(map[string]*sitter.Node), members: make(map[string]bool)}
	if name := class.ChildByFieldName("name"); name != nil {
		e.ClassName = doc.Text(name)
	}
	body := class.ChildByFieldName("body")
	for _, member := range parser.NamedChildren(body) {
		var name string
		var fn *sitter.Node
		switch member.Kind() {
		case "method_definition":
			name, fn = memberName(doc, member), member
			if name == "constructor" {
				e.addParameterProperties(doc, member)
			}
		case "public_field_definition", "field_definition":
			name = memberName(doc, member)
			if value := parser.Unwrap(member.ChildByFieldName("value")); parser.IsFunction(value) {
				fn = value
			}
		case "method_signature", "abstract_method_signature":
			name = memberName(doc, member)
		}
		if name != "" {
			e.members[name] = true
		}
		if name == "" || fn == nil {
			continue
		}
		if _, exists := e.methods[name]; !exists {
			e.methods[name] = fn
			e.order = append(e.order, name)
		}
	}

	e.Handle = e.methods[EntryMethod]
	if e.Handle == nil {
		return e
	}
	if b := e.Handle.ChildByFieldName("body"); b != nil && b.Kind() == "statement_block" {
		e.Body = b
	}
	params := e.Handle.ChildByFieldName("parameters")
	if first := parser.FirstNamedChild(params); first != nil {
		e.Param = first
		pattern := first
		if p := first.ChildByFieldName("pattern"); p != nil {
			pattern = p
		}
		if pattern.Kind() == "identifier" {
			e.ParamName = doc.Text(pattern)
		}
		if annotation := first.ChildByFieldName("type"); annotation != nil {
			e.ParamType = parser.FirstNamedChild(annotation)
		}
	}
	return e
}

// addParameterProperties records constructor parameters declared with an
// accessibility modifier or readonly.
func (e *Entry) addParameterProperties(doc *parser.Document, ctor *sitter.Node) {
	for _, param := range parser.NamedChildren(ctor.ChildByFieldName("parameters")) {
		if parser.ChildOfKind(param, "accessibility_modifier") == nil && !parser.HasToken(param, "readonly") {
			continue
		}
		if pattern := param.ChildByFieldName("pattern"); pattern != nil && pattern.Kind() == "identifier" {
			e.members[doc.Text(pattern)] = true
		}
	}
}

func memberName(doc *parser.Document, member *sitter.Node) string {
	name := member.ChildByFieldName("name")
	if name == nil {
		name = member.ChildByFieldName("property")
	}
	if name == nil {
		return ""
	}
	if value, ok := parser.StringValue(doc, name); ok {
		return value
	}
	return doc.Text(name)
}

func superclass(doc *parser.Document, class *sitter.Node) string {
	heritage := parser.ChildOfKind(class, "class_heritage")
	if heritage == nil {
		return ""
	}
	extends := parser.ChildOfKind(heritage, "extends_clause")
	if extends == nil {
		// the javascript grammar places the superclass directly under the heritage
		extends = heritage
	}
	value := extends.ChildByFieldName("value")
	if value == nil {
		value = parser.FirstNamedChild(extends)
	}
	if value == nil {
		return ""
	}
	return doc.Text(value)
}

// Statements returns the top-level statements of the entry method body.
func (e *Entry) Statements() []*sitter.Node {
	if e == nil || e.Body == nil {
		return nil
	}
	return parser.NamedChildren(e.Body)
}

// Method returns the function node of a same-class method or arrow-function
// field.
func (e *Entry) Method(name string) *sitter.Node {
	if e == nil {
		return nil
	}
	return e.methods[name]
}

// Methods returns member names in declaration order.
func (e *Entry) Methods() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.order...)
}

// Superclass returns the text of the extends clause, empty when none.
func (e *Entry) Superclass() string {
	if e == nil {
		return ""
	}
	return e.base
}

// HasMember reports whether the class declares name as a method, field or
// parameter property.
func (e *Entry) HasMember(name string) bool {
	if e == nil {
		return false
	}
	return e.members[name]
}
