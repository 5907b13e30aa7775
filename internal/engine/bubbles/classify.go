package bubbles

import (
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/binding"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"
	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/registry"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type SiteKind int

const (
	SiteUnknown SiteKind = iota
	SiteRegisteredBubble
)

func (k SiteKind) String() string {
	if k == SiteRegisteredBubble {
		return "registered-bubble"
	}
	return "unknown"
}

// Site is one constructor call site.
type Site struct {
	Kind SiteKind
	Node *sitter.Node
	// ClassName is the class the constructor resolves to through bindings,
	// empty when it does not resolve to an import.
	ClassName string
	Entry     *registry.Entry
}

// Classify tags every new expression in doc, in document order.
func Classify(doc *parser.Document, b *binding.Bindings, lookup registry.Lookup) []Site {
	var sites []Site
	parser.Walk(doc.Root(), func(n *sitter.Node) bool {
		if n.Kind() != "new_expression" {
			return true
		}
		site := Site{Kind: SiteUnknown, Node: n, ClassName: resolveClassName(doc, b, n.ChildByFieldName("constructor"))}
		if site.ClassName != "" && lookup != nil {
			if entry, ok := lookup.Entry(site.ClassName); ok {
				site.Kind = SiteRegisteredBubble
				site.Entry = entry
			}
		}
		sites = append(sites, site)
		return true
	})
	return sites
}

// resolveClassName maps a constructor expression to the exported class name
// it refers to. Classes declared in the document, unbound names and other
// expressions resolve to "".
func resolveClassName(doc *parser.Document, b *binding.Bindings, ctor *sitter.Node) string {
	ctor = parser.Unwrap(ctor)
	if ctor == nil {
		return ""
	}
	switch ctor.Kind() {
	case "identifier":
		decl := b.ResolveBinding(ctor)
		if decl == nil || decl.Kind != binding.KindImport {
			return ""
		}
		switch decl.Imported {
		case "*":
			return ""
		case "default":
			return decl.Name
		}
		return decl.Imported
	case "member_expression":
		object := parser.Unwrap(ctor.ChildByFieldName("object"))
		property := ctor.ChildByFieldName("property")
		if object == nil || property == nil || object.Kind() != "identifier" {
			return ""
		}
		decl := b.ResolveBinding(object)
		if decl == nil || decl.Kind != binding.KindImport || decl.Imported != "*" {
			return ""
		}
		return doc.Text(property)
	}
	return ""
}
