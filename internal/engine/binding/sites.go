package binding

import (
	"sort"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/parser"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type SiteKind string

const (
	SiteInit   SiteKind = "init"
	SiteAssign SiteKind = "assign"
	SiteAppend SiteKind = "append"
)

// Site is one place a declaration receives a value.
type Site struct {
	Kind SiteKind
	// Node is the declarator, assignment expression or append call.
	Node   *sitter.Node
	Values []*sitter.Node
}

var appendMethods = map[string]bool{"push": true, "unshift": true}

// AssignmentsTo returns the initializer, reassignment and append sites of
// decl in document order.
func (b *Bindings) AssignmentsTo(decl *Declaration) []Site {
	if decl == nil {
		return nil
	}
	var sites []Site
	if decl.Init != nil {
		sites = append(sites, Site{Kind: SiteInit, Node: decl.Node, Values: []*sitter.Node{decl.Init}})
	}
	for _, ref := range decl.refs {
		if site, ok := b.siteOf(ref.Node); ok {
			sites = append(sites, site)
		}
	}
	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].Node.StartByte() < sites[j].Node.StartByte()
	})
	return sites
}

func (b *Bindings) siteOf(ident *sitter.Node) (Site, bool) {
	parent := ident.Parent()
	if parent == nil {
		return Site{}, false
	}
	key := parser.KeyOf(ident)
	switch parent.Kind() {
	case "assignment_expression", "augmented_assignment_expression":
		left := parent.ChildByFieldName("left")
		if left == nil || parser.KeyOf(left) != key {
			return Site{}, false
		}
		return Site{Kind: SiteAssign, Node: parent, Values: []*sitter.Node{parent.ChildByFieldName("right")}}, true
	case "member_expression":
		object := parent.ChildByFieldName("object")
		property := parent.ChildByFieldName("property")
		if object == nil || property == nil || parser.KeyOf(object) != key {
			return Site{}, false
		}
		if !appendMethods[b.doc.Text(property)] {
			return Site{}, false
		}
		call := parent.Parent()
		if call == nil || call.Kind() != "call_expression" {
			return Site{}, false
		}
		if fn := call.ChildByFieldName("function"); fn == nil || parser.KeyOf(fn) != parser.KeyOf(parent) {
			return Site{}, false
		}
		return Site{Kind: SiteAppend, Node: call, Values: parser.NamedChildren(call.ChildByFieldName("arguments"))}, true
	}
	return Site{}, false
}
