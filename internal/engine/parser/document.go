package parser

import (
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// LineRange is a 1-based inclusive line span.
type LineRange struct {
	Start int `json:"startLine"`
	End   int `json:"endLine"`
}

// NodeKey identifies a node within one tree. Node values returned by
// tree-sitter are not pointer-stable, so maps over nodes key on the span.
type NodeKey struct {
	Start uint
	End   uint
	Kind  string
}

func KeyOf(n *sitter.Node) NodeKey {
	if n == nil {
		return NodeKey{}
	}
	return NodeKey{Start: n.StartByte(), End: n.EndByte(), Kind: n.Kind()}
}

// Document is one parsed source file. It owns its tree; call Close when done.
type Document struct {
	Path     string
	Language string
	Source   []byte
	Tree     *sitter.Tree

	lineStarts []int
}

func newDocument(path, lang string, source []byte, tree *sitter.Tree) *Document {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{
		Path:       path,
		Language:   lang,
		Source:     source,
		Tree:       tree,
		lineStarts: starts,
	}
}

func (d *Document) Root() *sitter.Node {
	if d == nil || d.Tree == nil {
		return nil
	}
	return d.Tree.RootNode()
}

func (d *Document) Close() {
	if d == nil || d.Tree == nil {
		return
	}
	d.Tree.Close()
	d.Tree = nil
}

func (d *Document) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(d.Source[n.StartByte():n.EndByte()])
}

// Line returns the 1-based line a node starts on.
func (d *Document) Line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPosition().Row) + 1
}

func (d *Document) Range(n *sitter.Node) LineRange {
	if n == nil {
		return LineRange{}
	}
	return LineRange{
		Start: int(n.StartPosition().Row) + 1,
		End:   int(n.EndPosition().Row) + 1,
	}
}

// LineAt converts an absolute byte offset into a 1-based line number.
func (d *Document) LineAt(offset int) int {
	if offset <= 0 {
		return 1
	}
	// index of the last line start <= offset
	idx := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset })
	return idx
}

// LineCount returns the number of lines in the source.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// SyntaxError is one ERROR or MISSING node reported by tree-sitter.
type SyntaxError struct {
	Offset  int
	Line    int
	Missing bool
	// Token is the missing node kind, or the first token of the unexpected input.
	Token string
}

// SyntaxErrors lists error nodes in document order without descending into
// an error node's own children.
func (d *Document) SyntaxErrors() []SyntaxError {
	root := d.Root()
	if root == nil || !root.HasError() {
		return nil
	}
	var out []SyntaxError
	Walk(root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			out = append(out, SyntaxError{
				Offset:  int(n.StartByte()),
				Line:    d.Line(n),
				Missing: true,
				Token:   n.Kind(),
			})
			return false
		case n.IsError():
			out = append(out, SyntaxError{
				Offset: int(n.StartByte()),
				Line:   d.Line(n),
				Token:  firstToken(d, n),
			})
			return false
		}
		return n.HasError()
	})
	return out
}

func firstToken(d *Document, n *sitter.Node) string {
	for n.ChildCount() > 0 {
		n = n.Child(0)
	}
	text := d.Text(n)
	if len(text) > 24 {
		text = text[:24]
	}
	return text
}
