package parser

import (
	"strings"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(NewGrammarLoader())
}

func findKind(root *sitter.Node, kind string) []*sitter.Node {
	var out []*sitter.Node
	Walk(root, func(n *sitter.Node) bool {
		if n.Kind() == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

func TestDetectLanguage(t *testing.T) {
	gl := NewGrammarLoader()
	cases := map[string]string{
		"flow.ts":          LangTypeScript,
		"types/core.d.ts":  LangTypeScript,
		"Widget.TSX":       LangTSX,
		"legacy.mjs":       LangJavaScript,
		"":                 LangTypeScript,
		"__virtual__/flow": LangTypeScript,
	}
	for path, want := range cases {
		assert.Equal(t, want, gl.DetectLanguage(path), path)
	}
	assert.True(t, gl.IsSupportedPath("a.cts"))
	assert.False(t, gl.IsSupportedPath("a.py"))
	assert.Contains(t, gl.SupportedExtensions(), ".tsx")
}

func TestParse_LinesAndText(t *testing.T) {
	p := newTestParser()
	src := "const a = 1;\n\nconst b = 'two';\n"
	doc, err := p.Parse("flow.ts", []byte(src))
	require.NoError(t, err)
	defer doc.Close()

	decls := findKind(doc.Root(), "lexical_declaration")
	require.Len(t, decls, 2)
	assert.Equal(t, 1, doc.Line(decls[0]))
	assert.Equal(t, 3, doc.Line(decls[1]))
	assert.Equal(t, "const b = 'two';", doc.Text(decls[1]))

	assert.Equal(t, 1, doc.LineAt(0))
	assert.Equal(t, 1, doc.LineAt(11))
	assert.Equal(t, 2, doc.LineAt(13))
	assert.Equal(t, 3, doc.LineAt(14))
	assert.Empty(t, doc.SyntaxErrors())
}

func TestParse_CopiesSource(t *testing.T) {
	p := newTestParser()
	src := []byte("const a = 1;\n")
	doc, err := p.Parse("flow.ts", src)
	require.NoError(t, err)
	defer doc.Close()

	src[6] = 'z'
	assert.Equal(t, "const a = 1;\n", string(doc.Source))
}

func TestReparse_MatchesFullParse(t *testing.T) {
	p := newTestParser()
	before := "class Flow {\n  async handle() {\n    const a = 1;\n  }\n}\n"
	after := "class Flow {\n  async handle() {\n    const a = 1;\n    const b = a + 2;\n  }\n}\n"

	prev, err := p.Parse("flow.ts", []byte(before))
	require.NoError(t, err)

	incremental, err := p.Reparse(prev, []byte(after))
	require.NoError(t, err)
	defer incremental.Close()
	assert.Nil(t, prev.Tree, "previous document must be consumed")

	full, err := p.Parse("flow.ts", []byte(after))
	require.NoError(t, err)
	defer full.Close()

	assert.Equal(t, full.Root().ToSexp(), incremental.Root().ToSexp())
	assert.Equal(t, "flow.ts", incremental.Path)
}

func TestReparse_NilPrevious(t *testing.T) {
	p := newTestParser()
	doc, err := p.Reparse(nil, []byte("let x = 1;"))
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, LangTypeScript, doc.Language)
}

func TestComputeEdit(t *testing.T) {
	old := []byte("ab\ncd\nef")
	updated := []byte("ab\ncXYd\nef")
	edit, changed := computeEdit(old, updated)
	require.True(t, changed)
	assert.Equal(t, uint(4), edit.StartByte)
	assert.Equal(t, uint(4), edit.OldEndByte)
	assert.Equal(t, uint(6), edit.NewEndByte)
	assert.Equal(t, sitter.Point{Row: 1, Column: 1}, edit.StartPosition)
	assert.Equal(t, sitter.Point{Row: 1, Column: 3}, edit.NewEndPosition)

	_, changed = computeEdit(old, old)
	assert.False(t, changed)
}

func TestSyntaxErrors(t *testing.T) {
	p := newTestParser()
	doc, err := p.Parse("flow.ts", []byte("const a = ;\nconst b = 2;\n"))
	require.NoError(t, err)
	defer doc.Close()

	errs := doc.SyntaxErrors()
	require.NotEmpty(t, errs)
	assert.Equal(t, 1, errs[0].Line)
}

func TestStringValue(t *testing.T) {
	p := newTestParser()
	doc, err := p.Parse("flow.ts", []byte("const a = 'x';\nconst b = `y`;\nconst c = `z${a}`;\n"))
	require.NoError(t, err)
	defer doc.Close()

	var values []string
	var ok []bool
	for _, decl := range findKind(doc.Root(), "variable_declarator") {
		v, known := StringValue(doc, decl.ChildByFieldName("value"))
		values = append(values, v)
		ok = append(ok, known)
	}
	assert.Equal(t, []string{"x", "y", ""}, values)
	assert.Equal(t, []bool{true, true, false}, ok)
}

func TestCommentBefore(t *testing.T) {
	p := newTestParser()
	src := strings.Join([]string{
		"function run() {",
		"  // first line",
		"  // second line",
		"  const a = 1;",
		"  // detached",
		"",
		"  const b = 2;",
		"  const c = 3; // trailing",
		"  const d = 4;",
		"  /**",
		"   * Block comment",
		"   */",
		"  const e = 5;",
		"}",
	}, "\n")
	doc, err := p.Parse("flow.ts", []byte(src))
	require.NoError(t, err)
	defer doc.Close()

	decls := findKind(doc.Root(), "lexical_declaration")
	require.Len(t, decls, 5)
	assert.Equal(t, "first line\nsecond line", CommentBefore(doc, decls[0]))
	assert.Equal(t, "", CommentBefore(doc, decls[1]), "blank line breaks association")
	assert.Equal(t, "", CommentBefore(doc, decls[3]), "trailing comment belongs to previous statement")
	assert.Equal(t, "Block comment", CommentBefore(doc, decls[4]))
}

func TestParseDocComment(t *testing.T) {
	desc, tags := ParseDocComment("The file to process.\nMust be a PDF.\n@canBeFile\n@default report.pdf")
	assert.Equal(t, "The file to process.\nMust be a PDF.", desc)
	assert.Equal(t, []string{"@canBeFile", "@default report.pdf"}, tags)
}

func TestDispatcher(t *testing.T) {
	p := newTestParser()
	doc, err := p.Parse("flow.ts", []byte("function f() { return g(1); }\nh();\n"))
	require.NoError(t, err)
	defer doc.Close()

	var calls []string
	NewDispatcher(map[string]NodeHandler{
		"call_expression": func(n *sitter.Node) bool {
			calls = append(calls, doc.Text(n.ChildByFieldName("function")))
			return false
		},
		"function_declaration": func(n *sitter.Node) bool {
			return true
		},
	}).Walk(doc.Root())
	assert.Equal(t, []string{"h"}, calls, "handler returning true skips the subtree")
}
