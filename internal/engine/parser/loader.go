package parser

import (
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

const (
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJavaScript = "javascript"
)

// GrammarLoader owns the tree-sitter grammars a flow can be written in.
type GrammarLoader struct {
	languages  map[string]*sitter.Language
	extensions map[string]string
}

func NewGrammarLoader() *GrammarLoader {
	gl := &GrammarLoader{
		languages: map[string]*sitter.Language{
			LangTypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangTSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			LangJavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
		},
		extensions: map[string]string{
			".ts":  LangTypeScript,
			".mts": LangTypeScript,
			".cts": LangTypeScript,
			".tsx": LangTSX,
			".js":  LangJavaScript,
			".mjs": LangJavaScript,
			".cjs": LangJavaScript,
			".jsx": LangJavaScript,
		},
	}
	return gl
}

// Language returns the grammar for a language id.
func (gl *GrammarLoader) Language(id string) (*sitter.Language, bool) {
	lang, ok := gl.languages[id]
	return lang, ok
}

// DetectLanguage maps a path to a language id. Paths without a known
// extension, including empty virtual paths, are treated as TypeScript.
func (gl *GrammarLoader) DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if strings.HasSuffix(strings.ToLower(path), ".d.ts") {
		return LangTypeScript
	}
	if lang, ok := gl.extensions[ext]; ok {
		return lang
	}
	return LangTypeScript
}

// IsSupportedPath reports whether path carries a flow source extension.
func (gl *GrammarLoader) IsSupportedPath(path string) bool {
	_, ok := gl.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	extensions := make([]string, 0, len(gl.extensions))
	for ext := range gl.extensions {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
