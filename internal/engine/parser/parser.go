package parser

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bubblelabai/BubbleLab-sub013/internal/core/errors"
	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser turns flow sources into Documents. It is safe for concurrent use.
type Parser struct {
	loader *GrammarLoader
	pools  map[string]*ParserPool
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader: loader,
		pools:  make(map[string]*ParserPool),
	}
	for _, id := range []string{LangTypeScript, LangTSX, LangJavaScript} {
		if lang, ok := loader.Language(id); ok {
			p.pools[id] = NewParserPool(lang)
		}
	}
	return p
}

func (p *Parser) Loader() *GrammarLoader {
	return p.loader
}

// Parse performs a full parse of source.
func (p *Parser) Parse(path string, source []byte) (*Document, error) {
	lang := p.loader.DetectLanguage(path)
	return p.parse(path, lang, source, nil, "full")
}

// Reparse parses source reusing prev's tree. prev is consumed: its tree is
// edited in place and closed, and must not be used afterwards.
func (p *Parser) Reparse(prev *Document, source []byte) (*Document, error) {
	if prev == nil || prev.Tree == nil {
		path := ""
		if prev != nil {
			path = prev.Path
		}
		return p.Parse(path, source)
	}
	if edit, changed := computeEdit(prev.Source, source); changed {
		prev.Tree.Edit(&edit)
	}
	doc, err := p.parse(prev.Path, prev.Language, source, prev.Tree, "incremental")
	prev.Close()
	return doc, err
}

func (p *Parser) parse(path, lang string, source []byte, old *sitter.Tree, mode string) (*Document, error) {
	pool := p.pools[lang]
	if pool == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("grammar not loaded: %s", lang))
	}
	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang, mode).Observe(time.Since(start).Seconds())
	}()

	src := bytes.Clone(source)
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(src, old)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseFailed, "parse failed"), errors.CtxPath, path)
	}
	return newDocument(path, lang, src, tree), nil
}

// computeEdit describes the change from old to new as one replaced span
// between their common prefix and suffix.
func computeEdit(old, new []byte) (sitter.InputEdit, bool) {
	if bytes.Equal(old, new) {
		return sitter.InputEdit{}, false
	}
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix &&
		old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}
	return sitter.InputEdit{
		StartByte:      uint(prefix),
		OldEndByte:     uint(len(old) - suffix),
		NewEndByte:     uint(len(new) - suffix),
		StartPosition:  pointAt(old, prefix),
		OldEndPosition: pointAt(old, len(old)-suffix),
		NewEndPosition: pointAt(new, len(new)-suffix),
	}, true
}

func pointAt(src []byte, offset int) sitter.Point {
	head := src[:offset]
	row := bytes.Count(head, []byte{'\n'})
	col := offset - (bytes.LastIndexByte(head, '\n') + 1)
	return sitter.Point{Row: uint(row), Column: uint(col)}
}
