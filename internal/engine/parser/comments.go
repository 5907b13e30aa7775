package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// CommentBefore returns the cleaned text of the comments directly above n in
// the same block. Consecutive comment lines are joined; a blank line or a
// trailing comment of the previous statement ends the run.
func CommentBefore(doc *Document, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	cur := n
	for {
		prev := cur.PrevNamedSibling()
		if prev == nil || prev.Kind() != "comment" {
			break
		}
		if int(prev.EndPosition().Row)+1 < int(cur.StartPosition().Row) {
			break
		}
		if owner := prev.PrevNamedSibling(); owner != nil && owner.Kind() != "comment" &&
			owner.EndPosition().Row == prev.StartPosition().Row {
			break
		}
		parts = append(parts, cleanComment(doc.Text(prev)))
		cur = prev
	}
	if len(parts) == 0 {
		return ""
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func cleanComment(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		return strings.TrimSpace(strings.TrimPrefix(raw, "//"))
	}
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		out = append(out, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ParseDocComment splits cleaned comment text into its description and the
// verbatim "@tag ..." lines.
func ParseDocComment(text string) (string, []string) {
	var desc, tags []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			tags = append(tags, line)
			continue
		}
		desc = append(desc, line)
	}
	return strings.Join(desc, "\n"), tags
}
