package util

import (
	"cmp"
	"path"
	"slices"
	"strings"
)

// SlashPath returns p with forward slashes, cleaned and without a leading
// "./". The current directory becomes "".
func SlashPath(p string) string {
	p = path.Clean(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"))
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// WithinDir reports whether file is dir or lies below it. Both sides are
// compared in SlashPath form.
func WithinDir(file, dir string) bool {
	file, dir = SlashPath(file), SlashPath(dir)
	switch {
	case file == dir:
		return true
	case file == "" || dir == "":
		return false
	case dir == "/":
		return strings.HasPrefix(file, "/")
	}
	return strings.HasPrefix(file, dir+"/")
}

// SortedKeys returns the map's keys in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// TrimAll trims every value and drops the empty ones.
func TrimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
