package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bubblelabai/BubbleLab-sub013/internal/shared/util"
)

// TypeScript-compatible diagnostic codes.
const (
	CodeMissingToken       = 1005
	CodeExpressionExpected = 1109
	CodeCannotFindName     = 2304
	CodeNoExportedMember   = 2305
	CodeCannotFindModule   = 2307
	CodeNotAssignable      = 2322
	CodePropertyMissingOn  = 2339
	CodeExcessProperty     = 2353
	CodeMissingProperty    = 2741
	CodeUnusedDeclaration  = 6133
	CodeUnusedImports      = 6192
)

// Diagnostic is one finding at a byte offset of the validated text.
type Diagnostic struct {
	Code    int    `json:"code"`
	Offset  int    `json:"offset"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result maps 1-based lines to their newline-joined messages. Success holds
// exactly when Errors is empty.
type Result struct {
	Success bool           `json:"success"`
	Errors  map[int]string `json:"errors,omitempty"`
	// Diagnostics are the unsuppressed findings in offset order.
	Diagnostics []Diagnostic `json:"-"`
	// Suppressed counts findings dropped by policy.
	Suppressed int `json:"-"`
	Version    int `json:"-"`
}

// Lines returns the lines carrying errors in ascending order.
func (r *Result) Lines() []int {
	return util.SortedKeys(r.Errors)
}

func newDiagnostic(code, offset int, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// lineMap converts byte offsets to 1-based lines.
type lineMap []int

func newLineMap(text string) lineMap {
	starts := lineMap{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (m lineMap) line(offset int) int {
	return sort.Search(len(m), func(i int) bool { return m[i] > offset })
}

// buildResult drops suppressed codes and groups the rest by line.
func buildResult(diags []Diagnostic, text string, suppressed func(int) bool) *Result {
	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Offset != diags[j].Offset {
			return diags[i].Offset < diags[j].Offset
		}
		return diags[i].Code < diags[j].Code
	})
	lines := newLineMap(text)
	res := &Result{Errors: make(map[int]string)}
	grouped := make(map[int][]string)
	for _, d := range diags {
		if suppressed(d.Code) {
			res.Suppressed++
			continue
		}
		d.Line = lines.line(d.Offset)
		res.Diagnostics = append(res.Diagnostics, d)
		grouped[d.Line] = append(grouped[d.Line], d.Message)
	}
	for line, messages := range grouped {
		res.Errors[line] = strings.Join(messages, "\n")
	}
	res.Success = len(res.Errors) == 0
	return res
}
