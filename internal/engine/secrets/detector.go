// Package secrets flags credentials hardcoded into bubble parameters.
package secrets

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bubblelabai/BubbleLab-sub013/internal/engine/bubbles"
)

type PatternConfig struct {
	Name     string
	Regex    string
	Severity string
}

type Config struct {
	EntropyThreshold float64
	MinTokenLength   int
	Patterns         []PatternConfig
}

// Finding is one suspicious static value. Param is the dotted path of the
// value inside the constructor argument, e.g. "credentials.SLACK_CRED".
type Finding struct {
	VariableID   int     `json:"variableId"`
	VariableName string  `json:"variableName"`
	ClassName    string  `json:"className"`
	Param        string  `json:"param"`
	Kind         string  `json:"kind"`
	Severity     string  `json:"severity"`
	Masked       string  `json:"masked"`
	Entropy      float64 `json:"entropy"`
	Confidence   float64 `json:"confidence"`
	Line         int     `json:"line"`
}

const (
	defaultEntropyThreshold = 4.0
	defaultMinTokenLength   = 20

	confidencePattern = 0.99
	confidenceEntropy = 0.6
)

// builtinPatterns cover the credential shapes bubbles most often receive.
var builtinPatterns = []PatternConfig{
	{Name: "aws-access-key-id", Severity: "high", Regex: `\bAKIA[0-9A-Z]{16}\b`},
	{Name: "github-pat", Severity: "high", Regex: `\bghp_[A-Za-z0-9]{36}\b`},
	{Name: "github-fine-grained-pat", Severity: "high", Regex: `\bgithub_pat_[A-Za-z0-9_]{82}\b`},
	{Name: "stripe-live-secret", Severity: "high", Regex: `\bsk_live_[A-Za-z0-9]{16,}\b`},
	{Name: "openai-key", Severity: "high", Regex: `\bsk-(?:proj-)?[A-Za-z0-9_-]{32,}\b`},
	{Name: "slack-token", Severity: "high", Regex: `\bxox[baprs]-[A-Za-z0-9-]{10,}\b`},
	{Name: "slack-webhook", Severity: "high", Regex: `https://hooks\.slack\.com/services/[A-Za-z0-9/]{20,}`},
	{Name: "postgres-url-password", Severity: "high", Regex: `postgres(?:ql)?://[^:/\s]+:[^@\s]{4,}@`},
	{Name: "private-key-block", Severity: "critical", Regex: `-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`},
}

// credentialKey matches parameter keys that conventionally hold secrets.
var credentialKey = regexp.MustCompile(`(?i)(password|passwd|pwd|secret|api[_-]?key|token|auth|access[_-]?key|private[_-]?key|credential|cred)`)

// placeholderWords mark values that are documentation, not credentials.
var placeholderWords = []string{"example", "sample", "dummy", "placeholder", "changeme", "notasecret", "test", "xxxx"}

type matcher struct {
	kind     string
	severity string
	re       *regexp.Regexp
}

func (pc PatternConfig) compile() (matcher, error) {
	name, expr := strings.TrimSpace(pc.Name), strings.TrimSpace(pc.Regex)
	switch {
	case name == "":
		return matcher{}, fmt.Errorf("secret pattern name must not be empty")
	case expr == "":
		return matcher{}, fmt.Errorf("secret pattern %q has no regex", name)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return matcher{}, fmt.Errorf("secret pattern %q: %w", name, err)
	}
	severity := strings.ToLower(strings.TrimSpace(pc.Severity))
	if severity == "" {
		severity = "medium"
	}
	return matcher{kind: name, severity: severity, re: re}, nil
}

type Detector struct {
	threshold float64
	minLength int
	matchers  []matcher
}

// NewDetector compiles the builtin patterns followed by cfg.Patterns. Zero
// thresholds take the defaults.
func NewDetector(cfg Config) (*Detector, error) {
	d := &Detector{threshold: cfg.EntropyThreshold, minLength: cfg.MinTokenLength}
	if d.threshold <= 0 {
		d.threshold = defaultEntropyThreshold
	}
	if d.minLength <= 0 {
		d.minLength = defaultMinTokenLength
	}
	for _, pc := range slices.Concat(builtinPatterns, cfg.Patterns) {
		m, err := pc.compile()
		if err != nil {
			return nil, err
		}
		d.matchers = append(d.matchers, m)
	}
	return d, nil
}

// Scan inspects every statically known parameter value of the given bubbles.
// Findings are ordered by line, then parameter path.
func (d *Detector) Scan(list []*bubbles.ParsedBubble) []Finding {
	var out []Finding
	for _, b := range list {
		for _, p := range b.Parameters {
			if !p.Static {
				continue
			}
			d.walk(p.Resolved, p.Name, func(path, value string) {
				f, ok := d.check(path, value)
				if !ok {
					return
				}
				f.VariableID = b.VariableID
				f.VariableName = b.VariableName
				f.ClassName = b.ClassName
				f.Line = p.Location.Start
				out = append(out, f)
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Param < out[j].Param
	})
	return out
}

func (d *Detector) walk(v any, path string, visit func(path, value string)) {
	switch v := v.(type) {
	case string:
		visit(path, v)
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(v)) {
			d.walk(v[k], path+"."+k, visit)
		}
	case []any:
		for i, item := range v {
			d.walk(item, path+"["+strconv.Itoa(i)+"]", visit)
		}
	}
}

// check classifies one value, preferring a known token shape over a
// credential-named key over raw entropy.
func (d *Detector) check(path, value string) (Finding, bool) {
	if isPlaceholder(value) {
		return Finding{}, false
	}
	f := Finding{Param: path, Entropy: shannonEntropy(value)}
	for _, m := range d.matchers {
		if match := m.re.FindString(value); match != "" {
			f.Kind, f.Severity, f.Confidence = m.kind, m.severity, confidencePattern
			f.Masked = MaskValue(match)
			return f, true
		}
	}
	if utf8.RuneCountInString(value) < d.minLength || strings.ContainsFunc(value, unicode.IsSpace) {
		return Finding{}, false
	}
	f.Masked = MaskValue(value)
	switch {
	case credentialKey.MatchString(lastSegment(path)) && f.Entropy >= d.threshold*0.8:
		f.Kind, f.Severity, f.Confidence = "sensitive-assignment", "medium", 0.70
		if f.Entropy >= d.threshold {
			f.Confidence = 0.85
		}
		return f, true
	case strings.ContainsFunc(value, unicode.IsLetter) && strings.ContainsFunc(value, unicode.IsDigit) && f.Entropy >= d.threshold:
		f.Kind, f.Severity, f.Confidence = "high-entropy-string", "low", confidenceEntropy
		return f, true
	}
	return Finding{}, false
}

// lastSegment returns the final key of a parameter path, without any index.
func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	key, _, _ := strings.Cut(path, "[")
	return key
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	return slices.ContainsFunc(placeholderWords, func(w string) bool {
		return strings.Contains(lower, w)
	})
}

// shannonEntropy is the per-rune entropy of value in bits.
func shannonEntropy(value string) float64 {
	counts := make(map[rune]int)
	n := 0
	for _, r := range value {
		counts[r]++
		n++
	}
	var bits float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		bits -= p * math.Log2(p)
	}
	return bits
}

// MaskValue keeps the first and last four characters of values longer than
// eight and stars out shorter ones.
func MaskValue(value string) string {
	if len(value) > 8 {
		return value[:4] + "..." + value[len(value)-4:]
	}
	return strings.Repeat("*", len(value))
}
