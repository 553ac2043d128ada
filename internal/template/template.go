package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dicomsort/internal/textutil"
)

// DefaultRecursionLimit bounds how many substitution passes Render performs.
const DefaultRecursionLimit = 5

var (
	// ErrRecursionLimit is returned when tokens remain after the last pass.
	ErrRecursionLimit = errors.New("template recursion limit exceeded")
	// ErrFormat is returned for malformed tokens and values that cannot be
	// formatted for their verb.
	ErrFormat = errors.New("template format error")
)

// token matches "%%" or "%(Name)<flags><width>.<precision><verb>".
var token = regexp.MustCompile(`%(?:%|\(([^()]*)\)([#0\- +]*)([0-9]*)(?:\.([0-9]+))?([a-zA-Z]?))`)

// fieldToken detects whether a string still needs a substitution pass.
var fieldToken = regexp.MustCompile(`%\([^()]*\)`)

// Lookup resolves field values by name.
type Lookup interface {
	Get(name string) (any, error)
}

// Engine renders field templates.
type Engine struct {
	limit int
}

// New returns an engine performing at most limit substitution passes. A
// non-positive limit selects DefaultRecursionLimit.
func New(limit int) *Engine {
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	return &Engine{limit: limit}
}

// Render substitutes every field token in tmpl. Values that themselves contain
// tokens are expanded on the next pass. The first pass always runs, so "%%"
// in tmpl becomes "%" even when tmpl has no field token.
func (e *Engine) Render(tmpl string, src Lookup) (string, error) {
	out := tmpl
	for pass := 0; pass < e.limit; pass++ {
		if !fieldToken.MatchString(out) && (pass > 0 || !strings.Contains(out, "%%")) {
			return out, nil
		}
		expanded, err := expand(out, src)
		if err != nil {
			return "", err
		}
		out = expanded
	}
	if fieldToken.MatchString(out) {
		return "", fmt.Errorf("%w: %d passes over %q", ErrRecursionLimit, e.limit, tmpl)
	}
	return out, nil
}

// Segment renders a directory segment and sanitizes it. The result is never
// empty when err is nil.
func (e *Engine) Segment(tmpl string, src Lookup) (string, error) {
	out, err := e.Render(tmpl, src)
	if err != nil {
		return "", err
	}
	return textutil.SanitizeSegment(out), nil
}

// Filename renders and sanitizes a filename. A name that sanitizes to nothing
// is reported as ErrFormat so callers can fall back to the original name.
func (e *Engine) Filename(tmpl string, src Lookup) (string, error) {
	out, err := e.Render(tmpl, src)
	if err != nil {
		return "", err
	}
	name := textutil.SanitizeFileName(out)
	if name == "" {
		return "", fmt.Errorf("%w: filename %q is empty after sanitizing", ErrFormat, out)
	}
	return name, nil
}

// Tokens lists the distinct field names referenced by tmpl in order of first
// appearance.
func Tokens(tmpl string) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, m := range token.FindAllStringSubmatch(tmpl, -1) {
		if m[0] == "%%" || m[1] == "" {
			continue
		}
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Validate reports malformed tokens without resolving any field.
func Validate(tmpl string) error {
	for _, m := range token.FindAllStringSubmatch(tmpl, -1) {
		if m[0] == "%%" {
			continue
		}
		if strings.TrimSpace(m[1]) == "" {
			return fmt.Errorf("%w: empty field name in %q", ErrFormat, tmpl)
		}
		if !validVerb(m[5]) {
			return fmt.Errorf("%w: unsupported verb %q for field %s", ErrFormat, m[5], m[1])
		}
	}
	return nil
}

func expand(tmpl string, src Lookup) (string, error) {
	var b strings.Builder
	last := 0
	for _, loc := range token.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(tmpl[last:loc[0]])
		last = loc[1]
		if tmpl[loc[0]:loc[1]] == "%%" {
			b.WriteByte('%')
			continue
		}
		tok := directive{
			name:  tmpl[loc[2]:loc[3]],
			flags: tmpl[loc[4]:loc[5]],
			width: tmpl[loc[6]:loc[7]],
			verb:  tmpl[loc[10]:loc[11]],
		}
		if loc[8] >= 0 {
			tok.precision = tmpl[loc[8]:loc[9]]
			tok.hasPrecision = true
		}
		if tok.name == "" {
			return "", fmt.Errorf("%w: empty field name in %q", ErrFormat, tmpl)
		}
		value, err := src.Get(tok.name)
		if err != nil {
			return "", err
		}
		formatted, err := tok.format(value)
		if err != nil {
			return "", err
		}
		b.WriteString(formatted)
	}
	b.WriteString(tmpl[last:])
	return b.String(), nil
}
