package template

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"dicomsort/internal/record"
)

// directive is one parsed field token.
type directive struct {
	name         string
	flags        string
	width        string
	precision    string
	hasPrecision bool
	verb         string
}

func validVerb(verb string) bool {
	switch verb {
	case "s", "r", "a", "d", "i", "u", "o", "x", "X", "e", "E", "f", "F", "g", "G", "c":
		return true
	}
	return false
}

func (d directive) layout(verb byte) string {
	var b strings.Builder
	b.WriteByte('%')
	b.WriteString(d.flags)
	b.WriteString(d.width)
	if d.hasPrecision {
		b.WriteByte('.')
		b.WriteString(d.precision)
	}
	b.WriteByte(verb)
	return b.String()
}

func (d directive) format(value any) (string, error) {
	switch d.verb {
	case "s", "r", "a":
		return fmt.Sprintf(d.layout('s'), record.String(value)), nil
	case "d", "i", "u", "o", "x", "X":
		n, err := record.Int(value)
		if err != nil {
			return "", fmt.Errorf("%w: field %s: %w", ErrFormat, d.name, err)
		}
		verb := d.verb[0]
		if verb == 'i' || verb == 'u' {
			verb = 'd'
		}
		return fmt.Sprintf(d.layout(verb), n), nil
	case "e", "E", "f", "F", "g", "G":
		f, err := record.Float(value)
		if err != nil {
			return "", fmt.Errorf("%w: field %s: %w", ErrFormat, d.name, err)
		}
		return fmt.Sprintf(d.layout(d.verb[0]), f), nil
	case "c":
		if s, ok := value.(string); ok {
			r, _ := utf8.DecodeRuneInString(s)
			if r == utf8.RuneError {
				return "", fmt.Errorf("%w: field %s: empty character", ErrFormat, d.name)
			}
			return fmt.Sprintf(d.layout('c'), r), nil
		}
		n, err := record.Int(value)
		if err != nil {
			return "", fmt.Errorf("%w: field %s: %w", ErrFormat, d.name, err)
		}
		return fmt.Sprintf(d.layout('c'), rune(n)), nil
	case "":
		return "", fmt.Errorf("%w: field %s has no conversion verb", ErrFormat, d.name)
	default:
		return "", fmt.Errorf("%w: unsupported verb %q for field %s", ErrFormat, d.verb, d.name)
	}
}
