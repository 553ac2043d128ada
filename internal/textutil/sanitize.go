package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// UnknownSegment replaces directory segments that sanitize to nothing.
const UnknownSegment = "UNKNOWN"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control characters are removed. The result is NFC
// normalized and trimmed of surrounding whitespace and trailing dots.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = fileNameReplacer.Replace(name)
	name = strings.TrimRight(strings.TrimSpace(name), ". ")
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SanitizeSegment sanitizes a directory name like SanitizeFileName but never
// returns an empty string.
func SanitizeSegment(name string) string {
	cleaned := SanitizeFileName(name)
	if cleaned == "" {
		return UnknownSegment
	}
	return cleaned
}
