// Package normalize provides utilities for normalizing and sanitizing user and catalog input.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text returns s in Unicode NFC form with surrounding whitespace removed and
// inner runs of whitespace collapsed to a single space.
// "  The   Hobbit\n" -> "The Hobbit".
func Text(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Multiline is like Text but keeps line breaks, trimming each line and
// dropping control characters other than newlines.
func Multiline(s string) string {
	s = norm.NFC.String(strings.ReplaceAll(s, "\r\n", "\n"))
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ISBN strips hyphens and spaces and uppercases a trailing check letter.
// "978-0-261-10221-7" -> "9780261102217".
func ISBN(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == 'x' || r == 'X':
			return 'X'
		default:
			return -1
		}
	}, s)
}

// Fold returns a case and accent insensitive form of s for comparisons.
// "Émile Zola" -> "emile zola".
func Fold(s string) string {
	s = norm.NFKD.String(Text(s))
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}
