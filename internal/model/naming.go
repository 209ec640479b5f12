package model

import (
	"regexp"
	"strings"
	"unicode"
)

func isWord(r rune) bool {
	return r == '_' || r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Caps uppercases the first letter of every word and drops non-word
// characters: `test-value` becomes `TestValue`.
func Caps(s string) string {
	var b strings.Builder
	prev := ' '
	for _, r := range s {
		if isWord(r) {
			if !isWord(prev) {
				r = unicode.ToUpper(r)
			}
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

// LowerCamel is Caps with a lowercase first letter.
func LowerCamel(s string) string {
	c := Caps(s)
	if c == "" {
		return c
	}
	return strings.ToLower(c[:1]) + c[1:]
}

var (
	camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)
	separators    = regexp.MustCompile(`[\s_-]+`)
)

// Safe splits camel case and collapses separators: `myApp-v2` becomes
// `my_App_v2` with sep `_`.
func Safe(s, sep string) string {
	s = camelBoundary.ReplaceAllString(s, "${1}"+sep+"${2}")
	return separators.ReplaceAllString(s, sep)
}

// UpperSnake returns Safe(s, "_") in upper case.
func UpperSnake(s string) string {
	return strings.ToUpper(Safe(s, "_"))
}
