package model

import (
	"slices"
	"strings"
)

// Enum is a named list of string literals. Source is the schema id that
// declared it.
type Enum struct {
	Schema string
	Source string
	Values []string
}

// Key is the canonical identity used to collapse enums with the same value
// set: values uppercased, stripped of non-word characters, sorted and joined.
func (e Enum) Key() string {
	parts := make([]string, len(e.Values))
	for i, v := range e.Values {
		parts[i] = strings.Map(func(r rune) rune {
			if isWord(r) {
				return r
			}
			return -1
		}, strings.ToUpper(v))
	}
	slices.Sort(parts)
	return strings.Join(parts, "_")
}

// Lookup returns member when it is declared by the enum.
func (e Enum) Lookup(member string) (string, error) {
	if slices.Contains(e.Values, member) {
		return member, nil
	}
	return "", &UnknownEnumMemberError{Enum: e.Schema, Member: member, Values: slices.Clone(e.Values)}
}
