package model

import (
	"fmt"
	"strings"
)

// UnexpectedInlineObjectError is returned for anonymous nested objects or
// arrays; every nested structure must be named.
type UnexpectedInlineObjectError struct {
	Schema   string
	Property string
	Type     string
}

func (e *UnexpectedInlineObjectError) Error() string {
	kind := e.Type
	if kind == "" {
		kind = "untyped value"
	}
	return fmt.Sprintf("unexpected %s at %s.%s, nested structures must be named with $ref or id", kind, e.Schema, e.Property)
}

// UnknownModelReferenceError is returned when a call or an association names
// a type that does not exist.
type UnknownModelReferenceError struct {
	Call  string
	Field string
	Name  string
}

func (e *UnknownModelReferenceError) Error() string {
	return fmt.Sprintf("unknown '%s' model in %s of '%s'", e.Name, e.Field, e.Call)
}

// MalformedCallError is returned for calls that do not declare exactly one
// of get or set.
type MalformedCallError struct {
	Schema string
	Call   string
	Reason string
}

func (e *MalformedCallError) Error() string {
	name := e.Call
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("malformed call %s in %s: %s", name, e.Schema, e.Reason)
}

// UnknownEnumMemberError is returned by Enum.Lookup for undeclared members.
type UnknownEnumMemberError struct {
	Enum   string
	Member string
	Values []string
}

func (e *UnknownEnumMemberError) Error() string {
	return fmt.Sprintf("missing '%s' in '%s'", e.Member, strings.Join(e.Values, " | "))
}

// ConflictingEnumError is returned when an enum name is already taken by
// an enum with different members, or by a model.
type ConflictingEnumError struct {
	Name   string
	Source string
	Values []string
	// Owner is the schema that declared the name first.
	Owner       string
	OwnerValues []string
}

func (e *ConflictingEnumError) Error() string {
	if len(e.OwnerValues) == 0 {
		return fmt.Sprintf("enum '%s' from %s conflicts with the model of the same name", e.Name, e.Source)
	}
	return fmt.Sprintf("enum '%s' from %s (%s) conflicts with the one from %s (%s)",
		e.Name, e.Source, strings.Join(e.Values, " | "), e.Owner, strings.Join(e.OwnerValues, " | "))
}
