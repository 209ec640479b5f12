// Package emitter holds the contract every output renderer implements and
// the shared driver that walks a repository through it.
package emitter

import (
	"fmt"
	"strings"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

// Definition is one model handed to a renderer. Input is set when the model
// is consumed, directly or through another input, as a call argument.
type Definition struct {
	*model.Model
	Input bool
}

// Renderer turns a repository into one text artifact.
type Renderer interface {
	// Blueprint renders the preamble and the service surface.
	Blueprint(repo *repository.Repository) (string, error)
	Definition(repo *repository.Repository, def *Definition) (string, error)
	Enumeration(repo *repository.Repository, e *model.Enum) (string, error)
}

// UnresolvedTypeError is returned when a renderer meets a type name that is
// neither a scalar nor declared in the repository.
type UnresolvedTypeError struct {
	Target string
	Owner  string
	Name   string
}

func (e *UnresolvedTypeError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("%s: unresolved type '%s'", e.Target, e.Name)
	}
	return fmt.Sprintf("%s: unresolved type '%s' in '%s'", e.Target, e.Name, e.Owner)
}

// EmptyTypeError is returned by targets that cannot declare a model without
// fields when such a model is still referenced by name.
type EmptyTypeError struct {
	Target string
	Owner  string
	Name   string
}

func (e *EmptyTypeError) Error() string {
	return fmt.Sprintf("%s: type '%s' used in '%s' declares no fields", e.Target, e.Name, e.Owner)
}

// Generate validates the repository calls and concatenates the blueprint,
// every definition and every enumeration rendered by r.
func Generate(r Renderer, repo *repository.Repository) (string, error) {
	if err := repo.Validate(); err != nil {
		return "", err
	}

	var blocks []string
	add := func(s string, err error) error {
		if err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s != "" {
			blocks = append(blocks, s)
		}
		return nil
	}

	if err := add(r.Blueprint(repo)); err != nil {
		return "", err
	}
	inputs := Inputs(repo)
	for _, m := range repo.Models {
		if err := add(r.Definition(repo, &Definition{Model: m, Input: inputs[m.Name]})); err != nil {
			return "", err
		}
	}
	for i := range repo.Enums {
		if err := add(r.Enumeration(repo, &repo.Enums[i])); err != nil {
			return "", err
		}
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

// Inputs returns the models used as call input, including models that are
// only reachable as nested fields of another input.
func Inputs(repo *repository.Repository) map[string]bool {
	inputs := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		ref, ok := Lookup(repo, name)
		if !ok || ref.Kind != repository.KindModel || inputs[ref.Name] {
			return
		}
		inputs[ref.Name] = true
		if m, ok := repo.Model(ref.Name); ok {
			for _, f := range m.Fields {
				visit(f.Schema)
			}
		}
	}
	for _, c := range repo.Calls {
		visit(c.Params)
		for _, name := range c.Input.Types() {
			visit(name)
		}
	}
	return inputs
}

// Ref is a type name after alias resolution. Kind is never KindAlias or
// KindImport: imports report the kind of what they import.
type Ref struct {
	Name     string
	Kind     repository.Kind
	Repeated bool
	Imported bool
}

// Scalar reports whether the ref is a primitive type.
func (r Ref) Scalar() bool { return r.Kind == repository.KindScalar }

// Lookup classifies name within repo, following aliases.
func Lookup(repo *repository.Repository, name string) (Ref, bool) {
	ref := Ref{Name: name, Kind: repo.Kind(name)}
	if ref.Kind == repository.KindAlias {
		d, _ := repo.Alias(name)
		ref = Ref{Name: d.Schema, Kind: repo.Kind(d.Schema), Repeated: d.Repeated}
	}
	switch ref.Kind {
	case repository.KindUnknown, repository.KindAlias:
		return Ref{}, false
	case repository.KindImport:
		imp, _ := repo.Import(ref.Name)
		ref.Imported = true
		ref.Kind = repository.KindModel
		if imp.Enum {
			ref.Kind = repository.KindEnum
		}
	}
	return ref, true
}

// Resolve is Lookup returning an *UnresolvedTypeError for unknown names.
func Resolve(repo *repository.Repository, target, owner, name string) (Ref, error) {
	ref, ok := Lookup(repo, name)
	if !ok {
		return Ref{}, &UnresolvedTypeError{Target: target, Owner: owner, Name: name}
	}
	return ref, nil
}

// ScalarFor maps a scalar type name using table, falling back to the
// string mapping for formats that only refine strings.
func ScalarFor(table map[string]string, target, owner, name string) (string, error) {
	if v, ok := table[name]; ok {
		return v, nil
	}
	if !schema.IsScalar(name) {
		return "", &UnresolvedTypeError{Target: target, Owner: owner, Name: name}
	}
	return table[schema.TypeString], nil
}

// Empty reports whether ref names a model, local or imported, without fields.
func Empty(repo *repository.Repository, ref Ref) bool {
	if ref.Kind != repository.KindModel {
		return false
	}
	if ref.Imported {
		imp, _ := repo.Import(ref.Name)
		return imp.Empty
	}
	m, ok := repo.Model(ref.Name)
	return ok && len(m.Fields) == 0
}

// Unique suffixes repeated names with their position so every result is
// distinct, e.g. `A_B` and `A_B` become `A_B` and `A_B_2`.
func Unique(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	used := make(map[string]bool, len(names))
	for i, n := range names {
		if used[n] {
			for k := i + 1; ; k++ {
				next := fmt.Sprintf("%s_%d", n, k)
				if !taken[next] && !used[next] {
					n = next
					break
				}
			}
		}
		used[n] = true
		out[i] = n
	}
	return out
}

// FieldKey returns the flattened foreign key of a belongsTo field, if any.
func FieldKey(f model.Field) (name, keyType string, ok bool) {
	if f.Association == nil {
		return "", "", false
	}
	name, ok = f.Association.ForeignKey()
	return name, f.Association.KeyType, ok
}
