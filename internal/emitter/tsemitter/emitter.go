// Package tsemitter renders a repository as TypeScript declarations.
package tsemitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
)

const target = "typescript"

// Scalars maps primitive types to TypeScript types.
var Scalars = map[string]string{
	"string":  "string",
	"boolean": "boolean",
	"number":  "number",
	"integer": "number",
}

// Options controls declaration rendering.
type Options struct {
	// InlineEnums renders enum-typed fields as string literal unions and
	// drops the enum declarations.
	InlineEnums bool
	// Docs emits JSDoc blocks from descriptions.
	Docs bool
}

// Renderer implements emitter.Renderer for TypeScript.
type Renderer struct {
	opts Options
}

// New returns a TypeScript renderer.
func New(opts Options) *Renderer { return &Renderer{opts: opts} }

// Render is emitter.Generate with a TypeScript renderer.
func Render(repo *repository.Repository, opts Options) (string, error) {
	return emitter.Generate(New(opts), repo)
}

func (r *Renderer) Blueprint(repo *repository.Repository) (string, error) {
	var blocks []string

	var from []string
	names := make(map[string][]string)
	for _, imp := range repo.Imports {
		if imp.Enum && r.opts.InlineEnums {
			continue
		}
		if _, ok := names[imp.From]; !ok {
			from = append(from, imp.From)
		}
		names[imp.From] = append(names[imp.From], imp.Name)
	}
	if len(from) > 0 {
		var b strings.Builder
		for _, f := range from {
			fmt.Fprintf(&b, "import type { %s } from './%s';\n", strings.Join(names[f], ", "), f)
		}
		blocks = append(blocks, strings.TrimSuffix(b.String(), "\n"))
	}

	for _, d := range repo.Defns {
		if repo.Kind(d.Name) != repository.KindAlias {
			continue
		}
		t, err := r.typeName(repo, d.Name, d.Schema, d.Repeated)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, fmt.Sprintf("export type %s = %s;", d.Name, t))
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (r *Renderer) Definition(repo *repository.Repository, def *emitter.Definition) (string, error) {
	var b strings.Builder
	r.doc(&b, "", def.Description)
	if len(def.Fields) == 0 {
		fmt.Fprintf(&b, "export type %s = {};", def.Name)
		return b.String(), nil
	}

	fmt.Fprintf(&b, "export type %s = {\n", def.Name)
	for _, f := range def.Fields {
		t, err := r.typeName(repo, def.Name, f.Schema, f.Repeated)
		if err != nil {
			return "", err
		}
		r.doc(&b, "  ", f.Description)
		fmt.Fprintf(&b, "  %s%s: %s;\n", Key(f.Name), optional(f.Required), t)

		key, keyType, ok := emitter.FieldKey(f)
		if !ok {
			continue
		}
		if _, exists := def.Field(key); exists {
			continue
		}
		t, err = r.typeName(repo, def.Name, keyType, f.Repeated)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s?: %s;\n", key, t)
	}
	b.WriteString("};")
	return b.String(), nil
}

func (r *Renderer) Enumeration(_ *repository.Repository, e *model.Enum) (string, error) {
	if r.opts.InlineEnums {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "export enum %s {\n", e.Schema)
	for _, v := range e.Values {
		fmt.Fprintf(&b, "  %s = %s,\n", Key(v), quote(v))
	}
	b.WriteString("}")
	return b.String(), nil
}

func (r *Renderer) typeName(repo *repository.Repository, owner, name string, repeated bool) (string, error) {
	ref, err := emitter.Resolve(repo, target, owner, name)
	if err != nil {
		return "", err
	}
	t := ref.Name
	switch {
	case ref.Scalar():
		if t, err = emitter.ScalarFor(Scalars, target, owner, ref.Name); err != nil {
			return "", err
		}
	case ref.Kind == repository.KindEnum && r.opts.InlineEnums:
		members, ok := enumMembers(repo, ref.Name)
		if !ok {
			return "", &emitter.UnresolvedTypeError{Target: target, Owner: owner, Name: ref.Name}
		}
		values := make([]string, len(members))
		for i, v := range members {
			values[i] = quote(v)
		}
		t = strings.Join(values, " | ")
		if (repeated || ref.Repeated) && len(values) > 1 {
			t = "(" + t + ")"
		}
	}
	if repeated || ref.Repeated {
		return t + "[]", nil
	}
	return t, nil
}

// enumMembers returns the values of a local or imported enum.
func enumMembers(repo *repository.Repository, name string) ([]string, bool) {
	if e, ok := repo.Enum(name); ok {
		return e.Values, true
	}
	if imp, ok := repo.Import(name); ok && imp.Enum && len(imp.Values) > 0 {
		return imp.Values, true
	}
	return nil, false
}

func (r *Renderer) doc(b *strings.Builder, indent, text string) {
	text = strings.TrimSpace(text)
	if !r.opts.Docs || text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		fmt.Fprintf(b, "%s/** %s */\n", indent, lines[0])
		return
	}
	fmt.Fprintf(b, "%s/**\n", indent)
	for _, line := range lines {
		fmt.Fprintf(b, "%s * %s\n", indent, strings.TrimSpace(line))
	}
	fmt.Fprintf(b, "%s */\n", indent)
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][0-9A-Za-z_$]*$`)

// Key returns name as a property or member key, quoting it when it is not
// a plain identifier.
func Key(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	return quote(name)
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func optional(required bool) string {
	if required {
		return ""
	}
	return "?"
}
