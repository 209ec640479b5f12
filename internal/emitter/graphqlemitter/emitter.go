// Package graphqlemitter renders a repository as GraphQL SDL.
package graphqlemitter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
)

const target = "graphql"

// Scalars maps primitive types to GraphQL built-ins.
var Scalars = map[string]string{
	"string":  "String",
	"boolean": "Boolean",
	"number":  "Float",
	"integer": "Int",
}

// Options controls SDL rendering.
type Options struct {
	// Docs emits descriptions as SDL description strings.
	Docs bool
}

// Renderer implements emitter.Renderer for GraphQL SDL.
type Renderer struct {
	opts Options
}

// New returns a GraphQL renderer.
func New(opts Options) *Renderer { return &Renderer{opts: opts} }

// Render is emitter.Generate with a GraphQL renderer.
func Render(repo *repository.Repository, opts Options) (string, error) {
	return emitter.Generate(New(opts), repo)
}

func (r *Renderer) Blueprint(repo *repository.Repository) (string, error) {
	var query, mutation []string
	for _, c := range repo.Calls {
		line, err := r.call(repo, c)
		if err != nil {
			return "", err
		}
		if c.Mutation() {
			mutation = append(mutation, line)
		} else {
			query = append(query, line)
		}
	}

	var blocks []string
	if len(query) > 0 {
		blocks = append(blocks, "extend type Query {\n"+strings.Join(query, "\n")+"\n}")
	}
	if len(mutation) > 0 {
		blocks = append(blocks, "extend type Mutation {\n"+strings.Join(mutation, "\n")+"\n}")
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (r *Renderer) call(repo *repository.Repository, c model.Call) (string, error) {
	var args []string
	switch {
	case len(c.Input.Args) > 0:
		for _, arg := range c.Input.Args {
			t, err := r.typeName(repo, c.Name(), arg.Type, false)
			if err != nil {
				return "", err
			}
			args = append(args, arg.Name+": "+t+bang(c.Required.Has(arg.Name) || c.Required.Has(arg.Type)))
		}
	case c.Request() != "":
		req := c.Request()
		t, err := r.typeName(repo, c.Name(), req, false)
		if err != nil {
			return "", err
		}
		args = append(args, "input: "+t+bang(c.Required.Has(req)))
	}

	resp := "Boolean"
	if c.Resp != "" {
		t, err := r.typeName(repo, c.Name(), c.Resp, c.Repeated)
		if err != nil {
			return "", err
		}
		resp = t
	}

	var b strings.Builder
	r.describe(&b, "  ", c.Description)
	b.WriteString("  ")
	b.WriteString(c.Name())
	if len(args) > 0 {
		fmt.Fprintf(&b, "(%s)", strings.Join(args, ", "))
	}
	b.WriteString(": ")
	b.WriteString(resp)
	return b.String(), nil
}

// Definition skips models without fields: SDL cannot declare them, and
// referencing one fails in typeName.
func (r *Renderer) Definition(repo *repository.Repository, def *emitter.Definition) (string, error) {
	if len(def.Fields) == 0 {
		return "", nil
	}
	kind := "type"
	if def.Input {
		kind = "input"
	}

	var b strings.Builder
	r.describe(&b, "", def.Description)
	fmt.Fprintf(&b, "%s %s {\n", kind, def.Name)
	for _, f := range def.Fields {
		t, err := r.typeName(repo, def.Name, f.Schema, f.Repeated)
		if err != nil {
			return "", err
		}
		r.describe(&b, "  ", f.Description)
		fmt.Fprintf(&b, "  %s: %s%s\n", f.Name, t, bang(f.Required))
	}
	b.WriteString("}")
	return b.String(), nil
}

func (r *Renderer) Enumeration(_ *repository.Repository, e *model.Enum) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "enum %s {\n", e.Schema)
	for _, v := range EnumValues(e.Values) {
		fmt.Fprintf(&b, "  %s\n", v)
	}
	b.WriteString("}")
	return b.String(), nil
}

func (r *Renderer) typeName(repo *repository.Repository, owner, name string, repeated bool) (string, error) {
	ref, err := emitter.Resolve(repo, target, owner, name)
	if err != nil {
		return "", err
	}
	if emitter.Empty(repo, ref) {
		return "", &emitter.EmptyTypeError{Target: target, Owner: owner, Name: ref.Name}
	}
	t := ref.Name
	if ref.Scalar() {
		if t, err = emitter.ScalarFor(Scalars, target, owner, ref.Name); err != nil {
			return "", err
		}
	}
	if repeated || ref.Repeated {
		return "[" + t + "]", nil
	}
	return t, nil
}

func (r *Renderer) describe(b *strings.Builder, indent, text string) {
	if !r.opts.Docs || strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(b, "%s%s\n", indent, strconv.Quote(strings.TrimSpace(text)))
}

var invalidName = regexp.MustCompile(`[^_0-9A-Za-z]+`)

// EnumValue turns an arbitrary enum member into a valid GraphQL enum value.
// true, false and null are reserved and get upper-cased.
func EnumValue(v string) string {
	v = invalidName.ReplaceAllString(v, "_")
	switch v {
	case "", "_":
		return "_"
	case "true", "false", "null":
		return strings.ToUpper(v)
	}
	if v[0] >= '0' && v[0] <= '9' {
		return "_" + v
	}
	return v
}

// EnumValues maps every member with EnumValue, suffixing members that would
// otherwise collide.
func EnumValues(values []string) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = EnumValue(v)
	}
	return emitter.Unique(names)
}

func bang(required bool) string {
	if required {
		return "!"
	}
	return ""
}
