// Package protoemitter renders a repository as a Protobuf IDL file.
package protoemitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
)

const target = "protobuf"

// Supported syntax levels.
const (
	Proto2 = "proto2"
	Proto3 = "proto3"
)

// Scalars maps primitive types to Protobuf scalar types.
var Scalars = map[string]string{
	"string":  "string",
	"boolean": "bool",
	"number":  "double",
	"integer": "int32",
}

// Options controls IDL rendering.
type Options struct {
	// Syntax is proto3 (default) or proto2. Only proto2 gets required and
	// optional labels.
	Syntax string
	// Docs emits descriptions as line comments.
	Docs bool
}

// Renderer implements emitter.Renderer for Protobuf.
type Renderer struct {
	opts Options
}

// New returns a Protobuf renderer.
func New(opts Options) *Renderer {
	if opts.Syntax == "" {
		opts.Syntax = Proto3
	}
	return &Renderer{opts: opts}
}

// Render is emitter.Generate with a Protobuf renderer.
func Render(repo *repository.Repository, opts Options) (string, error) {
	return emitter.Generate(New(opts), repo)
}

type wrapper struct {
	name   string
	fields []string
}

func (r *Renderer) Blueprint(repo *repository.Repository) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "syntax = %q;\n", r.opts.Syntax)
	fmt.Fprintf(&b, "package %s;\n", Package(repo.Pkg))
	if len(repo.Refs) > 0 {
		b.WriteString("\n")
		for _, ref := range repo.Refs {
			fmt.Fprintf(&b, "import %q;\n", strings.TrimSuffix(ref, ".proto")+".proto")
		}
	}
	if len(repo.Calls) == 0 {
		return b.String(), nil
	}

	var (
		wrappers []wrapper
		seen     = make(map[string]bool)
		noop     bool
	)
	addWrapper := func(w wrapper) {
		if !seen[w.name] {
			seen[w.name] = true
			wrappers = append(wrappers, w)
		}
	}

	fmt.Fprintf(&b, "\nservice %sService {\n", model.Caps(repo.Name))
	for _, c := range repo.Calls {
		in, w, err := r.request(repo, c)
		if err != nil {
			return "", err
		}
		if w != nil {
			addWrapper(*w)
		}
		out, w, err := r.response(repo, c)
		if err != nil {
			return "", err
		}
		if w != nil {
			addWrapper(*w)
		}
		if in == "" {
			in, noop = repo.Noop, true
		}
		if out == "" {
			out, noop = repo.Noop, true
		}
		fmt.Fprintf(&b, "  rpc %s(%s) returns(%s);\n", c.Name(), in, out)
	}
	b.WriteString("}\n")

	for _, w := range wrappers {
		fmt.Fprintf(&b, "\nmessage %s {\n", w.name)
		for _, line := range w.fields {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("}\n")
	}
	if noop && !repo.Known(repo.Noop) {
		fmt.Fprintf(&b, "\nmessage %s {}\n", repo.Noop)
	}
	return b.String(), nil
}

// request returns the rpc argument type. Models are passed as is; anything
// else is wrapped in a `<Call>Input` message.
func (r *Renderer) request(repo *repository.Repository, c model.Call) (string, *wrapper, error) {
	name := wrapperName(repo, model.Caps(c.Name())+"Input")
	if len(c.Input.Args) > 0 {
		w := &wrapper{name: name}
		for i, arg := range c.Input.Args {
			line, err := r.field(repo, c.Name(), arg.Name, arg.Type, "", false, c.Required.Has(arg.Name) || c.Required.Has(arg.Type), i+1)
			if err != nil {
				return "", nil, err
			}
			w.fields = append(w.fields, line)
		}
		return name, w, nil
	}

	req := c.Request()
	if req == "" {
		return "", nil, nil
	}
	ref, err := emitter.Resolve(repo, target, c.Name(), req)
	if err != nil {
		return "", nil, err
	}
	if ref.Kind == repository.KindModel && !ref.Repeated {
		return ref.Name, nil, nil
	}
	line, err := r.field(repo, c.Name(), "data", req, "", false, c.Required.Has(req), 1)
	if err != nil {
		return "", nil, err
	}
	return name, &wrapper{name: name, fields: []string{line}}, nil
}

// response returns the rpc result type. Aliases get a wrapper message named
// after the alias, scalars, enums and lists one named `<Call>Response`.
func (r *Renderer) response(repo *repository.Repository, c model.Call) (string, *wrapper, error) {
	if c.Resp == "" {
		return "", nil, nil
	}
	ref, err := emitter.Resolve(repo, target, c.Name(), c.Resp)
	if err != nil {
		return "", nil, err
	}
	if ref.Kind == repository.KindModel && !ref.Repeated && !c.Repeated {
		return ref.Name, nil, nil
	}

	name := wrapperName(repo, model.Caps(c.Name())+"Response")
	if repo.Kind(c.Resp) == repository.KindAlias {
		name = c.Resp
	}
	line, err := r.field(repo, c.Name(), "data", c.Resp, "", c.Repeated, false, 1)
	if err != nil {
		return "", nil, err
	}
	return name, &wrapper{name: name, fields: []string{line}}, nil
}

// wrapperName returns base, or base with a numeric suffix when a model,
// enum or alias already uses that name.
func wrapperName(repo *repository.Repository, base string) string {
	name := base
	for i := 2; repo.Known(name) || name == repo.Noop; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

func (r *Renderer) Definition(repo *repository.Repository, def *emitter.Definition) (string, error) {
	var b strings.Builder
	r.comment(&b, "", def.Description)
	fmt.Fprintf(&b, "message %s {", def.Name)
	if len(def.Fields) > 0 {
		b.WriteString("\n")
	}

	n := 0
	for _, f := range def.Fields {
		n++
		r.comment(&b, "  ", f.Description)
		line, err := r.field(repo, def.Name, f.Name, f.Schema, f.Format, f.Repeated, f.Required, n)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s\n", line)

		key, keyType, ok := emitter.FieldKey(f)
		if !ok {
			continue
		}
		if _, exists := def.Field(key); exists {
			continue
		}
		n++
		line, err = r.field(repo, def.Name, key, keyType, "", f.Repeated, false, n)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  %s\n", line)
	}
	b.WriteString("}")
	return b.String(), nil
}

func (r *Renderer) Enumeration(_ *repository.Repository, e *model.Enum) (string, error) {
	prefix := Ident(model.UpperSnake(e.Schema))
	names := make([]string, len(e.Values))
	for i, v := range e.Values {
		names[i] = prefix + "_" + invalidIdent.ReplaceAllString(strings.ToUpper(v), "_")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "enum %s {\n", e.Schema)
	for i, name := range emitter.Unique(names) {
		fmt.Fprintf(&b, "  %s = %d;\n", name, i)
	}
	b.WriteString("}")
	return b.String(), nil
}

// field renders one numbered field. date-time formats always map to int64.
func (r *Renderer) field(repo *repository.Repository, owner, name, typ, format string, repeated, required bool, n int) (string, error) {
	ref, err := emitter.Resolve(repo, target, owner, typ)
	if err != nil {
		return "", err
	}
	t := ref.Name
	switch {
	case format == "date-time" || format == "datetime":
		t = "int64"
	case ref.Scalar():
		if t, err = emitter.ScalarFor(Scalars, target, owner, ref.Name); err != nil {
			return "", err
		}
	}

	label := ""
	switch {
	case repeated || ref.Repeated:
		label = "repeated "
	case r.opts.Syntax == Proto2 && required:
		label = "required "
	case r.opts.Syntax == Proto2:
		label = "optional "
	}
	return fmt.Sprintf("%s%s %s = %d;", label, t, Ident(name), n), nil
}

func (r *Renderer) comment(b *strings.Builder, indent, text string) {
	if !r.opts.Docs {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(b, "%s// %s\n", indent, line)
		}
	}
}

var (
	invalidIdent   = regexp.MustCompile(`[^_0-9A-Za-z]+`)
	invalidPackage = regexp.MustCompile(`[^_0-9A-Za-z.]+`)
)

// Ident makes s a valid Protobuf identifier.
func Ident(s string) string {
	s = invalidIdent.ReplaceAllString(s, "_")
	if s == "" || s[0] >= '0' && s[0] <= '9' {
		return "_" + s
	}
	return s
}

// Package turns a package name such as `my-app` into `my_app`.
func Package(pkg string) string {
	parts := strings.Split(invalidPackage.ReplaceAllString(model.Safe(pkg, "_"), "_"), ".")
	for i, p := range parts {
		parts[i] = Ident(p)
	}
	return strings.Join(parts, ".")
}
