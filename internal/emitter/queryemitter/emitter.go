// Package queryemitter renders one GraphQL query or mutation document per
// call, selecting every field of the response type.
package queryemitter

import (
	"fmt"
	"strings"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/emitter/graphqlemitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
)

const target = "graphql-query"

// Options controls query expansion.
type Options struct {
	// MaxRevisits caps how many times a model may be expanded again below
	// itself on one selection path. Zero means 1.
	MaxRevisits int
}

// Document is the rendered query for one call.
type Document struct {
	Call     string
	Mutation bool
	Text     string
}

// File is the document's path relative to the queries directory.
func (d Document) File() string { return d.Call + ".gql" }

// Export is the constant name the index module re-exports it under.
func (d Document) Export() string { return model.UpperSnake(d.Call) }

type variable struct {
	name string
	typ  string
}

type selection struct {
	name     string
	children []selection
}

// Render builds one document per call, in call order.
func Render(repo *repository.Repository, opts Options) ([]Document, error) {
	if opts.MaxRevisits <= 0 {
		opts.MaxRevisits = 1
	}
	if err := repo.Validate(); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(repo.Calls))
	for _, c := range repo.Calls {
		text, err := render(repo, c, opts)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Call: c.Name(), Mutation: c.Mutation(), Text: text})
	}
	return docs, nil
}

// Index renders the module re-exporting every document.
func Index(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "export { default as %s } from './%s';\n", d.Export(), d.File())
	}
	return b.String()
}

func render(repo *repository.Repository, c model.Call, opts Options) (string, error) {
	vars, args, err := variables(repo, c)
	if err != nil {
		return "", err
	}

	var children []selection
	if c.Resp != "" {
		ref, err := emitter.Resolve(repo, target, c.Name(), c.Resp)
		if err != nil {
			return "", err
		}
		if ref.Kind == repository.KindModel {
			children = expand(repo, ref.Name, map[string]int{}, opts.MaxRevisits)
		}
	}

	var b strings.Builder
	if c.Mutation() {
		b.WriteString("mutation")
	} else {
		b.WriteString("query")
	}
	if len(vars) > 0 {
		b.WriteString("(\n")
		for _, v := range vars {
			fmt.Fprintf(&b, "  $%s: %s,\n", v.name, v.typ)
		}
		b.WriteString(")")
	}
	b.WriteString(" {\n  ")
	b.WriteString(c.Name())
	b.WriteString(args)
	if len(children) > 0 {
		b.WriteString(" {\n")
		writeSelections(&b, children, 2)
		b.WriteString("  }")
	}
	b.WriteString("\n}\n")
	return b.String(), nil
}

// variables declares one variable per input field, per argument, or a single
// $input for non-model inputs, and renders the matching call arguments.
func variables(repo *repository.Repository, c model.Call) ([]variable, string, error) {
	var vars []variable
	declare := func(name, typ string, repeated, required bool) error {
		t, err := graphqlType(repo, c.Name(), typ, repeated)
		if err != nil {
			return err
		}
		if required {
			t += "!"
		}
		vars = append(vars, variable{name: name, typ: t})
		return nil
	}

	if len(c.Input.Args) > 0 {
		parts := make([]string, 0, len(c.Input.Args))
		for _, arg := range c.Input.Args {
			if err := declare(arg.Name, arg.Type, false, c.Required.Has(arg.Name) || c.Required.Has(arg.Type)); err != nil {
				return nil, "", err
			}
			parts = append(parts, fmt.Sprintf("%s: $%s", arg.Name, arg.Name))
		}
		return vars, "(" + strings.Join(parts, ", ") + ")", nil
	}

	req := c.Request()
	if req == "" {
		return nil, "", nil
	}
	ref, err := emitter.Resolve(repo, target, c.Name(), req)
	if err != nil {
		return nil, "", err
	}
	m, ok := repo.Model(ref.Name)
	if ref.Kind != repository.KindModel || ref.Repeated || !ok || len(m.Fields) == 0 {
		if err := declare("input", req, false, c.Required.Has(req)); err != nil {
			return nil, "", err
		}
		return vars, "(input: $input)", nil
	}

	var b strings.Builder
	b.WriteString("(input: {\n")
	for _, f := range m.Fields {
		if err := declare(f.Name, f.Schema, f.Repeated, f.Required || c.Required.All || c.Required.Has(f.Name)); err != nil {
			return nil, "", err
		}
		fmt.Fprintf(&b, "    %s: $%s,\n", f.Name, f.Name)
	}
	b.WriteString("  })")
	return vars, b.String(), nil
}

func graphqlType(repo *repository.Repository, owner, name string, repeated bool) (string, error) {
	ref, err := emitter.Resolve(repo, target, owner, name)
	if err != nil {
		return "", err
	}
	t := ref.Name
	if ref.Scalar() {
		if t, err = emitter.ScalarFor(graphqlemitter.Scalars, target, owner, ref.Name); err != nil {
			return "", err
		}
	}
	if repeated || ref.Repeated {
		return "[" + t + "]", nil
	}
	return t, nil
}

// expand selects the fields of name. path counts the models being expanded
// above the current one; a model is not expanded again once it reached limit.
func expand(repo *repository.Repository, name string, path map[string]int, limit int) []selection {
	m, ok := repo.Model(name)
	if !ok {
		return nil
	}
	var out []selection
	for _, f := range m.Fields {
		ref, ok := emitter.Lookup(repo, f.Schema)
		if !ok || ref.Kind != repository.KindModel {
			out = append(out, selection{name: f.Name})
			continue
		}
		if path[ref.Name] >= limit {
			continue
		}
		path[ref.Name]++
		children := expand(repo, ref.Name, path, limit)
		path[ref.Name]--
		if len(children) == 0 {
			continue
		}
		out = append(out, selection{name: f.Name, children: children})
	}
	return out
}

func writeSelections(b *strings.Builder, sels []selection, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range sels {
		b.WriteString(indent)
		b.WriteString(s.name)
		if len(s.children) > 0 {
			b.WriteString(" {\n")
			writeSelections(b, s.children, depth+1)
			b.WriteString(indent)
			b.WriteString("}")
		}
		b.WriteString("\n")
	}
}
