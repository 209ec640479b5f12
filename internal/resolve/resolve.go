// Package resolve dereferences `$ref` links between schema documents.
//
// Every reference is replaced by a deep copy of its target. A reference whose
// target is already being expanded on the current path is left symbolic
// (Target set, Circular true) so cyclic graphs terminate.
package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

// MissingReferenceError is returned when a $ref names an unknown document or
// definition.
type MissingReferenceError struct {
	Ref    string
	Source string
}

func (e *MissingReferenceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing '%s' definition", e.Ref)
	}
	return fmt.Sprintf("missing '%s' definition (%s)", e.Ref, e.Source)
}

// Resolver holds an indexed reference set. It is safe for concurrent use.
type Resolver struct {
	baseDir string
	index   map[string]*schema.Document
}

// New indexes refs by id. With a non-empty baseDir, path-like references are
// also matched relative to it.
func New(baseDir string, refs []*schema.Document) *Resolver {
	index := make(map[string]*schema.Document, len(refs))
	for _, ref := range refs {
		if ref == nil || ref.ID == "" {
			continue
		}
		if _, dup := index[ref.ID]; !dup {
			index[ref.ID] = ref
		}
	}
	return &Resolver{baseDir: baseDir, index: index}
}

// Resolve is a shorthand for New(baseDir, refs).Resolve(doc).
func Resolve(baseDir string, refs []*schema.Document, doc *schema.Document) (*schema.Document, error) {
	return New(baseDir, refs).Resolve(doc)
}

// Resolve returns a dereferenced deep copy of doc. The input is not modified.
func (r *Resolver) Resolve(doc *schema.Document) (*schema.Document, error) {
	out := doc.Clone()
	f := frame{doc: doc, source: doc.Source, stack: []string{doc.ID}}
	if err := r.expand(out, f); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveAll resolves docs concurrently; the result keeps input order.
func (r *Resolver) ResolveAll(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	out := make([]*schema.Document, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			resolved, err := r.Resolve(doc)
			if err != nil {
				return err
			}
			out[i] = resolved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// frame tracks the document local refs are relative to and the targets
// currently being expanded.
type frame struct {
	doc    *schema.Document
	source string
	stack  []string
}

func (f frame) enter(key string, doc *schema.Document) frame {
	stack := make([]string, len(f.stack), len(f.stack)+1)
	copy(stack, f.stack)
	source := f.source
	if doc.Source != "" {
		source = doc.Source
	}
	return frame{doc: doc, source: source, stack: append(stack, key)}
}

func (r *Resolver) expand(node *schema.Document, f frame) error {
	if node == nil || node.Circular {
		return nil
	}
	if node.Ref != "" {
		return r.deref(node, f)
	}
	for _, prop := range node.Properties {
		if err := r.expand(prop.Schema, f); err != nil {
			return err
		}
	}
	if err := r.expand(node.Items, f); err != nil {
		return err
	}
	for _, def := range node.Definitions {
		if err := r.expand(def.Schema, f.enter(definitionKey(f.doc.ID, def.Name), f.doc)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) deref(node *schema.Document, f frame) error {
	target, owner, key, name, err := r.lookup(node.Ref, f)
	if err != nil {
		return err
	}

	if slices.Contains(f.stack, key) {
		sym := &schema.Document{ID: name, Type: schema.TypeObject, Target: name, Circular: true}
		if target.IsScalar() {
			sym.Type = target.Type
		}
		inherit(sym, node)
		*node = *sym
		return nil
	}

	cp := target.Clone()
	cp.Source = ""
	cp.Node = nil
	cp.Service = nil
	if cp.ID == "" {
		cp.ID = name
	}
	cp.Target = name
	inherit(cp, node)
	if err := r.expand(cp, f.enter(key, owner)); err != nil {
		return err
	}
	*node = *cp
	return nil
}

// inherit applies the keys written next to a $ref on top of the inlined
// target.
func inherit(dst, ref *schema.Document) {
	if ref.ID != "" {
		dst.ID = ref.ID
	}
	if ref.Description != "" {
		dst.Description = ref.Description
	}
	if ref.Format != "" {
		dst.Format = ref.Format
	}
	if ref.HasDefault {
		dst.Default, dst.HasDefault = ref.Default, true
	}
	if ref.PrimaryKey {
		dst.PrimaryKey = true
	}
	if ref.As != "" {
		dst.As = ref.As
	}
	if ref.HasOne != nil {
		dst.HasOne = ref.HasOne
	}
	if ref.HasMany != nil {
		dst.HasMany = ref.HasMany
	}
	if ref.BelongsTo != nil {
		dst.BelongsTo = ref.BelongsTo
	}
	if ref.BelongsToMany != nil {
		dst.BelongsToMany = ref.BelongsToMany
	}
}

// lookup finds the target of ref. It returns the target node, the document
// owning it, the key used for cycle detection and the target's name.
func (r *Resolver) lookup(ref string, f frame) (*schema.Document, *schema.Document, string, string, error) {
	id, fragment, _ := strings.Cut(ref, "#")

	doc := f.doc
	if id != "" {
		found, ok := r.find(id)
		if !ok {
			return nil, nil, "", "", &MissingReferenceError{Ref: ref, Source: f.source}
		}
		doc = found
	}

	if fragment == "" || fragment == "/" {
		return doc, doc, doc.ID, doc.ID, nil
	}

	name, ok := strings.CutPrefix(fragment, "/definitions/")
	if !ok || name == "" {
		return nil, nil, "", "", &MissingReferenceError{Ref: ref, Source: f.source}
	}
	name = unescapePointer(name)
	def, ok := doc.Definitions.Get(name)
	if !ok {
		return nil, nil, "", "", &MissingReferenceError{Ref: ref, Source: f.source}
	}
	return def, doc, definitionKey(doc.ID, name), name, nil
}

func (r *Resolver) find(id string) (*schema.Document, bool) {
	if doc, ok := r.index[id]; ok {
		return doc, true
	}
	if r.baseDir == "" {
		return nil, false
	}

	candidate := filepath.Clean(id)
	if filepath.IsAbs(candidate) {
		rel, err := filepath.Rel(r.baseDir, candidate)
		if err != nil {
			return nil, false
		}
		candidate = rel
	}
	candidate = filepath.ToSlash(candidate)
	if doc, ok := r.index[candidate]; ok {
		return doc, true
	}
	switch ext := filepath.Ext(candidate); ext {
	case ".json", ".yaml", ".yml":
		doc, ok := r.index[strings.TrimSuffix(candidate, ext)]
		return doc, ok
	}
	return nil, false
}

func definitionKey(id, name string) string {
	return id + "#/definitions/" + name
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}
