// Package repository merges walked services into the namespace the
// renderers work from.
package repository

import (
	"fmt"
	"slices"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

// PackageInfo carries the package name and external imports given on the
// command line.
type PackageInfo struct {
	Pkg  string
	Refs []string
}

// Import records a type owned by another bundled file. Values carries the
// members of an imported enum; Empty marks an imported model without fields.
type Import struct {
	Name   string
	From   string
	Enum   bool
	Values []string
	Empty  bool
}

// Kind classifies a type name within a repository.
type Kind int

const (
	KindUnknown Kind = iota
	KindScalar
	KindModel
	KindEnum
	KindAlias
	KindImport
)

// Repository is the merged result one renderer pass works on.
type Repository struct {
	Name    string
	Pkg     string
	Refs    []string
	Calls   []model.Call
	Models  []*model.Model
	Enums   []model.Enum
	Defns   model.Defns
	Imports []Import
	// Noop names the empty request message used by calls without input.
	Noop string
}

func newRepository(name string, info PackageInfo) *Repository {
	return &Repository{
		Name:    name,
		Pkg:     info.Pkg,
		Refs:    union(nil, info.Refs),
	}
}

// Model returns the model called name.
func (r *Repository) Model(name string) (*model.Model, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Enum returns the enum called name.
func (r *Repository) Enum(name string) (*model.Enum, bool) {
	for i := range r.Enums {
		if r.Enums[i].Schema == name {
			return &r.Enums[i], true
		}
	}
	return nil, false
}

// Import returns the import for name.
func (r *Repository) Import(name string) (Import, bool) {
	for _, imp := range r.Imports {
		if imp.Name == name {
			return imp, true
		}
	}
	return Import{}, false
}

// Kind classifies name.
func (r *Repository) Kind(name string) Kind {
	switch {
	case schema.IsScalar(name):
		return KindScalar
	case r.hasModel(name):
		return KindModel
	case r.hasEnum(name):
		return KindEnum
	}
	if _, ok := r.Defns.Get(name); ok {
		return KindAlias
	}
	if _, ok := r.Import(name); ok {
		return KindImport
	}
	return KindUnknown
}

// Known reports whether name is a scalar, model, enum, alias or import.
func (r *Repository) Known(name string) bool { return r.Kind(name) != KindUnknown }

// Alias follows alias chains down to a non-alias target. Repeated is set
// when any link is a list.
func (r *Repository) Alias(name string) (model.Defn, bool) {
	d, ok := r.Defns.Get(name)
	if !ok {
		return d, false
	}
	for range len(r.Defns) {
		next, ok := r.Defns.Get(d.Schema)
		if !ok || next.Name == d.Name {
			break
		}
		d.Schema = next.Schema
		d.Repeated = d.Repeated || next.Repeated
	}
	return d, true
}

// Validate checks every call against the namespace.
func (r *Repository) Validate() error {
	return model.ValidateCalls(r.Calls, r.Known)
}

// Prune drops models and enums that no call can reach.
func (r *Repository) Prune() {
	keep := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if name == "" || keep[name] {
			return
		}
		keep[name] = true
		if d, ok := r.Alias(name); ok {
			visit(d.Schema)
			return
		}
		if m, ok := r.Model(name); ok {
			for _, f := range m.Fields {
				visit(f.Schema)
			}
		}
	}
	for _, c := range r.Calls {
		visit(c.Resp)
		visit(c.Params)
		for _, name := range c.Input.Types() {
			visit(name)
		}
	}

	r.Models = slices.DeleteFunc(r.Models, func(m *model.Model) bool { return !keep[m.Name] })
	r.Enums = slices.DeleteFunc(r.Enums, func(e model.Enum) bool { return !keep[e.Schema] })
	r.Defns = slices.DeleteFunc(r.Defns, func(d model.Defn) bool { return !keep[d.Name] })
}

func (r *Repository) hasModel(name string) bool {
	_, ok := r.Model(name)
	return ok
}

func (r *Repository) hasEnum(name string) bool {
	_, ok := r.Enum(name)
	return ok
}

func (r *Repository) addRef(name string) {
	r.Refs = union(r.Refs, []string{name})
}

func (r *Repository) addImport(imp Import) {
	if _, ok := r.Import(imp.Name); ok {
		return
	}
	r.Imports = append(r.Imports, imp)
	r.addRef(imp.From)
}

// Merge flattens every service into one repository named after the package.
func Merge(info PackageInfo, services []*Service) (*Repository, error) {
	b := newBuilder(info)
	repo := newRepository(info.Pkg, info)
	repo.Noop = "Empty"
	for _, s := range services {
		if err := b.add(repo, s); err != nil {
			return nil, err
		}
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Bundle builds one repository per service. A model or enum is emitted by
// the first service that declares it; later services import it from there.
func Bundle(info PackageInfo, services []*Service) ([]*Repository, error) {
	b := newBuilder(info)
	for _, s := range services {
		repo := newRepository(s.ID, info)
		repo.Noop = model.Caps(s.ID) + "Empty"
		if err := b.add(repo, s); err != nil {
			return nil, err
		}
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return b.repos, nil
}

type builder struct {
	info     PackageInfo
	repos    []*Repository
	owners   map[string]string
	enumKeys map[string]string
	rename   map[string]string
	defns    model.Defns
	// walked holds every schema id and definition name some service walked.
	walked map[string]bool
	deps   []dep
}

// dep is an array item type a service expects another schema to declare.
type dep struct {
	service string
	name    string
}

func newBuilder(info PackageInfo) *builder {
	return &builder{
		info:     info,
		owners:   make(map[string]string),
		enumKeys: make(map[string]string),
		rename:   make(map[string]string),
		walked:   make(map[string]bool),
	}
}

func (b *builder) add(repo *Repository, s *Service) error {
	if !s.Loaded() {
		return fmt.Errorf("repository: service %s was not loaded", s.ID)
	}
	if !slices.Contains(b.repos, repo) {
		b.repos = append(b.repos, repo)
	}

	repo.Refs = union(repo.Refs, s.Refs)
	repo.Calls = append(repo.Calls, s.Calls...)

	for _, m := range s.Models() {
		if owner, ok := b.owners[m.Name]; ok {
			if owner != repo.Name {
				repo.addImport(Import{Name: m.Name, From: owner, Empty: len(m.Fields) == 0})
			}
			continue
		}
		b.owners[m.Name] = repo.Name
		repo.Models = append(repo.Models, m.Clone())
	}

	for _, e := range s.Enums() {
		key := e.Key()
		if canon, ok := b.enumKeys[key]; ok {
			if canon != e.Schema {
				b.rename[e.Schema] = canon
			}
			if owner := b.owners[canon]; owner != repo.Name {
				repo.addImport(Import{Name: canon, From: owner, Enum: true, Values: b.enumValues(canon)})
			}
			continue
		}
		if _, taken := b.owners[e.Schema]; taken {
			return b.conflict(e)
		}
		b.enumKeys[key] = e.Schema
		b.owners[e.Schema] = repo.Name
		e.Values = slices.Clone(e.Values)
		repo.Enums = append(repo.Enums, e)
	}

	for _, d := range s.acc.Defns {
		if _, ok := b.defns.Get(d.Name); !ok {
			b.defns = append(b.defns, d)
		}
		if _, ok := repo.Defns.Get(d.Name); !ok {
			repo.Defns = append(repo.Defns, d)
		}
	}
	for name := range s.acc.Refs {
		b.walked[name] = true
	}
	for _, name := range s.acc.Deps {
		b.deps = append(b.deps, dep{service: s.ID, name: name})
	}
	return nil
}

// conflict reports an enum whose name is already owned by a different enum
// or by a model.
func (b *builder) conflict(e model.Enum) error {
	err := &model.ConflictingEnumError{Name: e.Schema, Source: e.Source, Values: e.Values, Owner: b.owners[e.Schema]}
	for _, repo := range b.repos {
		if prev, ok := repo.Enum(e.Schema); ok {
			err.Owner, err.OwnerValues = prev.Source, prev.Values
			break
		}
	}
	return err
}

func (b *builder) enumValues(name string) []string {
	for _, repo := range b.repos {
		if e, ok := repo.Enum(name); ok {
			return slices.Clone(e.Values)
		}
	}
	return nil
}

func (b *builder) finish() error {
	if err := b.checkDeps(); err != nil {
		return err
	}
	for i := range b.defns {
		b.defns[i].Schema = b.renamed(b.defns[i].Schema)
	}
	for _, repo := range b.repos {
		b.applyRenames(repo)
		b.substituteAliases(repo)
	}
	for _, repo := range b.repos {
		if err := b.fillAssociations(repo); err != nil {
			return err
		}
		b.importExternal(repo)
	}
	return nil
}

// checkDeps fails on array item types that no walked schema declares, such
// as a `through` or `as` naming a model that does not exist.
func (b *builder) checkDeps() error {
	for _, d := range b.deps {
		if schema.IsScalar(d.name) || b.walked[d.name] {
			continue
		}
		if _, ok := b.owners[d.name]; ok {
			continue
		}
		if _, ok := b.defns.Get(d.name); ok {
			continue
		}
		return &model.UnknownModelReferenceError{Call: d.service, Field: "array items", Name: d.name}
	}
	return nil
}

func (b *builder) renamed(name string) string {
	if to, ok := b.rename[name]; ok {
		return to
	}
	return name
}

func (b *builder) applyRenames(repo *Repository) {
	for _, m := range repo.Models {
		for i := range m.Fields {
			m.Fields[i].Schema = b.renamed(m.Fields[i].Schema)
		}
	}
	for i := range repo.Calls {
		c := &repo.Calls[i]
		c.Resp = b.renamed(c.Resp)
		c.Params = b.renamed(c.Params)
		c.Input.Name = b.renamed(c.Input.Name)
		if len(c.Input.Args) > 0 {
			args := slices.Clone(c.Input.Args)
			for j := range args {
				args[j].Type = b.renamed(args[j].Type)
			}
			c.Input.Args = args
		}
	}
	for i := range repo.Defns {
		repo.Defns[i].Schema = b.renamed(repo.Defns[i].Schema)
	}
}

// substituteAliases replaces field types naming a pure alias with the
// alias target, so renderers only ever see models, enums and scalars.
func (b *builder) substituteAliases(repo *Repository) {
	global := &Repository{Defns: b.defns}
	for _, m := range repo.Models {
		for i := range m.Fields {
			f := &m.Fields[i]
			if _, isOwned := b.owners[f.Schema]; isOwned {
				continue
			}
			if d, ok := global.Alias(f.Schema); ok {
				f.Schema = d.Schema
				f.Repeated = f.Repeated || d.Repeated
				if b.isEnum(d.Schema) {
					f.Enum = true
				}
			}
		}
	}
}

func (b *builder) isEnum(name string) bool {
	for _, repo := range b.repos {
		if repo.hasEnum(name) {
			return true
		}
	}
	return false
}

func (b *builder) model(name string) (*model.Model, bool) {
	for _, repo := range b.repos {
		if m, ok := repo.Model(name); ok {
			return m, true
		}
	}
	return nil, false
}

func (b *builder) fillAssociations(repo *Repository) error {
	for _, m := range repo.Models {
		for i := range m.Fields {
			a := m.Fields[i].Association
			if a == nil {
				continue
			}
			related, ok := b.model(a.Model)
			if !ok {
				return &model.UnknownModelReferenceError{Call: m.Name, Field: m.Fields[i].Name, Name: a.Model}
			}
			if pk, ok := related.PrimaryKey(); ok && schema.IsScalar(pk.Schema) {
				a.Key, a.KeyType = pk.Name, pk.Schema
			}
		}
	}
	return nil
}

// importExternal records types referenced by repo but owned by another
// bundled repository.
func (b *builder) importExternal(repo *Repository) {
	need := func(name string) {
		if name == "" || repo.Kind(name) != KindUnknown {
			return
		}
		if d, ok := (&Repository{Defns: b.defns}).Alias(name); ok {
			name = d.Schema
			if repo.Kind(name) != KindUnknown {
				return
			}
		}
		owner, ok := b.owners[name]
		if !ok || owner == repo.Name {
			return
		}
		if m, isModel := b.model(name); isModel {
			repo.addImport(Import{Name: name, From: owner, Empty: len(m.Fields) == 0})
			return
		}
		repo.addImport(Import{Name: name, From: owner, Enum: true, Values: b.enumValues(name)})
	}
	for _, m := range repo.Models {
		for _, f := range m.Fields {
			need(f.Schema)
		}
	}
	for _, c := range repo.Calls {
		need(c.Resp)
		need(c.Params)
		for _, name := range c.Input.Types() {
			need(name)
		}
	}
}

func union(dst, src []string) []string {
	for _, s := range src {
		if s != "" && !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}
