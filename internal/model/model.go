// Package model holds the flat intermediate representation every renderer
// works from, and the walker that builds it from resolved schemas.
package model

// AssociationKind names the relation between two models.
type AssociationKind string

const (
	HasOne        AssociationKind = "hasOne"
	HasMany       AssociationKind = "hasMany"
	BelongsTo     AssociationKind = "belongsTo"
	BelongsToMany AssociationKind = "belongsToMany"
)

// Association is attached to fields declaring a relation. Key and KeyType
// describe the related model's primary key once the repository is merged.
type Association struct {
	Kind    AssociationKind
	Model   string
	Through string
	As      string
	Key     string
	KeyType string
}

// ForeignKey returns the name of the flattened key field a belongs-to
// association adds next to the nested reference, e.g. `otherModelId`.
func (a *Association) ForeignKey() (string, bool) {
	if a == nil || a.Kind != BelongsTo || a.Key == "" || a.KeyType == "" {
		return "", false
	}
	base := a.As
	if base == "" {
		base = a.Model
	}
	return LowerCamel(base) + Caps(a.Key), true
}

// Field is one property of a model.
type Field struct {
	Name        string
	Schema      string
	Repeated    bool
	Required    bool
	Enum        bool
	Format      string
	Description string
	PrimaryKey  bool
	Association *Association
}

// Model is a named, ordered field list.
type Model struct {
	Name        string
	Description string
	Source      string
	Fields      []Field
}

// Field returns the field called name.
func (m *Model) Field(name string) (*Field, bool) {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i], true
		}
	}
	return nil, false
}

// PrimaryKey returns the field flagged `primaryKey`, falling back to `id`.
func (m *Model) PrimaryKey() (*Field, bool) {
	for i := range m.Fields {
		if m.Fields[i].PrimaryKey {
			return &m.Fields[i], true
		}
	}
	return m.Field("id")
}

// Clone copies the model and its associations.
func (m *Model) Clone() *Model {
	cp := *m
	cp.Fields = make([]Field, len(m.Fields))
	for i, f := range m.Fields {
		if f.Association != nil {
			assoc := *f.Association
			f.Association = &assoc
		}
		cp.Fields[i] = f
	}
	return &cp
}

// Defn maps a definition that is a pure alias (a scalar, an enum, a list or
// another model) to its target type.
type Defn struct {
	Name     string
	Schema   string
	Repeated bool
}

// Defns keeps aliases in declaration order.
type Defns []Defn

// Get returns the alias called name.
func (d Defns) Get(name string) (Defn, bool) {
	for _, defn := range d {
		if defn.Name == name {
			return defn, true
		}
	}
	return Defn{}, false
}

// Accumulator collects walker output for one generation run. The enum
// counter lives here so synthesized names never depend on earlier runs.
type Accumulator struct {
	Models []*Model
	Enums  []Enum
	Deps   []string
	Refs   map[string]string
	Defns  Defns

	seen    map[string]bool
	enumSeq int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Refs: make(map[string]string),
		seen: make(map[string]bool),
	}
}

// Model returns the accumulated model called name.
func (a *Accumulator) Model(name string) (*Model, bool) {
	for _, m := range a.Models {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Enum returns the accumulated enum called name.
func (a *Accumulator) Enum(name string) (*Enum, bool) {
	for i := range a.Enums {
		if a.Enums[i].Schema == name {
			return &a.Enums[i], true
		}
	}
	return nil, false
}

// Seen reports whether a schema id was already walked.
func (a *Accumulator) Seen(id string) bool { return a.seen[id] }

func (a *Accumulator) nextEnum() int {
	a.enumSeq++
	return a.enumSeq
}

// addEnum keeps the first enum declared under a name. Declaring the name
// again with other members is an error.
func (a *Accumulator) addEnum(e Enum) (*Enum, error) {
	if prev, ok := a.Enum(e.Schema); ok {
		if prev.Key() != e.Key() {
			return nil, &ConflictingEnumError{Name: e.Schema, Source: e.Source, Values: e.Values, Owner: prev.Source, OwnerValues: prev.Values}
		}
		return prev, nil
	}
	a.Enums = append(a.Enums, e)
	return &a.Enums[len(a.Enums)-1], nil
}

func (a *Accumulator) addDep(name string) {
	for _, dep := range a.Deps {
		if dep == name {
			return
		}
	}
	a.Deps = append(a.Deps, name)
}

func (a *Accumulator) addDefn(d Defn) {
	if _, ok := a.Defns.Get(d.Name); !ok {
		a.Defns = append(a.Defns, d)
	}
}
