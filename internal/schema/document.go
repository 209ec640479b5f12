package schema

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scalar type names understood across every target.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// IsScalar reports whether name is one of the primitive JSON-Schema types.
func IsScalar(name string) bool {
	switch name {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// Document is one schema node of the extended JSON-Schema dialect. Root
// documents, property schemas, definitions and array items share this shape.
type Document struct {
	ID          string
	Type        string
	Format      string
	Description string
	Ref         string
	Default     string
	HasDefault  bool
	Enum        []string
	Items       *Document
	Properties  Properties
	Required    []string
	Definitions Properties
	PrimaryKey  bool
	As          string

	HasOne        *Relation
	HasMany       *Relation
	BelongsTo     *Relation
	BelongsToMany *Relation

	Service *Service

	// Target is the name of the $ref target inlined at this node.
	Target string
	// Circular marks a back-edge that was left unexpanded.
	Circular bool

	// Source is the file the document was loaded from, if any.
	Source string
	// Node keeps the decoded YAML tree of root documents so they can be
	// re-exported with their original key order.
	Node *yaml.Node

	requiredSelf bool
}

// Property is one named entry of an ordered properties or definitions block.
type Property struct {
	Name   string
	Schema *Document
}

// Properties preserves declaration order.
type Properties []Property

// Get returns the schema declared under name.
func (p Properties) Get(name string) (*Document, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Schema, true
		}
	}
	return nil, false
}

// Names lists the declared keys in order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for _, prop := range p {
		names = append(names, prop.Name)
	}
	return names
}

// Relation describes an association key (hasOne, hasMany, belongsTo,
// belongsToMany). The short form `belongsTo: User` only sets Model.
type Relation struct {
	Model   string
	Through string
	As      string
}

// Service is the RPC surface attached to a schema.
type Service struct {
	Calls []CallSpec
	Pkg   string
	Refs  []string
}

// IsRequired reports whether the property name is listed in d.Required.
func (d *Document) IsRequired(name string) bool {
	return slices.Contains(d.Required, name)
}

// IsScalar reports whether the node is a bare primitive (after resolution).
func (d *Document) IsScalar() bool {
	return d != nil && !d.Circular && len(d.Properties) == 0 && len(d.Enum) == 0 && d.Items == nil && IsScalar(d.Type)
}

// Association returns the kind and relation of the first association key set
// on the node.
func (d *Document) Association() (string, *Relation) {
	switch {
	case d.BelongsTo != nil:
		return "belongsTo", d.BelongsTo
	case d.BelongsToMany != nil:
		return "belongsToMany", d.BelongsToMany
	case d.HasMany != nil:
		return "hasMany", d.HasMany
	case d.HasOne != nil:
		return "hasOne", d.HasOne
	}
	return "", nil
}

// Clone returns a deep copy. The YAML node is shared since it is never
// mutated after loading.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Enum = slices.Clone(d.Enum)
	cp.Required = slices.Clone(d.Required)
	cp.Items = d.Items.Clone()
	cp.Properties = d.Properties.clone()
	cp.Definitions = d.Definitions.clone()
	cp.HasOne = d.HasOne.clone()
	cp.HasMany = d.HasMany.clone()
	cp.BelongsTo = d.BelongsTo.clone()
	cp.BelongsToMany = d.BelongsToMany.clone()
	if d.Service != nil {
		svc := *d.Service
		svc.Calls = slices.Clone(d.Service.Calls)
		svc.Refs = slices.Clone(d.Service.Refs)
		cp.Service = &svc
	}
	return &cp
}

func (p Properties) clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for i, prop := range p {
		out[i] = Property{Name: prop.Name, Schema: prop.Schema.Clone()}
	}
	return out
}

func (r *Relation) clone() *Relation {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// UnmarshalYAML decodes a mapping node by hand so property and definition
// order survives, and so the dialect's loose shapes (bool or list `required`,
// string or mapping associations) can be accepted.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expecting mapping, given %s", node.Line, kindName(node))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "id", "$id":
			err = val.Decode(&d.ID)
		case "type":
			err = val.Decode(&d.Type)
		case "format":
			err = val.Decode(&d.Format)
		case "description":
			err = val.Decode(&d.Description)
		case "$ref":
			err = val.Decode(&d.Ref)
		case "as":
			err = val.Decode(&d.As)
		case "primaryKey":
			err = val.Decode(&d.PrimaryKey)
		case "default":
			if val.Kind == yaml.ScalarNode {
				d.Default, d.HasDefault = val.Value, true
			}
		case "enum":
			d.Enum, err = decodeScalars(val)
		case "required":
			if val.Kind == yaml.SequenceNode {
				err = val.Decode(&d.Required)
			} else {
				err = val.Decode(&d.requiredSelf)
			}
		case "items":
			d.Items = new(Document)
			err = val.Decode(d.Items)
		case "properties":
			d.Properties, err = decodeProperties(val)
		case "definitions":
			d.Definitions, err = decodeProperties(val)
		case "hasOne":
			d.HasOne, err = decodeRelation(val)
		case "hasMany":
			d.HasMany, err = decodeRelation(val)
		case "belongsTo":
			d.BelongsTo, err = decodeRelation(val)
		case "belongsToMany":
			d.BelongsToMany, err = decodeRelation(val)
		case "service":
			d.Service = new(Service)
			err = val.Decode(d.Service)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	for _, prop := range d.Properties {
		if prop.Schema.requiredSelf && !d.IsRequired(prop.Name) {
			d.Required = append(d.Required, prop.Name)
		}
	}
	return nil
}

func (s *Service) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expecting mapping, given %s", node.Line, kindName(node))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "calls":
			err = val.Decode(&s.Calls)
		case "pkg":
			err = val.Decode(&s.Pkg)
		case "refs":
			err = val.Decode(&s.Refs)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func decodeProperties(node *yaml.Node) (Properties, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expecting mapping, given %s", node.Line, kindName(node))
	}
	props := make(Properties, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		sub := new(Document)
		if err := node.Content[i+1].Decode(sub); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Content[i].Value, err)
		}
		props = append(props, Property{Name: node.Content[i].Value, Schema: sub})
	}
	return props, nil
}

func decodeRelation(node *yaml.Node) (*Relation, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		// `hasMany: true` only flags the association; the model comes from
		// the referenced schema.
		if node.Tag == "!!bool" {
			return &Relation{}, nil
		}
		return &Relation{Model: node.Value}, nil
	case yaml.MappingNode:
		rel := new(Relation)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i].Value, node.Content[i+1]
			switch key {
			case "model":
				rel.Model = val.Value
			case "as":
				rel.As = val.Value
			case "through":
				if val.Kind == yaml.MappingNode {
					for j := 0; j+1 < len(val.Content); j += 2 {
						if val.Content[j].Value == "model" {
							rel.Through = val.Content[j+1].Value
						}
					}
				} else {
					rel.Through = val.Value
				}
			}
		}
		return rel, nil
	}
	return nil, fmt.Errorf("line %d: expecting model name or mapping, given %s", node.Line, kindName(node))
}

func decodeScalars(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expecting list, given %s", node.Line, kindName(node))
	}
	values := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: expecting scalar value, given %s", item.Line, kindName(item))
		}
		values = append(values, item.Value)
	}
	return values, nil
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return fmt.Sprintf("scalar %q", node.Value)
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}
