package model

import (
	"fmt"
	"slices"

	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

// Walk adds the models, enums and aliases declared by a resolved schema to
// acc. Walking an id that was already walked is a no-op, which is what stops
// cyclic graphs.
func Walk(doc *schema.Document, acc *Accumulator) error {
	if doc == nil {
		return nil
	}
	if doc.ID == "" {
		return &schema.InvalidSchemaIdentifierError{Source: doc.Source}
	}
	if acc.seen[doc.ID] {
		return nil
	}
	acc.seen[doc.ID] = true
	acc.Refs[doc.ID] = doc.ID
	for _, def := range doc.Definitions {
		acc.Refs[def.Name] = doc.ID + "#/definitions/" + def.Name
	}

	if len(doc.Properties) > 0 || doc.Type == schema.TypeObject {
		m := &Model{Name: doc.ID, Description: doc.Description, Source: doc.Source}
		acc.Models = append(acc.Models, m)
		for _, prop := range doc.Properties {
			f, err := walkProperty(doc, prop.Name, prop.Schema, acc)
			if err != nil {
				return err
			}
			m.Fields = append(m.Fields, f)
		}
	}

	for _, def := range doc.Definitions {
		if err := walkDefinition(doc, def.Name, def.Schema, acc); err != nil {
			return err
		}
	}
	return nil
}

func walkProperty(owner *schema.Document, name string, prop *schema.Document, acc *Accumulator) (Field, error) {
	f := Field{
		Name:        name,
		Required:    owner.IsRequired(name),
		Format:      prop.Format,
		Description: prop.Description,
		PrimaryKey:  prop.PrimaryKey,
		Association: association(prop),
	}

	switch {
	case len(prop.Enum) > 0:
		enum, err := enumFor(owner, name, prop, acc)
		if err != nil {
			return f, err
		}
		f.Schema, f.Enum = enum, true
	case prop.Items != nil:
		target, isEnum, err := itemTarget(owner, name, prop, acc)
		if err != nil {
			return f, err
		}
		f.Schema, f.Enum, f.Repeated = target, isEnum, true
		if f.Association == nil {
			f.Association = association(prop.Items)
		}
		if f.Association != nil && f.Association.Model == "" && !prop.Items.IsScalar() {
			f.Association.Model = prop.Items.ID
		}
	case prop.Target != "" || prop.ID != "":
		if prop.IsScalar() {
			f.Schema = prop.Type
			break
		}
		f.Schema = prop.ID
		// inline objects naming themselves are not reachable from anywhere else
		if prop.Target == "" && len(prop.Properties) > 0 {
			if err := Walk(prop, acc); err != nil {
				return f, err
			}
		}
	case f.Association != nil && f.Association.Model != "":
		f.Schema = f.Association.Model
	case schema.IsScalar(prop.Type):
		f.Schema = prop.Type
	default:
		return f, &UnexpectedInlineObjectError{Schema: owner.ID, Property: name, Type: prop.Type}
	}

	if f.Association != nil {
		if schema.IsScalar(f.Schema) {
			f.Association = nil
		} else if f.Association.Model == "" {
			f.Association.Model = f.Schema
		}
	}
	return f, nil
}

// itemTarget picks the element type of an array: a through model first, then
// `as`, then the item's own identity or primitive type.
func itemTarget(owner *schema.Document, name string, prop *schema.Document, acc *Accumulator) (string, bool, error) {
	item := prop.Items
	_, rel := item.Association()
	if rel == nil {
		_, rel = prop.Association()
	}

	var target string
	switch {
	case rel != nil && rel.Through != "":
		target = rel.Through
	case item.As != "":
		target = item.As
	case prop.As != "":
		target = prop.As
	case len(item.Enum) > 0:
		enum, err := enumFor(owner, name, item, acc)
		return enum, true, err
	case item.Circular:
		target = item.ID
	case item.Target != "" || item.ID != "":
		if item.IsScalar() {
			return item.Type, false, nil
		}
		target = item.ID
	case schema.IsScalar(item.Type):
		return item.Type, false, nil
	case rel != nil && rel.Model != "":
		target = rel.Model
	default:
		return "", false, &UnexpectedInlineObjectError{Schema: owner.ID, Property: name, Type: schema.TypeArray}
	}

	if target == "#" {
		target = owner.ID
	}
	acc.addDep(target)

	if !item.Circular && item.ID != "" && len(item.Properties) > 0 {
		if err := Walk(item, acc); err != nil {
			return "", false, err
		}
	}
	return target, false, nil
}

func enumFor(owner *schema.Document, name string, prop *schema.Document, acc *Accumulator) (string, error) {
	enumName := prop.ID
	if enumName == "" {
		enumName = fmt.Sprintf("%s_%s_%d", owner.ID, name, acc.nextEnum())
	}
	e, err := acc.addEnum(Enum{Schema: enumName, Source: owner.ID, Values: slices.Clone(prop.Enum)})
	if err != nil {
		return "", err
	}
	if prop.HasDefault {
		if _, err := e.Lookup(prop.Default); err != nil {
			return "", fmt.Errorf("default of %s.%s: %w", owner.ID, name, err)
		}
	}
	return enumName, nil
}

func walkDefinition(owner *schema.Document, name string, def *schema.Document, acc *Accumulator) error {
	switch {
	case def.Target != "" || def.Circular:
		if len(def.Enum) > 0 {
			if _, err := acc.addEnum(Enum{Schema: def.ID, Source: owner.ID, Values: slices.Clone(def.Enum)}); err != nil {
				return err
			}
		}
		target := def.ID
		if def.IsScalar() {
			target = def.Type
		}
		if target != name {
			acc.addDefn(Defn{Name: name, Schema: target})
		}
	case len(def.Properties) > 0 || def.Type == schema.TypeObject:
		named := *def
		named.ID = name
		named.Source = owner.Source
		return Walk(&named, acc)
	case len(def.Enum) > 0:
		if _, err := acc.addEnum(Enum{Schema: name, Source: owner.ID, Values: slices.Clone(def.Enum)}); err != nil {
			return err
		}
	case def.Items != nil:
		target, _, err := itemTarget(owner, name, def, acc)
		if err != nil {
			return err
		}
		acc.addDefn(Defn{Name: name, Schema: target, Repeated: true})
	case schema.IsScalar(def.Type):
		acc.addDefn(Defn{Name: name, Schema: def.Type})
	}
	return nil
}

func association(doc *schema.Document) *Association {
	kind, rel := doc.Association()
	if rel == nil {
		return nil
	}
	return &Association{Kind: AssociationKind(kind), Model: rel.Model, Through: rel.Through, As: rel.As}
}
