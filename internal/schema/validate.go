package schema

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Validate checks the structural shape of a loaded document (known type
// names, arrays carrying items, well-formed nested schemas) by projecting it
// onto an OpenAPI schema object and running kin-openapi's validator over it.
// References are not followed here; they are checked during resolution.
func Validate(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return &InvalidSchemaIdentifierError{Source: doc.Source}
	}
	if err := toOpenAPI(doc).Validate(ctx); err != nil {
		return &LoadError{
			Code:        ValidationError,
			Message:     fmt.Sprintf("schema %q: %v", doc.ID, err),
			Location:    doc.Source,
			JSONPointer: "#",
			Cause:       err,
		}
	}
	for _, def := range doc.Definitions {
		if err := toOpenAPI(def.Schema).Validate(ctx); err != nil {
			return &LoadError{
				Code:        ValidationError,
				Message:     fmt.Sprintf("schema %q, definition %q: %v", doc.ID, def.Name, err),
				Location:    doc.Source,
				JSONPointer: "#/definitions/" + def.Name,
				Cause:       err,
			}
		}
	}
	return nil
}

// toOpenAPI drops formats (the dialect allows hints such as `datetime` that
// OpenAPI does not register) and replaces $ref nodes with empty schemas.
func toOpenAPI(d *Document) *openapi3.Schema {
	if d.Ref != "" || d.Circular {
		return openapi3.NewSchema()
	}
	if len(d.Enum) > 0 {
		s := openapi3.NewStringSchema()
		s.Description = d.Description
		for _, v := range d.Enum {
			s.Enum = append(s.Enum, v)
		}
		return s
	}

	s := &openapi3.Schema{Type: d.Type, Description: d.Description}
	for _, prop := range d.Properties {
		s.WithProperty(prop.Name, toOpenAPI(prop.Schema))
	}
	if d.Items != nil {
		s.Items = openapi3.NewSchemaRef("", toOpenAPI(d.Items))
	}
	if len(d.Required) > 0 {
		s.Required = append([]string(nil), d.Required...)
	}
	return s
}
