package repository

import (
	"context"
	"fmt"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/resolve"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

// Service is one schema with a service block, or the shared pseudo-service
// holding plain type documents. It owns the accumulator its documents are
// walked into.
type Service struct {
	ID    string
	Pkg   string
	Refs  []string
	Calls []model.Call

	docs []*schema.Document
	acc  *model.Accumulator
}

// NewService validates the top-level shape of doc.
func NewService(doc *schema.Document) (*Service, error) {
	if doc == nil || doc.ID == "" {
		source := ""
		if doc != nil {
			source = doc.Source
		}
		return nil, &schema.InvalidSchemaIdentifierError{Source: source}
	}
	if doc.Service == nil {
		return nil, &schema.InvalidServiceDefinitionError{ID: doc.ID, Detail: "missing service block"}
	}
	for i, decl := range doc.Service.Calls {
		if decl.Get == "" && decl.Set == "" && decl.Resp == "" && decl.Input.IsZero() && decl.Params == "" {
			return nil, &schema.InvalidServiceDefinitionError{ID: doc.ID, Detail: fmt.Sprintf("call #%d is empty", i+1)}
		}
	}

	pkg := doc.Service.Pkg
	if pkg == "" {
		pkg = doc.ID
	}
	return &Service{
		ID:    doc.ID,
		Pkg:   pkg,
		Refs:  append([]string(nil), doc.Service.Refs...),
		Calls: model.ExtractCalls(doc),
		docs:  []*schema.Document{doc},
	}, nil
}

// NewCommon groups documents without a service block under name.
func NewCommon(name string, docs []*schema.Document) *Service {
	return &Service{ID: name, Pkg: name, docs: docs}
}

// Load resolves the service's documents and walks them.
func (s *Service) Load(ctx context.Context, r *resolve.Resolver) error {
	resolved, err := r.ResolveAll(ctx, s.docs)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", s.ID, err)
	}
	acc := model.NewAccumulator()
	for _, doc := range resolved {
		if err := model.Walk(doc, acc); err != nil {
			return fmt.Errorf("walking %s: %w", doc.ID, err)
		}
	}
	s.acc = acc
	return nil
}

// Loaded reports whether Load succeeded.
func (s *Service) Loaded() bool { return s.acc != nil }

// Models returns the walked models.
func (s *Service) Models() []*model.Model {
	if s.acc == nil {
		return nil
	}
	return s.acc.Models
}

// Enums returns the walked enums.
func (s *Service) Enums() []model.Enum {
	if s.acc == nil {
		return nil
	}
	return s.acc.Enums
}
