package model

import "github.com/json-schema-faker/json-schema-to/internal/schema"

// Call is one RPC-like operation, tagged with the id of the schema that
// declared it.
type Call struct {
	Get         string
	Set         string
	Resp        string
	Params      string
	Input       schema.Input
	Required    schema.Required
	Repeated    bool
	Schema      string
	Description string
}

// Name is the get or set name.
func (c Call) Name() string {
	if c.Get != "" {
		return c.Get
	}
	return c.Set
}

// Mutation reports whether the call is a `set`.
func (c Call) Mutation() bool { return c.Set != "" && c.Get == "" }

// Request returns the single request type: the input name, or params when
// no input is given. Multi-argument inputs have no single request type.
func (c Call) Request() string {
	if c.Input.Name != "" {
		return c.Input.Name
	}
	if len(c.Input.Args) == 0 {
		return c.Params
	}
	return ""
}

// ExtractCalls normalizes doc's service calls. Validation happens later,
// against the merged namespace.
func ExtractCalls(doc *schema.Document) []Call {
	if doc == nil || doc.Service == nil {
		return nil
	}
	calls := make([]Call, 0, len(doc.Service.Calls))
	for _, decl := range doc.Service.Calls {
		calls = append(calls, Call{
			Get:         decl.Get,
			Set:         decl.Set,
			Resp:        decl.Resp,
			Params:      decl.Params,
			Input:       decl.Input,
			Required:    decl.Required,
			Repeated:    decl.Repeated,
			Schema:      doc.ID,
			Description: decl.Description,
		})
	}
	return calls
}

// ValidateCalls checks call shapes and that every input, resp and params
// name is known.
func ValidateCalls(calls []Call, known func(string) bool) error {
	for _, c := range calls {
		switch {
		case c.Get == "" && c.Set == "" && !c.Input.IsZero():
			return &MalformedCallError{Schema: c.Schema, Reason: "unexpected input without get or set"}
		case c.Get == "" && c.Set == "":
			return &MalformedCallError{Schema: c.Schema, Reason: "missing get or set"}
		case c.Get != "" && c.Set != "":
			return &MalformedCallError{Schema: c.Schema, Call: c.Get, Reason: "declares both get and set"}
		}

		if c.Resp != "" && !known(c.Resp) {
			return &UnknownModelReferenceError{Call: c.Name(), Field: "resp", Name: c.Resp}
		}
		if c.Params != "" && !known(c.Params) {
			return &UnknownModelReferenceError{Call: c.Name(), Field: "params", Name: c.Params}
		}
		for _, name := range c.Input.Types() {
			if !known(name) {
				return &UnknownModelReferenceError{Call: c.Name(), Field: "input", Name: name}
			}
		}
	}
	return nil
}
