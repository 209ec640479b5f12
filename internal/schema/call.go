package schema

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// CallSpec is one entry of `service.calls` as written in the schema file.
type CallSpec struct {
	Get         string
	Set         string
	Resp        string
	Params      string
	Input       Input
	Required    Required
	Repeated    bool
	Description string
}

// Input is either a single type name or an ordered argument map.
type Input struct {
	Name string
	Args []Argument
}

// Argument is one named input of a multi-argument call.
type Argument struct {
	Name string
	Type string
}

// IsZero reports whether no input was declared.
func (in Input) IsZero() bool {
	return in.Name == "" && len(in.Args) == 0
}

// Types lists every type name the input refers to.
func (in Input) Types() []string {
	if in.Name != "" {
		return []string{in.Name}
	}
	types := make([]string, 0, len(in.Args))
	for _, arg := range in.Args {
		types = append(types, arg.Type)
	}
	return types
}

// Required is `true` or a list of mandatory input keys (or type names).
type Required struct {
	All  bool
	Keys []string
}

// Has reports whether key is mandatory.
func (r Required) Has(key string) bool {
	return r.All || slices.Contains(r.Keys, key)
}

func (c *CallSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expecting call mapping, given %s", node.Line, kindName(node))
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "get":
			err = val.Decode(&c.Get)
		case "set":
			err = val.Decode(&c.Set)
		case "resp":
			err = val.Decode(&c.Resp)
		case "params":
			err = val.Decode(&c.Params)
		case "description":
			err = val.Decode(&c.Description)
		case "repeated", "repeat":
			err = val.Decode(&c.Repeated)
		case "input":
			err = val.Decode(&c.Input)
		case "required":
			err = val.Decode(&c.Required)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (in *Input) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		in.Name = node.Value
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			val := node.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: argument %q must name a type", val.Line, node.Content[i].Value)
			}
			in.Args = append(in.Args, Argument{Name: node.Content[i].Value, Type: val.Value})
		}
		return nil
	}
	return fmt.Errorf("line %d: expecting type name or argument mapping, given %s", node.Line, kindName(node))
}

func (r *Required) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.All)
	case yaml.SequenceNode:
		return node.Decode(&r.Keys)
	}
	return fmt.Errorf("line %d: expecting boolean or list, given %s", node.Line, kindName(node))
}
