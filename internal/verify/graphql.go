package verify

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// sdlLexer covers the subset of GraphQL SDL the renderer produces.
var sdlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[_A-Za-z][_0-9A-Za-z]*`},
	{Name: "Punct", Pattern: `[!():\[\]{},]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type sdlDocument struct {
	Definitions []*sdlDefinition `parser:"@@*"`
}

type sdlDefinition struct {
	Pos         lexer.Position
	Description string     `parser:"@String?"`
	Extend      bool       `parser:"@\"extend\"?"`
	Object      *sdlObject `parser:"( @@"`
	Enum        *sdlEnum   `parser:"| @@ )"`
}

type sdlObject struct {
	Kind   string      `parser:"@( \"type\" | \"input\" )"`
	Name   string      `parser:"@Ident"`
	Fields []*sdlField `parser:"\"{\" @@* \"}\""`
}

type sdlField struct {
	Pos         lexer.Position
	Description string    `parser:"@String?"`
	Name        string    `parser:"@Ident"`
	Args        []*sdlArg `parser:"( \"(\" @@ ( \",\" @@ )* \")\" )?"`
	Type        *sdlType  `parser:"\":\" @@"`
}

type sdlArg struct {
	Name string   `parser:"@Ident \":\""`
	Type *sdlType `parser:"@@"`
}

type sdlType struct {
	Pos     lexer.Position
	List    *sdlType `parser:"( \"[\" @@ \"]\""`
	Name    string   `parser:"| @Ident )"`
	NonNull bool     `parser:"@\"!\"?"`
}

func (t *sdlType) base() *sdlType {
	for t.List != nil {
		t = t.List
	}
	return t
}

type sdlEnum struct {
	Name   string          `parser:"\"enum\" @Ident"`
	Values []*sdlEnumValue `parser:"\"{\" @@* \"}\""`
}

type sdlEnumValue struct {
	Description string `parser:"@String?"`
	Name        string `parser:"@Ident"`
}

var sdlParser = participle.MustBuild[sdlDocument](
	participle.Lexer(sdlLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

var builtinTypes = map[string]bool{
	"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
	"Query": true, "Mutation": true,
}

// GraphQL parses sdl and checks that every referenced type is declared in
// the same document or is a built-in.
func GraphQL(file, sdl string) error {
	doc, err := sdlParser.ParseString(file, sdl)
	if err != nil {
		return &SyntaxError{Target: "graphql", File: file, Err: err}
	}

	declared := make(map[string]bool)
	for _, def := range doc.Definitions {
		name := def.name()
		if def.Extend {
			continue
		}
		if declared[name] {
			return &SyntaxError{Target: "graphql", File: file, Err: fmt.Errorf("%s: duplicate type %q", def.Pos, name)}
		}
		declared[name] = true
	}

	for _, def := range doc.Definitions {
		if def.Object == nil {
			continue
		}
		for _, f := range def.Object.Fields {
			types := []*sdlType{f.Type}
			for _, arg := range f.Args {
				types = append(types, arg.Type)
			}
			for _, t := range types {
				b := t.base()
				if !builtinTypes[b.Name] && !declared[b.Name] {
					return &SyntaxError{Target: "graphql", File: file, Err: fmt.Errorf("%s: undeclared type %q in %s.%s", b.Pos, b.Name, def.name(), f.Name)}
				}
			}
		}
	}
	return nil
}

func (d *sdlDefinition) name() string {
	if d.Object != nil {
		return d.Object.Name
	}
	return d.Enum.Name
}
