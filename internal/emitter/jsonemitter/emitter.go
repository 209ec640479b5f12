// Package jsonemitter re-exports the loaded schema documents as JSON, plus
// a JavaScript module that groups them and exposes their enums.
package jsonemitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

// Options controls the module flavour and the shared file name.
type Options struct {
	ESM    bool
	Common string
}

// File is one rendered output relative to the destination directory.
type File struct {
	Path    string
	Content []byte
}

// Render returns `<id>.json` per document, `<common>.json` with the reference
// documents, and the `<common>.js` (or `.mjs`) module.
func Render(docs, refs []*schema.Document, enums []model.Enum, opts Options) ([]File, error) {
	if opts.Common == "" {
		opts.Common = "common"
	}
	files := make([]File, 0, len(docs)+2)
	for _, doc := range docs {
		data, err := Schema(doc)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: doc.ID + ".json", Content: data})
	}

	data, err := References(refs)
	if err != nil {
		return nil, err
	}
	files = append(files, File{Path: opts.Common + ".json", Content: data})

	ext := ".js"
	if opts.ESM {
		ext = ".mjs"
	}
	files = append(files, File{Path: opts.Common + ext, Content: []byte(Module(docs, enums, opts))})
	return files, nil
}

// Schema renders doc as indented JSON in source key order, without its
// service block.
func Schema(doc *schema.Document) ([]byte, error) {
	if doc.Node == nil {
		return nil, fmt.Errorf("jsonemitter: %s has no source document", doc.ID)
	}
	v, err := convert(doc.Node, "service")
	if err != nil {
		return nil, fmt.Errorf("jsonemitter: %s: %w", doc.ID, err)
	}
	return marshal(v)
}

// References renders the reference documents as one JSON array.
func References(refs []*schema.Document) ([]byte, error) {
	list := make([]any, 0, len(refs))
	for _, doc := range refs {
		if doc.Node == nil {
			return nil, fmt.Errorf("jsonemitter: %s has no source document", doc.ID)
		}
		v, err := convert(doc.Node, "")
		if err != nil {
			return nil, fmt.Errorf("jsonemitter: %s: %w", doc.ID, err)
		}
		list = append(list, v)
	}
	return marshal(list)
}

// Module renders the loader module. Documents are grouped by their
// `options.database` value, `default` when unset.
func Module(docs []*schema.Document, enums []model.Enum, opts Options) string {
	common := opts.Common
	if common == "" {
		common = "common"
	}

	var groups []string
	members := make(map[string][]string)
	for _, doc := range docs {
		key := database(doc.Node)
		if _, ok := members[key]; !ok {
			groups = append(groups, key)
		}
		members[key] = append(members[key], doc.ID)
	}

	var b strings.Builder
	b.WriteString("/* eslint-disable */\n")
	if opts.ESM {
		fmt.Fprintf(&b, "import %s from './%s.json' with { type: 'json' };\n", varName(common), common)
		for _, doc := range docs {
			fmt.Fprintf(&b, "import %s from './%s.json' with { type: 'json' };\n", varName(doc.ID), doc.ID)
		}
	}
	b.WriteString("const __factory = {};\n")

	for _, g := range groups {
		fmt.Fprintf(&b, "__factory['@%s'] = [\n", g)
		for _, id := range members[g] {
			if opts.ESM {
				fmt.Fprintf(&b, "  %s,\n", varName(id))
			} else {
				fmt.Fprintf(&b, "  require('./%s.json'),\n", id)
			}
		}
		if opts.ESM {
			fmt.Fprintf(&b, "].concat(%s);\n", varName(common))
		} else {
			fmt.Fprintf(&b, "].concat(require('./%s.json'));\n", common)
		}
	}

	consts := make([]string, len(enums))
	for i, e := range enums {
		consts[i] = identifier(e.Schema)
	}
	consts = emitter.Unique(consts)
	for i, e := range enums {
		pairs := make([]string, len(e.Values))
		for j, v := range e.Values {
			k, _ := json.Marshal(v)
			pairs[j] = fmt.Sprintf("%s: %s", k, k)
		}
		frozen := fmt.Sprintf("Object.freeze({ %s })", strings.Join(pairs, ", "))
		if opts.ESM {
			fmt.Fprintf(&b, "export const %s = %s;\n", consts[i], frozen)
			fmt.Fprintf(&b, "__factory%s = %s;\n", property(e.Schema), consts[i])
		} else {
			fmt.Fprintf(&b, "__factory%s = %s;\n", property(e.Schema), frozen)
		}
	}

	if opts.ESM {
		b.WriteString("export default __factory;\n")
	} else {
		b.WriteString("module.exports = __factory;\n")
	}
	return b.String()
}

func varName(id string) string { return model.Caps(id) + "Json" }

var (
	plainIdent   = regexp.MustCompile(`^[A-Za-z_$][0-9A-Za-z_$]*$`)
	invalidIdent = regexp.MustCompile(`[^0-9A-Za-z_$]+`)
)

// identifier turns an enum name into a usable const name.
func identifier(name string) string {
	name = invalidIdent.ReplaceAllString(name, "_")
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		return "_" + name
	}
	return name
}

// property returns the member access for name, bracketed when name is not a
// plain identifier.
func property(name string) string {
	if plainIdent.MatchString(name) {
		return "." + name
	}
	return "['" + strings.ReplaceAll(strings.ReplaceAll(name, `\`, `\\`), "'", `\'`) + "']"
}

func database(n *yaml.Node) string {
	n = mapping(n)
	if opts := child(n, "options"); opts != nil {
		if db := child(mapping(opts), "database"); db != nil && db.Kind == yaml.ScalarNode && db.Value != "" {
			return db.Value
		}
	}
	return "default"
}

func mapping(n *yaml.Node) *yaml.Node {
	for n != nil && (n.Kind == yaml.DocumentNode || n.Kind == yaml.AliasNode) {
		if n.Kind == yaml.AliasNode {
			n = n.Alias
			continue
		}
		if len(n.Content) == 0 {
			return nil
		}
		n = n.Content[0]
	}
	return n
}

func child(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// object keeps mapping keys in document order when marshalled.
type object []member

type member struct {
	key   string
	value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// convert turns a YAML node into JSON-marshalable values, dropping the
// top-level key named skip.
func convert(n *yaml.Node, skip string) (any, error) {
	n = mapping(n)
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		obj := make(object, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if skip != "" && key == skip {
				continue
			}
			v, err := convert(n.Content[i+1], "")
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{key: key, value: v})
		}
		return obj, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := convert(item, "")
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
