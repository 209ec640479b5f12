package schema

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Settings configures loader behavior.
type Settings struct {
	// FS is the filesystem documents are read from.
	FS afero.Fs
	// Cwd anchors `!include ~/...` paths.
	Cwd string
	// Ignore skips files whose slash-separated path contains any of these
	// fragments, or whose base name matches one as a glob.
	Ignore []string
	Logger *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		FS:     afero.NewOsFs(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithFS(fs afero.Fs) Option             { return func(s *Settings) { s.FS = fs } }
func WithCwd(dir string) Option             { return func(s *Settings) { s.Cwd = dir } }
func WithIgnore(patterns []string) Option   { return func(s *Settings) { s.Ignore = patterns } }
func WithLogger(logger *slog.Logger) Option { return func(s *Settings) { s.Logger = logger } }

// Load reads every .json, .yaml and .yml document below dir. Documents that
// share an id are merged key by key, later files winning, and returned in
// order of first appearance.
func Load(ctx context.Context, dir string, opts ...Option) ([]*Document, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &LoadError{Code: InputError, Message: "schema: source directory is empty"}
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	logger := settings.Logger.With("component", "loader")

	info, err := settings.FS.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("schema: cannot read %s: %v", dir, err), Location: dir, Cause: err}
	}
	if !info.IsDir() {
		doc, err := LoadFile(ctx, dir, opts...)
		if err != nil {
			return nil, err
		}
		return []*Document{doc}, nil
	}

	var files []string
	err = afero.Walk(settings.FS, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() || !isSchemaFile(path) {
			return nil
		}
		if settings.ignored(path) {
			logger.Debug("skipping ignored file", "path", path)
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("schema: walk %s: %v", dir, err), Location: dir, Cause: err}
	}

	var order []string
	nodes := make(map[string]*yaml.Node)
	sources := make(map[string]string)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node, err := settings.parseFile(path, nil)
		if err != nil {
			return nil, err
		}
		id := idOf(node)
		if id == "" {
			return nil, &InvalidSchemaIdentifierError{Source: path}
		}
		if prev, ok := nodes[id]; ok {
			logger.Debug("merging documents with the same id", "id", id, "path", path, "into", sources[id])
			mergeMapping(prev, node)
			continue
		}
		order = append(order, id)
		nodes[id] = node
		sources[id] = path
	}

	docs := make([]*Document, 0, len(order))
	for _, id := range order {
		doc, err := decode(nodes[id], sources[id])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	logger.Debug("loaded schemas", "dir", dir, "files", len(files), "documents", len(docs))
	return docs, nil
}

// LoadFile reads a single document.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	node, err := settings.parseFile(path, nil)
	if err != nil {
		return nil, err
	}
	if idOf(node) == "" {
		return nil, &InvalidSchemaIdentifierError{Source: path}
	}
	return decode(node, path)
}

func decode(node *yaml.Node, source string) (*Document, error) {
	doc := new(Document)
	if err := node.Decode(doc); err != nil {
		return nil, &LoadError{Code: ParseError, Message: fmt.Sprintf("schema: decode %s: %v", source, err), Location: source, Cause: err}
	}
	doc.Source = source
	doc.Node = node
	return doc, nil
}

func (s Settings) parseFile(path string, stack []string) (*yaml.Node, error) {
	data, err := afero.ReadFile(s.FS, path)
	if err != nil {
		return nil, &LoadError{Code: InputError, Message: fmt.Sprintf("schema: read %s: %v", path, err), Location: path, Cause: err}
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ParseError, Message: fmt.Sprintf("schema: parse %s: %v", path, err), Location: path, Cause: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &LoadError{Code: ParseError, Message: fmt.Sprintf("schema: expecting object in %s", path), Location: path}
	}
	root := doc.Content[0]
	if err := s.expandIncludes(root, path, append(stack, path)); err != nil {
		return nil, err
	}
	return root, nil
}

// expandIncludes replaces `!include <file>` scalars with the file's content:
// YAML and JSON files are parsed in place, anything else becomes a string.
func (s Settings) expandIncludes(node *yaml.Node, src string, stack []string) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!include" {
		inc := s.includePath(node.Value, src)
		if slices.Contains(stack, inc) {
			return &LoadError{Code: ParseError, Message: fmt.Sprintf("schema: circular include of %s from %s", inc, src), Location: src}
		}
		if isSchemaFile(inc) {
			sub, err := s.parseFile(inc, stack)
			if err != nil {
				return err
			}
			*node = *sub
			return nil
		}
		data, err := afero.ReadFile(s.FS, inc)
		if err != nil {
			return &LoadError{Code: InputError, Message: fmt.Sprintf("schema: include %s: %v", inc, err), Location: src, Cause: err}
		}
		*node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(data)}
		return nil
	}
	for _, child := range node.Content {
		if err := s.expandIncludes(child, src, stack); err != nil {
			return err
		}
	}
	return nil
}

func (s Settings) includePath(value, src string) string {
	if rest, ok := strings.CutPrefix(value, "~/"); ok {
		return filepath.Join(s.Cwd, rest)
	}
	return filepath.Join(filepath.Dir(src), value)
}

func (s Settings) ignored(path string) bool {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range s.Ignore {
		if pattern == "" {
			continue
		}
		if strings.Contains(slashed, pattern) {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func idOf(node *yaml.Node) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "id", "$id":
			if node.Content[i+1].Kind == yaml.ScalarNode {
				return node.Content[i+1].Value
			}
		}
	}
	return ""
}

func mergeMapping(dst, src *yaml.Node) {
outer:
	for i := 0; i+1 < len(src.Content); i += 2 {
		key := src.Content[i].Value
		for j := 0; j+1 < len(dst.Content); j += 2 {
			if dst.Content[j].Value == key {
				dst.Content[j+1] = src.Content[i+1]
				continue outer
			}
		}
		dst.Content = append(dst.Content, src.Content[i], src.Content[i+1])
	}
}
