// Package verify parses generated artifacts back, so a broken renderer
// fails the run instead of writing unusable files.
package verify

import (
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/jhump/protoreflect/desc/protoparse"
)

// SyntaxError reports a generated file that does not parse.
type SyntaxError struct {
	Target string
	File   string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("verify %s output %s: %v", e.Target, e.File, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Proto parses every file in files, keyed by file name. Imports are served
// from the same map; other imports resolve to an empty proto3 file, except
// the well-known google/protobuf ones the parser ships with.
func Proto(files map[string]string) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil
	}

	parser := protoparse.Parser{
		Accessor: func(filename string) (io.ReadCloser, error) {
			if src, ok := files[filename]; ok {
				return io.NopCloser(strings.NewReader(src)), nil
			}
			if strings.HasPrefix(filename, "google/protobuf/") {
				return nil, fmt.Errorf("%s: %w", filename, fs.ErrNotExist)
			}
			return io.NopCloser(strings.NewReader(`syntax = "proto3";`)), nil
		},
	}
	if _, err := parser.ParseFiles(names...); err != nil {
		return &SyntaxError{Target: "protobuf", File: strings.Join(names, ", "), Err: err}
	}
	return nil
}
