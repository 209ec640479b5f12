// Package output writes generated files below the destination directory.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// PlannedFile describes a file the writer intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the stale files removed by pruning.
type Result struct {
	Dir     string
	Planned []PlannedFile
	Removed []string
}

// Options controls how files are written.
type Options struct {
	Dir    string // required; destination directory
	Force  bool   // write even when the directory holds unrelated files
	DryRun bool   // plan only
	// Prune removes files matching these patterns, relative to Dir, before
	// writing. Patterns use afero.Glob syntax.
	Prune   []string
	Logger  *slog.Logger
	OnWrite func(rel string)
}

// Writer writes planned files atomically to a file system.
type Writer struct {
	fs   afero.Fs
	opts Options
	log  *slog.Logger
}

// New returns a writer on fs.
func New(fs afero.Fs, opts Options) *Writer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{fs: fs, opts: opts, log: logger.With("component", "output")}
}

// generated lists the extensions this tool writes, so a destination that
// only holds earlier output is not treated as foreign.
var generated = []string{".gql", ".proto", ".d.ts", ".json", ".js", ".mjs"}

// Write plans files and, unless DryRun is set, writes them. Each file goes
// to a temp file first and is renamed into place.
func (w *Writer) Write(ctx context.Context, files map[string][]byte) (*Result, error) {
	dir := strings.TrimSpace(w.opts.Dir)
	if dir == "" {
		return nil, fmt.Errorf("output: Dir is required")
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, filepath.ToSlash(p))
	}
	sort.Strings(rels)

	res := &Result{Dir: dir, Planned: make([]PlannedFile, 0, len(rels))}
	for _, rel := range rels {
		res.Planned = append(res.Planned, PlannedFile{RelPath: rel, Size: len(files[filepath.FromSlash(rel)]), Mode: 0o644})
	}
	if w.opts.DryRun {
		return res, nil
	}

	if !w.opts.Force && len(w.opts.Prune) == 0 {
		if foreign, err := w.foreign(dir, files); err != nil {
			return nil, err
		} else if foreign != "" {
			return nil, fmt.Errorf("output directory %q is not empty: %s was not generated (use --force to overwrite)", dir, foreign)
		}
	}

	removed, err := w.prune(dir)
	if err != nil {
		return nil, err
	}
	res.Removed = removed

	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.writeFile(dir, rel, files[filepath.FromSlash(rel)]); err != nil {
			return nil, err
		}
		if w.opts.OnWrite != nil {
			w.opts.OnWrite(rel)
		}
	}
	return res, nil
}

func (w *Writer) writeFile(dir, rel string, content []byte) error {
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := w.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := p + ".tmp-" + time.Now().Format("20060102150405")
	if err := afero.WriteFile(w.fs, tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", rel, err)
	}
	if err := w.fs.Rename(tmp, p); err != nil {
		_ = w.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	w.log.Debug("wrote file", "path", rel, "bytes", len(content))
	return nil
}

// foreign returns the first file below dir that is neither planned nor
// looks like earlier output.
func (w *Writer) foreign(dir string, files map[string][]byte) (string, error) {
	ok, err := afero.DirExists(w.fs, dir)
	if err != nil || !ok {
		return "", err
	}
	var found string
	err = afero.Walk(w.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || found != "" || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if _, planned := files[rel]; planned || isGenerated(filepath.ToSlash(rel)) {
			return nil
		}
		found = filepath.ToSlash(rel)
		return nil
	})
	return found, err
}

func isGenerated(rel string) bool {
	if strings.HasPrefix(rel, "queries/") {
		return true
	}
	base := path.Base(rel)
	for _, ext := range generated {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

func (w *Writer) prune(dir string) ([]string, error) {
	var removed []string
	for _, pattern := range w.opts.Prune {
		matches, err := afero.Glob(w.fs, filepath.Join(dir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("prune %s: %w", pattern, err)
		}
		for _, m := range matches {
			if isDir, _ := afero.IsDir(w.fs, m); isDir {
				continue
			}
			if err := w.fs.Remove(m); err != nil {
				return nil, fmt.Errorf("prune %s: %w", m, err)
			}
			rel, _ := filepath.Rel(dir, m)
			removed = append(removed, filepath.ToSlash(rel))
			w.log.Info("removed stale file", "path", rel)
		}
	}
	sort.Strings(removed)
	return removed, nil
}
