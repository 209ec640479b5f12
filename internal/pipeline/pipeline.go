// Package pipeline runs a whole generation: load, resolve, walk, merge,
// render, verify and write.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/output"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
	"github.com/json-schema-faker/json-schema-to/internal/resolve"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

const tracerName = "github.com/json-schema-faker/json-schema-to/internal/pipeline"

// Config is everything a run needs. Relative Src, Dest and Types are taken
// from Cwd.
type Config struct {
	Cwd    string
	Src    string
	Dest   string
	Types  string
	Pkg    string
	Refs   []string
	Common string
	Ignore []string

	JSON       bool
	GraphQL    bool
	Protobuf   bool
	TypeScript bool
	Queries    bool

	Bundle      bool
	ESM         bool
	Docs        bool
	ProtoSyntax string
	InlineEnums bool
	PruneUnused bool
	MaxRevisits int
	Verify      bool

	Prune  bool
	DryRun bool
	Force  bool
}

// DefaultConfig mirrors the command-line defaults.
func DefaultConfig() Config {
	return Config{Cwd: ".", Src: "models", Dest: "generated", Common: "common", ProtoSyntax: "proto3"}
}

// HasTargets reports whether at least one output kind is requested.
func (c Config) HasTargets() bool {
	return c.JSON || c.GraphQL || c.Protobuf || c.TypeScript
}

func (c Config) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Cwd, p)
}

// SrcDir is the absolute or cwd-relative schema directory.
func (c Config) SrcDir() string { return c.path(c.Src) }

// DestDir is the output directory.
func (c Config) DestDir() string { return c.path(c.Dest) }

// TypesDir is the reference types directory, empty when unset.
func (c Config) TypesDir() string { return c.path(c.Types) }

// PackageName defaults to the base name of Cwd.
func (c Config) PackageName() string {
	if c.Pkg != "" {
		return c.Pkg
	}
	abs, err := filepath.Abs(c.Cwd)
	if err != nil {
		return filepath.Base(c.Cwd)
	}
	return filepath.Base(abs)
}

// CommonName is the file name shared outputs are written under.
func (c Config) CommonName() string {
	if c.Common == "" {
		return "common"
	}
	return model.Safe(c.Common, "-")
}

// Sources holds the loaded documents.
type Sources struct {
	Docs []*schema.Document
	Refs []*schema.Document
}

// Build is the merged namespace of one run.
type Build struct {
	Services []*repository.Service
	Merged   *repository.Repository
	// Bundled holds one repository per service in bundle mode.
	Bundled []*repository.Repository
}

// Pipeline runs generations against a file system.
type Pipeline struct {
	fs     afero.Fs
	log    *slog.Logger
	tracer trace.Tracer

	// OnWrite is called for every file written.
	OnWrite func(rel string)
}

// New returns a pipeline reading and writing through fs.
func New(fs afero.Fs, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{fs: fs, log: logger.With("component", "pipeline"), tracer: otel.Tracer(tracerName)}
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context, span trace.Span) error) error {
	ctx, span := p.tracer.Start(ctx, name)
	defer span.End()
	if err := fn(ctx, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Load reads and validates the schema and reference documents.
func (p *Pipeline) Load(ctx context.Context, cfg Config) (*Sources, error) {
	src := &Sources{}
	err := p.stage(ctx, "load", func(ctx context.Context, span trace.Span) error {
		opts := []schema.Option{schema.WithFS(p.fs), schema.WithCwd(cfg.Cwd), schema.WithIgnore(cfg.Ignore), schema.WithLogger(p.log)}
		docs, err := schema.Load(ctx, cfg.SrcDir(), opts...)
		if err != nil {
			return err
		}
		src.Docs = docs
		if dir := cfg.TypesDir(); dir != "" {
			if src.Refs, err = schema.Load(ctx, dir, opts...); err != nil {
				return err
			}
		}
		for _, doc := range append(append([]*schema.Document(nil), src.Docs...), src.Refs...) {
			if err := schema.Validate(ctx, doc); err != nil {
				return err
			}
		}
		span.SetAttributes(attribute.Int("schemas", len(src.Docs)), attribute.Int("references", len(src.Refs)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("loaded schemas", "schemas", len(src.Docs), "references", len(src.Refs))
	return src, nil
}

// Build resolves and walks every service and merges the result.
func (p *Pipeline) Build(ctx context.Context, cfg Config, src *Sources) (*Build, error) {
	b := &Build{}
	var plain []*schema.Document
	for _, doc := range src.Docs {
		if doc.Service == nil {
			plain = append(plain, doc)
			continue
		}
		s, err := repository.NewService(doc)
		if err != nil {
			return nil, err
		}
		b.Services = append(b.Services, s)
	}
	b.Services = append(b.Services, repository.NewCommon(cfg.CommonName(), append(plain, src.Refs...)))

	all := append(append([]*schema.Document(nil), src.Docs...), src.Refs...)
	resolver := resolve.New(cfg.SrcDir(), all)

	err := p.stage(ctx, "resolve", func(ctx context.Context, span trace.Span) error {
		for _, s := range b.Services {
			if err := s.Load(ctx, resolver); err != nil {
				return err
			}
		}
		span.SetAttributes(attribute.Int("services", len(b.Services)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "merge", func(ctx context.Context, span trace.Span) error {
		info := repository.PackageInfo{Pkg: cfg.PackageName(), Refs: cfg.Refs}
		merged, err := repository.Merge(info, b.Services)
		if err != nil {
			return err
		}
		if err := merged.Validate(); err != nil {
			return err
		}
		if cfg.PruneUnused {
			merged.Prune()
		}
		b.Merged = merged
		if cfg.Bundle {
			if b.Bundled, err = repository.Bundle(info, b.Services); err != nil {
				return err
			}
		}
		span.SetAttributes(
			attribute.Int("models", len(merged.Models)),
			attribute.Int("enums", len(merged.Enums)),
			attribute.Int("calls", len(merged.Calls)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.Info("merged repository", "models", len(b.Merged.Models), "enums", len(b.Merged.Enums), "calls", len(b.Merged.Calls))
	return b, nil
}

// Run performs a full generation and writes the result.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*output.Result, error) {
	if !cfg.HasTargets() {
		return nil, fmt.Errorf("unknown output, please give --json, --graphql, --protobuf or --typescript")
	}
	src, err := p.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b, err := p.Build(ctx, cfg, src)
	if err != nil {
		return nil, err
	}
	files, err := p.Render(ctx, cfg, src, b)
	if err != nil {
		return nil, err
	}
	if cfg.Verify {
		if err := p.Check(ctx, files); err != nil {
			return nil, err
		}
	}

	var res *output.Result
	err = p.stage(ctx, "write", func(ctx context.Context, span trace.Span) error {
		w := output.New(p.fs, output.Options{
			Dir:     cfg.DestDir(),
			Force:   cfg.Force,
			DryRun:  cfg.DryRun,
			Prune:   prunePatterns(cfg),
			Logger:  p.log,
			OnWrite: p.OnWrite,
		})
		res, err = w.Write(ctx, files)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("files", len(res.Planned)), attribute.Bool("dry_run", cfg.DryRun))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func prunePatterns(cfg Config) []string {
	if !cfg.Prune {
		return nil
	}
	var patterns []string
	if cfg.TypeScript {
		patterns = append(patterns, "*.d.ts")
	}
	if cfg.Protobuf {
		patterns = append(patterns, "*.proto")
	}
	if cfg.GraphQL {
		patterns = append(patterns, "*.gql")
		if cfg.Queries {
			patterns = append(patterns, "queries/*")
		}
	}
	if cfg.JSON {
		patterns = append(patterns, "*.json", "*.js", "*.mjs")
	}
	return patterns
}
