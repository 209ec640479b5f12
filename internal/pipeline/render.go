package pipeline

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/emitter/graphqlemitter"
	"github.com/json-schema-faker/json-schema-to/internal/emitter/jsonemitter"
	"github.com/json-schema-faker/json-schema-to/internal/emitter/protoemitter"
	"github.com/json-schema-faker/json-schema-to/internal/emitter/queryemitter"
	"github.com/json-schema-faker/json-schema-to/internal/emitter/tsemitter"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
	"github.com/json-schema-faker/json-schema-to/internal/verify"
)

type artifact struct {
	path string
	data []byte
}

type target struct {
	name   string
	render func() ([]artifact, error)
}

// Render produces every requested artifact, keyed by path relative to the
// destination. Targets render concurrently; the first failure wins.
func (p *Pipeline) Render(ctx context.Context, cfg Config, src *Sources, b *Build) (map[string][]byte, error) {
	common := cfg.CommonName()
	repos := []*repository.Repository{b.Merged}
	names := []string{common}
	if cfg.Bundle {
		repos, names = b.Bundled, nil
		for _, r := range b.Bundled {
			names = append(names, r.Name)
		}
	}

	perRepo := func(ext string, r emitter.Renderer) func() ([]artifact, error) {
		return func() ([]artifact, error) {
			out := make([]artifact, 0, len(repos))
			for i, repo := range repos {
				text, err := emitter.Generate(r, repo)
				if err != nil {
					return nil, err
				}
				out = append(out, artifact{path: names[i] + ext, data: []byte(text)})
			}
			return out, nil
		}
	}

	var targets []target
	if cfg.GraphQL {
		targets = append(targets, target{"graphql", perRepo(".gql", graphqlemitter.New(graphqlemitter.Options{Docs: cfg.Docs}))})
		if cfg.Queries {
			targets = append(targets, target{"queries", func() ([]artifact, error) {
				docs, err := queryemitter.Render(b.Merged, queryemitter.Options{MaxRevisits: cfg.MaxRevisits})
				if err != nil {
					return nil, err
				}
				out := make([]artifact, 0, len(docs)+1)
				for _, d := range docs {
					out = append(out, artifact{path: path.Join("queries", d.File()), data: []byte(d.Text)})
				}
				index := "index.js"
				if cfg.ESM {
					index = "index.mjs"
				}
				return append(out, artifact{path: path.Join("queries", index), data: []byte(queryemitter.Index(docs))}), nil
			}})
		}
	}
	if cfg.Protobuf {
		targets = append(targets, target{"protobuf", perRepo(".proto", protoemitter.New(protoemitter.Options{Syntax: cfg.ProtoSyntax, Docs: cfg.Docs}))})
	}
	if cfg.TypeScript {
		targets = append(targets, target{"typescript", perRepo(".d.ts", tsemitter.New(tsemitter.Options{InlineEnums: cfg.InlineEnums, Docs: cfg.Docs}))})
	}
	if cfg.JSON {
		targets = append(targets, target{"json", func() ([]artifact, error) {
			files, err := jsonemitter.Render(src.Docs, src.Refs, b.Merged.Enums, jsonemitter.Options{ESM: cfg.ESM, Common: common})
			if err != nil {
				return nil, err
			}
			out := make([]artifact, 0, len(files))
			for _, f := range files {
				out = append(out, artifact{path: f.Path, data: f.Content})
			}
			return out, nil
		}})
	}

	results := make([][]artifact, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			return p.stage(gctx, "render."+t.name, func(_ context.Context, span trace.Span) error {
				out, err := t.render()
				if err != nil {
					return fmt.Errorf("render %s: %w", t.name, err)
				}
				results[i] = out
				span.SetAttributes(attribute.Int("files", len(out)))
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := make(map[string][]byte)
	for i, out := range results {
		for _, a := range out {
			if _, dup := files[a.path]; dup {
				return nil, fmt.Errorf("render %s: %s is produced twice", targets[i].name, a.path)
			}
			files[a.path] = a.data
		}
	}
	p.log.Debug("rendered targets", "targets", len(targets), "files", len(files))
	return files, nil
}

// Check parses the rendered Protobuf and GraphQL files back. Bundled GraphQL
// files reference each other, so they are checked as one document.
func (p *Pipeline) Check(ctx context.Context, files map[string][]byte) error {
	return p.stage(ctx, "verify", func(context.Context, trace.Span) error {
		paths := make([]string, 0, len(files))
		for name := range files {
			paths = append(paths, name)
		}
		sort.Strings(paths)

		protos := make(map[string]string)
		var sdl []string
		var sdlFiles []string
		for _, name := range paths {
			switch {
			case strings.HasSuffix(name, ".proto"):
				protos[name] = string(files[name])
			case strings.HasSuffix(name, ".gql") && !strings.HasPrefix(name, "queries/"):
				sdl = append(sdl, string(files[name]))
				sdlFiles = append(sdlFiles, name)
			}
		}
		if err := verify.Proto(protos); err != nil {
			return err
		}
		if len(sdl) > 0 {
			if err := verify.GraphQL(strings.Join(sdlFiles, ", "), strings.Join(sdl, "\n")); err != nil {
				return err
			}
		}
		p.log.Debug("verified output", "proto", len(protos), "graphql", len(sdlFiles))
		return nil
	})
}
