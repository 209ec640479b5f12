package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/output"
	"github.com/json-schema-faker/json-schema-to/internal/pipeline"
	"github.com/json-schema-faker/json-schema-to/internal/resolve"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
	"github.com/json-schema-faker/json-schema-to/internal/verify"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, environment and CLI overrides.
type GenerateConfig struct {
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

	Prune      bool
	DryRun     bool
	Force      bool
	Watch      bool
	Verbose    bool
	ConfigPath string
}

func defaultGenerateConfig() GenerateConfig {
	d := pipeline.DefaultConfig()
	return GenerateConfig{
		Cwd:         d.Cwd,
		Src:         d.Src,
		Dest:        d.Dest,
		Common:      d.Common,
		ProtoSyntax: d.ProtoSyntax,
		MaxRevisits: 1,
	}
}

// Pipeline converts the command configuration into a pipeline run.
func (c *GenerateConfig) Pipeline() pipeline.Config {
	return pipeline.Config{
		Cwd:         c.Cwd,
		Src:         c.Src,
		Dest:        c.Dest,
		Types:       c.Types,
		Pkg:         c.Pkg,
		Refs:        c.Refs,
		Common:      c.Common,
		Ignore:      c.Ignore,
		JSON:        c.JSON,
		GraphQL:     c.GraphQL,
		Protobuf:    c.Protobuf,
		TypeScript:  c.TypeScript,
		Queries:     c.Queries,
		Bundle:      c.Bundle,
		ESM:         c.ESM,
		Docs:        c.Docs,
		ProtoSyntax: c.ProtoSyntax,
		InlineEnums: c.InlineEnums,
		PruneUnused: c.PruneUnused,
		MaxRevisits: c.MaxRevisits,
		Verify:      c.Verify,
		Prune:       c.Prune,
		DryRun:      c.DryRun,
		Force:       c.Force,
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate GraphQL, Protobuf, TypeScript and JSON from JSON-Schema models",
		Long: "Generate GraphQL SDL, Protobuf IDL, TypeScript declarations, GraphQL query documents " +
			"and JSON re-exports from a directory of JSON-Schema documents. " +
			"Options can be provided via flags, environment, config files, or defaults.",
		Example: strings.TrimSpace(`  json-schema-to generate --src models --dest generated --graphql --protobuf
  json-schema-to generate -s models -d out --typescript --bundle --prune
  json-schema-to --config json-schema-to.yaml generate --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	addSourceFlags(cmd.Flags())
	flags := cmd.Flags()
	flags.StringP("dest", "d", "", "Output directory (default \"generated\")")
	flags.BoolP("prune", "p", false, "Remove previously generated files of the requested kinds before writing")
	flags.BoolP("esm", "m", false, "Emit ES modules for the JSON and query index files")
	flags.BoolP("docs", "D", false, "Carry descriptions into the generated output")
	flags.BoolP("bundle", "b", false, "Write one file per service instead of one merged file")
	flags.BoolP("queries", "q", false, "Also write GraphQL query documents (requires --graphql)")
	flags.Bool("json", false, "Write JSON re-exports of every schema")
	flags.Bool("graphql", false, "Write GraphQL SDL")
	flags.Bool("protobuf", false, "Write Protobuf IDL")
	flags.Bool("typescript", false, "Write TypeScript declarations")
	flags.String("proto-syntax", "", "Protobuf syntax (proto2|proto3); defaults to proto3")
	flags.Bool("inline-enums", false, "Render TypeScript enums as string literal unions")
	flags.Bool("prune-unused", false, "Drop models and enums no call can reach")
	flags.Int("max-revisits", 0, "How often a model may reappear along one query branch (default 1)")
	flags.Bool("verify", false, "Parse the generated Protobuf and GraphQL before writing")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Write even when the output directory holds unrelated files")
	flags.Bool("watch", false, "Regenerate whenever a schema file changes")

	return cmd
}

// addSourceFlags registers the flags shared by generate and validate.
func addSourceFlags(flags *pflag.FlagSet) {
	flags.StringP("cwd", "w", "", "Working directory relative paths are taken from")
	flags.StringP("src", "s", "", "Directory holding the schema documents (default \"models\")")
	flags.StringP("types", "t", "", "Directory holding additional reference types")
	flags.StringP("pkg", "k", "", "Package name (defaults to the base name of --cwd)")
	flags.StringSliceP("refs", "r", nil, "External Protobuf files to import")
	flags.String("common", "", "Name for the merged output files (default \"common\")")
	flags.StringSliceP("ignore", "i", nil, "Skip schema files whose path contains these fragments")
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = expandHome(configPath)
		if err := applyGenerateConfigFromFile(&cfg, cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateConfigFromEnv(&cfg); err != nil {
		return nil, err
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"cwd":          &cfg.Cwd,
		"src":          &cfg.Src,
		"dest":         &cfg.Dest,
		"types":        &cfg.Types,
		"pkg":          &cfg.Pkg,
		"common":       &cfg.Common,
		"proto-syntax": &cfg.ProtoSyntax,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	slices := map[string]*[]string{
		"refs":   &cfg.Refs,
		"ignore": &cfg.Ignore,
	}
	for name, dst := range slices {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeList(value)
	}

	bools := map[string]*bool{
		"json":         &cfg.JSON,
		"graphql":      &cfg.GraphQL,
		"protobuf":     &cfg.Protobuf,
		"typescript":   &cfg.TypeScript,
		"queries":      &cfg.Queries,
		"bundle":       &cfg.Bundle,
		"esm":          &cfg.ESM,
		"docs":         &cfg.Docs,
		"inline-enums": &cfg.InlineEnums,
		"prune-unused": &cfg.PruneUnused,
		"verify":       &cfg.Verify,
		"prune":        &cfg.Prune,
		"dry-run":      &cfg.DryRun,
		"force":        &cfg.Force,
		"watch":        &cfg.Watch,
		"verbose":      &cfg.Verbose,
	}
	for name, dst := range bools {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Lookup("max-revisits") != nil && flags.Changed("max-revisits") {
		value, err := flags.GetInt("max-revisits")
		if err != nil {
			return err
		}
		cfg.MaxRevisits = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Cwd = expandHome(strings.TrimSpace(c.Cwd))
	if c.Cwd == "" {
		c.Cwd = "."
	}
	c.Src = expandHome(strings.TrimSpace(c.Src))
	c.Dest = expandHome(strings.TrimSpace(c.Dest))
	c.Types = expandHome(strings.TrimSpace(c.Types))
	c.Pkg = strings.TrimSpace(c.Pkg)
	c.Common = strings.TrimSpace(c.Common)
	c.ProtoSyntax = strings.ToLower(strings.TrimSpace(c.ProtoSyntax))
	c.Refs = sanitizeList(c.Refs)
	c.Ignore = sanitizeList(c.Ignore)
}

func (c *GenerateConfig) validate() error {
	if !c.JSON && !c.GraphQL && !c.Protobuf && !c.TypeScript {
		return newUsageError("generate: unknown output, please give --json, --graphql, --protobuf or --typescript")
	}
	if c.Src == "" {
		return newUsageError("generate: --src is required (set via flag, environment or config file)")
	}
	if c.Dest == "" {
		return newUsageError("generate: --dest is required (set via flag, environment or config file)")
	}

	switch c.ProtoSyntax {
	case "", "proto3", "proto2":
		if c.ProtoSyntax == "" {
			c.ProtoSyntax = "proto3"
		}
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --proto-syntax %q (allowed: proto2, proto3)", c.ProtoSyntax))
	}

	if c.Queries && !c.GraphQL {
		return newUsageError("generate: --queries requires --graphql")
	}
	if c.MaxRevisits < 0 {
		return newUsageError(fmt.Sprintf("generate: --max-revisits must not be negative, got %d", c.MaxRevisits))
	}
	if c.Watch && c.DryRun {
		return newUsageError("generate: --watch cannot be combined with --dry-run")
	}

	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(cfg.Verbose)
	pcfg := cfg.Pipeline()

	absDest := pcfg.DestDir()
	if ap, err := filepath.Abs(absDest); err == nil {
		absDest = ap
	}

	p := pipeline.New(afero.NewOsFs(), logger)
	p.OnWrite = func(rel string) {
		fmt.Fprintf(os.Stdout, "%s %s\n", color.GreenString("write"), filepath.Join(pcfg.Dest, rel))
	}

	generate := func() error {
		res, err := p.Run(ctx, pcfg)
		if err != nil {
			return wrapOutputError(describeError(err), absDest)
		}
		if cfg.DryRun {
			printPlan(absDest, len(res.Planned), plannedPaths(res))
		}
		for _, rel := range res.Removed {
			fmt.Fprintf(os.Stdout, "%s %s\n", color.YellowString("remove"), filepath.Join(pcfg.Dest, rel))
		}
		return nil
	}

	if err := generate(); err != nil {
		return err
	}
	if !cfg.Watch {
		return nil
	}

	dirs := []string{pcfg.SrcDir()}
	if types := pcfg.TypesDir(); types != "" {
		dirs = append(dirs, types)
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", color.CyanString("watching"), strings.Join(dirs, ", "))
	return watchSchemas(ctx, dirs, logger, func() error {
		if err := generate(); err != nil {
			fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		}
		return nil
	})
}

func plannedPaths(res *output.Result) []string {
	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	return paths
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

// describeError maps structured failures into friendly usage errors with
// location hints. Anything else is returned unchanged.
func describeError(err error) error {
	var (
		le  *schema.LoadError
		ie  *schema.InvalidSchemaIdentifierError
		se  *schema.InvalidServiceDefinitionError
		mr  *resolve.MissingReferenceError
		in  *model.UnexpectedInlineObjectError
		um  *model.UnknownModelReferenceError
		mc  *model.MalformedCallError
		ue  *model.UnknownEnumMemberError
		ce  *model.ConflictingEnumError
		ut  *emitter.UnresolvedTypeError
		et  *emitter.EmptyTypeError
		syn *verify.SyntaxError
	)
	switch {
	case errors.As(err, &le):
		msg := fmt.Sprintf("schema: %s", le.Message)
		if le.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, le.Location)
		}
		if le.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, le.JSONPointer)
		}
		return wrapUsageError(err, msg)
	case errors.As(err, &ie):
		return wrapUsageError(err, fmt.Sprintf("schema: %v\nHint: every document needs a top-level id.", ie))
	case errors.As(err, &se):
		return wrapUsageError(err, fmt.Sprintf("schema: %v", se))
	case errors.As(err, &mr):
		msg := fmt.Sprintf("resolve: %v", mr)
		if mr.Source != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, mr.Source)
		}
		return wrapUsageError(err, msg)
	case errors.As(err, &in):
		return wrapUsageError(err, fmt.Sprintf("model: %v", in))
	case errors.As(err, &um):
		return wrapUsageError(err, fmt.Sprintf("model: %v", um))
	case errors.As(err, &mc):
		return wrapUsageError(err, fmt.Sprintf("model: %v", mc))
	case errors.As(err, &ue):
		return wrapUsageError(err, fmt.Sprintf("model: %v", ue))
	case errors.As(err, &ce):
		return wrapUsageError(err, fmt.Sprintf("model: %v\nHint: give one of the enums a different id.", ce))
	case errors.As(err, &ut):
		return wrapUsageError(err, fmt.Sprintf("render: %v", ut))
	case errors.As(err, &et):
		return wrapUsageError(err, fmt.Sprintf("render: %v\nHint: add at least one property to %s.", et, et.Name))
	case errors.As(err, &syn):
		return wrapUsageError(err, fmt.Sprintf("%v\nHint: this is a bug in the generator, please report the schema that caused it.", syn))
	}
	return err
}

func wrapOutputError(err error, outDir string) error {
	if errors.Is(err, ErrUsage) {
		return err
	}
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --dest, use --prune, or use --force when appropriate.", outDir, msg))
	}
	if strings.Contains(lower, "unknown output") {
		return newUsageError(msg)
	}
	return err
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
