package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

const defaultInitPath = "json-schema-to.yaml"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample json-schema-to configuration file",
		Long:  "Scaffold a commented json-schema-to configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", defaultInitPath, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultInitPath
	}
	absPath, err := filepath.Abs(expandHome(out))
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every key the config file accepts. Keys are
// matched ignoring case, dashes and underscores.
const sampleConfigYAML = `# json-schema-to configuration (YAML)
# All fields are optional. Environment variables (JSON_SCHEMA_TO_*) override
# these values and command-line flags override both.

# Working directory; src, dest and types are taken relative to it.
# cwd: .

# Directory holding the schema documents (.json, .yaml, .yml).
# src: models

# Output directory.
# dest: generated

# Directory holding additional reference types.
# types: types

# Package name; defaults to the base name of cwd.
# pkg: demo

# External Protobuf files to import (comma-separated or list).
# refs: [google/protobuf/empty]

# Name of the merged output files.
# common: common

# Skip schema files whose path contains these fragments.
# ignore: [samples]

# Output targets; at least one is required.
# json: false
# graphql: true
# protobuf: true
# typescript: false

# Also write GraphQL query documents (requires graphql).
# queries: false

# How often a model may reappear along one query branch.
# maxRevisits: 1

# One output file per service instead of one merged file.
# bundle: false

# ES modules for the JSON and query index files.
# esm: false

# Carry descriptions into the generated output.
# docs: false

# Protobuf syntax (proto2|proto3).
# protoSyntax: proto3

# Render TypeScript enums as string literal unions.
# inlineEnums: false

# Drop models and enums no call can reach.
# pruneUnused: false

# Parse the generated Protobuf and GraphQL before writing.
# verify: false

# Remove previously generated files of the requested kinds before writing.
# prune: false

# Preview planned outputs without writing files.
# dryRun: false

# Write even when the output directory holds unrelated files.
# force: false

# Regenerate whenever a schema file changes.
# watch: false

# Enable verbose logging.
# verbose: false
`
