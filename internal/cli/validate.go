package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/json-schema-faker/json-schema-to/internal/pipeline"
)

var validateRunner = runValidate

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load, check and resolve the schema documents without writing anything",
		Example: strings.TrimSpace(`  json-schema-to validate --src models
  json-schema-to validate -s models -t types`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveValidateConfig(cmd)
			if err != nil {
				return err
			}
			return validateRunner(cmd.Context(), cfg)
		},
	}
	addSourceFlags(cmd.Flags())
	return cmd
}

// resolveValidateConfig layers the same sources as generate but does not
// require an output target.
func resolveValidateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if configPath = strings.TrimSpace(configPath); configPath != "" {
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
	if cfg.Src == "" {
		return nil, newUsageError("validate: --src is required (set via flag, environment or config file)")
	}
	return &cfg, nil
}

func runValidate(ctx context.Context, cfg *GenerateConfig) error {
	p := pipeline.New(afero.NewOsFs(), newLogger(cfg.Verbose))
	pcfg := cfg.Pipeline()

	src, err := p.Load(ctx, pcfg)
	if err != nil {
		return describeError(err)
	}
	b, err := p.Build(ctx, pcfg, src)
	if err != nil {
		return describeError(err)
	}

	fmt.Fprintf(os.Stdout, "%s %d schemas, %d models, %d enums, %d calls\n",
		color.GreenString("ok"), len(src.Docs), len(b.Merged.Models), len(b.Merged.Enums), len(b.Merged.Calls))
	return nil
}
