package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// envPrefix selects JSON_SCHEMA_TO_* variables.
const envPrefix = "json_schema_to"

// envOverrides holds the values picked up from the environment. Unset
// variables leave their pointer nil so lower layers keep their value. No
// envconfig tags: a tag would also match the bare, unprefixed name.
type envOverrides struct {
	Cwd         *string
	Src         *string
	Dest        *string
	Types       *string
	Pkg         *string
	Refs        []string
	Common      *string
	Ignore      []string
	ProtoSyntax *string `split_words:"true"`
	MaxRevisits *int    `split_words:"true"`
	Bundle      *bool
	ESM         *bool
	Docs        *bool
	InlineEnums *bool `split_words:"true"`
	PruneUnused *bool `split_words:"true"`
	Verify      *bool
	Verbose     *bool
}

// applyGenerateConfigFromEnv loads .env when present and applies
// JSON_SCHEMA_TO_* overrides. Variables already set in the process win over
// .env entries.
func applyGenerateConfigFromEnv(cfg *GenerateConfig) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return newUsageError(fmt.Sprintf("load .env: %v", err))
		}
	}

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return newUsageError(fmt.Sprintf("environment: %v", err))
	}

	setString(&cfg.Cwd, env.Cwd)
	setString(&cfg.Src, env.Src)
	setString(&cfg.Dest, env.Dest)
	setString(&cfg.Types, env.Types)
	setString(&cfg.Pkg, env.Pkg)
	setString(&cfg.Common, env.Common)
	setString(&cfg.ProtoSyntax, env.ProtoSyntax)
	if env.Refs != nil {
		cfg.Refs = sanitizeList(env.Refs)
	}
	if env.Ignore != nil {
		cfg.Ignore = sanitizeList(env.Ignore)
	}
	if env.MaxRevisits != nil {
		cfg.MaxRevisits = *env.MaxRevisits
	}
	for dst, src := range map[*bool]*bool{
		&cfg.Bundle:      env.Bundle,
		&cfg.ESM:         env.ESM,
		&cfg.Docs:        env.Docs,
		&cfg.InlineEnums: env.InlineEnums,
		&cfg.PruneUnused: env.PruneUnused,
		&cfg.Verify:      env.Verify,
		&cfg.Verbose:     env.Verbose,
	} {
		if src != nil {
			*dst = *src
		}
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// expandHome resolves a leading ~ to the user's home directory.
func expandHome(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strs := map[string]*string{
		"cwd":         &cfg.Cwd,
		"src":         &cfg.Src,
		"dest":        &cfg.Dest,
		"types":       &cfg.Types,
		"pkg":         &cfg.Pkg,
		"common":      &cfg.Common,
		"protosyntax": &cfg.ProtoSyntax,
	}
	lists := map[string]*[]string{
		"refs":   &cfg.Refs,
		"ignore": &cfg.Ignore,
	}
	bools := map[string]*bool{
		"json":        &cfg.JSON,
		"graphql":     &cfg.GraphQL,
		"protobuf":    &cfg.Protobuf,
		"typescript":  &cfg.TypeScript,
		"queries":     &cfg.Queries,
		"bundle":      &cfg.Bundle,
		"esm":         &cfg.ESM,
		"docs":        &cfg.Docs,
		"inlineenums": &cfg.InlineEnums,
		"pruneunused": &cfg.PruneUnused,
		"verify":      &cfg.Verify,
		"prune":       &cfg.Prune,
		"dryrun":      &cfg.DryRun,
		"force":       &cfg.Force,
		"watch":       &cfg.Watch,
		"verbose":     &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strs[normalized]; ok {
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = str
			continue
		}
		if dst, ok := lists[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeList(list)
			continue
		}
		if dst, ok := bools[normalized]; ok {
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		if normalized == "maxrevisits" {
			n, err := valueAsInt(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.MaxRevisits = n
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
