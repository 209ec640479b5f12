package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/app/models/Test.yml": `id: Test
properties:
  id: {$ref: "dataTypes#/definitions/primaryKey"}
  value: {$ref: "#/definitions/Choice"}
  values:
    type: array
    items: {$ref: "#/definitions/ItemValue"}
definitions:
  Choice: {enum: [A, B]}
  ItemValue: {type: string}
service:
  calls:
    - set: something
      resp: Test
      input: Value
      required: true
    - get: anythingElse
      resp: Test
`,
		"/app/models/Value.yml":     "id: Value\nproperties:\n  value: {type: string}\n  example: {type: number}\n",
		"/app/models/dataTypes.yml": "id: dataTypes\ndefinitions:\n  primaryKey: {type: integer, primaryKey: true}\n",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func config() Config {
	cfg := DefaultConfig()
	cfg.Cwd = "/app"
	cfg.Pkg = "demo"
	cfg.Dest = "out"
	return cfg
}

func read(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestRunRequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := New(fixture(t), nil).Run(context.Background(), config())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")
}

func TestRunWritesEveryTarget(t *testing.T) {
	t.Parallel()

	fs := fixture(t)
	cfg := config()
	cfg.JSON, cfg.GraphQL, cfg.Protobuf, cfg.TypeScript, cfg.Queries = true, true, true, true, true
	cfg.Verify = true

	var written []string
	p := New(fs, nil)
	p.OnWrite = func(rel string) { written = append(written, rel) }

	res, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "/app/out", res.Dir)
	assert.Len(t, written, len(res.Planned))

	sdl := read(t, fs, "/app/out/common.gql")
	assert.Contains(t, sdl, "extend type Mutation {\n  something(input: Value!): Test\n}")
	assert.Contains(t, sdl, "extend type Query {\n  anythingElse: Test\n}")
	assert.Contains(t, sdl, "enum Choice {\n  A\n  B\n}")

	proto := read(t, fs, "/app/out/common.proto")
	assert.Contains(t, proto, "package demo;")
	assert.Contains(t, proto, "  rpc something(Value) returns(Test);\n")
	assert.Contains(t, proto, "  rpc anythingElse(Empty) returns(Test);\n")
	assert.Contains(t, proto, "message Empty {}")
	assert.NotContains(t, proto, "message ItemValue")

	ts := read(t, fs, "/app/out/common.d.ts")
	assert.Contains(t, ts, "export type ItemValue = string;")
	assert.Contains(t, ts, "export enum Choice {\n  A = 'A',\n  B = 'B',\n}")

	query := read(t, fs, "/app/out/queries/something.gql")
	assert.True(t, strings.HasPrefix(query, "mutation"))
	assert.Contains(t, read(t, fs, "/app/out/queries/index.js"), "export { default as SOMETHING } from './something.gql';")

	assert.Contains(t, read(t, fs, "/app/out/Test.json"), `"id": "Test"`)
	assert.NotContains(t, read(t, fs, "/app/out/Test.json"), "service")
	assert.Contains(t, read(t, fs, "/app/out/common.js"), "module.exports = __factory;")

	for _, out := range []string{sdl, proto, ts} {
		for _, bad := range []string{"undefined", "NaN"} {
			assert.NotContains(t, out, bad)
		}
	}
}

func TestRunBundlesPerService(t *testing.T) {
	t.Parallel()

	fs := fixture(t)
	require.NoError(t, afero.WriteFile(fs, "/app/models/Shop.yml", []byte(`id: Shop
properties:
  item: {$ref: Value}
service:
  calls:
    - get: shop
      resp: Shop
`), 0o644))

	cfg := config()
	cfg.GraphQL, cfg.Protobuf, cfg.Bundle, cfg.Verify = true, true, true, true

	res, err := New(fs, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	var paths []string
	for _, f := range res.Planned {
		paths = append(paths, f.RelPath)
	}
	assert.Contains(t, paths, "Test.gql")
	assert.Contains(t, paths, "Shop.proto")
	assert.Contains(t, paths, "common.proto")
	assert.Contains(t, read(t, fs, "/app/out/Shop.gql"), "extend type Query {\n  shop: Shop\n}")
}

func TestRunDryRunLeavesDestinationAlone(t *testing.T) {
	t.Parallel()

	fs := fixture(t)
	cfg := config()
	cfg.GraphQL, cfg.DryRun = true, true

	res, err := New(fs, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Planned, 1)
	assert.Equal(t, "common.gql", res.Planned[0].RelPath)

	exists, err := afero.DirExists(fs, "/app/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunPrunesStaleOutput(t *testing.T) {
	t.Parallel()

	fs := fixture(t)
	require.NoError(t, afero.WriteFile(fs, "/app/out/Gone.proto", []byte("old"), 0o644))
	cfg := config()
	cfg.Protobuf, cfg.Prune = true, true

	res, err := New(fs, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gone.proto"}, res.Removed)
}

func TestCheckRejectsBrokenOutput(t *testing.T) {
	t.Parallel()

	err := New(afero.NewMemMapFs(), nil).Check(context.Background(), map[string][]byte{
		"common.gql": []byte("type Test {\n  value: Missing\n}\n"),
	})
	assert.ErrorContains(t, err, "Missing")
}

func TestPrunePatternsFollowTargets(t *testing.T) {
	t.Parallel()

	cfg := config()
	assert.Nil(t, prunePatterns(cfg))

	cfg.Prune, cfg.GraphQL, cfg.Queries, cfg.TypeScript = true, true, true, true
	assert.Equal(t, []string{"*.d.ts", "*.gql", "queries/*"}, prunePatterns(cfg))
}

func TestConfigPaths(t *testing.T) {
	t.Parallel()

	cfg := Config{Cwd: "/work", Src: "models", Dest: "/abs/out", Common: "My Common"}
	assert.Equal(t, "/work/models", cfg.SrcDir())
	assert.Equal(t, "/abs/out", cfg.DestDir())
	assert.Equal(t, "", cfg.TypesDir())
	assert.Equal(t, "work", cfg.PackageName())
	assert.False(t, cfg.HasTargets())
}

func TestRunBundleInlinesImportedEnums(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/models/A.yml", []byte("id: A\nproperties:\n  s: {enum: [ON, OFF]}\nservice:\n  calls:\n    - get: a\n      resp: A\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/models/B.yml", []byte("id: B\nproperties:\n  s: {enum: [OFF, ON]}\nservice:\n  calls:\n    - get: b\n      resp: B\n"), 0o644))

	cfg := config()
	cfg.TypeScript, cfg.Bundle, cfg.InlineEnums = true, true, true
	_, err := New(fs, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	b := read(t, fs, "/app/out/B.d.ts")
	assert.Contains(t, b, "  s?: 'ON' | 'OFF';\n")
	assert.NotContains(t, b, "A_s_1")
	assert.NotContains(t, read(t, fs, "/app/out/A.d.ts"), "A_s_1")
}

func TestRunRejectsConflictingEnumIDs(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/models/A.yml", []byte("id: A\nproperties:\n  s: {id: Status, enum: [ON, OFF]}\nservice:\n  calls:\n    - get: a\n      resp: A\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/models/B.yml", []byte("id: B\nproperties:\n  s: {id: Status, enum: [RED, GREEN]}\nservice:\n  calls:\n    - get: b\n      resp: B\n"), 0o644))

	cfg := config()
	cfg.GraphQL = true
	_, err := New(fs, nil).Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enum 'Status'")
	exists, _ := afero.Exists(fs, "/app/out/common.gql")
	assert.False(t, exists)
}
