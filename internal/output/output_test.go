package output

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePlansInOrder(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var written []string
	w := New(fs, Options{Dir: "/out", OnWrite: func(rel string) { written = append(written, rel) }})

	res, err := w.Write(context.Background(), map[string][]byte{
		"common.proto":      []byte("syntax"),
		"common.gql":        []byte("type"),
		"queries/index.js":  []byte("export"),
		"queries/thing.gql": []byte("query"),
	})
	require.NoError(t, err)

	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	assert.Equal(t, []string{"common.gql", "common.proto", "queries/index.js", "queries/thing.gql"}, paths)
	assert.Equal(t, paths, written)
	assert.Equal(t, 6, res.Planned[1].Size)

	data, err := afero.ReadFile(fs, "/out/queries/thing.gql")
	require.NoError(t, err)
	assert.Equal(t, "query", string(data))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	res, err := New(fs, Options{Dir: "/out", DryRun: true}).Write(context.Background(), map[string][]byte{"a.gql": []byte("x")})
	require.NoError(t, err)
	require.Len(t, res.Planned, 1)

	ok, err := afero.DirExists(fs, "/out")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForeignFilesNeedForce(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/README.md", []byte("keep"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/old.gql", []byte("old"), 0o644))

	_, err := New(fs, Options{Dir: "/out"}).Write(context.Background(), map[string][]byte{"a.gql": []byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "README.md")

	_, err = New(fs, Options{Dir: "/out", Force: true}).Write(context.Background(), map[string][]byte{"a.gql": []byte("x")})
	require.NoError(t, err)
}

func TestPruneRemovesStaleOutput(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/old.gql", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/queries/gone.gql", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/out/keep.proto", []byte("keep"), 0o644))

	res, err := New(fs, Options{Dir: "/out", Prune: []string{"*.gql", "queries/*"}}).Write(context.Background(), map[string][]byte{"new.gql": []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{"old.gql", "queries/gone.gql"}, res.Removed)

	exists, _ := afero.Exists(fs, "/out/old.gql")
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, "/out/keep.proto")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/out/new.gql")
	assert.True(t, exists)
}

func TestMissingDir(t *testing.T) {
	t.Parallel()

	_, err := New(afero.NewMemMapFs(), Options{}).Write(context.Background(), nil)
	assert.Error(t, err)
}
