package depgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/standardbeagle/lci/internal/vfs"
	"github.com/stretchr/testify/require"
)

func TestSaveCacheRoundTripsThroughLoadCache(t *testing.T) {
	root := t.TempDir()
	fs := vfs.New(filepath.Join(root, "src"), filepath.Join(root, "intermediate"), filepath.Join(root, "output"))
	cachePath := filepath.Join(root, "cache.bin")

	g := New(fs)
	g.Register("ns", "type", &countingCompiler{})
	key := NodeKey{Namespace: "ns", TypeID: "type", Location: vfs.SourceDir, Identifier: "a.rpl"}
	require.NoError(t, g.AddRoot(key))
	require.NoError(t, g.Build([]NodeKey{key}))

	require.NoError(t, g.SaveCache(cachePath))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "cache.bin")
	for _, name := range names {
		require.NotContains(t, name, ".tmp-")
	}

	g2 := New(fs)
	require.NoError(t, g2.LoadCache(cachePath))
	_, ok := g2.Node(key)
	require.True(t, ok)
}

// TestSaveCacheLeavesPriorCacheOnTempFileFailure confirms a failure before
// the rename step (here, a destination directory that doesn't exist) never
// touches whatever cache file a prior build left in place.
func TestSaveCacheLeavesPriorCacheOnTempFileFailure(t *testing.T) {
	root := t.TempDir()
	cachePath := filepath.Join(root, "cache.bin")
	require.NoError(t, os.WriteFile(cachePath, []byte("previous-cache"), 0o644))

	fs := vfs.New(filepath.Join(root, "src"), filepath.Join(root, "intermediate"), filepath.Join(root, "output"))
	g := New(fs)

	err := g.SaveCache(filepath.Join(root, "missing-dir", "cache.bin"))
	require.Error(t, err)

	got, readErr := os.ReadFile(cachePath)
	require.NoError(t, readErr)
	require.Equal(t, "previous-cache", string(got))
}
