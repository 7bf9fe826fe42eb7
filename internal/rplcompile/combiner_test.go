package rplcompile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/standardbeagle/lci/internal/rpl"
	"github.com/standardbeagle/lci/internal/vfs"
	"github.com/stretchr/testify/require"
)

func newTestVFS(t *testing.T) *vfs.VFS {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	inter := filepath.Join(root, "intermediate")
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.MkdirAll(inter, 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))
	return vfs.New(src, inter, out)
}

func TestCombineLibraryWritesOutputPackage(t *testing.T) {
	fs := newTestVFS(t)

	pipelines := []*rpl.GraphicsPipeline{
		{Name: "Opaque"},
		{Name: "Transparent"},
	}
	result, err := rpl.Export(fs, "scene", pipelines, nil)
	require.NoError(t, err)

	require.NoError(t, CombineLibrary(fs, result.PipelinePaths, result.GlobalsPath))

	r, ok := fs.OpenRead(vfs.OutputDir, LibraryOutputPath)
	require.True(t, ok)
	require.NotNil(t, r)
}

func TestCombineLibraryRejectsDuplicatePipelineName(t *testing.T) {
	fs := newTestVFS(t)

	resultA, err := rpl.Export(fs, "sceneA", []*rpl.GraphicsPipeline{{Name: "Opaque"}}, nil)
	require.NoError(t, err)
	resultB, err := rpl.Export(fs, "sceneB", []*rpl.GraphicsPipeline{{Name: "Opaque"}}, nil)
	require.NoError(t, err)

	paths := append(append([]string{}, resultA.PipelinePaths...), resultB.PipelinePaths...)
	err = CombineLibrary(fs, paths, resultA.GlobalsPath)
	require.Error(t, err)
}
