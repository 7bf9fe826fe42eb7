package vfs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/standardbeagle/lci/internal/streams"
	"github.com/stretchr/testify/require"
)

func testMapFS() fstest.MapFS {
	return fstest.MapFS{
		"src/shader.rpl":       {Data: []byte("struct Foo {}")},
		"src/sub/nested.rpl":   {Data: []byte("include \"shader.rpl\"")},
		"intermediate/out.bin": {Data: []byte{1, 2, 3}},
	}
}

func newTestVFS(mapfs fstest.MapFS) *VFS {
	return NewWithDiskFS("src", "intermediate", "output", FSAdapter{FS: mapfs})
}

func TestResolveStatusFindsSourceFile(t *testing.T) {
	v := newTestVFS(testMapFS())
	st, ok := v.ResolveStatus(SourceDir, "shader.rpl", false)
	require.True(t, ok)
	require.Equal(t, "shader.rpl", st.Path)
	require.False(t, st.IsDirectory)
	require.Equal(t, uint64(len("struct Foo {}")), st.Size)
}

func TestResolveStatusRejectsDirectoryUnlessAllowed(t *testing.T) {
	v := newTestVFS(testMapFS())
	_, ok := v.ResolveStatus(SourceDir, "sub", false)
	require.False(t, ok)

	st, ok := v.ResolveStatus(SourceDir, "sub", true)
	require.True(t, ok)
	require.True(t, st.IsDirectory)
}

func TestResolveStatusRejectsInvalidPath(t *testing.T) {
	v := newTestVFS(testMapFS())
	_, ok := v.ResolveStatus(SourceDir, "../escape.rpl", false)
	require.False(t, ok)
}

func TestOpenReadReturnsFileContent(t *testing.T) {
	v := newTestVFS(testMapFS())
	s, ok := v.OpenRead(IntermediateDir, "out.bin")
	require.True(t, ok)
	defer func() {
		if c, ok := s.(io.Closer); ok {
			c.Close()
		}
	}()
	var buf bytes.Buffer
	_, err := io.Copy(&buf, s)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf.Bytes())
}

func TestEnumerateListsDirectoryEntries(t *testing.T) {
	v := newTestVFS(testMapFS())
	entries := v.Enumerate(SourceDir, "", true, true)
	var names []string
	for _, e := range entries {
		names = append(names, e.Path)
	}
	require.Contains(t, names, "shader.rpl")
	require.Contains(t, names, "sub")
}

// fakeArchive is a minimal Archive used to exercise the overlay-mount path
// without depending on internal/afs.
type fakeArchive struct {
	name  string
	files map[string][]byte
}

func (a *fakeArchive) Name() string { return a.name }

func (a *fakeArchive) ResolveStatus(path string, allowDirs bool) (FileStatus, bool) {
	data, ok := a.files[path]
	if !ok {
		return FileStatus{}, false
	}
	return FileStatus{Path: path, Size: uint64(len(data))}, true
}

func (a *fakeArchive) OpenRead(path string) (streams.SeekableReadStream, error) {
	data, ok := a.files[path]
	if !ok {
		return nil, io.ErrNotExist
	}
	return readSeekerStream{bytes.NewReader(data)}, nil
}

func (a *fakeArchive) Enumerate(dir string, wantFiles, wantDirs bool) []FileStatus {
	var out []FileStatus
	for p, data := range a.files {
		out = append(out, FileStatus{Path: p, Size: uint64(len(data))})
	}
	return out
}

type readSeekerStream struct{ *bytes.Reader }

func TestMountedArchiveServesOverlayPathsUnderSourceDir(t *testing.T) {
	v := newTestVFS(testMapFS())
	v.MountArchive(&fakeArchive{name: "assets", files: map[string][]byte{
		"textures/wall.png": []byte("pngdata"),
	}})

	st, ok := v.ResolveStatus(SourceDir, "assets/textures/wall.png", false)
	require.True(t, ok)
	require.Equal(t, uint64(len("pngdata")), st.Size)

	s, ok := v.OpenRead(SourceDir, "assets/textures/wall.png")
	require.True(t, ok)
	var buf bytes.Buffer
	_, err := io.Copy(&buf, s)
	require.NoError(t, err)
	require.Equal(t, "pngdata", buf.String())

	// An unmounted-looking prefix falls through to disk resolution instead.
	_, ok = v.ResolveStatus(SourceDir, "shader.rpl", false)
	require.True(t, ok)
}

func TestOpenWriteLeavesNoTempFileAndWritesFinalContent(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "output")
	require.NoError(t, os.MkdirAll(out, 0o755))
	v := New(filepath.Join(root, "src"), filepath.Join(root, "intermediate"), out)

	w, err := v.OpenWrite(OutputDir, "pipelines_vk.rkp")
	require.NoError(t, err)
	_, err = w.Write([]byte("package-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := os.ReadFile(filepath.Join(out, "pipelines_vk.rkp"))
	require.NoError(t, err)
	require.Equal(t, "package-bytes", string(got))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "pipelines_vk.rkp", entries[0].Name())
}

func TestOpenWriteLeavesPriorFileUntouchedOnWriteFailure(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "output")
	require.NoError(t, os.MkdirAll(out, 0o755))
	finalPath := filepath.Join(out, "pipelines_vk.rkp")
	require.NoError(t, os.WriteFile(finalPath, []byte("previous-good-build"), 0o644))

	v := New(filepath.Join(root, "src"), filepath.Join(root, "intermediate"), out)
	w, err := v.OpenWrite(OutputDir, "pipelines_vk.rkp")
	require.NoError(t, err)
	af := w.(*atomicFile)

	// Force the underlying Write to fail without ever closing af through
	// the normal path, mirroring a node faulting out mid-write.
	require.NoError(t, af.f.Close())
	_, writeErr := af.Write([]byte("partial"))
	require.Error(t, writeErr)

	require.Error(t, af.Close())

	got, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	require.Equal(t, "previous-good-build", string(got))

	_, err = os.Stat(af.tempPath)
	require.True(t, os.IsNotExist(err))
}

func TestScanAndMountArchivesMatchesDatSuffix(t *testing.T) {
	mapfs := testMapFS()
	mapfs["src/Assets.dat"] = &fstest.MapFile{Data: []byte("archive-bytes")}
	v := newTestVFS(mapfs)

	var openedPaths []string
	err := v.ScanAndMountArchives(func(p string) (Archive, error) {
		openedPaths = append(openedPaths, p)
		return &fakeArchive{name: "assets", files: map[string][]byte{}}, nil
	})
	require.NoError(t, err)
	require.Len(t, openedPaths, 1)

	_, mounted := v.Archive("assets")
	require.True(t, mounted)
}
