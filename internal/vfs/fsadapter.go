package vfs

import (
	"io"
	"io/fs"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// FSAdapter adapts any fs.FS (including testing/fstest.MapFS) to DiskFS, so
// tests can exercise VFS without touching the real disk. It is read-only:
// Create/MkdirAll fail, since fs.FS has no write contract.
type FSAdapter struct {
	FS fs.FS
}

func (a FSAdapter) Stat(path string) (fs.FileInfo, error) { return fs.Stat(a.FS, path) }
func (a FSAdapter) Open(path string) (fs.File, error)     { return a.FS.Open(path) }
func (a FSAdapter) ReadDir(path string) ([]fs.DirEntry, error) {
	return fs.ReadDir(a.FS, path)
}

func (a FSAdapter) Create(path string) (io.WriteCloser, error) {
	return nil, buildrr.New(buildrr.KindNotImplemented, "FSAdapter.Create", nil)
}

func (a FSAdapter) MkdirAll(path string) error {
	return buildrr.New(buildrr.KindNotImplemented, "FSAdapter.MkdirAll", nil)
}
