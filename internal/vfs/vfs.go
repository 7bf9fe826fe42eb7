// Package vfs implements the build-time virtual file system of spec.md
// §4.E: three logical locations (SourceDir, IntermediateDir, OutputDir),
// archive overlay mounting under SourceDir, and the resolve_status/
// open_read/enumerate operations the dependency graph core is built on.
// Grounded on the teacher's internal/core/file_service.go (FileSystemInterface,
// FileMetadata, RealFileSystem split out from the cache/content-store logic
// that lives there) but scoped down to what a build-time VFS needs: no
// content store, no FileID, since node compilers address files by
// (location, path), not by a loaded-content handle.
package vfs

import (
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/standardbeagle/lci/internal/bpath"
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/streams"
)

// Location is one of the three logical roots spec.md §4.E defines.
type Location int

const (
	SourceDir Location = iota
	IntermediateDir
	OutputDir
)

func (l Location) String() string {
	switch l {
	case SourceDir:
		return "SourceDir"
	case IntermediateDir:
		return "IntermediateDir"
	case OutputDir:
		return "OutputDir"
	default:
		return "UnknownLocation"
	}
}

// FileStatus is the attribute tuple resolve_status and enumerate return.
type FileStatus struct {
	Location    Location
	Path        string
	Size        uint64
	Mtime       uint64 // unix seconds
	IsDirectory bool
}

// DiskFS abstracts the real filesystem operations the disk-backed roots
// need, mirroring the teacher's FileSystemInterface so tests can substitute
// an in-memory fake without touching actual disk.
type DiskFS interface {
	Stat(path string) (fs.FileInfo, error)
	Open(path string) (fs.File, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string) error
}

// RealDiskFS implements DiskFS against the OS filesystem.
type RealDiskFS struct{}

func (RealDiskFS) Stat(p string) (fs.FileInfo, error)     { return os.Stat(p) }
func (RealDiskFS) Open(p string) (fs.File, error)         { return os.Open(p) }
func (RealDiskFS) ReadDir(p string) ([]fs.DirEntry, error) { return os.ReadDir(p) }
func (RealDiskFS) MkdirAll(p string) error                 { return os.MkdirAll(p, 0o755) }

// Create implements spec.md §7's "final outputs are written to temporary
// files and renamed on success": it opens a sibling temp file in p's
// directory and only renames it over p once the returned writer closes with
// no write or close error, so a fault mid-write (or the job-queue fault
// model of spec.md §5, where an in-flight node finishes its current syscall
// and then exits) never leaves a truncated file at p.
func (RealDiskFS) Create(p string) (io.WriteCloser, error) {
	dir := path.Dir(p)
	tmp, err := os.CreateTemp(dir, path.Base(p)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{f: tmp, tempPath: tmp.Name(), finalPath: p}, nil
}

// atomicFile is the io.WriteCloser RealDiskFS.Create hands back: writes go
// to a temp file, and Close renames it over finalPath only if every Write
// and the underlying Close succeeded. On any failure the temp file is
// discarded and finalPath is left untouched.
type atomicFile struct {
	f         *os.File
	tempPath  string
	finalPath string
	werr      error
}

func (a *atomicFile) Write(p []byte) (int, error) {
	n, err := a.f.Write(p)
	if err != nil && a.werr == nil {
		a.werr = err
	}
	return n, err
}

func (a *atomicFile) Close() error {
	cerr := a.f.Close()
	if a.werr != nil {
		os.Remove(a.tempPath)
		return a.werr
	}
	if cerr != nil {
		os.Remove(a.tempPath)
		return cerr
	}
	if err := os.Rename(a.tempPath, a.finalPath); err != nil {
		os.Remove(a.tempPath)
		return err
	}
	return nil
}

// Archive is the interface a mounted archive must satisfy; internal/afs
// implements it. Keeping it here (rather than vfs depending on afs) lets
// the VFS mount any archive-shaped overlay without an import cycle.
type Archive interface {
	// Name is the mount name this archive is addressed by: "A" in "A/rest".
	Name() string
	ResolveStatus(path string, allowDirs bool) (FileStatus, bool)
	OpenRead(path string) (streams.SeekableReadStream, error)
	Enumerate(dir string, wantFiles, wantDirs bool) []FileStatus
}

// VFS is the BuildFileSystem spec.md §4.E describes: SourceDir resolves
// through mounted archive overlays first, then the real source tree;
// IntermediateDir and OutputDir are plain disk roots.
type VFS struct {
	sourceRoot       string
	intermediateRoot string
	outputRoot       string
	disk             DiskFS

	archives map[string]Archive // keyed by lowercased archive name
}

// New constructs a VFS rooted at the three given directories, using the
// real OS filesystem for disk access.
func New(sourceRoot, intermediateRoot, outputRoot string) *VFS {
	return NewWithDiskFS(sourceRoot, intermediateRoot, outputRoot, RealDiskFS{})
}

// NewWithDiskFS is New with an injectable disk backend, for tests.
func NewWithDiskFS(sourceRoot, intermediateRoot, outputRoot string, disk DiskFS) *VFS {
	return &VFS{
		sourceRoot:       sourceRoot,
		intermediateRoot: intermediateRoot,
		outputRoot:       outputRoot,
		disk:             disk,
		archives:         make(map[string]Archive),
	}
}

// MountArchive installs a, addressable under SourceDir as "<a.Name()>/...".
func (v *VFS) MountArchive(a Archive) {
	v.archives[strings.ToLower(a.Name())] = a
}

// Archive returns the archive mounted under name, if any.
func (v *VFS) Archive(name string) (Archive, bool) {
	a, ok := v.archives[strings.ToLower(name)]
	return a, ok
}

// splitArchiveOverlay checks whether id's first path component names a
// mounted archive, returning the archive and the remainder path if so.
func (v *VFS) splitArchiveOverlay(id string) (Archive, string, bool) {
	first, rest, found := strings.Cut(id, "/")
	if !found {
		return nil, "", false
	}
	a, ok := v.archives[strings.ToLower(first)]
	if !ok {
		return nil, "", false
	}
	return a, rest, true
}

func (v *VFS) diskRoot(loc Location) (string, error) {
	switch loc {
	case SourceDir:
		return v.sourceRoot, nil
	case IntermediateDir:
		return v.intermediateRoot, nil
	case OutputDir:
		return v.outputRoot, nil
	default:
		return "", buildrr.New(buildrr.KindInvalidParam, "VFS", nil)
	}
}

// ResolveStatus implements resolve_status(loc, id, allowDirs).
func (v *VFS) ResolveStatus(loc Location, id string, allowDirs bool) (FileStatus, bool) {
	norm, err := bpath.NormalizeAndValidate(id, bpath.Options{})
	if err != nil {
		return FileStatus{}, false
	}

	if loc == SourceDir {
		if a, rest, ok := v.splitArchiveOverlay(norm); ok {
			return a.ResolveStatus(rest, allowDirs)
		}
	}

	root, err := v.diskRoot(loc)
	if err != nil {
		return FileStatus{}, false
	}
	full := path.Join(root, norm)
	info, err := v.disk.Stat(full)
	if err != nil {
		return FileStatus{}, false
	}
	if info.IsDir() && !allowDirs {
		return FileStatus{}, false
	}
	return FileStatus{
		Location:    loc,
		Path:        norm,
		Size:        uint64(info.Size()),
		Mtime:       uint64(info.ModTime().Unix()),
		IsDirectory: info.IsDir(),
	}, true
}

// OpenRead implements open_read(loc, id).
func (v *VFS) OpenRead(loc Location, id string) (streams.SeekableReadStream, bool) {
	norm, err := bpath.NormalizeAndValidate(id, bpath.Options{})
	if err != nil {
		return nil, false
	}

	if loc == SourceDir {
		if a, rest, ok := v.splitArchiveOverlay(norm); ok {
			s, err := a.OpenRead(rest)
			if err != nil {
				return nil, false
			}
			return s, true
		}
	}

	root, err := v.diskRoot(loc)
	if err != nil {
		return nil, false
	}
	full := path.Join(root, norm)
	f, err := v.disk.Open(full)
	if err != nil {
		return nil, false
	}
	seeker, ok := f.(io.ReadSeeker)
	if !ok {
		f.Close()
		return nil, false
	}
	return diskReadStream{ReadSeeker: seeker, closer: f}, true
}

// OpenWrite opens id under loc for writing, creating parent directories as
// needed. loc must be IntermediateDir or OutputDir; SourceDir is read-only
// (archive overlays and the real source tree are never build outputs). The
// write lands at id only once the returned writer's Close succeeds cleanly
// (see RealDiskFS.Create); a failed write never disturbs the prior file.
func (v *VFS) OpenWrite(loc Location, id string) (io.WriteCloser, error) {
	if loc == SourceDir {
		return nil, buildrr.New(buildrr.KindInvalidParam, "VFS.OpenWrite", nil)
	}
	norm, err := bpath.NormalizeAndValidate(id, bpath.Options{})
	if err != nil {
		return nil, buildrr.NewPathError(id, err.Error())
	}
	root, err := v.diskRoot(loc)
	if err != nil {
		return nil, err
	}
	full := path.Join(root, norm)
	if dir := path.Dir(full); dir != "." {
		if err := v.disk.MkdirAll(dir); err != nil {
			return nil, buildrr.NewIOError(buildrr.KindIOWrite, "VFS.OpenWrite", full, err)
		}
	}
	w, err := v.disk.Create(full)
	if err != nil {
		return nil, buildrr.NewIOError(buildrr.KindFileOpen, "VFS.OpenWrite", full, err)
	}
	return w, nil
}

// Enumerate implements enumerate(loc, path, wantFiles, wantDirs). When loc
// is SourceDir and path lies inside a mounted archive ("<name>/..."), only
// the archive's entries are returned; they are not merged with disk
// entries, and a bare archive name or the empty path is listed from disk
// alone.
func (v *VFS) Enumerate(loc Location, dir string, wantFiles, wantDirs bool) []FileStatus {
	norm, err := bpath.NormalizeAndValidate(dir, bpath.Options{})
	if err != nil && dir != "" {
		return nil
	}

	if loc == SourceDir {
		if a, rest, ok := v.splitArchiveOverlay(norm); ok {
			return a.Enumerate(rest, wantFiles, wantDirs)
		}
	}

	root, err := v.diskRoot(loc)
	if err != nil {
		return nil
	}
	full := root
	if norm != "" {
		full = path.Join(root, norm)
	}
	entries, err := v.disk.ReadDir(full)
	if err != nil {
		return nil
	}
	var out []FileStatus
	for _, e := range entries {
		if e.IsDir() && !wantDirs {
			continue
		}
		if !e.IsDir() && !wantFiles {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		childPath := e.Name()
		if norm != "" {
			childPath = norm + "/" + e.Name()
		}
		out = append(out, FileStatus{
			Location:    loc,
			Path:        childPath,
			Size:        uint64(info.Size()),
			Mtime:       uint64(info.ModTime().Unix()),
			IsDirectory: e.IsDir(),
		})
	}
	return out
}

// ScanAndMountArchives scans sourceRoot's top level for archives matching
// the "*.dat" pattern and mounts each via open, using the file stem
// (lowercased) as its archive name, per spec.md §4.E's start-up behavior.
// open is supplied by the caller (internal/afs.Open) to keep vfs free of an
// import on internal/afs.
func (v *VFS) ScanAndMountArchives(open func(path string) (Archive, error)) error {
	entries, err := v.disk.ReadDir(v.sourceRoot)
	if err != nil {
		return buildrr.NewIOError(buildrr.KindIORead, "ScanAndMountArchives", v.sourceRoot, err)
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matched, _ := doublestar.Match("*.dat", strings.ToLower(e.Name()))
		if !matched {
			continue
		}
		full := path.Join(v.sourceRoot, e.Name())
		a, err := open(full)
		if err != nil {
			errs = append(errs, buildrr.NewIOError(buildrr.KindFileOpen, "ScanAndMountArchives", full, err))
			continue
		}
		v.MountArchive(a)
	}
	return buildrr.NewMultiError(errs)
}

// diskReadStream adapts an *os.File (or fake) to streams.SeekableReadStream,
// closing the underlying file once the caller is done with it.
type diskReadStream struct {
	io.ReadSeeker
	closer io.Closer
}

func (d diskReadStream) Close() error { return d.closer.Close() }
