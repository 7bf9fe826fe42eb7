// Package afs implements the AFS archive container format of spec.md §3/§4.G:
// a header, a flat catalog of path/offset/size entries, and per-entry
// stored-or-deflate-compressed random-access streams layered over one
// mutex-protected backing stream. Implements vfs.Archive so a parsed archive
// can be mounted directly as a SourceDir overlay.
//
// Grounded on original_source/Anox_Utilities/AnoxAFSArchive.{h,cpp}
// (Archive::Open, FindFile, OpenFileByIndex, FixBrokenFilePath, CheckName/
// CheckSlice) and original_source/Tool_ExtractDAT/ExtractDAT.cpp for the
// file-enumeration/extraction shape.
package afs

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/standardbeagle/lci/internal/bpath"
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/standardbeagle/lci/internal/vfs"
)

const (
	// Magic and Version identify a well-formed AFS archive header. The
	// original numeric magic is defined in AFSFormat.h, which isn't part of
	// the retrieved source; this FOURCC is this port's own placeholder
	// (see DESIGN.md's Open Question log).
	Magic   uint32 = 'A' | 'F'<<8 | 'S'<<16 | ' '<<24
	Version uint32 = 1

	headerSize = 24 // magic, version, catalogLocation, catalogSize, 8 bytes reserved

	// fileNameBufferSize is the fixed nul-padded path buffer width in each
	// catalog entry. Not recovered from the retrieved source; chosen large
	// enough for any realistic asset path (see DESIGN.md).
	fileNameBufferSize = 128
	catalogEntrySize    = fileNameBufferSize + 4 + 4 + 4
)

type header struct {
	Magic           uint32
	Version         uint32
	CatalogLocation uint32
	CatalogSize     uint32
}

// fileEntry is one parsed, path-validated catalog record.
type fileEntry struct {
	path             string // normalized, validated, forward-slash separated
	location         uint32
	compressedSize   uint32
	uncompressedSize uint32
}

// Archive is a parsed, immutable AFS archive, safe for concurrent per-file
// opens once Open has returned.
type Archive struct {
	name   string
	shared *streams.MutexProtectedStream
	files  []fileEntry
	byPath map[string]int
}

var _ vfs.Archive = (*Archive)(nil)

// Open parses stream as an AFS archive, validating the header, catalog
// bounds, and every path per spec.md's path rules. name is the mount name
// (the lowercased file stem of the ".dat" file, per spec.md §4.E).
func Open(stream streams.SeekableReadStream, size int64, name string) (*Archive, error) {
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, buildrr.New(buildrr.KindIOSeek, "afs.Open", err)
	}

	hdrBuf := make([]byte, headerSize)
	if err := streams.ReadAll(stream, hdrBuf); err != nil {
		return nil, buildrr.New(buildrr.KindIORead, "afs.Open", err)
	}
	hdr := header{
		Magic:           binary.LittleEndian.Uint32(hdrBuf[0:4]),
		Version:         binary.LittleEndian.Uint32(hdrBuf[4:8]),
		CatalogLocation: binary.LittleEndian.Uint32(hdrBuf[8:12]),
		CatalogSize:     binary.LittleEndian.Uint32(hdrBuf[12:16]),
	}
	if hdr.Magic != Magic || hdr.Version != Version {
		return nil, buildrr.New(buildrr.KindMalformedFile, "afs.Open", nil)
	}
	if hdr.CatalogSize%catalogEntrySize != 0 {
		return nil, buildrr.New(buildrr.KindMalformedFile, "afs.Open", nil)
	}
	numFiles := int(hdr.CatalogSize / catalogEntrySize)

	if _, err := stream.Seek(int64(hdr.CatalogLocation), io.SeekStart); err != nil {
		return nil, buildrr.New(buildrr.KindIOSeek, "afs.Open", err)
	}
	catalogBuf := make([]byte, hdr.CatalogSize)
	if err := streams.ReadAll(stream, catalogBuf); err != nil {
		return nil, buildrr.New(buildrr.KindIORead, "afs.Open", err)
	}

	files := make([]fileEntry, 0, numFiles)
	byPath := make(map[string]int, numFiles)
	for i := 0; i < numFiles; i++ {
		rec := catalogBuf[i*catalogEntrySize : (i+1)*catalogEntrySize]
		rawPath := nulTerminated(rec[:fileNameBufferSize])
		location := binary.LittleEndian.Uint32(rec[fileNameBufferSize : fileNameBufferSize+4])
		compressedSize := binary.LittleEndian.Uint32(rec[fileNameBufferSize+4 : fileNameBufferSize+8])
		uncompressedSize := binary.LittleEndian.Uint32(rec[fileNameBufferSize+8 : fileNameBufferSize+12])

		fixed := bpath.FixBrokenPath(rawPath)
		norm, err := bpath.NormalizeAndValidate(fixed, bpath.Options{})
		if err != nil {
			return nil, buildrr.New(buildrr.KindMalformedFile, "afs.Open", err)
		}

		if int64(location) > size {
			return nil, buildrr.New(buildrr.KindMalformedFile, "afs.Open", nil)
		}
		if size-int64(location) < int64(onDiskSize(compressedSize, uncompressedSize)) {
			return nil, buildrr.New(buildrr.KindMalformedFile, "afs.Open", nil)
		}

		if _, dup := byPath[norm]; dup {
			return nil, buildrr.New(buildrr.KindMalformedFile, "afs.Open", nil)
		}
		byPath[norm] = len(files)
		files = append(files, fileEntry{
			path:             norm,
			location:         location,
			compressedSize:   compressedSize,
			uncompressedSize: uncompressedSize,
		})
	}

	return &Archive{
		name:   strings.ToLower(name),
		shared: streams.NewMutexProtectedStream(stream, size),
		files:  files,
		byPath: byPath,
	}, nil
}

// onDiskSize is the span an entry actually occupies in the archive: its
// compressed size when deflated, otherwise its stored (uncompressed) size.
// Used only for the archive-bounds safety check in Open.
func onDiskSize(compressedSize, uncompressedSize uint32) uint32 {
	if compressedSize > 0 {
		return compressedSize
	}
	return uncompressedSize
}

func nulTerminated(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// Name implements vfs.Archive.
func (a *Archive) Name() string { return a.name }

// ResolveStatus implements vfs.Archive. AFS has no real directories; any
// path that is a strict prefix of some file's path is a synthesized
// directory, surfaced only when allowDirs is set.
func (a *Archive) ResolveStatus(path string, allowDirs bool) (vfs.FileStatus, bool) {
	norm := bpath.Normalize(path)
	if idx, ok := a.byPath[norm]; ok {
		f := a.files[idx]
		return vfs.FileStatus{
			Location: vfs.SourceDir,
			Path:     f.path,
			Size:     uint64(f.uncompressedSize),
		}, true
	}
	if allowDirs && a.isSynthesizedDirectory(norm) {
		return vfs.FileStatus{Location: vfs.SourceDir, Path: norm, IsDirectory: true}, true
	}
	return vfs.FileStatus{}, false
}

func (a *Archive) isSynthesizedDirectory(dir string) bool {
	if dir == "" {
		return len(a.files) > 0
	}
	prefix := dir + "/"
	for _, f := range a.files {
		if strings.HasPrefix(f.path, prefix) {
			return true
		}
	}
	return false
}

// OpenRead implements vfs.Archive: opens a fresh cursor view over the shared
// backing stream and wraps it in a range-limited (stored) or range-limited
// deflate-decompress (compressed) stream, per spec.md §4.G.
func (a *Archive) OpenRead(path string) (streams.SeekableReadStream, error) {
	norm := bpath.Normalize(path)
	idx, ok := a.byPath[norm]
	if !ok {
		return nil, buildrr.New(buildrr.KindKeyNotFound, "Archive.OpenRead", nil)
	}
	f := a.files[idx]
	view := a.shared.NewView()

	if f.compressedSize == 0 {
		return streams.NewRangeLimitedReadStream(view, int64(f.location), int64(f.uncompressedSize))
	}

	compressed, err := streams.NewRangeLimitedReadStream(view, int64(f.location), int64(f.compressedSize))
	if err != nil {
		return nil, err
	}
	opener := func() (io.Reader, error) {
		if _, err := compressed.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return compressed, nil
	}
	inflate, err := streams.NewDeflateDecompressStream(opener)
	if err != nil {
		return nil, err
	}
	return &deflateSeekAdapter{inflate}, nil
}

// Enumerate implements vfs.Archive, returning every file whose path sits
// directly under dir, plus every distinct immediate subdirectory.
func (a *Archive) Enumerate(dir string, wantFiles, wantDirs bool) []vfs.FileStatus {
	norm := bpath.Normalize(dir)
	prefix := norm
	if prefix != "" {
		prefix += "/"
	}

	seenDirs := make(map[string]bool)
	var out []vfs.FileStatus
	for _, f := range a.files {
		if !strings.HasPrefix(f.path, prefix) {
			continue
		}
		rest := f.path[len(prefix):]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			if !wantDirs {
				continue
			}
			subdir := rest[:slash]
			if seenDirs[subdir] {
				continue
			}
			seenDirs[subdir] = true
			out = append(out, vfs.FileStatus{Location: vfs.SourceDir, Path: prefix + subdir, IsDirectory: true})
			continue
		}
		if !wantFiles {
			continue
		}
		out = append(out, vfs.FileStatus{
			Location: vfs.SourceDir,
			Path:     f.path,
			Size:     uint64(f.uncompressedSize),
		})
	}
	return out
}

// Files returns every catalog entry's path, in catalog order, for callers
// like the extract-afs CLI that need to walk the whole archive.
func (a *Archive) Files() []string {
	paths := make([]string, len(a.files))
	for i, f := range a.files {
		paths[i] = f.path
	}
	return paths
}

// deflateSeekAdapter adapts streams.DeflateDecompressStream's SeekStart-only
// rewind contract to the io.Seeker shape vfs.Archive.OpenRead must return.
type deflateSeekAdapter struct {
	*streams.DeflateDecompressStream
}

func (d *deflateSeekAdapter) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, buildrr.New(buildrr.KindInvalidParam, "deflateSeekAdapter.Seek", nil)
	}
	if err := d.SeekStart(offset); err != nil {
		return 0, err
	}
	return offset, nil
}
