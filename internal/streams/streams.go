// Package streams implements the uniform read/write/seek stream contracts
// (spec.md §4.A): partial-transfer semantics that never spuriously fail on
// short reads/writes, with explicit ReadAll/WriteAll "must-fulfill" helpers,
// plus the range-limited and mutex-protected adapters the rest of the build
// system (archive mounter, VFS) layers on top of.
//
// Grounded on original_source/RKit_Utilities/{RangeLimitedReadStream,
// MutexProtectedStream}.* translated to Go io.Reader/io.Writer/io.Seeker
// idioms, and on the teacher's file_content_store.go for byte-buffer
// handling style.
package streams

import (
	"io"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// ReadStream is the partial-read contract: Read may return fewer bytes than
// requested without error, matching io.Reader.
type ReadStream interface {
	io.Reader
}

// WriteStream is the partial-write contract.
type WriteStream interface {
	io.Writer
}

// SeekableReadStream composes read + seek, as used for package and archive
// bodies.
type SeekableReadStream interface {
	io.Reader
	io.Seeker
}

// SeekableWriteStream composes write + seek, used while assembling packages
// (the header identifier is back-patched at offset 0 after the body is
// written).
type SeekableWriteStream interface {
	io.Writer
	io.Seeker
}

// SeekableReadWriteStream is the full capability set used for intermediate
// scratch files.
type SeekableReadWriteStream interface {
	io.Reader
	io.Writer
	io.Seeker
}

// ReadAll is the "must-fulfill" variant of Read: it loops until buf is full
// or returns a KindEndOfStream error, never returning a short read silently.
func ReadAll(r ReadStream, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF && total == len(buf) {
				return nil
			}
			if err == io.EOF {
				return buildrr.New(buildrr.KindEndOfStream, "ReadAll", io.ErrUnexpectedEOF)
			}
			return buildrr.New(buildrr.KindIORead, "ReadAll", err)
		}
		if n == 0 {
			return buildrr.New(buildrr.KindEndOfStream, "ReadAll", io.ErrUnexpectedEOF)
		}
	}
	return nil
}

// WriteAll is the must-fulfill variant of Write.
func WriteAll(w WriteStream, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return buildrr.New(buildrr.KindIOWrite, "WriteAll", err)
		}
		if n == 0 {
			return buildrr.New(buildrr.KindIOWrite, "WriteAll", io.ErrShortWrite)
		}
	}
	return nil
}
