package streams

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// DeflateDecompressStream wraps a read stream with zlib-deflate decompression.
// It is not inherently seekable: SeekStart(0) restarts decompression from the
// beginning of the underlying stream, and any other forward seek scrap-reads
// to the target offset. Backward seeks past the current position require a
// restart. Grounded on
// original_source/RKit_Utilities/DeflateDecompressStream.{h,cpp}, using
// klauspost/compress/flate as the pack's real-world drop-in for zlib-deflate
// (see SPEC_FULL.md DOMAIN STACK).
type DeflateDecompressStream struct {
	opener func() (io.Reader, error) // returns a fresh reader over the compressed bytes, seeked to 0
	fr     io.ReadCloser
	pos    int64
}

// NewDeflateDecompressStream builds a stream that decompresses the deflate
// bytes yielded by opener(), which must return a fresh reader from the start
// of the compressed payload each time it's called (used to implement rewind).
func NewDeflateDecompressStream(opener func() (io.Reader, error)) (*DeflateDecompressStream, error) {
	s := &DeflateDecompressStream{opener: opener}
	if err := s.restart(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DeflateDecompressStream) restart() error {
	if s.fr != nil {
		s.fr.Close()
	}
	raw, err := s.opener()
	if err != nil {
		return buildrr.New(buildrr.KindIORead, "DeflateDecompressStream.restart", err)
	}
	s.fr = flate.NewReader(raw)
	s.pos = 0
	return nil
}

func (s *DeflateDecompressStream) Read(p []byte) (int, error) {
	n, err := s.fr.Read(p)
	s.pos += int64(n)
	if err != nil && err != io.EOF {
		return n, buildrr.New(buildrr.KindDecompression, "DeflateDecompressStream.Read", err)
	}
	return n, err
}

// SeekStart supports offset 0 (restart) directly; any other offset forward of
// the current position is satisfied by scrap-reading, and any offset behind
// the current position restarts first.
func (s *DeflateDecompressStream) SeekStart(pos int64) error {
	if pos < s.pos {
		if err := s.restart(); err != nil {
			return err
		}
	}
	return s.skipForward(pos - s.pos)
}

func (s *DeflateDecompressStream) skipForward(n int64) error {
	if n < 0 {
		return buildrr.New(buildrr.KindInvalidParam, "DeflateDecompressStream.skipForward", nil)
	}
	buf := make([]byte, 32*1024)
	for n > 0 {
		chunk := int64(len(buf))
		if n < chunk {
			chunk = n
		}
		read, err := s.fr.Read(buf[:chunk])
		n -= int64(read)
		s.pos += int64(read)
		if err != nil {
			if err == io.EOF && n == 0 {
				return nil
			}
			return buildrr.New(buildrr.KindDecompression, "DeflateDecompressStream.skipForward", err)
		}
	}
	return nil
}

func (s *DeflateDecompressStream) Close() error {
	if s.fr == nil {
		return nil
	}
	return s.fr.Close()
}

// NewBytesOpener adapts a static byte slice into the opener contract used by
// NewDeflateDecompressStream.
func NewBytesOpener(data []byte) func() (io.Reader, error) {
	return func() (io.Reader, error) {
		return bytes.NewReader(data), nil
	}
}
