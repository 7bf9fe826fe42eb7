package streams

import (
	"io"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// RangeLimitedReadStream restricts the visible window of an underlying
// seekable stream to [start, start+size), presenting it as an independent
// stream starting at offset 0. Grounded on
// original_source/RKit_Utilities/RangeLimitedReadStream.h.
type RangeLimitedReadStream struct {
	base  SeekableReadStream
	start int64
	size  int64
	pos   int64
}

// NewRangeLimitedReadStream wraps base, exposing only the byte range
// [start, start+size). The caller must not otherwise touch base's cursor.
func NewRangeLimitedReadStream(base SeekableReadStream, start, size int64) (*RangeLimitedReadStream, error) {
	if _, err := base.Seek(start, io.SeekStart); err != nil {
		return nil, buildrr.New(buildrr.KindIOSeek, "NewRangeLimitedReadStream", err)
	}
	return &RangeLimitedReadStream{base: base, start: start, size: size}, nil
}

func (r *RangeLimitedReadStream) Read(p []byte) (int, error) {
	remaining := r.size - r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := r.base.Read(p)
	r.pos += int64(n)
	return n, err
}

func (r *RangeLimitedReadStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = r.size + offset
	default:
		return 0, buildrr.New(buildrr.KindInvalidParam, "RangeLimitedReadStream.Seek", nil)
	}
	if target < 0 || target > r.size {
		return 0, buildrr.New(buildrr.KindIOSeek, "RangeLimitedReadStream.Seek", io.ErrUnexpectedEOF)
	}
	if _, err := r.base.Seek(r.start+target, io.SeekStart); err != nil {
		return 0, buildrr.New(buildrr.KindIOSeek, "RangeLimitedReadStream.Seek", err)
	}
	r.pos = target
	return r.pos, nil
}

func (r *RangeLimitedReadStream) Tell() int64 { return r.pos }
func (r *RangeLimitedReadStream) Size() int64 { return r.size }
