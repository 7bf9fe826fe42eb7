package streams

import (
	"io"
	"sync"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// MutexProtectedStream shares one backing seekable stream across many
// independent cursor "views", each of which locks only for the duration of a
// single positioned read. Grounded on
// original_source/RKit_Utilities/MutexProtectedStream.h: the wrapper holds
// the mutex and the seekable base; per-caller views call ReadAt and never
// touch the base cursor directly except while holding the lock.
type MutexProtectedStream struct {
	mu   sync.Mutex
	base SeekableReadStream
	size int64
}

// NewMutexProtectedStream wraps base (already positioned anywhere; its
// position is not otherwise relied upon) reporting size as its total length.
func NewMutexProtectedStream(base SeekableReadStream, size int64) *MutexProtectedStream {
	return &MutexProtectedStream{base: base, size: size}
}

// ReadAt performs a lock -> seek -> read -> unlock cycle, as
// IMutexProtectedReadStream::ReadPartial does.
func (m *MutexProtectedStream) ReadAt(pos int64, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.base.Seek(pos, io.SeekStart); err != nil {
		return 0, buildrr.New(buildrr.KindIOSeek, "MutexProtectedStream.ReadAt", err)
	}
	n, err := m.base.Read(p)
	if err != nil && err != io.EOF {
		return n, buildrr.New(buildrr.KindIORead, "MutexProtectedStream.ReadAt", err)
	}
	return n, err
}

func (m *MutexProtectedStream) Size() int64 { return m.size }

// View returns a lightweight per-caller cursor over the shared stream. Each
// view keeps its own position; concurrent views may interleave reads safely.
type View struct {
	shared *MutexProtectedStream
	pos    int64
}

func (m *MutexProtectedStream) NewView() *View {
	return &View{shared: m}
}

func (v *View) Read(p []byte) (int, error) {
	n, err := v.shared.ReadAt(v.pos, p)
	v.pos += int64(n)
	return n, err
}

func (v *View) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = v.pos + offset
	case io.SeekEnd:
		target = v.shared.Size() + offset
	default:
		return 0, buildrr.New(buildrr.KindInvalidParam, "View.Seek", nil)
	}
	if target < 0 {
		return 0, buildrr.New(buildrr.KindIOSeek, "View.Seek", io.ErrUnexpectedEOF)
	}
	v.pos = target
	return v.pos, nil
}
