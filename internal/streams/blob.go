package streams

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// Blob is an opaque byte vector supporting value-equality, content-addressed
// hashing, and append — spec.md's BinaryBlob. xxhash gives dedup tables
// (internal/pkgbuild, internal/afs) an O(1) bucket key instead of an O(n)
// byte compare on every insert.
type Blob struct {
	bytes []byte
}

// NewBlob wraps an existing byte slice. The slice becomes owned by the Blob;
// callers must not mutate it afterward.
func NewBlob(b []byte) *Blob {
	return &Blob{bytes: b}
}

// Append adds bytes to the end of the blob.
func (b *Blob) Append(p []byte) {
	b.bytes = append(b.bytes, p...)
}

// Bytes returns the blob's contents. The caller must not mutate the result.
func (b *Blob) Bytes() []byte { return b.bytes }

// Len returns the number of bytes in the blob.
func (b *Blob) Len() int { return len(b.bytes) }

// Equal reports byte-wise equality with other.
func (b *Blob) Equal(other *Blob) bool {
	if b == other {
		return true
	}
	if b == nil || other == nil {
		return false
	}
	return bytes.Equal(b.bytes, other.bytes)
}

// Hash returns a content hash suitable for use as a dedup map key. Two blobs
// with equal bytes always hash equal; hash collisions are resolved by a
// follow-up Equal check at the call site.
func (b *Blob) Hash() uint64 {
	return xxhash.Sum64(b.bytes)
}

// Ref is a move-only owning handle to a Blob, mirroring BinaryBlobRef. Go has
// no move semantics, so Ref enforces single-ownership by convention: callers
// must not retain a Blob after handing it to Ref via Take, and Ref.Take
// leaves the Ref empty.
type Ref struct {
	blob *Blob
}

func NewRef(b *Blob) Ref { return Ref{blob: b} }

// Take returns the owned blob and clears the ref.
func (r *Ref) Take() *Blob {
	b := r.blob
	r.blob = nil
	return b
}

func (r *Ref) Peek() *Blob { return r.blob }

func (r *Ref) IsEmpty() bool { return r.blob == nil }
