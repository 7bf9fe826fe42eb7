// Package pkgbuild implements the package builder and writer of spec.md
// §4.D: it drives the rtti layer to serialize object graphs into the wire
// container format described in spec.md §3, including the compact-index
// integer encoding, the indexable-object blob collections, and the
// object-identity cache scoped to one source.
//
// Grounded on original_source/RKit_Build/PackageBuilder.cpp
// (IndexableObjectBlobCollection, PackageBuilder, PackageObjectWriter).
package pkgbuild

import (
	"encoding/binary"
	"io"

	"github.com/standardbeagle/lci/internal/buildrr"
)

// Compact-index width tags (low two bits of the first byte), per spec.md §3.
const (
	tagU8  = 0
	tagU16 = 1
	tagU32 = 2
	tagU64 = 3

	maxU8  = 0x3f
	maxU16 = 0x3fff
	maxU32 = 0x3fffffff
	maxU64 = 0x3fffffffffffffff
)

// EncodeCompactIndex appends n's compact-index encoding to buf and returns
// the extended slice. n must fit in 62 bits (spec.md's stated range).
func EncodeCompactIndex(buf []byte, n uint64) ([]byte, error) {
	switch {
	case n <= maxU8:
		return append(buf, byte(n<<2)|tagU8), nil
	case n <= maxU16:
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(n<<2)|tagU16)
		return append(buf, tmp[:]...), nil
	case n <= maxU32:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(n<<2)|tagU32)
		return append(buf, tmp[:]...), nil
	case n <= maxU64:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], (n<<2)|tagU64)
		return append(buf, tmp[:]...), nil
	default:
		return nil, buildrr.New(buildrr.KindIntegerOverflow, "EncodeCompactIndex", nil)
	}
}

// WriteCompactIndex writes n's compact-index encoding to w.
func WriteCompactIndex(w io.Writer, n uint64) error {
	buf, err := EncodeCompactIndex(nil, n)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	if err != nil {
		return buildrr.New(buildrr.KindIOWrite, "WriteCompactIndex", err)
	}
	return nil
}

// DecodeCompactIndex reads one compact-index value from r, returning the
// decoded value.
func DecodeCompactIndex(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, buildrr.New(buildrr.KindIORead, "DecodeCompactIndex", err)
	}
	tag := first[0] & 0x3

	switch tag {
	case tagU8:
		return uint64(first[0] >> 2), nil
	case tagU16:
		var rest [1]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, buildrr.New(buildrr.KindIORead, "DecodeCompactIndex", err)
		}
		v := binary.LittleEndian.Uint16([]byte{first[0], rest[0]})
		return uint64(v >> 2), nil
	case tagU32:
		var rest [3]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, buildrr.New(buildrr.KindIORead, "DecodeCompactIndex", err)
		}
		v := binary.LittleEndian.Uint32([]byte{first[0], rest[0], rest[1], rest[2]})
		return uint64(v >> 2), nil
	case tagU64:
		var rest [7]byte
		if _, err := io.ReadFull(r, rest[:]); err != nil {
			return 0, buildrr.New(buildrr.KindIORead, "DecodeCompactIndex", err)
		}
		full := append([]byte{first[0]}, rest[:]...)
		v := binary.LittleEndian.Uint64(full)
		return v >> 2, nil
	}
	// Unreachable: tag is masked to 2 bits.
	return 0, buildrr.New(buildrr.KindInternal, "DecodeCompactIndex", nil)
}
