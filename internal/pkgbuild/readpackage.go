package pkgbuild

import (
	"io"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rtti"
)

// IndexedStructSpec tells ReadPackage how to decode one IndexableStructType
// slot's object bodies: New allocates a fresh Go value for each object, St
// describes its wire shape (the same *rtti.StructType the writer indexed it
// with, this time needing populated Field.Set thunks rather than Get).
type IndexedStructSpec struct {
	New func() interface{}
	St  *rtti.StructType
}

// ReadResult is everything ReadPackage recovers from a package stream: the
// header, the string/config-key/content-size tables, and the decoded objects
// for every indexable slot the caller described in specs.
type ReadResult struct {
	Identifier uint32
	Version    uint32
	Strings    []string
	ConfigKeys []ReadConfigKey
	Objects    [][]interface{} // Objects[i] parallels specs[i]
}

type ReadConfigKey struct {
	GlobalStringIndex uint64
	MainType          rtti.MainType
}

// ReadPackage parses the wire container format of spec.md §3 back into
// memory, given one IndexedStructSpec per IndexableStructType slot (in the
// same order WritePackage's caller sized its Builder with). This is the
// counterpart pkgbuild.WritePackage needs for round-tripping (spec.md §8
// Invariant 1) and the building block internal/rplcompile's library combiner
// uses to re-read analyzer/compiler output packages.
func ReadPackage(r io.Reader, specs []IndexedStructSpec) (*ReadResult, error) {
	identifier, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	version, err := readUint32(r)
	if err != nil {
		return nil, err
	}

	stringCount, err := DecodeCompactIndex(r)
	if err != nil {
		return nil, err
	}
	configCount, err := DecodeCompactIndex(r)
	if err != nil {
		return nil, err
	}
	contentCount, err := DecodeCompactIndex(r)
	if err != nil {
		return nil, err
	}

	strLens := make([]uint64, stringCount)
	for i := range strLens {
		n, err := DecodeCompactIndex(r)
		if err != nil {
			return nil, err
		}
		strLens[i] = n
	}
	strings_ := make([]string, stringCount)
	for i, n := range strLens {
		buf := make([]byte, n+1) // +1 for the trailing nul the writer appends
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, buildrr.New(buildrr.KindIORead, "pkgbuild.ReadPackage", err)
		}
		strings_[i] = string(buf[:n])
	}

	configKeys := make([]ReadConfigKey, configCount)
	for i := range configKeys {
		gidx, err := DecodeCompactIndex(r)
		if err != nil {
			return nil, err
		}
		mt, err := readUintForSize(r, uint64(rtti.MainTypeCount-1))
		if err != nil {
			return nil, err
		}
		configKeys[i] = ReadConfigKey{GlobalStringIndex: gidx, MainType: rtti.MainType(mt)}
	}

	contentSizes := make([]uint64, contentCount)
	for i := range contentSizes {
		n, err := DecodeCompactIndex(r)
		if err != nil {
			return nil, err
		}
		contentSizes[i] = n
	}

	type counts struct{ spans, objects uint64 }
	tableCounts := make([]counts, len(specs))
	for i := range tableCounts {
		spanCount, err := DecodeCompactIndex(r)
		if err != nil {
			return nil, err
		}
		objCount, err := DecodeCompactIndex(r)
		if err != nil {
			return nil, err
		}
		tableCounts[i] = counts{spans: spanCount, objects: objCount}
	}

	// Span bodies are self-describing regardless of element type (a
	// compact-index count followed by that many compact-index pointer
	// indices), so they can be skipped generically — the combiner this
	// reader serves only needs the NameLookup object bodies, never spans.
	for i := range tableCounts {
		for s := uint64(0); s < tableCounts[i].spans; s++ {
			n, err := DecodeCompactIndex(r)
			if err != nil {
				return nil, err
			}
			for k := uint64(0); k < n; k++ {
				if _, err := DecodeCompactIndex(r); err != nil {
					return nil, err
				}
			}
		}
	}

	objects := make([][]interface{}, len(specs))
	for i := range tableCounts {
		spec := specs[i]
		objs := make([]interface{}, 0, tableCounts[i].objects)
		for o := uint64(0); o < tableCounts[i].objects; o++ {
			obj := spec.New()
			if err := ReadStructBody(r, obj, spec.St); err != nil {
				return nil, err
			}
			objs = append(objs, obj)
		}
		objects[i] = objs
	}

	// Binary-content bytes follow, but no caller of ReadPackage today needs
	// them back (the BinaryContentType fields written by internal/rplcompile
	// and internal/texnode are read back as content indices only); drain
	// them so a caller chaining further reads off
	// the same stream sees accurate EOF rather than stale content bytes.
	for _, n := range contentSizes {
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, buildrr.New(buildrr.KindIORead, "pkgbuild.ReadPackage", err)
		}
	}

	return &ReadResult{
		Identifier: identifier,
		Version:    version,
		Strings:    strings_,
		ConfigKeys: configKeys,
		Objects:    objects,
	}, nil
}
