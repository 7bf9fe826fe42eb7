package pkgbuild

import (
	"bytes"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/pools"
	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
)

// StringResolver maps a field's global/temp/config/content index back to the
// view used during serialization (e.g. the final byte value for a
// configured enum). BeginSource installs one for the duration of a source
// (spec.md §4.D).
type StringResolver interface {
	ResolveGlobal(idx pools.GlobalStringIndex) (string, bool)
	ResolveTemp(idx pools.TempStringIndex) (string, bool)
}

// Builder drives serialization of object graphs into the package wire
// format (spec.md §3, §4.D). It owns one IndexableObjectBlobCollection pair
// (objects + object-pointer spans) per IndexableStructType, plus the shared
// string/config/content pools.
//
// Grounded on original_source/RKit_Build/PackageBuilder.cpp's PackageBuilder.
type Builder struct {
	numIndexables int
	indexables    []*IndexableObjectBlobCollection
	objectSpans   []*IndexableObjectBlobCollection
	binaryContent *pools.BinaryContentPool

	global *pools.GlobalStringPool
	temp   *pools.TempStringPool
	config *pools.ConfigKeyPool

	resolver        StringResolver
	writeTempStrings bool

	identifier uint32
	version    uint32
}

// NewBuilder creates a builder sized for numIndexables distinct
// IndexableStructType tags, producing packages tagged with the given wire
// identifier/version (spec.md §3's package header).
func NewBuilder(numIndexables int, identifier, version uint32) *Builder {
	b := &Builder{
		numIndexables: numIndexables,
		binaryContent: pools.NewBinaryContentPool(),
		global:        pools.NewGlobalStringPool(),
		config:        pools.NewConfigKeyPool(),
		identifier:    identifier,
		version:       version,
	}
	b.temp = pools.NewTempStringPool(b.global)
	for i := 0; i < numIndexables; i++ {
		b.indexables = append(b.indexables, NewIndexableObjectBlobCollection())
		b.objectSpans = append(b.objectSpans, NewIndexableObjectBlobCollection())
	}
	return b
}

// BeginSource installs resolver for the upcoming source and flushes every
// object-identity cache so identity from a prior source cannot leak
// (spec.md Invariant 2, §4.D).
func (b *Builder) BeginSource(resolver StringResolver, writeTempStrings bool) {
	b.resolver = resolver
	b.writeTempStrings = writeTempStrings
	b.temp.Reset()
	for _, c := range b.indexables {
		c.ClearObjectAddressCache()
	}
	for _, c := range b.objectSpans {
		c.ClearObjectAddressCache()
	}
}

// IndexString interns str into the global string pool.
func (b *Builder) IndexString(str string) pools.GlobalStringIndex {
	return b.global.Intern(str)
}

// IndexConfigKey registers/validates a config key by its already-interned
// global string index and main type (spec.md Invariant 3: mainType is
// immutable once indexed).
func (b *Builder) IndexConfigKey(globalIdx pools.GlobalStringIndex, mainType rtti.MainType) (pools.ConfigKeyIndex, error) {
	return b.config.Intern(globalIdx, mainType)
}

// IndexBinaryContent deduplicates blob in the binary-content pool.
func (b *Builder) IndexBinaryContent(blob *streams.Blob) pools.BinaryContentIndex {
	return b.binaryContent.Intern(blob)
}

// IndexObject serializes obj via rtti to a blob and deduplicates it within
// the struct's IndexableStructType collection. When cached is true and obj
// has been indexed earlier in this source, the earlier index is returned
// without reserializing (spec.md Invariant 4).
func (b *Builder) IndexObject(obj interface{}, st *rtti.StructType, cached bool) (int, error) {
	if !st.IsIndexable {
		return 0, buildrr.New(buildrr.KindInvalidParam, "IndexObject", nil)
	}
	coll := b.indexables[st.IndexableIdx]

	if cached && obj != nil {
		if idx, ok := coll.identityCache[obj]; ok {
			return idx, nil
		}
	}

	var buf bytes.Buffer
	w := &ObjectWriter{builder: b}
	if err := w.writeStructBody(obj, st, &buf); err != nil {
		return 0, err
	}
	blob := streams.NewBlob(buf.Bytes())
	return coll.IndexBlob(obj, blob, cached), nil
}

// IndexObjectPtrSpan materializes a span of object pointers into its own
// blob (compact-index count, then per-element compact indices) and indexes
// that blob in the objectSpans table for elem's IndexableStructType
// (spec.md §4.D).
func (b *Builder) IndexObjectPtrSpan(ptrIndices []uint64, elem *rtti.StructType, identityKey interface{}) (int, error) {
	coll := b.objectSpans[elem.IndexableIdx]

	var buf []byte
	buf, err := EncodeCompactIndex(buf, uint64(len(ptrIndices)))
	if err != nil {
		return 0, err
	}
	for _, idx := range ptrIndices {
		buf, err = EncodeCompactIndex(buf, idx)
		if err != nil {
			return 0, err
		}
	}

	blob := streams.NewBlob(buf)
	return coll.IndexBlob(identityKey, blob, identityKey != nil), nil
}

func (b *Builder) Global() *pools.GlobalStringPool   { return b.global }
func (b *Builder) Temp() *pools.TempStringPool       { return b.temp }
func (b *Builder) ConfigKeys() *pools.ConfigKeyPool  { return b.config }
func (b *Builder) BinaryContent() *pools.BinaryContentPool { return b.binaryContent }
