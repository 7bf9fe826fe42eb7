package pkgbuild

import (
	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
)

// WritePackage emits the full container format of spec.md §3: header,
// string/config/content table sizes, string payload, config-key entries,
// content sizes, per-type span/object counts, then the span bodies, object
// bodies, and binary-content bytes, finally back-patching the header
// identifier at offset 0 last (spec.md Invariant 5: a zero identifier at
// byte 0 means an incomplete write).
//
// Grounded on original_source/RKit_Build/PackageBuilder.cpp's
// PackageBuilder::WritePackage.
func (b *Builder) WritePackage(stream streams.SeekableWriteStream) error {
	// Reserve the 8-byte header (identifier + version); identifier is
	// written as zero first and back-patched last.
	if err := writeUint32(stream, 0); err != nil {
		return err
	}
	if err := writeUint32(stream, b.version); err != nil {
		return err
	}

	strs := b.global.All()
	if err := WriteCompactIndex(stream, uint64(len(strs))); err != nil {
		return err
	}
	if err := WriteCompactIndex(stream, uint64(b.config.Len())); err != nil {
		return err
	}
	if err := WriteCompactIndex(stream, uint64(b.binaryContent.Len())); err != nil {
		return err
	}

	for _, s := range strs {
		if err := WriteCompactIndex(stream, uint64(len(s))); err != nil {
			return err
		}
	}
	for _, s := range strs {
		if err := streams.WriteAll(stream, append([]byte(s), 0)); err != nil {
			return err
		}
	}

	for _, ck := range b.config.All() {
		if err := WriteCompactIndex(stream, uint64(ck.GlobalStringIndex)); err != nil {
			return err
		}
		// MainType is written as the smallest fixed width holding
		// (MainTypeCount - 1), matching the enum-payload convention, not the
		// compact-index scheme — original_source writes it via
		// WriteUIntForSize against RenderRTTIMainType::Count - 1.
		if err := writeUintForSize(stream, uint64(ck.MainType), uint64(rtti.MainTypeCount-1)); err != nil {
			return err
		}
	}

	for _, blob := range b.binaryContent.All() {
		size := 0
		if blob != nil {
			size = blob.Len()
		}
		if err := WriteCompactIndex(stream, uint64(size)); err != nil {
			return err
		}
	}

	for i := 0; i < b.numIndexables; i++ {
		if err := WriteCompactIndex(stream, uint64(b.objectSpans[i].Len())); err != nil {
			return err
		}
		if err := WriteCompactIndex(stream, uint64(b.indexables[i].Len())); err != nil {
			return err
		}
	}

	for i := 0; i < b.numIndexables; i++ {
		if err := writeBlobCollectionBodies(stream, b.objectSpans[i]); err != nil {
			return err
		}
	}
	for i := 0; i < b.numIndexables; i++ {
		if err := writeBlobCollectionBodies(stream, b.indexables[i]); err != nil {
			return err
		}
	}

	for _, blob := range b.binaryContent.All() {
		if blob == nil {
			continue
		}
		if err := streams.WriteAll(stream, blob.Bytes()); err != nil {
			return err
		}
	}

	if _, err := stream.Seek(0, 0); err != nil {
		return buildrr.New(buildrr.KindIOSeek, "WritePackage", err)
	}
	return writeUint32(stream, b.identifier)
}

func writeBlobCollectionBodies(stream streams.SeekableWriteStream, coll *IndexableObjectBlobCollection) error {
	for _, blob := range coll.Blobs() {
		if err := streams.WriteAll(stream, blob.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
