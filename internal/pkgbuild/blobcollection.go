package pkgbuild

import (
	"github.com/standardbeagle/lci/internal/streams"
)

// IndexableObjectBlobCollection is a multi-map {Blob -> index} plus
// {index -> Blob} with an optional object-identity cache used to deduplicate
// repeated writes of the same in-memory object within one source (spec.md
// §3, §4.D). Grounded on
// original_source/RKit_Build/PackageBuilder.cpp's IndexableObjectBlobCollection.
type IndexableObjectBlobCollection struct {
	blobs  []*streams.Blob
	byHash map[uint64][]int

	// identityCache maps a live object pointer to the index of the blob it
	// serialized to, valid only within the current source (spec.md
	// Invariant 2/4: "after BeginSource, the object-identity cache yields no
	// hits").
	identityCache map[interface{}]int
}

func NewIndexableObjectBlobCollection() *IndexableObjectBlobCollection {
	return &IndexableObjectBlobCollection{
		byHash:        make(map[uint64][]int),
		identityCache: make(map[interface{}]int),
	}
}

// IndexBlob deduplicates blob by byte-equality within this collection,
// optionally consulting/populating the object-identity cache for obj when
// cached is true. Returns the stable index.
func (c *IndexableObjectBlobCollection) IndexBlob(obj interface{}, blob *streams.Blob, cached bool) int {
	if cached && obj != nil {
		if idx, ok := c.identityCache[obj]; ok {
			return idx
		}
	}

	h := blob.Hash()
	for _, candidate := range c.byHash[h] {
		if c.blobs[candidate].Equal(blob) {
			if cached && obj != nil {
				c.identityCache[obj] = candidate
			}
			return candidate
		}
	}

	idx := len(c.blobs)
	c.blobs = append(c.blobs, blob)
	c.byHash[h] = append(c.byHash[h], idx)
	if cached && obj != nil {
		c.identityCache[obj] = idx
	}
	return idx
}

// ClearObjectAddressCache flushes the identity cache. Called at BeginSource
// so identity from a previous source can never leak (spec.md Invariant 2).
func (c *IndexableObjectBlobCollection) ClearObjectAddressCache() {
	c.identityCache = make(map[interface{}]int)
}

func (c *IndexableObjectBlobCollection) Blobs() []*streams.Blob { return c.blobs }

func (c *IndexableObjectBlobCollection) Len() int { return len(c.blobs) }
