// Package pools implements the string/config/binary-content pools of
// spec.md §4.C, grounded on the teacher's internal/core/string_pool.go
// (insertion-ordered, dedup-by-value, reverse lookup map) but split into the
// four pool kinds spec.md actually calls for: a global string pool, a
// per-source temp string pool that back-references it, a config-key pool
// typed by rtti.MainType, and a binary-content pool keyed by blob equality.
//
// All pools are append-only — spec.md explicitly says "removal is not
// supported" — so there is no Remove/Evict here, unlike the teacher's
// StringPool which this otherwise mirrors closely.
package pools

import (
	"fmt"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
)

// GlobalStringIndex indexes into the GlobalStringPool.
type GlobalStringIndex uint64

// TempStringIndex indexes into a per-source TempStringPool. Only valid for
// the source that produced it (spec.md §3).
type TempStringIndex uint64

// GlobalStringPool deduplicates inserted strings by value across the whole
// package build, returning the existing index on re-insertion.
type GlobalStringPool struct {
	strings []string
	index   map[string]GlobalStringIndex
}

func NewGlobalStringPool() *GlobalStringPool {
	return &GlobalStringPool{index: make(map[string]GlobalStringIndex)}
}

// Intern inserts s if new, returning its stable index either way.
func (p *GlobalStringPool) Intern(s string) GlobalStringIndex {
	if idx, ok := p.index[s]; ok {
		return idx
	}
	idx := GlobalStringIndex(len(p.strings))
	p.strings = append(p.strings, s)
	p.index[s] = idx
	return idx
}

// Get returns the string at idx.
func (p *GlobalStringPool) Get(idx GlobalStringIndex) (string, bool) {
	if int(idx) >= len(p.strings) {
		return "", false
	}
	return p.strings[idx], true
}

// Len returns the number of distinct strings interned so far.
func (p *GlobalStringPool) Len() int { return len(p.strings) }

// All returns the strings in insertion order, the order the package writer
// emits the string payload table in.
func (p *GlobalStringPool) All() []string { return p.strings }

// TempStringPool is a per-source scratch table: on insert it first indexes
// into the global pool, then assigns the next temp index only if this
// global index is new to this source (spec.md §4.C).
type TempStringPool struct {
	global      *GlobalStringPool
	globalToTmp map[GlobalStringIndex]TempStringIndex
	backRefs    []GlobalStringIndex
}

func NewTempStringPool(global *GlobalStringPool) *TempStringPool {
	return &TempStringPool{global: global, globalToTmp: make(map[GlobalStringIndex]TempStringIndex)}
}

// Intern returns this source's temp index for s, assigning a new one only if
// s's global index hasn't appeared yet in this source.
func (p *TempStringPool) Intern(s string) TempStringIndex {
	gidx := p.global.Intern(s)
	if tidx, ok := p.globalToTmp[gidx]; ok {
		return tidx
	}
	tidx := TempStringIndex(len(p.backRefs))
	p.backRefs = append(p.backRefs, gidx)
	p.globalToTmp[gidx] = tidx
	return tidx
}

// GlobalIndexFor resolves a temp index back to its global backing index.
func (p *TempStringPool) GlobalIndexFor(idx TempStringIndex) (GlobalStringIndex, bool) {
	if int(idx) >= len(p.backRefs) {
		return 0, false
	}
	return p.backRefs[idx], true
}

// Reset clears the temp table — called by internal/pkgbuild's BeginSource so
// a TempStringIndex from a previous source can never leak (spec.md
// Invariant 2).
func (p *TempStringPool) Reset() {
	p.globalToTmp = make(map[GlobalStringIndex]TempStringIndex)
	p.backRefs = p.backRefs[:0]
}

// ConfigKey is a named, typed, late-bound value reference (spec.md's
// ConfigKey glossary entry).
type ConfigKey struct {
	GlobalStringIndex GlobalStringIndex
	MainType          rtti.MainType
}

// ConfigKeyIndex indexes into a ConfigKeyPool.
type ConfigKeyIndex uint64

// ConfigKeyPool is keyed by global string index; a key's MainType is
// immutable once indexed (spec.md Invariant 3) — re-binding to a different
// MainType is a hard error.
type ConfigKeyPool struct {
	keys        []ConfigKey
	byGlobalIdx map[GlobalStringIndex]ConfigKeyIndex
}

func NewConfigKeyPool() *ConfigKeyPool {
	return &ConfigKeyPool{byGlobalIdx: make(map[GlobalStringIndex]ConfigKeyIndex)}
}

// Intern registers (or looks up) a config key by its already-interned global
// string index, asserting mainType consistency.
func (p *ConfigKeyPool) Intern(gidx GlobalStringIndex, mainType rtti.MainType) (ConfigKeyIndex, error) {
	if idx, ok := p.byGlobalIdx[gidx]; ok {
		existing := p.keys[idx]
		if existing.MainType != mainType {
			return 0, buildrr.New(buildrr.KindInvalidParam, "ConfigKeyPool.Intern",
				fmt.Errorf("string index %d already bound to main type %v, cannot rebind to %v", gidx, existing.MainType, mainType))
		}
		return idx, nil
	}
	idx := ConfigKeyIndex(len(p.keys))
	p.keys = append(p.keys, ConfigKey{GlobalStringIndex: gidx, MainType: mainType})
	p.byGlobalIdx[gidx] = idx
	return idx, nil
}

// Get returns the config key at idx.
func (p *ConfigKeyPool) Get(idx ConfigKeyIndex) (ConfigKey, bool) {
	if int(idx) >= len(p.keys) {
		return ConfigKey{}, false
	}
	return p.keys[idx], true
}

func (p *ConfigKeyPool) Len() int { return len(p.keys) }
func (p *ConfigKeyPool) All() []ConfigKey { return p.keys }

// BinaryContentIndex indexes into a BinaryContentPool.
type BinaryContentIndex uint64

// BinaryContentPool deduplicates binary content blobs by byte equality,
// backing spec.md's ContentKey references.
type BinaryContentPool struct {
	blobs []*streams.Blob
	// hash -> candidate indices, to keep equality checks O(collisions) not O(n)
	byHash map[uint64][]BinaryContentIndex
}

func NewBinaryContentPool() *BinaryContentPool {
	return &BinaryContentPool{byHash: make(map[uint64][]BinaryContentIndex)}
}

// Intern deduplicates blob by content equality and returns its stable index.
// The pool takes ownership of blob.
func (p *BinaryContentPool) Intern(blob *streams.Blob) BinaryContentIndex {
	h := blob.Hash()
	for _, candidate := range p.byHash[h] {
		if p.blobs[candidate].Equal(blob) {
			return candidate
		}
	}
	idx := BinaryContentIndex(len(p.blobs))
	p.blobs = append(p.blobs, blob)
	p.byHash[h] = append(p.byHash[h], idx)
	return idx
}

func (p *BinaryContentPool) Get(idx BinaryContentIndex) (*streams.Blob, bool) {
	if int(idx) >= len(p.blobs) {
		return nil, false
	}
	return p.blobs[idx], true
}

func (p *BinaryContentPool) Len() int { return len(p.blobs) }
func (p *BinaryContentPool) All() []*streams.Blob { return p.blobs }
