package pkgbuild

import (
	"testing"

	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y float32
}

func pointStructType() *rtti.StructType {
	return &rtti.StructType{
		Name:         "Point",
		IsIndexable:  true,
		IndexableIdx: 0,
		Fields: []rtti.Field{
			{
				Name: "X",
				Type: &rtti.NumberType{Repr: rtti.ReprFloat, Bits: 32},
				Get:  func(obj interface{}) interface{} { return float64(obj.(*point).X) },
			},
			{
				Name: "Y",
				Type: &rtti.NumberType{Repr: rtti.ReprFloat, Bits: 32},
				Get:  func(obj interface{}) interface{} { return float64(obj.(*point).Y) },
			},
		},
	}
}

func TestIndexObjectDeduplicatesByteEqualSerializations(t *testing.T) {
	b := NewBuilder(1, 0x52504C30, 1) // arbitrary identifier for this test
	b.BeginSource(nil, false)

	st := pointStructType()
	p1 := &point{X: 1, Y: 2}
	p2 := &point{X: 1, Y: 2} // distinct pointer, byte-identical payload

	idx1, err := b.IndexObject(p1, st, false)
	require.NoError(t, err)
	idx2, err := b.IndexObject(p2, st, false)
	require.NoError(t, err)

	require.Equal(t, idx1, idx2, "byte-equal serializations from distinct objects must collapse to one index")
}

func TestIndexObjectIdentityCacheReturnsFirstIndexWithoutReserializing(t *testing.T) {
	b := NewBuilder(1, 1, 1)
	b.BeginSource(nil, false)

	st := pointStructType()
	p := &point{X: 3, Y: 4}

	idx1, err := b.IndexObject(p, st, true)
	require.NoError(t, err)
	idx2, err := b.IndexObject(p, st, true)
	require.NoError(t, err)
	require.Equal(t, idx1, idx2)
	require.Equal(t, 1, b.indexables[0].Len(), "only one blob should have been materialized")
}

func TestBeginSourceFlushesIdentityCache(t *testing.T) {
	b := NewBuilder(1, 1, 1)
	st := pointStructType()
	p := &point{X: 5, Y: 6}

	b.BeginSource(nil, false)
	_, err := b.IndexObject(p, st, true)
	require.NoError(t, err)

	b.BeginSource(nil, false)
	require.Empty(t, b.indexables[0].identityCache, "identity cache must be empty immediately after BeginSource")
}

func TestWritePackageBackpatchesIdentifierLast(t *testing.T) {
	b := NewBuilder(1, 0xDEADBEEF, 1)
	b.BeginSource(nil, false)

	st := pointStructType()
	_, err := b.IndexObject(&point{X: 1, Y: 2}, st, false)
	require.NoError(t, err)

	mem := streams.NewMemStream()
	require.NoError(t, b.WritePackage(mem))

	out := mem.Bytes()
	require.GreaterOrEqual(t, len(out), 8)
	// identifier occupies the first 4 little-endian bytes, written last.
	require.Equal(t, byte(0xEF), out[0])
	require.Equal(t, byte(0xBE), out[1])
	require.Equal(t, byte(0xAD), out[2])
	require.Equal(t, byte(0xDE), out[3])
}
