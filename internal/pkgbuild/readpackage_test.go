package pkgbuild

import (
	"bytes"
	"testing"

	"github.com/standardbeagle/lci/internal/rtti"
	"github.com/standardbeagle/lci/internal/streams"
	"github.com/stretchr/testify/require"
)

type widget struct {
	nameIdx uint64
	count   float64
}

func widgetStructType() *rtti.StructType {
	return &rtti.StructType{
		Name:         "Widget",
		IsIndexable:  true,
		IndexableIdx: 0,
		Fields: []rtti.Field{
			{
				Name: "Name",
				Type: &rtti.StringIndexType{Purpose: rtti.PurposeGlobal},
				Get:  func(obj interface{}) interface{} { return obj.(*widget).nameIdx },
				Set:  func(obj interface{}, v interface{}) { obj.(*widget).nameIdx = v.(uint64) },
			},
			{
				Name: "Count",
				Type: &rtti.NumberType{Repr: rtti.ReprUnsignedInt, Bits: 32},
				Get:  func(obj interface{}) interface{} { return obj.(*widget).count },
				Set:  func(obj interface{}, v interface{}) { obj.(*widget).count = v.(float64) },
			},
		},
	}
}

func TestReadPackageRoundTripsIndexedObjectsAndStrings(t *testing.T) {
	b := NewBuilder(1, 0x52504C50, 1)
	b.BeginSource(nil, false)

	st := widgetStructType()
	obj1 := &widget{nameIdx: uint64(b.IndexString("Alpha")), count: 3}
	_, err := b.IndexObject(obj1, st, false)
	require.NoError(t, err)

	obj2 := &widget{nameIdx: uint64(b.IndexString("Beta")), count: 7}
	_, err = b.IndexObject(obj2, st, false)
	require.NoError(t, err)

	mem := streams.NewMemStream()
	require.NoError(t, b.WritePackage(mem))

	res, err := ReadPackage(bytes.NewReader(mem.Bytes()), []IndexedStructSpec{
		{New: func() interface{} { return &widget{} }, St: st},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(0x52504C50), res.Identifier)
	require.Equal(t, uint32(1), res.Version)

	objs := res.Objects[0]
	require.Len(t, objs, 2)

	names := make([]string, 0, 2)
	for _, o := range objs {
		w := o.(*widget)
		require.Less(t, int(w.nameIdx), len(res.Strings))
		names = append(names, res.Strings[w.nameIdx])
	}
	require.ElementsMatch(t, []string{"Alpha", "Beta"}, names)
}

func TestReadPackageEmptyPackageHasNoObjects(t *testing.T) {
	b := NewBuilder(1, 1, 1)
	b.BeginSource(nil, false)

	mem := streams.NewMemStream()
	require.NoError(t, b.WritePackage(mem))

	res, err := ReadPackage(bytes.NewReader(mem.Bytes()), []IndexedStructSpec{
		{New: func() interface{} { return &widget{} }, St: widgetStructType()},
	})
	require.NoError(t, err)
	require.Empty(t, res.Objects[0])
	require.Empty(t, res.Strings)
}
