package rtti

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberTypeMainTypeFollowsRepr(t *testing.T) {
	require.Equal(t, MainTypeFloat, (&NumberType{Repr: ReprFloat}).MainType())
	require.Equal(t, MainTypeUInt, (&NumberType{Repr: ReprUnsignedInt}).MainType())
	require.Equal(t, MainTypeSInt, (&NumberType{Repr: ReprSignedInt}).MainType())
}

func TestDescriptorKindsMatchTheirKindConstant(t *testing.T) {
	var types = []Type{
		&EnumType{},
		&NumberType{},
		&StructType{},
		&ValueType{},
		&StringIndexType{},
		&ObjectPtrType{},
		&ObjectPtrSpanType{},
		&BinaryContentType{},
	}
	wantKinds := []Kind{
		KindEnum, KindNumber, KindStruct, KindValueType,
		KindStringIndex, KindObjectPtr, KindObjectPtrSpan, KindBinaryContent,
	}
	for i, typ := range types {
		require.Equal(t, wantKinds[i], typ.Kind())
	}
}

func TestBinaryContentTypeHasNoMainType(t *testing.T) {
	require.Equal(t, MainTypeInvalid, (&BinaryContentType{}).MainType())
}
