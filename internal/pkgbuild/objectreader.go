package pkgbuild

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rtti"
)

// ObjectReader is the read-side counterpart of ObjectWriter: it decodes one
// object's wire body field-by-field, driven by the same rtti.StructType
// descriptor the writer used to produce it.
//
// Scope: top-level Enum/Number/StringIndex/BinaryContent fields decode fully.
// ObjectPtr/ObjectPtrSpan fields decode to their raw wire index rather than a
// resolved Go value — no package this repo currently writes cross-references
// another indexed object from within a struct body (every indexable struct
// in internal/rpl is a flat NameLookup), so pointer resolution has no caller
// to exercise yet. A nested inline Struct/ValueType field is likewise left
// unsupported pending a caller with nested struct fields: ReadStructBody
// returns KindNotImplemented if it encounters a nested Struct/ValueType field.
func ReadStructBody(r io.Reader, obj interface{}, st *rtti.StructType) error {
	for i := range st.Fields {
		f := &st.Fields[i]
		if f.Visibility == rtti.VisibilityTransient {
			continue
		}
		val, err := readField(r, f)
		if err != nil {
			return err
		}
		if f.Set != nil {
			f.Set(obj, val)
		}
	}
	return nil
}

func readField(r io.Reader, f *rtti.Field) (interface{}, error) {
	switch t := f.Type.(type) {
	case *rtti.EnumType:
		return readEnum(r, t, f.Configurable)
	case *rtti.NumberType:
		return readNumber(r, t, f.Configurable)
	case *rtti.StringIndexType:
		return DecodeCompactIndex(r)
	case *rtti.BinaryContentType:
		return DecodeCompactIndex(r)
	case *rtti.ObjectPtrType:
		return DecodeCompactIndex(r)
	case *rtti.ObjectPtrSpanType:
		return DecodeCompactIndex(r)
	case *rtti.StructType, *rtti.ValueType:
		return nil, buildrr.New(buildrr.KindNotImplemented, "pkgbuild.readField", nil)
	default:
		return nil, buildrr.New(buildrr.KindInternal, "pkgbuild.readField", nil)
	}
}

func readEnum(r io.Reader, t *rtti.EnumType, configurable bool) (interface{}, error) {
	if configurable {
		state, err := readUint8(r)
		if err != nil {
			return nil, err
		}
		cv := &rtti.ConfigurableValue{State: rtti.ConfigurableState(state)}
		switch cv.State {
		case rtti.StateDefault:
			return cv, nil
		case rtti.StateConfigured:
			idx, err := DecodeCompactIndex(r)
			if err != nil {
				return nil, err
			}
			cv.ConfigKeyIndex = idx
			return cv, nil
		case rtti.StateExplicit:
			v, err := readUintForSize(r, uint64(t.MaxValueExclusive)-1)
			if err != nil {
				return nil, err
			}
			cv.Explicit = float64(int64(v))
			return cv, nil
		default:
			return nil, buildrr.New(buildrr.KindMalformedFile, "pkgbuild.readEnum", nil)
		}
	}
	v, err := readUintForSize(r, uint64(t.MaxValueExclusive)-1)
	if err != nil {
		return nil, err
	}
	return int64(v), nil
}

func readNumber(r io.Reader, t *rtti.NumberType, configurable bool) (interface{}, error) {
	readPayload := func() (float64, error) {
		switch t.Repr {
		case rtti.ReprFloat:
			switch t.Bits {
			case 32:
				v, err := readUint32(r)
				return float64(math.Float32frombits(v)), err
			case 64:
				v, err := readUint64(r)
				return math.Float64frombits(v), err
			default:
				return 0, buildrr.New(buildrr.KindInvalidParam, "pkgbuild.readNumber", nil)
			}
		case rtti.ReprSignedInt, rtti.ReprUnsignedInt:
			switch t.Bits {
			case 1, 8:
				v, err := readUint8(r)
				return float64(v), err
			case 16:
				v, err := readUint16(r)
				return float64(v), err
			case 32:
				v, err := readUint32(r)
				return float64(v), err
			case 64:
				v, err := readUint64(r)
				return float64(v), err
			default:
				return 0, buildrr.New(buildrr.KindInvalidParam, "pkgbuild.readNumber", nil)
			}
		}
		return 0, buildrr.New(buildrr.KindInternal, "pkgbuild.readNumber", nil)
	}

	if configurable {
		state, err := readUint8(r)
		if err != nil {
			return nil, err
		}
		cv := &rtti.ConfigurableValue{State: rtti.ConfigurableState(state)}
		switch cv.State {
		case rtti.StateDefault:
			return cv, nil
		case rtti.StateConfigured:
			idx, err := DecodeCompactIndex(r)
			if err != nil {
				return nil, err
			}
			cv.ConfigKeyIndex = idx
			return cv, nil
		case rtti.StateExplicit:
			v, err := readPayload()
			if err != nil {
				return nil, err
			}
			cv.Explicit = v
			return cv, nil
		default:
			return nil, buildrr.New(buildrr.KindMalformedFile, "pkgbuild.readNumber", nil)
		}
	}
	return readPayload()
}

// readUintForSize is the read-side counterpart of writeUintForSize: it reads
// the smallest fixed width (u8/u16/u32/u64) that max requires.
func readUintForSize(r io.Reader, max uint64) (uint64, error) {
	switch {
	case max <= math.MaxUint8:
		v, err := readUint8(r)
		return uint64(v), err
	case max <= math.MaxUint16:
		v, err := readUint16(r)
		return uint64(v), err
	case max <= math.MaxUint32:
		v, err := readUint32(r)
		return uint64(v), err
	default:
		return readUint64(r)
	}
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, buildrr.New(buildrr.KindIORead, "readUint8", err)
	}
	return buf[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, buildrr.New(buildrr.KindIORead, "readUint16", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, buildrr.New(buildrr.KindIORead, "readUint32", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, buildrr.New(buildrr.KindIORead, "readUint64", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
