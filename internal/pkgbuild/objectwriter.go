package pkgbuild

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/standardbeagle/lci/internal/buildrr"
	"github.com/standardbeagle/lci/internal/rtti"
)

// ObjectWriter drives RTTI-generic serialization of one object (struct,
// value-type, field) into the wire form spec.md §4.D describes. It is the
// Go counterpart of original_source/RKit_Build/PackageBuilder.cpp's
// PackageObjectWriter: the switch lives here once, and adding a new rtti
// Kind means adding a case, never touching callers.
type ObjectWriter struct {
	builder *Builder
}

func (w *ObjectWriter) writeStructBody(obj interface{}, st *rtti.StructType, out io.Writer) error {
	for i := range st.Fields {
		f := &st.Fields[i]
		if f.Visibility == rtti.VisibilityTransient {
			continue
		}
		val := f.Get(obj)
		if err := w.writeField(val, f, out); err != nil {
			return err
		}
	}
	return nil
}

func (w *ObjectWriter) writeField(val interface{}, f *rtti.Field, out io.Writer) error {
	switch t := f.Type.(type) {
	case *rtti.EnumType:
		return w.writeEnum(val, t, f.Configurable, out)
	case *rtti.NumberType:
		return w.writeNumber(val, t, f.Configurable, out)
	case *rtti.StructType:
		return w.writeStructBody(val, t, out)
	case *rtti.ValueType:
		return w.writeValueType(val, t, out)
	case *rtti.StringIndexType:
		return w.writeStringIndex(val, t, out)
	case *rtti.ObjectPtrType:
		return w.writeObjectPtr(val, t, f.Nullable, out)
	case *rtti.ObjectPtrSpanType:
		return w.writeObjectPtrSpan(val, t, out)
	case *rtti.BinaryContentType:
		return w.writeBinaryContentIndex(val, out)
	default:
		return buildrr.New(buildrr.KindInternal, "writeField", nil)
	}
}

func (w *ObjectWriter) writeValueType(val interface{}, t *rtti.ValueType, out io.Writer) error {
	for i := range t.Fields {
		f := &t.Fields[i]
		v := f.Get(val)
		if err := w.writeField(v, f, out); err != nil {
			return err
		}
	}
	return nil
}

func (w *ObjectWriter) writeEnum(val interface{}, t *rtti.EnumType, configurable bool, out io.Writer) error {
	if configurable {
		cv, _ := val.(*rtti.ConfigurableValue)
		if cv == nil {
			cv = &rtti.ConfigurableValue{State: rtti.StateDefault}
		}
		if err := writeUint8(out, uint8(cv.State)); err != nil {
			return err
		}
		switch cv.State {
		case rtti.StateDefault:
			return nil
		case rtti.StateConfigured:
			return WriteCompactIndex(out, cv.ConfigKeyIndex)
		case rtti.StateExplicit:
			return writeUintForSize(out, uint64(int64(cv.Explicit)), uint64(t.MaxValueExclusive)-1)
		default:
			return buildrr.New(buildrr.KindInternal, "writeEnum", nil)
		}
	}
	v, _ := val.(int64)
	return writeUintForSize(out, uint64(v), uint64(t.MaxValueExclusive)-1)
}

func (w *ObjectWriter) writeNumber(val interface{}, t *rtti.NumberType, configurable bool, out io.Writer) error {
	writePayload := func(f float64) error {
		switch t.Repr {
		case rtti.ReprFloat:
			switch t.Bits {
			case 32:
				return writeUint32(out, math.Float32bits(float32(f)))
			case 64:
				return writeUint64(out, math.Float64bits(f))
			default:
				return buildrr.New(buildrr.KindInvalidParam, "writeNumber", nil)
			}
		case rtti.ReprSignedInt, rtti.ReprUnsignedInt:
			switch t.Bits {
			case 1, 8:
				return writeUint8(out, uint8(int64(f)))
			case 16:
				return writeUint16(out, uint16(int64(f)))
			case 32:
				return writeUint32(out, uint32(int64(f)))
			case 64:
				return writeUint64(out, uint64(int64(f)))
			default:
				return buildrr.New(buildrr.KindInvalidParam, "writeNumber", nil)
			}
		}
		return buildrr.New(buildrr.KindInternal, "writeNumber", nil)
	}

	if configurable {
		cv, _ := val.(*rtti.ConfigurableValue)
		if cv == nil {
			cv = &rtti.ConfigurableValue{State: rtti.StateDefault}
		}
		if err := writeUint8(out, uint8(cv.State)); err != nil {
			return err
		}
		switch cv.State {
		case rtti.StateDefault:
			return nil
		case rtti.StateConfigured:
			return WriteCompactIndex(out, cv.ConfigKeyIndex)
		case rtti.StateExplicit:
			return writePayload(cv.Explicit)
		default:
			return buildrr.New(buildrr.KindInternal, "writeNumber", nil)
		}
	}

	f, _ := val.(float64)
	return writePayload(f)
}

func (w *ObjectWriter) writeStringIndex(val interface{}, t *rtti.StringIndexType, out io.Writer) error {
	idx, _ := val.(uint64)
	return WriteCompactIndex(out, idx)
}

func (w *ObjectWriter) writeObjectPtr(val interface{}, t *rtti.ObjectPtrType, nullable bool, out io.Writer) error {
	if val == nil {
		if !nullable {
			return buildrr.New(buildrr.KindInvalidParam, "writeObjectPtr", nil)
		}
		return WriteCompactIndex(out, 0)
	}
	idx, err := w.builder.IndexObject(val, t.Elem, true)
	if err != nil {
		return err
	}
	return WriteCompactIndex(out, uint64(idx)+1)
}

func (w *ObjectWriter) writeObjectPtrSpan(val interface{}, t *rtti.ObjectPtrSpanType, out io.Writer) error {
	elems, _ := val.([]interface{})
	indices := make([]uint64, 0, len(elems))
	for _, e := range elems {
		idx, err := w.builder.IndexObject(e, t.Elem, true)
		if err != nil {
			return err
		}
		indices = append(indices, uint64(idx)+1)
	}
	spanIdx, err := w.builder.IndexObjectPtrSpan(indices, t.Elem, nil)
	if err != nil {
		return err
	}
	return WriteCompactIndex(out, uint64(spanIdx))
}

func (w *ObjectWriter) writeBinaryContentIndex(val interface{}, out io.Writer) error {
	idx, _ := val.(uint64)
	return WriteCompactIndex(out, idx)
}

// writeUintForSize picks the smallest fixed width (u8/u16/u32/u64, NOT the
// compact-index tag scheme) that can hold max, and writes ui in that width,
// little-endian — this is the enum/main-type encoding, distinct from
// compact indices (spec.md §3's ConfigKey mainType field, and enum payloads).
func writeUintForSize(out io.Writer, ui, max uint64) error {
	switch {
	case max <= math.MaxUint8:
		return writeUint8(out, uint8(ui))
	case max <= math.MaxUint16:
		return writeUint16(out, uint16(ui))
	case max <= math.MaxUint32:
		return writeUint32(out, uint32(ui))
	default:
		return writeUint64(out, ui)
	}
}

func writeUint8(out io.Writer, v uint8) error {
	_, err := out.Write([]byte{v})
	if err != nil {
		return buildrr.New(buildrr.KindIOWrite, "writeUint8", err)
	}
	return nil
}

func writeUint16(out io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	if _, err := out.Write(buf[:]); err != nil {
		return buildrr.New(buildrr.KindIOWrite, "writeUint16", err)
	}
	return nil
}

func writeUint32(out io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if _, err := out.Write(buf[:]); err != nil {
		return buildrr.New(buildrr.KindIOWrite, "writeUint32", err)
	}
	return nil
}

func writeUint64(out io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	if _, err := out.Write(buf[:]); err != nil {
		return buildrr.New(buildrr.KindIOWrite, "writeUint64", err)
	}
	return nil
}
