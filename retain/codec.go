// Package retain implements the on-disk retain-variable encoding of spec
// §6.5: a sequence of length-prefixed records, each a qualified name
// followed by a recursively tagged value encoding, read back in full on a
// warm restart. It is the concrete runtime.RetainStore a Resource's
// Config.RetainStore field expects; package memory's retain.go (despite
// the filename collision) only builds the in-memory snapshot this package
// serializes.
package retain

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

// tag identifies one Value variant on the wire. Values match values.Kind
// numerically so the two stay in lockstep, but are declared independently
// since the wire format must never shift just because an unrelated Kind is
// added to package values.
type tag byte

const (
	tagBool tag = iota
	tagSInt
	tagUInt
	tagFloat
	tagBitString
	tagDuration
	tagDate
	tagTimeOfDay
	tagDateTime
	tagChar
	tagWChar
	tagString
	tagWString
	tagArray
	tagStruct
	tagEnum
	tagReference
	tagInstance
	tagNull
)

// writer accumulates a retain record's bytes. All multi-byte fields are
// little-endian, matching the byte order package bytecode and package
// ioimage already use throughout this codebase.
type writer struct{ buf bytes.Buffer }

func (w *writer) u8(v byte)      { w.buf.WriteByte(v) }
func (w *writer) u32(v uint32)   { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u64(v uint64)   { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *writer) i64(v int64)    { w.u64(uint64(v)) }
func (w *writer) bytesField(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}
func (w *writer) strField(s string) { w.bytesField([]byte(s)) }

// reader consumes a retain record's bytes, bounds-checking every read the
// way bytecode.window does for section payloads.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader { return &reader{data: data} }

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, errs.New(errs.KindRetainStore, "truncated retain record: expected 1 byte at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, errs.New(errs.KindRetainStore, "truncated retain record: expected 4 bytes at offset %d", r.pos)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, errs.New(errs.KindRetainStore, "truncated retain record: expected 8 bytes at offset %d", r.pos)
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *reader) bytesField() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if r.remaining() < int(n) {
		return nil, errs.New(errs.KindRetainStore, "truncated retain record: expected %d bytes at offset %d", n, r.pos)
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *reader) strField() (string, error) {
	b, err := r.bytesField()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeValue appends v's tagged encoding to w, recursing into Array/
// Struct elements per §6.5 ("arrays and structs are encoded recursively").
func encodeValue(w *writer, v values.Value) error {
	switch t := v.(type) {
	case values.Bool:
		w.u8(byte(tagBool))
		if t.V {
			w.u8(1)
		} else {
			w.u8(0)
		}
	case values.SInt:
		w.u8(byte(tagSInt))
		w.u8(byte(t.Width))
		w.i64(t.V)
	case values.UInt:
		w.u8(byte(tagUInt))
		w.u8(byte(t.Width))
		w.u64(t.V)
	case values.Float:
		w.u8(byte(tagFloat))
		w.u8(byte(t.Width))
		if t.Width == 32 {
			w.u32(math.Float32bits(float32(t.V)))
		} else {
			w.u64(math.Float64bits(t.V))
		}
	case values.BitString:
		w.u8(byte(tagBitString))
		w.u8(byte(t.Width))
		w.u64(t.V)
	case values.Duration:
		w.u8(byte(tagDuration))
		w.i64(int64(t.V))
	case values.Date:
		w.u8(byte(tagDate))
		w.u8(byte(t.Profile))
		w.i64(t.V.UnixNano())
	case values.TimeOfDay:
		w.u8(byte(tagTimeOfDay))
		w.u8(byte(t.Profile))
		w.i64(int64(t.V))
	case values.DateTime:
		w.u8(byte(tagDateTime))
		w.u8(byte(t.Profile))
		w.i64(t.V.UnixNano())
	case values.Char:
		w.u8(byte(tagChar))
		w.u8(t.V)
	case values.WChar:
		w.u8(byte(tagWChar))
		w.u32(uint32(t.V))
	case values.String:
		w.u8(byte(tagString))
		w.u32(uint32(t.Type))
		w.strField(t.V)
	case values.WString:
		w.u8(byte(tagWString))
		w.u32(uint32(t.Type))
		w.u32(uint32(len(t.V)))
		for _, r := range t.V {
			w.u32(uint32(r))
		}
	case values.Array:
		w.u8(byte(tagArray))
		w.u32(uint32(t.Type))
		w.u32(uint32(t.ElemType))
		w.u32(uint32(len(t.Dims)))
		for _, d := range t.Dims {
			w.i64(d.Lower)
			w.i64(d.Upper)
		}
		w.u32(uint32(len(t.Elements)))
		for _, elem := range t.Elements {
			if err := encodeValue(w, elem); err != nil {
				return err
			}
		}
	case values.Struct:
		w.u8(byte(tagStruct))
		w.u32(uint32(t.Type))
		w.strField(t.Name)
		w.u32(uint32(len(t.Fields)))
		for _, f := range t.Fields {
			w.strField(f.Name)
			if err := encodeValue(w, f.Value); err != nil {
				return err
			}
		}
	case values.Enum:
		w.u8(byte(tagEnum))
		w.u32(uint32(t.Type))
		w.strField(t.Name)
		w.strField(t.Variant)
		w.i64(t.Value)
	case values.Reference:
		w.u8(byte(tagReference))
		w.u32(uint32(t.PointeeType))
		if t.Target == nil {
			w.u8(0)
			break
		}
		w.u8(1)
		w.strField(t.Target.Location.Area)
		w.strField(t.Target.Location.Name)
		w.i64(t.Target.Offset)
		w.u32(uint32(len(t.Target.Path)))
		for _, seg := range t.Target.Path {
			if seg.IsIndex {
				w.u8(1)
				w.u32(uint32(len(seg.Index)))
				for _, idx := range seg.Index {
					w.i64(idx)
				}
			} else {
				w.u8(0)
				w.strField(seg.Field)
			}
		}
	case values.Instance:
		w.u8(byte(tagInstance))
		w.u32(uint32(t.Type))
		w.u32(uint32(t.ID))
	case values.Null:
		w.u8(byte(tagNull))
	default:
		return errs.New(errs.KindRetainStore, "value of kind %v has no retain encoding", v.Kind())
	}
	return nil
}

// decodeValue reads one tagged value from r, rejecting any byte that is
// not a recognized tag (§6.5: "unknown tags on load are rejected with
// RetainStore").
func decodeValue(r *reader) (values.Value, error) {
	b, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch tag(b) {
	case tagBool:
		v, err := r.u8()
		if err != nil {
			return nil, err
		}
		return values.Bool{V: v != 0}, nil
	case tagSInt:
		width, err := r.u8()
		if err != nil {
			return nil, err
		}
		v, err := r.i64()
		if err != nil {
			return nil, err
		}
		return values.SInt{Width: int(width), V: v}, nil
	case tagUInt:
		width, err := r.u8()
		if err != nil {
			return nil, err
		}
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		return values.UInt{Width: int(width), V: v}, nil
	case tagFloat:
		width, err := r.u8()
		if err != nil {
			return nil, err
		}
		if width == 32 {
			bits, err := r.u32()
			if err != nil {
				return nil, err
			}
			return values.Float{Width: 32, V: float64(math.Float32frombits(bits))}, nil
		}
		bits, err := r.u64()
		if err != nil {
			return nil, err
		}
		return values.Float{Width: int(width), V: math.Float64frombits(bits)}, nil
	case tagBitString:
		width, err := r.u8()
		if err != nil {
			return nil, err
		}
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		return values.BitString{Width: int(width), V: v}, nil
	case tagDuration:
		v, err := r.i64()
		if err != nil {
			return nil, err
		}
		return values.Duration{V: time.Duration(v)}, nil
	case tagDate:
		profile, err := r.u8()
		if err != nil {
			return nil, err
		}
		nanos, err := r.i64()
		if err != nil {
			return nil, err
		}
		return values.Date{Profile: values.DateProfile(profile), V: time.Unix(0, nanos).UTC()}, nil
	case tagTimeOfDay:
		profile, err := r.u8()
		if err != nil {
			return nil, err
		}
		v, err := r.i64()
		if err != nil {
			return nil, err
		}
		return values.TimeOfDay{Profile: values.DateProfile(profile), V: time.Duration(v)}, nil
	case tagDateTime:
		profile, err := r.u8()
		if err != nil {
			return nil, err
		}
		nanos, err := r.i64()
		if err != nil {
			return nil, err
		}
		return values.DateTime{Profile: values.DateProfile(profile), V: time.Unix(0, nanos).UTC()}, nil
	case tagChar:
		v, err := r.u8()
		if err != nil {
			return nil, err
		}
		return values.Char{V: v}, nil
	case tagWChar:
		v, err := r.u32()
		if err != nil {
			return nil, err
		}
		return values.WChar{V: rune(v)}, nil
	case tagString:
		typeID, err := r.u32()
		if err != nil {
			return nil, err
		}
		s, err := r.strField()
		if err != nil {
			return nil, err
		}
		return values.String{Type: types.ID(typeID), V: s}, nil
	case tagWString:
		typeID, err := r.u32()
		if err != nil {
			return nil, err
		}
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		runes := make([]rune, n)
		for i := range runes {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			runes[i] = rune(v)
		}
		return values.WString{Type: types.ID(typeID), V: runes}, nil
	case tagArray:
		return decodeArray(r)
	case tagStruct:
		return decodeStruct(r)
	case tagEnum:
		typeID, err := r.u32()
		if err != nil {
			return nil, err
		}
		name, err := r.strField()
		if err != nil {
			return nil, err
		}
		variant, err := r.strField()
		if err != nil {
			return nil, err
		}
		val, err := r.i64()
		if err != nil {
			return nil, err
		}
		return values.Enum{Type: types.ID(typeID), Name: name, Variant: variant, Value: val}, nil
	case tagReference:
		return decodeReference(r)
	case tagInstance:
		typeID, err := r.u32()
		if err != nil {
			return nil, err
		}
		id, err := r.u32()
		if err != nil {
			return nil, err
		}
		return values.Instance{Type: types.ID(typeID), ID: values.InstanceID(id)}, nil
	case tagNull:
		return values.Null{}, nil
	default:
		return nil, errs.New(errs.KindRetainStore, "unknown retain value tag %d", b)
	}
}

func decodeArray(r *reader) (values.Value, error) {
	typeID, err := r.u32()
	if err != nil {
		return nil, err
	}
	elemType, err := r.u32()
	if err != nil {
		return nil, err
	}
	dimCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	dims := make([]types.Dimension, dimCount)
	for i := range dims {
		lo, err := r.i64()
		if err != nil {
			return nil, err
		}
		hi, err := r.i64()
		if err != nil {
			return nil, err
		}
		dims[i] = types.Dimension{Lower: lo, Upper: hi}
	}
	elemCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	elems := make([]values.Value, elemCount)
	for i := range elems {
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return values.Array{Type: types.ID(typeID), ElemType: types.ID(elemType), Dims: dims, Elements: elems}, nil
}

func decodeStruct(r *reader) (values.Value, error) {
	typeID, err := r.u32()
	if err != nil {
		return nil, err
	}
	name, err := r.strField()
	if err != nil {
		return nil, err
	}
	fieldCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	fields := make([]values.StructField, fieldCount)
	for i := range fields {
		fname, err := r.strField()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		fields[i] = values.StructField{Name: fname, Value: v}
	}
	return values.Struct{Type: types.ID(typeID), Name: name, Fields: fields}, nil
}

func decodeReference(r *reader) (values.Value, error) {
	pointeeType, err := r.u32()
	if err != nil {
		return nil, err
	}
	hasTarget, err := r.u8()
	if err != nil {
		return nil, err
	}
	if hasTarget == 0 {
		return values.Reference{PointeeType: types.ID(pointeeType)}, nil
	}
	area, err := r.strField()
	if err != nil {
		return nil, err
	}
	name, err := r.strField()
	if err != nil {
		return nil, err
	}
	offset, err := r.i64()
	if err != nil {
		return nil, err
	}
	segCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	segs := make([]values.PathSegment, segCount)
	for i := range segs {
		isIndex, err := r.u8()
		if err != nil {
			return nil, err
		}
		if isIndex != 0 {
			n, err := r.u32()
			if err != nil {
				return nil, err
			}
			idx := make([]int64, n)
			for j := range idx {
				v, err := r.i64()
				if err != nil {
					return nil, err
				}
				idx[j] = v
			}
			segs[i] = values.PathSegment{IsIndex: true, Index: idx}
			continue
		}
		field, err := r.strField()
		if err != nil {
			return nil, err
		}
		segs[i] = values.PathSegment{Field: field}
	}
	return values.Reference{
		PointeeType: types.ID(pointeeType),
		Target: &values.RefTarget{
			Location: values.Location{Area: area, Name: name},
			Offset:   offset,
			Path:     segs,
		},
	}, nil
}
