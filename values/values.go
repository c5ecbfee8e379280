// Package values implements the tagged Value model of spec §3.1. A Value is
// represented as a Go interface with one concrete type per variant, the way
// an AST or IR layer usually models a sum type in idiomatic Go, rather than
// as one giant struct with a kind tag and a pile of unused fields.
package values

import (
	"fmt"
	"time"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/types"
)

// Kind discriminates the Value variants.
type Kind int

const (
	KindBool Kind = iota
	KindSInt
	KindUInt
	KindFloat
	KindBitString
	KindDuration
	KindDate
	KindTimeOfDay
	KindDateTime
	KindChar
	KindWChar
	KindString
	KindWString
	KindArray
	KindStruct
	KindEnum
	KindReference
	KindInstance
	KindNull
)

// Value is the sum type. Every concrete variant below implements it.
type Value interface {
	Kind() Kind
	TypeID() types.ID
	String() string
}

// Bool.
type Bool struct{ V bool }

func (Bool) Kind() Kind            { return KindBool }
func (Bool) TypeID() types.ID      { return types.IDBool }
func (b Bool) String() string      { return fmt.Sprintf("%t", b.V) }

// SInt is a signed integer of a declared bit width (8/16/32/64), stored
// widened into an int64.
type SInt struct {
	Width int // 8, 16, 32, 64
	V     int64
}

func (s SInt) Kind() Kind { return KindSInt }
func (s SInt) TypeID() types.ID {
	switch s.Width {
	case 8:
		return types.IDSInt8
	case 16:
		return types.IDSInt16
	case 32:
		return types.IDSInt32
	default:
		return types.IDSInt64
	}
}
func (s SInt) String() string { return fmt.Sprintf("%d", s.V) }

// UInt is an unsigned integer of a declared bit width, stored widened into
// a uint64.
type UInt struct {
	Width int
	V     uint64
}

func (u UInt) Kind() Kind { return KindUInt }
func (u UInt) TypeID() types.ID {
	switch u.Width {
	case 8:
		return types.IDUInt8
	case 16:
		return types.IDUInt16
	case 32:
		return types.IDUInt32
	default:
		return types.IDUInt64
	}
}
func (u UInt) String() string { return fmt.Sprintf("%d", u.V) }

// Float is a 32 or 64-bit float.
type Float struct {
	Width int // 32, 64
	V     float64
}

func (f Float) Kind() Kind { return KindFloat }
func (f Float) TypeID() types.ID {
	if f.Width == 32 {
		return types.IDFloat32
	}
	return types.IDFloat64
}
func (f Float) String() string { return fmt.Sprintf("%g", f.V) }

// BitString is a bit pattern of a declared width, distinct from unsigned
// integers: conversions to/from integers must be explicit (§3.1).
type BitString struct {
	Width int
	V     uint64
}

func (b BitString) Kind() Kind { return KindBitString }
func (b BitString) TypeID() types.ID {
	switch b.Width {
	case 8:
		return types.IDBitString8
	case 16:
		return types.IDBitString16
	case 32:
		return types.IDBitString32
	default:
		return types.IDBitString64
	}
}
func (b BitString) String() string { return fmt.Sprintf("16#%X", b.V) }

// Duration carries nanosecond precision.
type Duration struct{ V time.Duration }

func (Duration) Kind() Kind       { return KindDuration }
func (Duration) TypeID() types.ID { return types.IDDuration }
func (d Duration) String() string { return d.V.String() }

// DateProfile selects between the 32-bit "ticks at profile resolution" and
// 64-bit nanosecond date/time variants (§3.1).
type DateProfile int

const (
	ProfileTicks32 DateProfile = iota
	ProfileNanos64
)

// Date, TimeOfDay and DateTime all store an absolute instant; Profile picks
// which width/resolution the declared type used, which matters for
// comparison (date/time compare as ticks within a shared profile, §4.F) and
// for round-tripping through bytecode/retain encodings.
type Date struct {
	Profile DateProfile
	V       time.Time
}

func (Date) Kind() Kind       { return KindDate }
func (d Date) TypeID() types.ID {
	if d.Profile == ProfileNanos64 {
		return types.IDDate64
	}
	return types.IDDate
}
func (d Date) String() string { return d.V.Format("2006-01-02") }

type TimeOfDay struct {
	Profile DateProfile
	V       time.Duration // offset since midnight
}

func (TimeOfDay) Kind() Kind { return KindTimeOfDay }
func (t TimeOfDay) TypeID() types.ID {
	if t.Profile == ProfileNanos64 {
		return types.IDTimeOfDay64
	}
	return types.IDTimeOfDay
}
func (t TimeOfDay) String() string { return t.V.String() }

type DateTime struct {
	Profile DateProfile
	V       time.Time
}

func (DateTime) Kind() Kind { return KindDateTime }
func (d DateTime) TypeID() types.ID {
	if d.Profile == ProfileNanos64 {
		return types.IDDateTime64
	}
	return types.IDDateTime
}
func (d DateTime) String() string { return d.V.Format(time.RFC3339) }

// Char and WChar are single code units/points.
type Char struct{ V byte }

func (Char) Kind() Kind       { return KindChar }
func (Char) TypeID() types.ID { return types.IDChar }
func (c Char) String() string { return string(rune(c.V)) }

type WChar struct{ V rune }

func (WChar) Kind() Kind       { return KindWChar }
func (WChar) TypeID() types.ID { return types.IDWChar }
func (w WChar) String() string { return string(w.V) }

// String is 8-bit-encoded narrow text.
type String struct {
	Type types.ID
	V    string
}

func (s String) Kind() Kind       { return KindString }
func (s String) TypeID() types.ID { return s.Type }
func (s String) String() string   { return s.V }

// WString is a wide (code-point sequence) string.
type WString struct {
	Type types.ID
	V    []rune
}

func (w WString) Kind() Kind       { return KindWString }
func (w WString) TypeID() types.ID { return w.Type }
func (w WString) String() string   { return string(w.V) }

// Array is a flat element vector plus an N-dimensional bounds list.
type Array struct {
	Type     types.ID
	ElemType types.ID
	Dims     []types.Dimension
	Elements []Value
}

func (a Array) Kind() Kind       { return KindArray }
func (a Array) TypeID() types.ID { return a.Type }
func (a Array) String() string   { return fmt.Sprintf("ARRAY[%d elems]", len(a.Elements)) }

// Offset converts an N-dimensional index into a flat element offset,
// validating each axis against its declared bound.
func (a Array) Offset(index []int64) (int, error) {
	if len(index) != len(a.Dims) {
		return 0, errs.New(errs.KindTypeMismatch, "array has rank %d, got %d indices", len(a.Dims), len(index))
	}
	offset := 0
	stride := 1
	for i := len(a.Dims) - 1; i >= 0; i-- {
		d := a.Dims[i]
		idx := index[i]
		if idx < d.Lower || idx > d.Upper {
			return 0, errs.NewIndexOutOfBounds(idx, d.Lower, d.Upper)
		}
		offset += int(idx-d.Lower) * stride
		stride *= int(d.Len())
	}
	return offset, nil
}

// StructField is one insertion-order-significant field of a Struct value.
type StructField struct {
	Name  string
	Value Value
}

// Struct carries a type name and an ordered field map; order matches the
// declared type's field order (§3.1 invariant).
type Struct struct {
	Type   types.ID
	Name   string
	Fields []StructField
}

func (s Struct) Kind() Kind       { return KindStruct }
func (s Struct) TypeID() types.ID { return s.Type }
func (s Struct) String() string   { return s.Name }

func (s Struct) Field(name string) (Value, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// WithField returns a copy of s with name's value replaced, used by the
// memory subsystem's copy-on-write path writes (§4.G).
func (s Struct) WithField(name string, v Value) (Struct, error) {
	out := Struct{Type: s.Type, Name: s.Name, Fields: append([]StructField(nil), s.Fields...)}
	for i := range out.Fields {
		if out.Fields[i].Name == name {
			out.Fields[i].Value = v
			return out, nil
		}
	}
	return Struct{}, errs.New(errs.KindUndefinedName, "struct %q has no field %q", s.Name, name)
}

// Enum carries a type name, a variant name and the variant's numeric value.
type Enum struct {
	Type    types.ID
	Name    string
	Variant string
	Value   int64
}

func (e Enum) Kind() Kind       { return KindEnum }
func (e Enum) TypeID() types.ID { return e.Type }
func (e Enum) String() string   { return e.Name + "#" + e.Variant }

// PathSegment is one step of a Reference's path: either an N-dimensional
// array index or a struct field selector.
type PathSegment struct {
	IsIndex bool
	Index   []int64
	Field   string
}

func IndexSeg(idx ...int64) PathSegment   { return PathSegment{IsIndex: true, Index: idx} }
func FieldSeg(name string) PathSegment    { return PathSegment{Field: name} }

// Location identifies which memory area a Reference's base cell lives in.
// The concrete resolution happens in package memory; values only need to
// carry the tag and a name/offset pair through the evaluator.
type Location struct {
	Area string // "global", "local:<frameID>", "instance:<id>", "retain", "io"
	Name string
}

// Reference optionally points at a location+offset+path triple (§3.1, §4.G).
// A Reference with Target == nil represents the null reference value.
type Reference struct {
	PointeeType types.ID
	Target      *RefTarget
}

type RefTarget struct {
	Location Location
	Offset   int64
	Path     []PathSegment
}

func (r Reference) Kind() Kind { return KindReference }
func (r Reference) TypeID() types.ID {
	return r.PointeeType
}
func (r Reference) String() string {
	if r.Target == nil {
		return "NULL"
	}
	return fmt.Sprintf("REF(%s.%s)", r.Target.Location.Area, r.Target.Location.Name)
}

func (r Reference) IsNull() bool { return r.Target == nil }

// InstanceID is an opaque, non-recycling arena id.
type InstanceID uint32

// Instance is an opaque handle to a function-block/class instance living in
// the memory subsystem's arena.
type Instance struct {
	Type types.ID
	ID   InstanceID
}

func (i Instance) Kind() Kind       { return KindInstance }
func (i Instance) TypeID() types.ID { return i.Type }
func (i Instance) String() string   { return fmt.Sprintf("Instance(#%d)", i.ID) }

// Null is the untyped null value, assignable to any reference/pointer.
type Null struct{}

func (Null) Kind() Kind       { return KindNull }
func (Null) TypeID() types.ID { return types.IDNull }
func (Null) String() string   { return "NULL" }
