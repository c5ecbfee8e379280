package values

import (
	"time"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/types"
)

// DefaultForType returns the zero value for a registered type, satisfying
// the round-trip property of spec §8: IsAssignable(t, TypeOf(v)) holds for
// every registered t.
func DefaultForType(reg *types.Registry, id types.ID) (Value, error) {
	t, ok := reg.Get(id)
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "unknown type id %d", id)
	}
	switch t.Kind {
	case types.KindElementary:
		return defaultElementary(t.Elementary)
	case types.KindString:
		return String{Type: id}, nil
	case types.KindWString:
		return WString{Type: id}, nil
	case types.KindArray:
		total := 1
		for _, d := range t.Dims {
			total *= int(d.Len())
		}
		elems := make([]Value, total)
		ev, err := DefaultForType(reg, t.ElemType)
		if err != nil {
			return nil, err
		}
		for i := range elems {
			elems[i] = ev
		}
		return Array{Type: id, ElemType: t.ElemType, Dims: t.Dims, Elements: elems}, nil
	case types.KindStruct:
		fields := make([]StructField, len(t.Fields))
		for i, f := range t.Fields {
			fv, err := DefaultForType(reg, f.Type)
			if err != nil {
				return nil, err
			}
			fields[i] = StructField{Name: f.Name, Value: fv}
		}
		return Struct{Type: id, Name: t.Name, Fields: fields}, nil
	case types.KindUnion:
		if len(t.Fields) == 0 {
			return nil, errs.New(errs.KindUnsupportedType, "union %q has no variants", t.Name)
		}
		fv, err := DefaultForType(reg, t.Fields[0].Type)
		if err != nil {
			return nil, err
		}
		return Struct{Type: id, Name: t.Name, Fields: []StructField{{Name: t.Fields[0].Name, Value: fv}}}, nil
	case types.KindEnum:
		if len(t.EnumVariants) == 0 {
			return nil, errs.New(errs.KindUnsupportedType, "enum %q has no variants", t.Name)
		}
		return Enum{Type: id, Name: t.Name, Variant: t.EnumVariants[0].Name, Value: t.EnumVariants[0].Value}, nil
	case types.KindSubrange:
		return defaultElementary(t.Subrange.Base)
	case types.KindAlias:
		return DefaultForType(reg, t.AliasTarget)
	case types.KindReference, types.KindPointer:
		return Reference{PointeeType: t.PointeeType}, nil
	default:
		return nil, errs.New(errs.KindUnsupportedType, "no default value for type kind of %q", t.Name)
	}
}

func defaultElementary(id types.ID) (Value, error) {
	switch id {
	case types.IDBool:
		return Bool{}, nil
	case types.IDSInt8:
		return SInt{Width: 8}, nil
	case types.IDSInt16:
		return SInt{Width: 16}, nil
	case types.IDSInt32:
		return SInt{Width: 32}, nil
	case types.IDSInt64:
		return SInt{Width: 64}, nil
	case types.IDUInt8:
		return UInt{Width: 8}, nil
	case types.IDUInt16:
		return UInt{Width: 16}, nil
	case types.IDUInt32:
		return UInt{Width: 32}, nil
	case types.IDUInt64:
		return UInt{Width: 64}, nil
	case types.IDFloat32:
		return Float{Width: 32}, nil
	case types.IDFloat64:
		return Float{Width: 64}, nil
	case types.IDBitString8:
		return BitString{Width: 8}, nil
	case types.IDBitString16:
		return BitString{Width: 16}, nil
	case types.IDBitString32:
		return BitString{Width: 32}, nil
	case types.IDBitString64:
		return BitString{Width: 64}, nil
	case types.IDDuration:
		return Duration{}, nil
	case types.IDDate:
		return Date{Profile: ProfileTicks32, V: time.Unix(0, 0).UTC()}, nil
	case types.IDDate64:
		return Date{Profile: ProfileNanos64, V: time.Unix(0, 0).UTC()}, nil
	case types.IDTimeOfDay:
		return TimeOfDay{Profile: ProfileTicks32}, nil
	case types.IDTimeOfDay64:
		return TimeOfDay{Profile: ProfileNanos64}, nil
	case types.IDDateTime:
		return DateTime{Profile: ProfileTicks32, V: time.Unix(0, 0).UTC()}, nil
	case types.IDDateTime64:
		return DateTime{Profile: ProfileNanos64, V: time.Unix(0, 0).UTC()}, nil
	case types.IDChar:
		return Char{}, nil
	case types.IDWChar:
		return WChar{}, nil
	case types.IDNull:
		return Null{}, nil
	default:
		return nil, errs.New(errs.KindUnsupportedType, "no default value for elementary type id %d", id)
	}
}
