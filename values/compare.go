package values

import (
	"slices"
	"strings"

	"github.com/stplatform/stcore/errs"
)

// Compare orders two values of compatible kinds per §4.F: strings compare
// lexicographically by code unit, bools order false < true, durations
// compare as nanoseconds, date/time compare as ticks within a shared
// profile, enums order by numeric value (equality also requires the same
// type name — see Equal). It returns -1, 0 or 1, or an error if the kinds
// cannot be ordered against each other.
func Compare(a, b Value) (int, error) {
	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		if !ok {
			return 0, mismatch(a, b)
		}
		return boolCmp(av.V, bv.V), nil
	case SInt:
		x, err := asInt64(b)
		if err != nil {
			return 0, err
		}
		return int64Cmp(av.V, x), nil
	case UInt:
		switch bv := b.(type) {
		case UInt:
			return uint64Cmp(av.V, bv.V), nil
		case SInt:
			return int64Cmp(int64(av.V), bv.V), nil
		}
		return 0, mismatch(a, b)
	case Float:
		x, err := asFloat64(b)
		if err != nil {
			return 0, err
		}
		return floatCmp(av.V, x), nil
	case BitString:
		bv, ok := b.(BitString)
		if !ok {
			return 0, mismatch(a, b)
		}
		return uint64Cmp(av.V, bv.V), nil
	case Duration:
		bv, ok := b.(Duration)
		if !ok {
			return 0, mismatch(a, b)
		}
		return int64Cmp(int64(av.V), int64(bv.V)), nil
	case Date:
		bv, ok := b.(Date)
		if !ok || bv.Profile != av.Profile {
			return 0, mismatch(a, b)
		}
		return int64Cmp(av.V.UnixNano(), bv.V.UnixNano()), nil
	case TimeOfDay:
		bv, ok := b.(TimeOfDay)
		if !ok || bv.Profile != av.Profile {
			return 0, mismatch(a, b)
		}
		return int64Cmp(int64(av.V), int64(bv.V)), nil
	case DateTime:
		bv, ok := b.(DateTime)
		if !ok || bv.Profile != av.Profile {
			return 0, mismatch(a, b)
		}
		return int64Cmp(av.V.UnixNano(), bv.V.UnixNano()), nil
	case Char:
		bv, ok := b.(Char)
		if !ok {
			return 0, mismatch(a, b)
		}
		return int(av.V) - int(bv.V), nil
	case WChar:
		bv, ok := b.(WChar)
		if !ok {
			return 0, mismatch(a, b)
		}
		return int(av.V) - int(bv.V), nil
	case String:
		bv, ok := b.(String)
		if !ok {
			return 0, mismatch(a, b)
		}
		return strings.Compare(av.V, bv.V), nil
	case WString:
		bv, ok := b.(WString)
		if !ok {
			return 0, mismatch(a, b)
		}
		return strings.Compare(string(av.V), string(bv.V)), nil
	case Enum:
		bv, ok := b.(Enum)
		if !ok {
			return 0, mismatch(a, b)
		}
		return int64Cmp(av.Value, bv.Value), nil
	default:
		return 0, errs.New(errs.KindTypeMismatch, "values of kind %v are not orderable", a.Kind())
	}
}

// Equal reports value equality. Enum equality additionally requires the
// same declared type name, per §4.F: "Enum equality compares type-name and
// variant." Cross-type enum comparisons are a lowering error (open question
// 1 in spec §9), so Equal never attempts to compare two differently-typed
// enums — callers must reject that earlier.
func Equal(a, b Value) (bool, error) {
	if ea, ok := a.(Enum); ok {
		eb, ok := b.(Enum)
		if !ok {
			return false, mismatch(a, b)
		}
		return ea.Name == eb.Name && ea.Variant == eb.Variant, nil
	}
	if _, ok := a.(Null); ok {
		_, ok := b.(Null)
		return ok, nil
	}
	if ra, ok := a.(Reference); ok {
		rb, ok := b.(Reference)
		if !ok {
			return false, mismatch(a, b)
		}
		if ra.IsNull() || rb.IsNull() {
			return ra.IsNull() == rb.IsNull(), nil
		}
		ta, tb := ra.Target, rb.Target
		if ta.Location != tb.Location || ta.Offset != tb.Offset || len(ta.Path) != len(tb.Path) {
			return false, nil
		}
		for i := range ta.Path {
			pa, pb := ta.Path[i], tb.Path[i]
			if pa.IsIndex != pb.IsIndex || pa.Field != pb.Field || !slices.Equal(pa.Index, pb.Index) {
				return false, nil
			}
		}
		return true, nil
	}
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func mismatch(a, b Value) error {
	return errs.New(errs.KindTypeMismatch, "cannot compare %v and %v", a.Kind(), b.Kind())
}

func boolCmp(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Cmp(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func uint64Cmp(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func asInt64(v Value) (int64, error) {
	switch x := v.(type) {
	case SInt:
		return x.V, nil
	default:
		return 0, errs.New(errs.KindTypeMismatch, "expected a signed integer, got %v", v.Kind())
	}
}

func asFloat64(v Value) (float64, error) {
	switch x := v.(type) {
	case Float:
		return x.V, nil
	case SInt:
		return float64(x.V), nil
	case UInt:
		return float64(x.V), nil
	default:
		return 0, errs.New(errs.KindTypeMismatch, "expected a number, got %v", v.Kind())
	}
}
