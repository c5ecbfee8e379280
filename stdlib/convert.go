package stdlib

import (
	"math"
	"strconv"
	"strings"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

// elemTag names one elementary kind/width combination recognized in a
// conversion call name (e.g. the SINT in SINT_TO_REAL).
type elemTag struct {
	kind  string // "sint", "uint", "float", "bool", "string", "wstring"
	width int
}

var elemTags = map[string]elemTag{
	"BOOL":    {"bool", 1},
	"SINT":    {"sint", 8},
	"INT":     {"sint", 16},
	"DINT":    {"sint", 32},
	"LINT":    {"sint", 64},
	"USINT":   {"uint", 8},
	"UINT":    {"uint", 16},
	"UDINT":   {"uint", 32},
	"ULINT":   {"uint", 64},
	"REAL":    {"float", 32},
	"LREAL":   {"float", 64},
	"STRING":  {"string", 0},
	"WSTRING": {"wstring", 0},
}

func convertTo(tag elemTag, v values.Value) (values.Value, error) {
	switch tag.kind {
	case "bool":
		switch x := v.(type) {
		case values.Bool:
			return x, nil
		case values.SInt:
			return values.Bool{V: x.V != 0}, nil
		case values.UInt:
			return values.Bool{V: x.V != 0}, nil
		}
	case "sint":
		n, err := toInt64Lossy(v)
		if err != nil {
			return nil, err
		}
		return values.SInt{Width: tag.width, V: n}, nil
	case "uint":
		n, err := toInt64Lossy(v)
		if err != nil {
			return nil, err
		}
		return values.UInt{Width: tag.width, V: uint64(n) & bitMask(tag.width)}, nil
	case "float":
		f, err := toFloatLossy(v)
		if err != nil {
			return nil, err
		}
		return values.Float{Width: tag.width, V: f}, nil
	case "string":
		return values.String{V: v.String()}, nil
	case "wstring":
		return values.WString{V: []rune(v.String())}, nil
	}
	return nil, errs.New(errs.KindUnsupportedType, "unsupported conversion target")
}

func toInt64Lossy(v values.Value) (int64, error) {
	switch x := v.(type) {
	case values.SInt:
		return x.V, nil
	case values.UInt:
		return int64(x.V), nil
	case values.Bool:
		if x.V {
			return 1, nil
		}
		return 0, nil
	case values.Float:
		// round ties to even, per §4.H: narrowing a REAL to an integer
		// rounds ties-to-even unless the caller used a TRUNC_* variant.
		return int64(math.RoundToEven(x.V)), nil
	}
	return 0, errs.New(errs.KindTypeMismatch, "cannot convert %v to an integer", v.Kind())
}

func truncToInt64(v values.Value) (int64, error) {
	if f, ok := v.(values.Float); ok {
		return int64(math.Trunc(f.V)), nil
	}
	return toInt64Lossy(v)
}

func toFloatLossy(v values.Value) (float64, error) {
	switch x := v.(type) {
	case values.Float:
		return x.V, nil
	case values.SInt:
		return float64(x.V), nil
	case values.UInt:
		return float64(x.V), nil
	}
	return 0, errs.New(errs.KindTypeMismatch, "cannot convert %v to a floating-point value", v.Kind())
}

// resolveConversion parses a call name lowering left unresolved into the
// static Registry map (TO_X, SRC_TO_DST, TRUNC variants, BCD variants) and
// returns the matching conversion function, if the name fits one of the
// recognized shapes.
func resolveConversion(name string) (Func, bool) {
	switch {
	case strings.HasPrefix(name, "TO_BCD_"):
		width := bcdWidth(strings.TrimPrefix(name, "TO_BCD_"))
		if width == 0 {
			return nil, false
		}
		return func(args []eval.Argument) (values.Value, error) {
			if err := requireArgs(args, 1, name); err != nil {
				return nil, err
			}
			n, err := toInt64Lossy(args[0].Value)
			if err != nil {
				return nil, err
			}
			return values.UInt{Width: width, V: toBCD(uint64(n))}, nil
		}, true
	case strings.HasPrefix(name, "TO_"):
		dstTag, ok := elemTags[strings.TrimPrefix(name, "TO_")]
		if !ok {
			return nil, false
		}
		return func(args []eval.Argument) (values.Value, error) {
			if err := requireArgs(args, 1, name); err != nil {
				return nil, err
			}
			return convertTo(dstTag, args[0].Value)
		}, true
	case strings.HasPrefix(name, "BCD_TO_"):
		tag, ok := elemTags[strings.TrimPrefix(name, "BCD_TO_")]
		if !ok {
			return nil, false
		}
		return func(args []eval.Argument) (values.Value, error) {
			if err := requireArgs(args, 1, name); err != nil {
				return nil, err
			}
			n, err := toInt64Lossy(args[0].Value)
			if err != nil {
				return nil, err
			}
			v, err := fromBCD(uint64(n))
			if err != nil {
				return nil, err
			}
			return convertTo(tag, values.SInt{Width: 64, V: int64(v)})
		}, true
	case name == "TRUNC":
		return func(args []eval.Argument) (values.Value, error) {
			if err := requireArgs(args, 1, name); err != nil {
				return nil, err
			}
			n, err := truncToInt64(args[0].Value)
			if err != nil {
				return nil, err
			}
			return values.SInt{Width: 32, V: n}, nil
		}, true
	case strings.HasPrefix(name, "TRUNC_"):
		rest := strings.TrimPrefix(name, "TRUNC_")
		if idx := strings.Index(rest, "_TRUNC_"); idx >= 0 {
			// SRC_TRUNC_DST form: truncate then narrow/widen to DST.
			dstTag, ok := elemTags[rest[idx+len("_TRUNC_"):]]
			if !ok {
				return nil, false
			}
			return func(args []eval.Argument) (values.Value, error) {
				if err := requireArgs(args, 1, name); err != nil {
					return nil, err
				}
				n, err := truncToInt64(args[0].Value)
				if err != nil {
					return nil, err
				}
				return convertTo(dstTag, values.SInt{Width: 64, V: n})
			}, true
		}
		dstTag, ok := elemTags[rest]
		if !ok {
			return nil, false
		}
		return func(args []eval.Argument) (values.Value, error) {
			if err := requireArgs(args, 1, name); err != nil {
				return nil, err
			}
			n, err := truncToInt64(args[0].Value)
			if err != nil {
				return nil, err
			}
			return convertTo(dstTag, values.SInt{Width: 64, V: n})
		}, true
	default:
		if idx := strings.Index(name, "_TO_"); idx >= 0 {
			dstTag, ok := elemTags[name[idx+len("_TO_"):]]
			if !ok {
				return nil, false
			}
			return func(args []eval.Argument) (values.Value, error) {
				if err := requireArgs(args, 1, name); err != nil {
					return nil, err
				}
				return convertTo(dstTag, args[0].Value)
			}, true
		}
	}
	return nil, false
}

func bcdWidth(suffix string) int {
	switch suffix {
	case "USINT":
		return 8
	case "UINT":
		return 16
	case "UDINT":
		return 32
	case "ULINT":
		return 64
	}
	return 0
}

// toBCD packs n's base-10 digits four bits at a time, least-significant
// digit first, matching the standard TO_BCD_* encoding.
func toBCD(n uint64) uint64 {
	s := strconv.FormatUint(n, 10)
	var out uint64
	for i, c := range s {
		digit := uint64(c - '0')
		out |= digit << uint(4*(len(s)-1-i))
	}
	return out
}

// fromBCD unpacks a BCD-encoded value; a non-BCD nibble (>9) is rejected
// per §4.H ("BCD conversion rejects non-BCD input").
func fromBCD(bcd uint64) (uint64, error) {
	var out uint64
	mul := uint64(1)
	for bcd > 0 {
		nibble := bcd & 0xF
		if nibble > 9 {
			return 0, errs.New(errs.KindTypeMismatch, "value is not valid BCD")
		}
		out += nibble * mul
		mul *= 10
		bcd >>= 4
	}
	return out, nil
}
