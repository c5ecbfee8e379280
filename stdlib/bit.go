package stdlib

import (
	"math"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func bitMask(width int) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << uint(width)) - 1
}

func asBitString(v values.Value) (values.BitString, error) {
	bs, ok := v.(values.BitString)
	if !ok {
		return values.BitString{}, errs.New(errs.KindTypeMismatch, "expected a bit-string value, got %v", v.Kind())
	}
	return bs, nil
}

func shiftFn(name string, apply func(v, n, width uint64) uint64) func([]eval.Argument) (values.Value, error) {
	return func(args []eval.Argument) (values.Value, error) {
		if err := requireArgs(args, 2, name); err != nil {
			return nil, err
		}
		bs, err := asBitString(args[0].Value)
		if err != nil {
			return nil, err
		}
		n, err := toInt64(args[1].Value)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errs.New(errs.KindTypeMismatch, "%s count must be non-negative", name)
		}
		mask := bitMask(bs.Width)
		return values.BitString{Width: bs.Width, V: apply(bs.V&mask, uint64(n), uint64(bs.Width)) & mask}, nil
	}
}

func fnShl(v, n, width uint64) uint64 {
	if n >= width {
		return 0
	}
	return v << n
}

func fnShr(v, n, width uint64) uint64 {
	if n >= width {
		return 0
	}
	return v >> n
}

func fnRol(v, n, width uint64) uint64 {
	n %= width
	return (v << n) | (v >> (width - n))
}

func fnRor(v, n, width uint64) uint64 {
	n %= width
	return (v >> n) | (v << (width - n))
}

func variadicBit(name string, fold func(a, b uint64) uint64) func([]eval.Argument) (values.Value, error) {
	return func(args []eval.Argument) (values.Value, error) {
		if err := requireMinArgs(args, 2, name); err != nil {
			return nil, err
		}
		first, err := asBitString(args[0].Value)
		if err != nil {
			return nil, err
		}
		width := first.Width
		acc := first.V & bitMask(width)
		for _, a := range args[1:] {
			bs, err := asBitString(a.Value)
			if err != nil {
				return nil, err
			}
			if bs.Width > width {
				width = bs.Width
			}
			acc = fold(acc, bs.V&bitMask(bs.Width))
		}
		return values.BitString{Width: width, V: acc & bitMask(width)}, nil
	}
}

func fnBitNot(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "NOT"); err != nil {
		return nil, err
	}
	bs, err := asBitString(args[0].Value)
	if err != nil {
		return nil, err
	}
	mask := bitMask(bs.Width)
	return values.BitString{Width: bs.Width, V: (^bs.V) & mask}, nil
}

func registerBit(r *Registry) {
	r.register("SHL", shiftFn("SHL", fnShl))
	r.register("SHR", shiftFn("SHR", fnShr))
	r.register("ROL", shiftFn("ROL", fnRol))
	r.register("ROR", shiftFn("ROR", fnRor))
	r.register("AND", variadicBit("AND", func(a, b uint64) uint64 { return a & b }))
	r.register("OR", variadicBit("OR", func(a, b uint64) uint64 { return a | b }))
	r.register("XOR", variadicBit("XOR", func(a, b uint64) uint64 { return a ^ b }))
	r.register("NOT", fnBitNot)
}
