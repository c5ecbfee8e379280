package stdlib

import (
	"math"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func fnAbs(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "ABS"); err != nil {
		return nil, err
	}
	switch v := args[0].Value.(type) {
	case values.SInt:
		r := v.V
		if r < 0 {
			r = -r
		}
		return values.SInt{Width: v.Width, V: r}, nil
	case values.Float:
		return values.Float{Width: v.Width, V: math.Abs(v.V)}, nil
	case values.UInt:
		return v, nil
	}
	return nil, errs.New(errs.KindTypeMismatch, "ABS requires a numeric argument, got %v", args[0].Value.Kind())
}

func unaryFloatFn(name string, f func(float64) float64) func([]eval.Argument) (values.Value, error) {
	return func(args []eval.Argument) (values.Value, error) {
		if err := requireArgs(args, 1, name); err != nil {
			return nil, err
		}
		x, err := toFloat64(args[0].Value)
		if err != nil {
			return nil, err
		}
		width := 64
		if f32, ok := args[0].Value.(values.Float); ok {
			width = f32.Width
		}
		return values.Float{Width: width, V: f(x)}, nil
	}
}

func fnAtan2(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "ATAN2"); err != nil {
		return nil, err
	}
	y, err := toFloat64(args[0].Value)
	if err != nil {
		return nil, err
	}
	x, err := toFloat64(args[1].Value)
	if err != nil {
		return nil, err
	}
	return values.Float{Width: 64, V: math.Atan2(y, x)}, nil
}

func variadicNumeric(name string, foldFloat func(a, b float64) float64, foldSigned func(a, b int64) (int64, error)) func([]eval.Argument) (values.Value, error) {
	return func(args []eval.Argument) (values.Value, error) {
		if err := requireMinArgs(args, 2, name); err != nil {
			return nil, err
		}
		vs := orderedValues(args)
		if anyFloat(vs) {
			width := widestFloatWidth(vs)
			acc, err := toFloat64(vs[0])
			if err != nil {
				return nil, err
			}
			for _, v := range vs[1:] {
				f, err := toFloat64(v)
				if err != nil {
					return nil, err
				}
				acc = foldFloat(acc, f)
			}
			return values.Float{Width: width, V: acc}, nil
		}
		width := widestSIntWidth(vs)
		acc, err := toInt64(vs[0])
		if err != nil {
			return nil, err
		}
		for _, v := range vs[1:] {
			n, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			acc, err = foldSigned(acc, n)
			if err != nil {
				return nil, err
			}
		}
		if overflowsSigned(acc, width) {
			return nil, errs.New(errs.KindOverflow, "%s result overflows width %d", name, width)
		}
		return values.SInt{Width: width, V: acc}, nil
	}
}

func fnMod(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "MOD"); err != nil {
		return nil, err
	}
	a, err := toInt64(args[0].Value)
	if err != nil {
		return nil, err
	}
	b, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, errs.New(errs.KindModuloByZero, "MOD by zero")
	}
	width := widestSIntWidth(orderedValues(args))
	return values.SInt{Width: width, V: a % b}, nil
}

func fnExpt(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "EXPT"); err != nil {
		return nil, err
	}
	base, err := toFloat64(args[0].Value)
	if err != nil {
		return nil, err
	}
	exp, err := toFloat64(args[1].Value)
	if err != nil {
		return nil, err
	}
	return values.Float{Width: 64, V: math.Pow(base, exp)}, nil
}

func fnMove(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "MOVE"); err != nil {
		return nil, err
	}
	return args[0].Value, nil
}

func registerNumeric(r *Registry) {
	r.register("ABS", fnAbs)
	r.register("SQRT", unaryFloatFn("SQRT", math.Sqrt))
	r.register("LN", unaryFloatFn("LN", math.Log))
	r.register("LOG", unaryFloatFn("LOG", math.Log10))
	r.register("EXP", unaryFloatFn("EXP", math.Exp))
	r.register("SIN", unaryFloatFn("SIN", math.Sin))
	r.register("COS", unaryFloatFn("COS", math.Cos))
	r.register("TAN", unaryFloatFn("TAN", math.Tan))
	r.register("ASIN", unaryFloatFn("ASIN", math.Asin))
	r.register("ACOS", unaryFloatFn("ACOS", math.Acos))
	r.register("ATAN", unaryFloatFn("ATAN", math.Atan))
	r.register("ATAN2", fnAtan2)
	r.register("ADD", variadicNumeric("ADD",
		func(a, b float64) float64 { return a + b },
		func(a, b int64) (int64, error) { return a + b, nil }))
	r.register("SUB", variadicNumeric("SUB",
		func(a, b float64) float64 { return a - b },
		func(a, b int64) (int64, error) { return a - b, nil }))
	r.register("MUL", variadicNumeric("MUL",
		func(a, b float64) float64 { return a * b },
		func(a, b int64) (int64, error) { return a * b, nil }))
	r.register("DIV", variadicNumeric("DIV",
		func(a, b float64) float64 { return a / b },
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errs.New(errs.KindDivisionByZero, "DIV by zero")
			}
			return a / b, nil
		}))
	r.register("MOD", fnMod)
	r.register("EXPT", fnExpt)
	r.register("MOVE", fnMove)
}
