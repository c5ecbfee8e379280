// Package stdlib implements the standard library of spec §4.H: the
// conversion/numeric/bit/selection/comparison/string/time/assertion
// function families and the standard function blocks (RS/SR/R_TRIG/
// F_TRIG/CTU/CTD/CTUD/TP/TON/TOF). Functions are registered by name in a
// Registry the runtime package dispatches eval.Env.Call into; function
// blocks are plain Go types with an explicit Step method operating on a
// field map, since their instance state lives in the memory arena rather
// than inside the stdlib package itself.
package stdlib

import (
	"math"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

// orderedValues returns each argument's value in call order, ignoring
// names — variadic entries (ADD, MIN, GT, ...) are evaluated strictly
// left to right regardless of whether the caller named them IN1/IN2/...
// or passed them positionally.
func orderedValues(args []eval.Argument) []values.Value {
	out := make([]values.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

func requireArgs(args []eval.Argument, n int, name string) error {
	if len(args) != n {
		return errs.New(errs.KindInvalidArgumentCount, "%s expects %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func requireMinArgs(args []eval.Argument, n int, name string) error {
	if len(args) < n {
		return errs.New(errs.KindInvalidArgumentCount, "%s expects at least %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func toFloat64(v values.Value) (float64, error) {
	switch x := v.(type) {
	case values.Float:
		return x.V, nil
	case values.SInt:
		return float64(x.V), nil
	case values.UInt:
		return float64(x.V), nil
	}
	return 0, errs.New(errs.KindTypeMismatch, "expected a numeric value, got %v", v.Kind())
}

func toInt64(v values.Value) (int64, error) {
	switch x := v.(type) {
	case values.SInt:
		return x.V, nil
	case values.UInt:
		return int64(x.V), nil
	}
	return 0, errs.New(errs.KindTypeMismatch, "expected an integer value, got %v", v.Kind())
}

// widestFloatWidth and widestSIntWidth pick the result width for a
// variadic numeric family: the
// widest operand width wins, matching eval/ops.go's binary coercion rule.
func widestFloatWidth(vs []values.Value) int {
	width := 32
	for _, v := range vs {
		if f, ok := v.(values.Float); ok && f.Width > width {
			width = f.Width
		}
	}
	return width
}

func widestSIntWidth(vs []values.Value) int {
	width := 8
	for _, v := range vs {
		if s, ok := v.(values.SInt); ok && s.Width > width {
			width = s.Width
		}
	}
	return width
}

func anyFloat(vs []values.Value) bool {
	for _, v := range vs {
		if _, ok := v.(values.Float); ok {
			return true
		}
	}
	return false
}

func signedBounds(width int) (int64, int64) {
	switch width {
	case 8:
		return math.MinInt8, math.MaxInt8
	case 16:
		return math.MinInt16, math.MaxInt16
	case 32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

func overflowsSigned(v int64, width int) bool {
	lo, hi := signedBounds(width)
	return v < lo || v > hi
}
