package ir

import (
	"github.com/stplatform/stcore/errs"
)

// ConstEnv resolves a previously-folded constant by (scope, name), both
// already uppercased by the caller for case-insensitivity (§4.E).
type ConstEnv interface {
	Lookup(scope, name string) (int64, bool)
}

// MapConstEnv is a simple map-backed ConstEnv, keyed "SCOPE\x00NAME".
type MapConstEnv map[string]int64

func (m MapConstEnv) key(scope, name string) string { return scope + "\x00" + name }

func (m MapConstEnv) Lookup(scope, name string) (int64, bool) {
	v, ok := m[m.key(scope, name)]
	return v, ok
}

func (m MapConstEnv) Set(scope, name string, v int64) { m[m.key(scope, name)] = v }

// FoldConstInt evaluates expr as a compile-time integer constant, per the
// "Constants first" rule of §4.E: an integer evaluator folds VAR CONSTANT
// initializers using a recursion guard so that a cyclic constant reference
// is rejected instead of looping forever.
func FoldConstInt(expr Expr, scope string, env ConstEnv) (int64, error) {
	return foldGuarded(expr, scope, env, make(map[string]bool))
}

func foldGuarded(expr Expr, scope string, env ConstEnv, visiting map[string]bool) (int64, error) {
	switch e := expr.(type) {
	case Literal:
		switch v := e.Raw.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		default:
			return 0, errs.New(errs.KindCompileError, "literal is not an integer constant")
		}
	case NameRef:
		key := scope + "\x00" + e.Name
		if visiting[key] {
			return 0, errs.New(errs.KindCyclicDependency, "constant %q is defined in terms of itself", e.Name)
		}
		visiting[key] = true
		defer delete(visiting, key)
		if v, ok := env.Lookup(scope, e.Name); ok {
			return v, nil
		}
		return 0, errs.New(errs.KindUndefinedName, "undefined constant %q", e.Name)
	case Unary:
		x, err := foldGuarded(e.X, scope, env, visiting)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case OpNeg:
			return -x, nil
		case OpPlus:
			return x, nil
		case OpNot:
			if x == 0 {
				return 1, nil
			}
			return 0, nil
		}
	case Binary:
		l, err := foldGuarded(e.L, scope, env, visiting)
		if err != nil {
			return 0, err
		}
		r, err := foldGuarded(e.R, scope, env, visiting)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case OpAdd:
			return l + r, nil
		case OpSub:
			return l - r, nil
		case OpMul:
			return l * r, nil
		case OpDiv:
			if r == 0 {
				return 0, errs.New(errs.KindDivisionByZero, "constant division by zero")
			}
			return l / r, nil
		case OpMod:
			if r == 0 {
				return 0, errs.New(errs.KindModuloByZero, "constant modulo by zero")
			}
			return l % r, nil
		}
	case Paren:
		return foldGuarded(e.X, scope, env, visiting)
	}
	return 0, errs.New(errs.KindCompileError, "expression is not a valid integer constant")
}
