package stdlib

import (
	"fmt"
	"math"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func assertFail(format string, args ...any) error {
	return errs.New(errs.KindAssertionFailed, format, args...)
}

func fnAssertTrue(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "ASSERT_TRUE"); err != nil {
		return nil, err
	}
	b, ok := args[0].Value.(values.Bool)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "ASSERT_TRUE requires a BOOL argument, got %v", args[0].Value.Kind())
	}
	if !b.V {
		return nil, assertFail("ASSERT_TRUE failed: value is FALSE")
	}
	return values.Bool{V: true}, nil
}

func fnAssertFalse(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "ASSERT_FALSE"); err != nil {
		return nil, err
	}
	b, ok := args[0].Value.(values.Bool)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "ASSERT_FALSE requires a BOOL argument, got %v", args[0].Value.Kind())
	}
	if b.V {
		return nil, assertFail("ASSERT_FALSE failed: value is TRUE")
	}
	return values.Bool{V: true}, nil
}

func assertCompare(name string, args []eval.Argument, satisfies func(cmp int) bool) (values.Value, error) {
	if err := requireArgs(args, 2, name); err != nil {
		return nil, err
	}
	cmp, err := values.Compare(args[0].Value, args[1].Value)
	if err != nil {
		return nil, err
	}
	if !satisfies(cmp) {
		return nil, assertFail("%s failed: %v vs %v", name, args[0].Value, args[1].Value)
	}
	return values.Bool{V: true}, nil
}

func fnAssertEqual(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "ASSERT_EQUAL"); err != nil {
		return nil, err
	}
	eq, err := values.Equal(args[0].Value, args[1].Value)
	if err != nil {
		return nil, err
	}
	if !eq {
		return nil, assertFail("ASSERT_EQUAL failed: %v != %v", args[0].Value, args[1].Value)
	}
	return values.Bool{V: true}, nil
}

func fnAssertNotEqual(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "ASSERT_NOT_EQUAL"); err != nil {
		return nil, err
	}
	eq, err := values.Equal(args[0].Value, args[1].Value)
	if err != nil {
		return nil, err
	}
	if eq {
		return nil, assertFail("ASSERT_NOT_EQUAL failed: %v == %v", args[0].Value, args[1].Value)
	}
	return values.Bool{V: true}, nil
}

func fnAssertNear(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "ASSERT_NEAR"); err != nil {
		return nil, err
	}
	a, err := toFloat64(args[0].Value)
	if err != nil {
		return nil, err
	}
	b, err := toFloat64(args[1].Value)
	if err != nil {
		return nil, err
	}
	tol, err := toFloat64(args[2].Value)
	if err != nil {
		return nil, err
	}
	if math.Abs(a-b) > tol {
		return nil, assertFail("ASSERT_NEAR failed: |%s - %s| > %s", fmt.Sprint(a), fmt.Sprint(b), fmt.Sprint(tol))
	}
	return values.Bool{V: true}, nil
}

func registerAssert(r *Registry) {
	r.register("ASSERT_TRUE", fnAssertTrue)
	r.register("ASSERT_FALSE", fnAssertFalse)
	r.register("ASSERT_EQUAL", fnAssertEqual)
	r.register("ASSERT_NOT_EQUAL", fnAssertNotEqual)
	r.register("ASSERT_GREATER", func(args []eval.Argument) (values.Value, error) {
		return assertCompare("ASSERT_GREATER", args, func(cmp int) bool { return cmp > 0 })
	})
	r.register("ASSERT_LESS", func(args []eval.Argument) (values.Value, error) {
		return assertCompare("ASSERT_LESS", args, func(cmp int) bool { return cmp < 0 })
	})
	r.register("ASSERT_NEAR", fnAssertNear)
}
