package stdlib

import (
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

// chainedCompare implements GT/GE/LE/LT: true iff the argument list is
// monotone under cmp, checked pairwise left to right (§4.H).
func chainedCompare(name string, satisfies func(cmp int) bool) func([]eval.Argument) (values.Value, error) {
	return func(args []eval.Argument) (values.Value, error) {
		if err := requireMinArgs(args, 2, name); err != nil {
			return nil, err
		}
		for i := 1; i < len(args); i++ {
			cmp, err := values.Compare(args[i-1].Value, args[i].Value)
			if err != nil {
				return nil, err
			}
			if !satisfies(cmp) {
				return values.Bool{V: false}, nil
			}
		}
		return values.Bool{V: true}, nil
	}
}

func fnNe(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "NE"); err != nil {
		return nil, err
	}
	eq, err := values.Equal(args[0].Value, args[1].Value)
	if err != nil {
		return nil, err
	}
	return values.Bool{V: !eq}, nil
}

func registerComparison(r *Registry) {
	r.register("GT", chainedCompare("GT", func(cmp int) bool { return cmp > 0 }))
	r.register("GE", chainedCompare("GE", func(cmp int) bool { return cmp >= 0 }))
	r.register("LE", chainedCompare("LE", func(cmp int) bool { return cmp <= 0 }))
	r.register("LT", chainedCompare("LT", func(cmp int) bool { return cmp < 0 }))
	r.register("EQ", func(args []eval.Argument) (values.Value, error) {
		if err := requireMinArgs(args, 2, "EQ"); err != nil {
			return nil, err
		}
		for i := 1; i < len(args); i++ {
			eq, err := values.Equal(args[i-1].Value, args[i].Value)
			if err != nil {
				return nil, err
			}
			if !eq {
				return values.Bool{V: false}, nil
			}
		}
		return values.Bool{V: true}, nil
	})
	r.register("NE", fnNe)
}
