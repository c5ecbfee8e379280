package stdlib

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func fnSel(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "SEL"); err != nil {
		return nil, err
	}
	g, ok := args[0].Value.(values.Bool)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "SEL selector must be BOOL, got %v", args[0].Value.Kind())
	}
	if g.V {
		return args[2].Value, nil
	}
	return args[1].Value, nil
}

func minMax(name string, keep func(cmp int) bool) func([]eval.Argument) (values.Value, error) {
	return func(args []eval.Argument) (values.Value, error) {
		if err := requireMinArgs(args, 1, name); err != nil {
			return nil, err
		}
		best := args[0].Value
		for _, a := range args[1:] {
			cmp, err := values.Compare(a.Value, best)
			if err != nil {
				return nil, err
			}
			if keep(cmp) {
				best = a.Value
			}
		}
		return best, nil
	}
}

func fnLimit(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "LIMIT"); err != nil {
		return nil, err
	}
	lo, v, hi := args[0].Value, args[1].Value, args[2].Value
	if cmp, err := values.Compare(v, lo); err != nil {
		return nil, err
	} else if cmp < 0 {
		return lo, nil
	}
	if cmp, err := values.Compare(v, hi); err != nil {
		return nil, err
	} else if cmp > 0 {
		return hi, nil
	}
	return v, nil
}

func fnMux(args []eval.Argument) (values.Value, error) {
	if err := requireMinArgs(args, 2, "MUX"); err != nil {
		return nil, err
	}
	k, err := toInt64(args[0].Value)
	if err != nil {
		return nil, err
	}
	choices := args[1:]
	if k < 0 || int(k) >= len(choices) {
		return nil, errs.New(errs.KindIndexOutOfBounds, "MUX selector %d out of range [0..%d]", k, len(choices)-1)
	}
	return choices[k].Value, nil
}

func registerSelection(r *Registry) {
	r.register("SEL", fnSel)
	r.register("MIN", minMax("MIN", func(cmp int) bool { return cmp < 0 }))
	r.register("MAX", minMax("MAX", func(cmp int) bool { return cmp > 0 }))
	r.register("LIMIT", fnLimit)
	r.register("MUX", fnMux)
}
