package stdlib

import (
	"time"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func requireDuration(v values.Value, who string) (values.Duration, error) {
	d, ok := v.(values.Duration)
	if !ok {
		return values.Duration{}, errs.New(errs.KindTypeMismatch, "%s requires a TIME argument, got %v", who, v.Kind())
	}
	return d, nil
}

func fnAddTime(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "ADD_TIME"); err != nil {
		return nil, err
	}
	a, err := requireDuration(args[0].Value, "ADD_TIME")
	if err != nil {
		return nil, err
	}
	b, err := requireDuration(args[1].Value, "ADD_TIME")
	if err != nil {
		return nil, err
	}
	return values.Duration{V: a.V + b.V}, nil
}

func fnSubTime(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "SUB_TIME"); err != nil {
		return nil, err
	}
	a, err := requireDuration(args[0].Value, "SUB_TIME")
	if err != nil {
		return nil, err
	}
	b, err := requireDuration(args[1].Value, "SUB_TIME")
	if err != nil {
		return nil, err
	}
	return values.Duration{V: a.V - b.V}, nil
}

func fnMulTime(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "MUL_TIME"); err != nil {
		return nil, err
	}
	a, err := requireDuration(args[0].Value, "MUL_TIME")
	if err != nil {
		return nil, err
	}
	n, err := toFloat64(args[1].Value)
	if err != nil {
		return nil, err
	}
	return values.Duration{V: time.Duration(float64(a.V) * n)}, nil
}

func fnDivTime(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "DIV_TIME"); err != nil {
		return nil, err
	}
	a, err := requireDuration(args[0].Value, "DIV_TIME")
	if err != nil {
		return nil, err
	}
	n, err := toFloat64(args[1].Value)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errs.New(errs.KindDivisionByZero, "DIV_TIME by zero")
	}
	// Go's float division truncates toward zero after the conversion back
	// to an integer Duration, matching IEC 61131-3's truncation-toward-zero
	// rule for TIME / negative INT.
	return values.Duration{V: time.Duration(float64(a.V) / n)}, nil
}

func fnConcatDate(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "CONCAT_DATE"); err != nil {
		return nil, err
	}
	y, err := toInt64(args[0].Value)
	if err != nil {
		return nil, err
	}
	mo, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	d, err := toInt64(args[2].Value)
	if err != nil {
		return nil, err
	}
	return values.Date{V: time.Date(int(y), time.Month(mo), int(d), 0, 0, 0, 0, time.UTC)}, nil
}

func fnConcatTod(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "CONCAT_TOD"); err != nil {
		return nil, err
	}
	h, err := toInt64(args[0].Value)
	if err != nil {
		return nil, err
	}
	m, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	s, err := toInt64(args[2].Value)
	if err != nil {
		return nil, err
	}
	offset := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	return values.TimeOfDay{V: offset}, nil
}

func fnConcatDT(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "CONCAT_DATE_TOD"); err != nil {
		return nil, err
	}
	d, ok := args[0].Value.(values.Date)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "CONCAT_DATE_TOD requires a DATE first argument")
	}
	t, ok := args[1].Value.(values.TimeOfDay)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "CONCAT_DATE_TOD requires a TIME_OF_DAY second argument")
	}
	return values.DateTime{V: d.V.Add(t.V)}, nil
}

func fnSplitDate(args []eval.Argument) ([]values.Value, error) {
	if err := requireArgs(args, 1, "SPLIT_DATE"); err != nil {
		return nil, err
	}
	d, ok := args[0].Value.(values.Date)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "SPLIT_DATE requires a DATE argument, got %v", args[0].Value.Kind())
	}
	y, mo, day := d.V.Date()
	return []values.Value{
		values.SInt{Width: 32, V: int64(y)},
		values.SInt{Width: 32, V: int64(mo)},
		values.SInt{Width: 32, V: int64(day)},
	}, nil
}

func fnSplitTod(args []eval.Argument) ([]values.Value, error) {
	if err := requireArgs(args, 1, "SPLIT_TOD"); err != nil {
		return nil, err
	}
	t, ok := args[0].Value.(values.TimeOfDay)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "SPLIT_TOD requires a TIME_OF_DAY argument, got %v", args[0].Value.Kind())
	}
	d := t.V
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return []values.Value{
		values.SInt{Width: 32, V: int64(h)},
		values.SInt{Width: 32, V: int64(m)},
		values.SInt{Width: 32, V: int64(s)},
	}, nil
}

func fnDayOfWeek(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "DAY_OF_WEEK"); err != nil {
		return nil, err
	}
	d, ok := args[0].Value.(values.Date)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "DAY_OF_WEEK requires a DATE argument, got %v", args[0].Value.Kind())
	}
	return values.SInt{Width: 32, V: int64(d.V.Weekday())}, nil
}

func registerTime(r *Registry) {
	r.register("ADD_TIME", fnAddTime)
	r.register("SUB_TIME", fnSubTime)
	r.register("MUL_TIME", fnMulTime)
	r.register("DIV_TIME", fnDivTime)
	r.register("CONCAT_DATE", fnConcatDate)
	r.register("CONCAT_TOD", fnConcatTod)
	r.register("CONCAT_DATE_TOD", fnConcatDT)
	r.register("DAY_OF_WEEK", fnDayOfWeek)
	r.registerMulti("SPLIT_DATE", fnSplitDate)
	r.registerMulti("SPLIT_TOD", fnSplitTod)
}
