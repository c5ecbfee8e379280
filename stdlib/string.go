package stdlib

import (
	"strings"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func requireString(v values.Value, who string) (string, values.String, error) {
	s, ok := v.(values.String)
	if !ok {
		return "", values.String{}, errs.New(errs.KindTypeMismatch, "%s requires a STRING argument, got %v", who, v.Kind())
	}
	return s.V, s, nil
}

func fnLen(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 1, "LEN"); err != nil {
		return nil, err
	}
	s, _, err := requireString(args[0].Value, "LEN")
	if err != nil {
		return nil, err
	}
	return values.SInt{Width: 32, V: int64(len(s))}, nil
}

func fnLeft(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "LEFT"); err != nil {
		return nil, err
	}
	s, typ, err := requireString(args[0].Value, "LEFT")
	if err != nil {
		return nil, err
	}
	n, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if int(n) > len(s) {
		n = int64(len(s))
	}
	return values.String{Type: typ.Type, V: s[:n]}, nil
}

func fnRight(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "RIGHT"); err != nil {
		return nil, err
	}
	s, typ, err := requireString(args[0].Value, "RIGHT")
	if err != nil {
		return nil, err
	}
	n, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	if int(n) > len(s) {
		n = int64(len(s))
	}
	return values.String{Type: typ.Type, V: s[len(s)-int(n):]}, nil
}

// fnMid implements MID(IN, L, P): L characters starting at 1-based
// position P.
func fnMid(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "MID"); err != nil {
		return nil, err
	}
	s, typ, err := requireString(args[0].Value, "MID")
	if err != nil {
		return nil, err
	}
	length, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	pos, err := toInt64(args[2].Value)
	if err != nil {
		return nil, err
	}
	if pos < 1 || length < 0 {
		return values.String{Type: typ.Type, V: ""}, nil
	}
	start := int(pos) - 1
	if start >= len(s) {
		return values.String{Type: typ.Type, V: ""}, nil
	}
	end := start + int(length)
	if end > len(s) {
		end = len(s)
	}
	return values.String{Type: typ.Type, V: s[start:end]}, nil
}

func fnConcat(args []eval.Argument) (values.Value, error) {
	if err := requireMinArgs(args, 2, "CONCAT"); err != nil {
		return nil, err
	}
	var sb strings.Builder
	typ := values.String{}.Type
	for i, a := range args {
		s, st, err := requireString(a.Value, "CONCAT")
		if err != nil {
			return nil, err
		}
		if i == 0 {
			typ = st.Type
		}
		sb.WriteString(s)
	}
	return values.String{Type: typ, V: sb.String()}, nil
}

// fnInsert implements INSERT(IN1, IN2, P): IN2 inserted into IN1 after
// 1-based position P.
func fnInsert(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "INSERT"); err != nil {
		return nil, err
	}
	base, typ, err := requireString(args[0].Value, "INSERT")
	if err != nil {
		return nil, err
	}
	insert, _, err := requireString(args[1].Value, "INSERT")
	if err != nil {
		return nil, err
	}
	pos, err := toInt64(args[2].Value)
	if err != nil {
		return nil, err
	}
	if pos < 0 {
		pos = 0
	}
	if int(pos) > len(base) {
		pos = int64(len(base))
	}
	return values.String{Type: typ.Type, V: base[:pos] + insert + base[pos:]}, nil
}

// fnDelete implements DELETE(IN, L, P): removes L characters starting at
// 1-based position P.
func fnDelete(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 3, "DELETE"); err != nil {
		return nil, err
	}
	s, typ, err := requireString(args[0].Value, "DELETE")
	if err != nil {
		return nil, err
	}
	length, err := toInt64(args[1].Value)
	if err != nil {
		return nil, err
	}
	pos, err := toInt64(args[2].Value)
	if err != nil {
		return nil, err
	}
	if pos < 1 || length <= 0 || int(pos)-1 >= len(s) {
		return values.String{Type: typ.Type, V: s}, nil
	}
	start := int(pos) - 1
	end := start + int(length)
	if end > len(s) {
		end = len(s)
	}
	return values.String{Type: typ.Type, V: s[:start] + s[end:]}, nil
}

// fnReplace implements REPLACE(IN1, IN2, L, P): L characters of IN1
// starting at 1-based position P replaced with IN2.
func fnReplace(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 4, "REPLACE"); err != nil {
		return nil, err
	}
	base, typ, err := requireString(args[0].Value, "REPLACE")
	if err != nil {
		return nil, err
	}
	repl, _, err := requireString(args[1].Value, "REPLACE")
	if err != nil {
		return nil, err
	}
	length, err := toInt64(args[2].Value)
	if err != nil {
		return nil, err
	}
	pos, err := toInt64(args[3].Value)
	if err != nil {
		return nil, err
	}
	if pos < 1 || int(pos)-1 > len(base) {
		return values.String{Type: typ.Type, V: base}, nil
	}
	start := int(pos) - 1
	end := start + int(length)
	if end > len(base) {
		end = len(base)
	}
	return values.String{Type: typ.Type, V: base[:start] + repl + base[end:]}, nil
}

// fnFind implements FIND(IN1, IN2): the 1-based position of the first
// occurrence of IN2 in IN1, or 0 if not found.
func fnFind(args []eval.Argument) (values.Value, error) {
	if err := requireArgs(args, 2, "FIND"); err != nil {
		return nil, err
	}
	hay, _, err := requireString(args[0].Value, "FIND")
	if err != nil {
		return nil, err
	}
	needle, _, err := requireString(args[1].Value, "FIND")
	if err != nil {
		return nil, err
	}
	idx := strings.Index(hay, needle)
	if idx < 0 {
		return values.SInt{Width: 32, V: 0}, nil
	}
	return values.SInt{Width: 32, V: int64(idx + 1)}, nil
}

func registerString(r *Registry) {
	r.register("LEN", fnLen)
	r.register("LEFT", fnLeft)
	r.register("RIGHT", fnRight)
	r.register("MID", fnMid)
	r.register("CONCAT", fnConcat)
	r.register("INSERT", fnInsert)
	r.register("DELETE", fnDelete)
	r.register("REPLACE", fnReplace)
	r.register("FIND", fnFind)
}
