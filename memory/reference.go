package memory

import (
	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/values"
)

// Store is the minimal collaborator Resolve/Assign need to reach any of the
// areas a Reference's Location can name, kept as an interface so the
// evaluator can be tested against a stub store (§4.G, §4.F).
type Store interface {
	GetLocation(loc values.Location) (values.Value, error)
	SetLocation(loc values.Location, v values.Value) error
}

// Resolve walks target's path from its base location and returns the value
// the reference denotes.
func Resolve(store Store, target *values.RefTarget) (values.Value, error) {
	if target == nil {
		return nil, errs.New(errs.KindNullReference, "dereference of null reference")
	}
	root, err := store.GetLocation(target.Location)
	if err != nil {
		return nil, err
	}
	return NavigateGet(root, target.Path)
}

// Assign walks target's path and replaces the denoted value with v, then
// writes the (possibly rebuilt) root back to the location.
func Assign(store Store, target *values.RefTarget, v values.Value) error {
	if target == nil {
		return errs.New(errs.KindNullReference, "assignment through null reference")
	}
	root, err := store.GetLocation(target.Location)
	if err != nil {
		return err
	}
	newRoot, err := NavigateSet(root, target.Path, v)
	if err != nil {
		return err
	}
	return store.SetLocation(target.Location, newRoot)
}

// NavigateGet walks path from root and returns the denoted value. Exported
// so package eval can reuse it for Index/Field chains on local variables
// that never go through a Reference (§4.F).
func NavigateGet(root values.Value, path []values.PathSegment) (values.Value, error) {
	cur := root
	for _, seg := range path {
		next, err := step(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func step(cur values.Value, seg values.PathSegment) (values.Value, error) {
	if seg.IsIndex {
		arr, ok := cur.(values.Array)
		if !ok {
			return nil, errs.New(errs.KindTypeMismatch, "indexing applied to non-array value of kind %v", cur.Kind())
		}
		off, err := arr.Offset(seg.Index)
		if err != nil {
			return nil, err
		}
		return arr.Elements[off], nil
	}
	st, ok := cur.(values.Struct)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "field access applied to non-struct value of kind %v", cur.Kind())
	}
	v, ok := st.Field(seg.Field)
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "struct %q has no field %q", st.Name, seg.Field)
	}
	return v, nil
}

// NavigateSet rebuilds cur with the value at path replaced by v, returning
// the new root. Arrays are rebuilt element-by-element and structs field-by-
// field so sibling data is never aliased between the old and new value.
func NavigateSet(cur values.Value, path []values.PathSegment, v values.Value) (values.Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	seg := path[0]
	rest := path[1:]
	if seg.IsIndex {
		arr, ok := cur.(values.Array)
		if !ok {
			return nil, errs.New(errs.KindTypeMismatch, "indexing applied to non-array value of kind %v", cur.Kind())
		}
		off, err := arr.Offset(seg.Index)
		if err != nil {
			return nil, err
		}
		updated, err := NavigateSet(arr.Elements[off], rest, v)
		if err != nil {
			return nil, err
		}
		newElems := append([]values.Value(nil), arr.Elements...)
		newElems[off] = updated
		return values.Array{Type: arr.Type, ElemType: arr.ElemType, Dims: arr.Dims, Elements: newElems}, nil
	}
	st, ok := cur.(values.Struct)
	if !ok {
		return nil, errs.New(errs.KindTypeMismatch, "field access applied to non-struct value of kind %v", cur.Kind())
	}
	existing, ok := st.Field(seg.Field)
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "struct %q has no field %q", st.Name, seg.Field)
	}
	updated, err := NavigateSet(existing, rest, v)
	if err != nil {
		return nil, err
	}
	return st.WithField(seg.Field, updated)
}
