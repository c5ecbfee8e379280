package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/errs"
)

func TestBuiltinLookup(t *testing.T) {
	tests := []struct {
		in  string
		out ID
	}{
		{"INT", IDSInt16},
		{"int", IDSInt16},
		{"DINT", IDSInt32},
		{"BOOL", IDBool},
		{"TIME", IDDuration},
		{"ANY_INT", IDAnyInt},
	}
	r := New()
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, ok := r.Lookup(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.out, id)
		})
	}
}

func TestIsAssignable(t *testing.T) {
	r := New()
	tests := []struct {
		name           string
		target, source ID
		want           bool
	}{
		{"reflexive", IDSInt32, IDSInt32, true},
		{"widen signed", IDSInt32, IDSInt16, true},
		{"narrow signed rejected", IDSInt16, IDSInt32, false},
		{"signed/unsigned do not mix", IDSInt32, IDUInt32, false},
		{"int to float widens", IDFloat64, IDSInt32, true},
		{"bit string widens", IDBitString32, IDBitString16, true},
		{"any_int matches int family", IDAnyInt, IDUInt8, true},
		{"any_int rejects real", IDAnyInt, IDFloat32, false},
		{"string to string", IDString, IDString, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsAssignable(tt.target, tt.source))
		})
	}
}

func TestNullToReference(t *testing.T) {
	r := New()
	refID := r.RegisterReference(IDSInt32, false)
	assert.True(t, r.IsAssignable(refID, IDNull))
}

func TestArrayWildcardDimension(t *testing.T) {
	r := New()
	concrete, err := r.RegisterType("ARR5", Type{
		Kind: KindArray, ElemType: IDSInt32,
		Dims: []Dimension{{Lower: 1, Upper: 5}},
	})
	require.NoError(t, err)
	wildcard, err := r.RegisterType("ARRWILD", Type{
		Kind: KindArray, ElemType: IDSInt32,
		Dims: []Dimension{{Lower: 0, Upper: WildcardUpper}},
	})
	require.NoError(t, err)
	assert.True(t, r.IsAssignable(wildcard, concrete))
}

func TestSizeOf(t *testing.T) {
	r := New()
	sz, err := r.SizeOf(IDSInt32)
	require.NoError(t, err)
	assert.EqualValues(t, 4, sz)

	arr, err := r.RegisterType("ARR10", Type{
		Kind: KindArray, ElemType: IDSInt16,
		Dims: []Dimension{{Lower: 0, Upper: 9}},
	})
	require.NoError(t, err)
	sz, err = r.SizeOf(arr)
	require.NoError(t, err)
	assert.EqualValues(t, 20, sz)

	structID, err := r.RegisterType("PAIR", Type{
		Kind:   KindStruct,
		Fields: []Field{{Name: "A", Type: IDSInt32}, {Name: "B", Type: IDBool}},
	})
	require.NoError(t, err)
	sz, err = r.SizeOf(structID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, sz)
}

func TestSizeOfUnboundedStringRejected(t *testing.T) {
	r := New()
	_, err := r.SizeOf(IDString)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindUnsupportedType, kind)
}
