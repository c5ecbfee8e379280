package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/types"
)

func TestDefaultForTypeAssignable(t *testing.T) {
	reg := types.New()
	ids := []types.ID{
		types.IDBool, types.IDSInt32, types.IDUInt64, types.IDFloat32,
		types.IDBitString16, types.IDDuration, types.IDDate, types.IDChar,
	}
	for _, id := range ids {
		v, err := DefaultForType(reg, id)
		require.NoError(t, err)
		assert.True(t, reg.IsAssignable(id, v.TypeID()), "default of %v not assignable back to itself", id)
	}
}

func TestBoolOrdering(t *testing.T) {
	c, err := Compare(Bool{V: false}, Bool{V: true})
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestStringLexicographic(t *testing.T) {
	c, err := Compare(String{V: "abc"}, String{V: "abd"})
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestEnumEqualityRequiresSameType(t *testing.T) {
	a := Enum{Name: "COLOR", Variant: "RED", Value: 0}
	b := Enum{Name: "COLOR", Variant: "RED", Value: 0}
	eq, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	c := Enum{Name: "STATE", Variant: "RED", Value: 0}
	eq, err = Equal(a, c)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestArrayOffset(t *testing.T) {
	arr := Array{
		Dims: []types.Dimension{{Lower: 1, Upper: 3}, {Lower: 1, Upper: 2}},
	}
	off, err := arr.Offset([]int64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	off, err = arr.Offset([]int64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, off)

	_, err = arr.Offset([]int64{4, 1})
	require.Error(t, err)
}

func TestStructWithField(t *testing.T) {
	s := Struct{Name: "PAIR", Fields: []StructField{
		{Name: "A", Value: SInt{Width: 32, V: 1}},
		{Name: "B", Value: Bool{V: false}},
	}}
	s2, err := s.WithField("B", Bool{V: true})
	require.NoError(t, err)
	v, ok := s2.Field("B")
	require.True(t, ok)
	assert.Equal(t, Bool{V: true}, v)
	// original is untouched (copy-on-write).
	v, _ = s.Field("B")
	assert.Equal(t, Bool{V: false}, v)
}
