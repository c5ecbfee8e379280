package stdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/values"
)

func args(vs ...values.Value) []eval.Argument {
	out := make([]eval.Argument, len(vs))
	for i, v := range vs {
		out[i] = eval.Argument{Value: v}
	}
	return out
}

func sint(v int64) values.Value { return values.SInt{Width: 32, V: v} }

func TestRegistryADDWidensToWidestOperand(t *testing.T) {
	r := New()
	v, err := r.Call("ADD", args(values.SInt{Width: 16, V: 1}, values.SInt{Width: 32, V: 2}))
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 3}, v)
}

func TestRegistryADDFloatFamilyStaysFloat(t *testing.T) {
	r := New()
	v, err := r.Call("ADD", args(values.Float{Width: 32, V: 1.5}, sint(2)))
	require.NoError(t, err)
	f, ok := v.(values.Float)
	require.True(t, ok)
	assert.InDelta(t, 3.5, f.V, 1e-9)
}

func TestRegistryDIVByZeroErrors(t *testing.T) {
	r := New()
	_, err := r.Call("DIV", args(sint(10), sint(0)))
	assert.Error(t, err)
}

func TestRegistryADDOverflowErrors(t *testing.T) {
	r := New()
	_, err := r.Call("ADD", args(values.SInt{Width: 8, V: 120}, values.SInt{Width: 8, V: 100}))
	assert.Error(t, err)
}

func TestRegistrySelPicksByGuard(t *testing.T) {
	r := New()
	v, err := r.Call("SEL", args(values.Bool{V: false}, sint(1), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, sint(1), v)

	v, err = r.Call("SEL", args(values.Bool{V: true}, sint(1), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, sint(2), v)
}

func TestRegistryMinMax(t *testing.T) {
	r := New()
	v, err := r.Call("MIN", args(sint(3), sint(1), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, sint(1), v)

	v, err = r.Call("MAX", args(sint(3), sint(1), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, sint(3), v)
}

func TestRegistryLimitClamps(t *testing.T) {
	r := New()
	v, err := r.Call("LIMIT", args(sint(0), sint(-5), sint(10)))
	require.NoError(t, err)
	assert.Equal(t, sint(0), v)

	v, err = r.Call("LIMIT", args(sint(0), sint(15), sint(10)))
	require.NoError(t, err)
	assert.Equal(t, sint(10), v)

	v, err = r.Call("LIMIT", args(sint(0), sint(5), sint(10)))
	require.NoError(t, err)
	assert.Equal(t, sint(5), v)
}

func TestRegistryMuxSelectsByIndex(t *testing.T) {
	r := New()
	v, err := r.Call("MUX", args(sint(1), sint(10), sint(20), sint(30)))
	require.NoError(t, err)
	assert.Equal(t, sint(20), v)

	_, err = r.Call("MUX", args(sint(5), sint(10)))
	assert.Error(t, err)
}

func TestRegistryChainedComparisons(t *testing.T) {
	r := New()
	v, err := r.Call("GT", args(sint(3), sint(2), sint(1)))
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, v)

	v, err = r.Call("GT", args(sint(3), sint(2), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: false}, v)
}

func TestRegistryEqAndNe(t *testing.T) {
	r := New()
	v, err := r.Call("EQ", args(sint(2), sint(2), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, v)

	v, err = r.Call("NE", args(sint(2), sint(3)))
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, v)
}

func TestRegistryBitShiftsAndLogic(t *testing.T) {
	r := New()
	v, err := r.Call("SHL", args(values.BitString{Width: 8, V: 0b00000011}, sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.BitString{Width: 8, V: 0b00001100}, v)

	v, err = r.Call("ROL", args(values.BitString{Width: 8, V: 0b10000001}, sint(1)))
	require.NoError(t, err)
	assert.Equal(t, values.BitString{Width: 8, V: 0b00000011}, v)

	v, err = r.Call("AND", args(values.BitString{Width: 8, V: 0b1100}, values.BitString{Width: 8, V: 0b1010}))
	require.NoError(t, err)
	assert.Equal(t, values.BitString{Width: 8, V: 0b1000}, v)

	v, err = r.Call("NOT", args(values.BitString{Width: 8, V: 0b00001111}))
	require.NoError(t, err)
	assert.Equal(t, values.BitString{Width: 8, V: 0b11110000}, v)
}

func TestRegistryStringOpsAreOneBased(t *testing.T) {
	r := New()
	v, err := r.Call("LEFT", args(values.String{V: "HELLO"}, sint(3)))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "HEL"}, v)

	v, err = r.Call("RIGHT", args(values.String{V: "HELLO"}, sint(3)))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "LLO"}, v)

	v, err = r.Call("MID", args(values.String{V: "HELLO"}, sint(3), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "ELL"}, v)

	v, err = r.Call("FIND", args(values.String{V: "HELLO"}, values.String{V: "LL"}))
	require.NoError(t, err)
	assert.Equal(t, sint(3), v)

	v, err = r.Call("FIND", args(values.String{V: "HELLO"}, values.String{V: "ZZ"}))
	require.NoError(t, err)
	assert.Equal(t, sint(0), v)
}

func TestRegistryConcatJoinsInOrder(t *testing.T) {
	r := New()
	v, err := r.Call("CONCAT", args(values.String{V: "foo"}, values.String{V: "bar"}, values.String{V: "baz"}))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "foobarbaz"}, v)
}

func TestRegistryInsertDeleteReplace(t *testing.T) {
	r := New()
	v, err := r.Call("INSERT", args(values.String{V: "ABCD"}, values.String{V: "XY"}, sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "ABXYCD"}, v)

	v, err = r.Call("DELETE", args(values.String{V: "ABCDEF"}, sint(2), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "ADEF"}, v)

	v, err = r.Call("REPLACE", args(values.String{V: "ABCDEF"}, values.String{V: "XY"}, sint(2), sint(2)))
	require.NoError(t, err)
	assert.Equal(t, values.String{V: "AXYDEF"}, v)
}

func TestRegistryConversionDynamicResolution(t *testing.T) {
	r := New()
	require.True(t, r.Has("SINT_TO_REAL"))
	v, err := r.Call("SINT_TO_REAL", args(values.SInt{Width: 8, V: 42}))
	require.NoError(t, err)
	assert.Equal(t, values.Float{Width: 32, V: 42}, v)

	require.True(t, r.Has("TRUNC"))
	v, err = r.Call("TRUNC", args(values.Float{Width: 64, V: 3.9}))
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 3}, v)
}

func TestRegistryREALToDINTRoundsTiesToEven(t *testing.T) {
	r := New()
	v, err := r.Call("REAL_TO_DINT", args(values.Float{Width: 32, V: 2.5}))
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 2}, v)

	v, err = r.Call("REAL_TO_DINT", args(values.Float{Width: 32, V: 3.5}))
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 4}, v)
}

func TestRegistryBCDRoundTrip(t *testing.T) {
	r := New()
	v, err := r.Call("TO_BCD_UDINT", args(sint(1234)))
	require.NoError(t, err)
	bcd, ok := v.(values.UInt)
	require.True(t, ok)

	back, err := r.Call("BCD_TO_DINT", args(values.SInt{Width: 64, V: int64(bcd.V)}))
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 1234}, back)
}

func TestRegistryBCDRejectsNonBCDNibble(t *testing.T) {
	r := New()
	_, err := r.Call("BCD_TO_DINT", args(values.SInt{Width: 64, V: 0x1A}))
	assert.Error(t, err)
}

func TestRegistryAssertTrueFailsOnFalse(t *testing.T) {
	r := New()
	_, err := r.Call("ASSERT_TRUE", args(values.Bool{V: false}))
	assert.Error(t, err)

	_, err = r.Call("ASSERT_TRUE", args(values.Bool{V: true}))
	assert.NoError(t, err)
}

func TestRegistryAssertEqualAndNear(t *testing.T) {
	r := New()
	_, err := r.Call("ASSERT_EQUAL", args(sint(2), sint(2)))
	assert.NoError(t, err)

	_, err = r.Call("ASSERT_EQUAL", args(sint(2), sint(3)))
	assert.Error(t, err)

	_, err = r.Call("ASSERT_NEAR", args(values.Float{Width: 64, V: 1.0}, values.Float{Width: 64, V: 1.05}, values.Float{Width: 64, V: 0.1}))
	assert.NoError(t, err)

	_, err = r.Call("ASSERT_NEAR", args(values.Float{Width: 64, V: 1.0}, values.Float{Width: 64, V: 1.5}, values.Float{Width: 64, V: 0.1}))
	assert.Error(t, err)
}

func TestRegistryHasDistinguishesUnknownNames(t *testing.T) {
	r := New()
	assert.False(t, r.Has("NOT_A_REAL_FUNCTION"))
	_, err := r.Call("NOT_A_REAL_FUNCTION", nil)
	assert.Error(t, err)
}

func TestRegistryMoveIsIdentity(t *testing.T) {
	r := New()
	v, err := r.Call("MOVE", args(sint(7)))
	require.NoError(t, err)
	assert.Equal(t, sint(7), v)
}

func TestRegistryModRequiresNonZeroDivisor(t *testing.T) {
	r := New()
	_, err := r.Call("MOD", args(sint(7), sint(0)))
	assert.Error(t, err)

	v, err := r.Call("MOD", args(sint(7), sint(3)))
	require.NoError(t, err)
	assert.Equal(t, sint(1), v)
}
