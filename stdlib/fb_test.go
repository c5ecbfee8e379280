package stdlib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/values"
)

func TestRSIsResetDominant(t *testing.T) {
	fb, ok := StandardFB("RS")
	require.True(t, ok)
	state := fb.Defaults()
	state["S1"] = values.Bool{V: true}
	state["R"] = values.Bool{V: true}
	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q1"))
}

func TestSRIsSetDominant(t *testing.T) {
	fb, ok := StandardFB("SR")
	require.True(t, ok)
	state := fb.Defaults()
	state["S1"] = values.Bool{V: true}
	state["R"] = values.Bool{V: true}
	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q1"))
}

func TestRTrigLatchesRisingEdgeOnce(t *testing.T) {
	fb, ok := StandardFB("R_TRIG")
	require.True(t, ok)
	state := fb.Defaults()

	state["CLK"] = values.Bool{V: true}
	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"))

	state, err = fb.Step(state, 0)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"), "second step with CLK still high must not re-fire")
}

func TestFTrigDetectsFallingEdge(t *testing.T) {
	fb, ok := StandardFB("F_TRIG")
	require.True(t, ok)
	state := fb.Defaults()
	state["CLK"] = values.Bool{V: true}
	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"))

	state["CLK"] = values.Bool{V: false}
	state, err = fb.Step(state, 0)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"))
}

func TestCTUCountsUpToPresetAndResets(t *testing.T) {
	fb, ok := StandardFB("CTU")
	require.True(t, ok)
	state := fb.Defaults()
	state["PV"] = values.SInt{Width: 32, V: 2}

	for i := 0; i < 2; i++ {
		state["CU"] = values.Bool{V: true}
		var err error
		state, err = fb.Step(state, 0)
		require.NoError(t, err)
		state["CU"] = values.Bool{V: false}
		state, err = fb.Step(state, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), getInt(state, "CV"))
	assert.True(t, getBool(state, "Q"))

	state["R"] = values.Bool{V: true}
	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), getInt(state, "CV"))
	assert.False(t, getBool(state, "Q"))
}

func TestCTDCountsDownToZero(t *testing.T) {
	fb, ok := StandardFB("CTD")
	require.True(t, ok)
	state := fb.Defaults()
	state["PV"] = values.SInt{Width: 32, V: 2}
	state["LD"] = values.Bool{V: true}
	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), getInt(state, "CV"))

	state["LD"] = values.Bool{V: false}
	for i := 0; i < 2; i++ {
		state["CD"] = values.Bool{V: true}
		state, err = fb.Step(state, 0)
		require.NoError(t, err)
		state["CD"] = values.Bool{V: false}
		state, err = fb.Step(state, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(0), getInt(state, "CV"))
	assert.True(t, getBool(state, "Q"))
}

// TestTONOnDelayTimer walks the S2 scenario: in=false at t=0, then in=true
// with two 5ms advances, then in=false again.
func TestTONOnDelayTimer(t *testing.T) {
	fb, ok := StandardFB("TON")
	require.True(t, ok)
	state := fb.Defaults()
	state["PT"] = values.Duration{V: 10 * time.Millisecond}
	state["IN"] = values.Bool{V: false}

	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"))
	assert.Equal(t, time.Duration(0), getDuration(state, "ET"))

	state["IN"] = values.Bool{V: true}
	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"))
	assert.Equal(t, 5*time.Millisecond, getDuration(state, "ET"))

	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"))
	assert.Equal(t, 10*time.Millisecond, getDuration(state, "ET"))

	state["IN"] = values.Bool{V: false}
	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"))
	assert.Equal(t, time.Duration(0), getDuration(state, "ET"))
}

func TestTOFOffDelayTimer(t *testing.T) {
	fb, ok := StandardFB("TOF")
	require.True(t, ok)
	state := fb.Defaults()
	state["PT"] = values.Duration{V: 10 * time.Millisecond}
	state["IN"] = values.Bool{V: true}

	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"))

	state["IN"] = values.Bool{V: false}
	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"), "Q must stay true until PT elapses")

	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"))
}

func TestTPPulseIgnoresINAfterStart(t *testing.T) {
	fb, ok := StandardFB("TP")
	require.True(t, ok)
	state := fb.Defaults()
	state["PT"] = values.Duration{V: 10 * time.Millisecond}
	state["IN"] = values.Bool{V: true}

	state, err := fb.Step(state, 0)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"))

	state["IN"] = values.Bool{V: false}
	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, getBool(state, "Q"), "pulse keeps running even though IN already dropped")

	state, err = fb.Step(state, 5*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, getBool(state, "Q"))
}
