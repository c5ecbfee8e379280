package debugctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// testEnv is a minimal eval.Env backed by a bare memory.RuntimeStore, used
// instead of runtime.Env to keep this package's tests free of a dependency
// on package runtime (which itself depends on debugctl).
type testEnv struct {
	store *memory.RuntimeStore
	frame *memory.Frame
}

func newTestEnv() *testEnv {
	return &testEnv{store: &memory.RuntimeStore{
		Globals: memory.NewGlobals(),
		Frames:  memory.NewFrameStack(),
		Arena:   memory.NewArena(),
	}}
}

func (e *testEnv) Lookup(name string) (values.Value, error) { return e.store.Globals.Get(name) }
func (e *testEnv) Assign(name string, v values.Value) error { return e.store.Globals.Set(name, v) }
func (e *testEnv) AddressOf(name string) (*values.RefTarget, error) {
	return &values.RefTarget{Location: memory.GlobalLocation(name)}, nil
}
func (e *testEnv) This() (values.Instance, bool)  { return values.Instance{}, false }
func (e *testEnv) Super() (values.Instance, bool) { return values.Instance{}, false }
func (e *testEnv) Call(name string, args []eval.Argument) (values.Value, error) {
	return nil, nil
}
func (e *testEnv) Store() memory.Store { return e.store }
func (e *testEnv) Frame() (*memory.Frame, bool) {
	if e.frame == nil {
		return nil, false
	}
	return e.frame, true
}

func loc(start int) ir.SourceLocation {
	return ir.SourceLocation{FileID: 1, Start: start, End: start + 1}
}

func waitPaused(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == StatePaused }, time.Second, time.Millisecond)
}

func TestControllerStopsOnUnconditionalBreakpointAndResumes(t *testing.T) {
	c := New(eval.New(), nil)
	env := newTestEnv()
	env.store.Globals.Declare("X", values.SInt{Width: 32, V: 7})
	l := loc(10)
	ids := c.SetBreakpoints([]BreakpointSpec{{Loc: l}})
	require.Len(t, ids, 1)

	done := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done)
	}()

	waitPaused(t, c)

	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, int64(7), snap.Globals["X"].(values.SInt).V)
	assert.Equal(t, l, snap.Loc)

	c.Resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Hook did not return after Resume")
	}
	assert.Equal(t, StateRunning, c.State())
}

func TestControllerConditionalBreakpointSuppressesFalseCondition(t *testing.T) {
	c := New(eval.New(), nil)
	env := newTestEnv()
	env.store.Globals.Declare("X", values.SInt{Width: 32, V: 0})
	l := loc(20)
	c.SetBreakpoints([]BreakpointSpec{{
		Loc: l,
		Condition: ir.Binary{
			Op: ir.OpGt,
			L:  ir.NameRef{Name: "X"},
			R:  ir.Literal{Raw: values.SInt{Width: 32, V: 0}},
		},
	}})

	done := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Hook blocked despite a false breakpoint condition")
	}
	assert.Equal(t, StateRunning, c.State())
}

func TestControllerConditionalBreakpointStopsOnTrueCondition(t *testing.T) {
	c := New(eval.New(), nil)
	env := newTestEnv()
	env.store.Globals.Declare("X", values.SInt{Width: 32, V: 5})
	l := loc(21)
	c.SetBreakpoints([]BreakpointSpec{{
		Loc: l,
		Condition: ir.Binary{
			Op: ir.OpGt,
			L:  ir.NameRef{Name: "X"},
			R:  ir.Literal{Raw: values.SInt{Width: 32, V: 0}},
		},
	}})

	done := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done)
	}()
	waitPaused(t, c)
	c.Resume()
	<-done
}

func TestControllerHitConditionGatesEveryOtherHit(t *testing.T) {
	c := New(eval.New(), nil)
	env := newTestEnv()
	l := loc(30)
	c.SetBreakpoints([]BreakpointSpec{{Loc: l, HitCondition: HitCondition{Op: HitModulo, N: 2}}})

	stopped := func() bool {
		done := make(chan struct{})
		go func() {
			c.Hook(l, 0, env)
			close(done)
		}()
		select {
		case <-done:
			return false
		case <-time.After(100 * time.Millisecond):
			c.Resume()
			<-done
			return true
		}
	}

	assert.False(t, stopped(), "1st hit: 1%%2 != 0")
	assert.True(t, stopped(), "2nd hit: 2%%2 == 0")
	assert.False(t, stopped(), "3rd hit: 3%%2 != 0")
	assert.True(t, stopped(), "4th hit: 4%%2 == 0")
}

func TestControllerLogpointEmitsWithoutStopping(t *testing.T) {
	var events []Event
	c := New(eval.New(), func(e Event) { events = append(events, e) })
	env := newTestEnv()
	env.store.Globals.Declare("N", values.SInt{Width: 32, V: 42})
	l := loc(40)
	c.SetLogpoints([]LogpointSpec{{
		Loc: l,
		Segments: []LogSegment{
			{Text: "n = "},
			{Expr: ir.NameRef{Name: "N"}},
		},
	}})

	done := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("logpoint-only hook blocked")
	}

	require.Len(t, events, 1)
	assert.Equal(t, EventDebugLog, events[0].Kind)
	assert.Equal(t, "n = 42", events[0].Message)
}

func TestControllerStepOverStopsAtSameOrShallowerDepth(t *testing.T) {
	c := New(eval.New(), nil)
	env := newTestEnv()

	// Pause once via an explicit Pause request to establish a baseline
	// snapshot depth, then ask for a StepOver from depth 2.
	c.Pause()
	done := make(chan struct{})
	go func() {
		c.Hook(loc(1), 2, env)
		close(done)
	}()
	waitPaused(t, c)
	c.StepOver()
	<-done

	// Depth 3 (a nested call) must NOT stop StepOver.
	done = make(chan struct{})
	go func() {
		c.Hook(loc(2), 3, env)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StepOver stopped at a deeper call")
	}

	// Depth 2 (back at the same level) must stop it.
	done = make(chan struct{})
	go func() {
		c.Hook(loc(3), 2, env)
		close(done)
	}()
	waitPaused(t, c)
	c.Resume()
	<-done
}

func TestControllerTerminateReleasesPausedGoroutineAndDisablesFurtherStops(t *testing.T) {
	c := New(eval.New(), nil)
	env := newTestEnv()
	l := loc(50)
	c.SetBreakpoints([]BreakpointSpec{{Loc: l}})

	done := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done)
	}()
	waitPaused(t, c)

	c.Terminate()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Terminate did not release the paused goroutine")
	}
	assert.Equal(t, StateTerminated, c.State())

	// Every subsequent Hook call, even at a breakpoint, must be a no-op.
	done2 := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done2)
	}()
	select {
	case <-done2:
	case <-time.After(time.Second):
		t.Fatal("Hook blocked after Terminate")
	}
}

func TestControllerSnapshotOnlyAvailableWhilePaused(t *testing.T) {
	c := New(eval.New(), nil)
	_, ok := c.Snapshot()
	assert.False(t, ok, "no snapshot before any pause")

	env := newTestEnv()
	l := loc(60)
	c.SetBreakpoints([]BreakpointSpec{{Loc: l}})
	done := make(chan struct{})
	go func() {
		c.Hook(l, 0, env)
		close(done)
	}()
	waitPaused(t, c)
	_, ok = c.Snapshot()
	assert.True(t, ok)

	c.Resume()
	<-done
	_, ok = c.Snapshot()
	assert.False(t, ok, "live reads replace the snapshot once running again")
}

func TestHitConditionSatisfied(t *testing.T) {
	assert.True(t, HitCondition{}.satisfied(1), "HitNone always satisfies")
	assert.True(t, HitCondition{Op: HitEqual, N: 3}.satisfied(3))
	assert.False(t, HitCondition{Op: HitEqual, N: 3}.satisfied(2))
	assert.True(t, HitCondition{Op: HitAtLeast, N: 3}.satisfied(5))
	assert.False(t, HitCondition{Op: HitAtLeast, N: 3}.satisfied(2))
	assert.True(t, HitCondition{Op: HitModulo, N: 4}.satisfied(8))
	assert.False(t, HitCondition{Op: HitModulo, N: 4}.satisfied(6))
}
