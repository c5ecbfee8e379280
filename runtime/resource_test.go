package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/clock"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/scheduler"
	"github.com/stplatform/stcore/stdlib"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

// countingProgram builds a one-program lowered IR: PROGRAM MAIN has a
// persistent RETAIN counter incremented by one every run.
func countingProgram() *ir.Program {
	return &ir.Program{
		Programs: []ir.ProgramDef{{
			Name: "MAIN",
			Vars: []ir.Local{{Name: "N", Type: types.IDSInt32, Retain: ir.RetainRetain}},
			Body: []ir.Stmt{
				ir.Assign{Target: ir.NameRef{Name: "N"}, Value: ir.Binary{
					Op: ir.OpAdd,
					L:  ir.NameRef{Name: "N"},
					R:  ir.Literal{Raw: values.SInt{Width: 32, V: 1}},
				}},
			},
		}},
		Tasks: []ir.TaskConfig{{
			Name:     "FAST",
			Interval: 10 * time.Millisecond,
			Priority: 1,
			Programs: []string{"MAIN"},
		}},
	}
}

func buildResource(t *testing.T, prog *ir.Program, cfg Config, clk clock.Clock) (*Resource, *memory.RuntimeStore) {
	t.Helper()
	reg := types.New()
	store := &memory.RuntimeStore{
		Globals: memory.NewGlobals(),
		Frames:  memory.NewFrameStack(),
		Arena:   memory.NewArena(),
	}
	d := NewDispatcher(prog, reg, stdlib.New(), eval.New(), store)
	sched := scheduler.New(prog.Tasks)
	r := NewResource("R1", prog, reg, d, sched, store, nil, clk, cfg, nil, nil, nil)
	require.NoError(t, r.Init(cfg.RestartMode))
	return r, store
}

func TestResourceRunCycleIncrementsProgramState(t *testing.T) {
	clk := clock.NewManualClock(time.Unix(0, 0))
	r, _ := buildResource(t, countingProgram(), Config{}, clk)

	require.NoError(t, r.RunCycle(clk.Now()))
	n, err := r.Dispatcher.programFrames["MAIN"].Get("N")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.(values.SInt).V)

	require.NoError(t, r.RunCycle(clk.Now().Add(10*time.Millisecond)))
	n, err = r.Dispatcher.programFrames["MAIN"].Get("N")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.(values.SInt).V)
}

func TestResourceEmitsCycleAndTaskEvents(t *testing.T) {
	clk := clock.NewManualClock(time.Unix(0, 0))
	var kinds []EventKind
	reg := types.New()
	prog := countingProgram()
	store := &memory.RuntimeStore{Globals: memory.NewGlobals(), Frames: memory.NewFrameStack(), Arena: memory.NewArena()}
	d := NewDispatcher(prog, reg, stdlib.New(), eval.New(), store)
	sched := scheduler.New(prog.Tasks)
	r := NewResource("R1", prog, reg, d, sched, store, nil, clk, Config{}, nil, nil, func(e Event) {
		kinds = append(kinds, e.Kind)
	})
	require.NoError(t, r.Init(RestartCold))

	require.NoError(t, r.RunCycle(clk.Now()))
	assert.Equal(t, []EventKind{EventCycleStart, EventTaskStart, EventTaskEnd, EventCycleEnd}, kinds)
}

// faultyProgram returns an ir.Program whose program body calls an undefined
// function, guaranteeing a RuntimeError at the task boundary.
func faultyProgram() *ir.Program {
	return &ir.Program{
		Programs: []ir.ProgramDef{{
			Name: "MAIN",
			Body: []ir.Stmt{
				ir.ExprStmt{X: ir.Call{Callee: "DOES_NOT_EXIST"}},
			},
		}},
		Tasks: []ir.TaskConfig{{Name: "FAST", Interval: time.Millisecond, Priority: 1, Programs: []string{"MAIN"}}},
	}
}

func TestResourceHaltPolicyFaultsAndStaysFaulted(t *testing.T) {
	clk := clock.NewManualClock(time.Unix(0, 0))
	r, _ := buildResource(t, faultyProgram(), Config{FaultPolicy: FaultHalt}, clk)

	err := r.RunCycle(clk.Now())
	assert.Error(t, err)

	err = r.RunCycle(clk.Now())
	assert.Error(t, err, "a halted resource refuses further cycles")
}

func TestResourceRestartPolicyResumesAfterRecovering(t *testing.T) {
	clk := clock.NewManualClock(time.Unix(0, 0))
	reg := types.New()
	prog := faultyProgram()
	store := &memory.RuntimeStore{Globals: memory.NewGlobals(), Frames: memory.NewFrameStack(), Arena: memory.NewArena()}
	d := NewDispatcher(prog, reg, stdlib.New(), eval.New(), store)
	sched := scheduler.New(prog.Tasks)
	var faults int
	r := NewResource("R1", prog, reg, d, sched, store, nil, clk, Config{FaultPolicy: FaultRestart, RestartMode: RestartCold}, nil, nil, func(e Event) {
		if e.Kind == EventFault {
			faults++
		}
	})
	require.NoError(t, r.Init(RestartCold))

	// FaultRestart clears the fault and reinitializes the resource so it
	// keeps accepting cycles, even though the faulty body re-raises on
	// every subsequent cycle too.
	require.NoError(t, r.RunCycle(clk.Now()))
	require.NoError(t, r.RunCycle(clk.Now().Add(time.Millisecond)))
	assert.Equal(t, 2, faults)
	assert.False(t, r.faulted)
}

func TestSharedGlobalsPublishAndRefresh(t *testing.T) {
	sg := NewSharedGlobals([]string{"SHARED_X"})

	gA := memory.NewGlobals()
	gA.Declare("SHARED_X", values.SInt{Width: 32, V: 0})
	gA.Declare("LOCAL_ONLY", values.Bool{V: true})
	require.NoError(t, gA.Set("SHARED_X", values.SInt{Width: 32, V: 7}))
	require.NoError(t, sg.Publish(gA))

	gB := memory.NewGlobals()
	gB.Declare("SHARED_X", values.SInt{Width: 32, V: 0})
	require.NoError(t, sg.Refresh(gB))

	v, err := gB.Get("SHARED_X")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.(values.SInt).V)
}

func TestFaultPolicyConstantsAreDistinct(t *testing.T) {
	assert.NotEqual(t, FaultHalt, FaultSafeHalt)
	assert.NotEqual(t, FaultSafeHalt, FaultRestart)
}

func TestRestartModeDirections(t *testing.T) {
	assert.NotEqual(t, RestartCold, RestartWarm)
}
