package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/clock"
	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/scheduler"
	"github.com/stplatform/stcore/stdlib"
	"github.com/stplatform/stcore/types"
)

func TestResourceRunLoopReturnsImmediatelyOnceStopped(t *testing.T) {
	clk := clock.NewManualClock(time.Unix(0, 0))
	r, _ := buildResource(t, countingProgram(), Config{}, clk)
	r.Stop()

	done := make(chan error, 1)
	go func() { done <- r.RunLoop(time.Millisecond) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunLoop did not return after Stop")
	}
}

func TestSupervisorRunReturnsWhenContextCanceled(t *testing.T) {
	clk := clock.NewManualClock(time.Unix(0, 0))
	reg := types.New()
	prog := countingProgram()
	store := &memory.RuntimeStore{Globals: memory.NewGlobals(), Frames: memory.NewFrameStack(), Arena: memory.NewArena()}
	d := NewDispatcher(prog, reg, stdlib.New(), eval.New(), store)
	sched := scheduler.New(prog.Tasks)
	r := NewResource("R1", prog, reg, d, sched, store, nil, clk, Config{}, nil, nil, nil)
	require.NoError(t, r.Init(RestartCold))
	r.Stop() // pre-stopped, so RunLoop never blocks in Clock.SleepUntil below

	sv := &Supervisor{Resources: []*Resource{r}, Tick: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- sv.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Supervisor.Run did not return after context cancellation")
	}
}
