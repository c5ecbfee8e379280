package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockAdvanceUnblocksSleepUntil(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		c.SleepUntil(time.Unix(0, 0).Add(5 * time.Second))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("SleepUntil returned before the deadline")
	case <-time.After(20 * time.Millisecond):
	}

	c.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SleepUntil did not unblock after Advance")
	}
}

func TestManualClockNowReflectsAdvance(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewManualClock(start)
	c.Advance(10 * time.Second)
	assert.Equal(t, start.Add(10*time.Second), c.Now())
}
