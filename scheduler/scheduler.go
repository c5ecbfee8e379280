// Package scheduler implements the task readiness and overrun bookkeeping
// of spec §4.J: given a set of configured tasks (periodic or
// single-triggered) and the current time, it decides which are due this
// cycle, in priority order with registration-order tie-breaking, and
// tracks per-task run statistics across cycles. It has no notion of
// program bodies or FB instances — the runtime package drives execution
// once a task is handed back as ready.
package scheduler

import (
	"sort"
	"time"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/ir"
)

// TriggerSource resolves a single-trigger task's boolean trigger global.
// The runtime's memory.RuntimeStore satisfies this.
type TriggerSource interface {
	BoolGlobal(name string) (bool, error)
}

// Stats accumulates a task's run history across cycles.
type Stats struct {
	RunCount     uint64
	OverrunCount uint64
	MissedTotal  uint64
	LastElapsed  time.Duration
	MaxElapsed   time.Duration
}

// Task is one configured task plus its runtime bookkeeping.
type Task struct {
	Config ir.TaskConfig
	Stats  Stats

	order   int
	started bool
	lastRun time.Time
}

// Due reports whether t should run this cycle: a single-triggered task is
// due when its trigger global reads true; a periodic task is due on its
// first cycle, or once its interval has elapsed since the last run.
func (t *Task) Due(now time.Time, triggers TriggerSource) (bool, error) {
	if t.Config.SingleTrigger != "" {
		v, err := triggers.BoolGlobal(t.Config.SingleTrigger)
		if err != nil {
			return false, errs.Wrap(errs.KindInvalidTaskSingle, err, "task %q single-trigger global %q", t.Config.Name, t.Config.SingleTrigger)
		}
		return v, nil
	}
	if !t.started {
		return true, nil
	}
	return !now.Before(t.lastRun.Add(t.Config.Interval)), nil
}

// Overrun reports how many whole intervals have elapsed beyond the last
// run without this task executing (0 for single-triggered tasks, which
// have no periodic cadence to miss). Call before Complete — Complete
// advances last_run, after which Overrun would read as zero again.
func (t *Task) Overrun(now time.Time) int64 {
	if t.Config.SingleTrigger != "" || t.Config.Interval <= 0 || !t.started {
		return 0
	}
	over := now.Sub(t.lastRun) - t.Config.Interval
	if over <= 0 {
		return 0
	}
	return int64(over / t.Config.Interval)
}

// Complete records this cycle's run: advances last_run, marks the task
// started, and folds elapsed/overrun into Stats. The caller is still
// responsible for clearing the single-trigger global itself — that's
// memory-owned state this package never touches.
func (t *Task) Complete(now time.Time, elapsed time.Duration) {
	if k := t.Overrun(now); k >= 1 {
		t.Stats.OverrunCount++
		t.Stats.MissedTotal += uint64(k)
	}
	t.lastRun = now
	t.started = true
	t.Stats.RunCount++
	t.Stats.LastElapsed = elapsed
	if elapsed > t.Stats.MaxElapsed {
		t.Stats.MaxElapsed = elapsed
	}
}

// LastRun reports the time of the task's most recent completed run, and
// whether it has run at all.
func (t *Task) LastRun() (time.Time, bool) {
	return t.lastRun, t.started
}

// Scheduler holds one resource's configured tasks in registration order.
type Scheduler struct {
	tasks []*Task
}

// New builds a Scheduler from a resource's task configuration, in the
// order supplied — that order is the tie-break priority for equal-priority
// tasks in ReadyTasks.
func New(configs []ir.TaskConfig) *Scheduler {
	tasks := make([]*Task, len(configs))
	for i, c := range configs {
		tasks[i] = &Task{Config: c, order: i}
	}
	return &Scheduler{tasks: tasks}
}

// Tasks returns every configured task in registration order.
func (s *Scheduler) Tasks() []*Task {
	return s.tasks
}

// ReadyTasks builds step 3's ready-task list: every due task, sorted by
// priority descending, ties broken by registration order.
func (s *Scheduler) ReadyTasks(now time.Time, triggers TriggerSource) ([]*Task, error) {
	ready := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		due, err := t.Due(now, triggers)
		if err != nil {
			return nil, err
		}
		if due {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Config.Priority > ready[j].Config.Priority
	})
	return ready, nil
}
