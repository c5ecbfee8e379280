package runtime

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/values"
)

// SharedGlobals is the only channel through which two resources may
// observe each other's state (§5 "Across resources"): a locked
// name→value map over an explicit, configured list of shared names.
type SharedGlobals struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	values map[string]values.Value
}

// NewSharedGlobals builds a SharedGlobals surface over exactly the given
// names; any name not in this list is never read or written by Refresh/
// Publish, regardless of what a resource declares as a global.
func NewSharedGlobals(names []string) *SharedGlobals {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &SharedGlobals{names: set, values: make(map[string]values.Value)}
}

// Refresh overlays the shared table's current values onto g, for every
// shared name that already has a published value. Call before a resource's
// cycle reads its globals.
func (s *SharedGlobals) Refresh(g *memory.Globals) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name := range s.names {
		v, ok := s.values[name]
		if !ok {
			continue
		}
		if err := g.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Publish copies g's current values for every shared name into the shared
// table. Call after a resource's cycle completes.
func (s *SharedGlobals) Publish(g *memory.Globals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.names {
		v, err := g.Get(name)
		if err != nil {
			continue
		}
		s.values[name] = v
	}
	return nil
}

// Supervisor owns a set of resources, each running its own cycle loop on
// its own goroutine (§5 "Scheduling model": one OS thread per resource in
// spec terms, one goroutine here), and reports the first resource failure
// to the caller.
type Supervisor struct {
	Resources []*Resource
	Tick      time.Duration
}

// Run starts every resource's RunLoop concurrently and blocks until ctx is
// canceled or any resource's loop returns an error, at which point every
// other resource is asked to stop and its current cycle is allowed to
// finish (§5 "Cancellation").
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, res := range s.Resources {
		res := res
		g.Go(func() error {
			return res.RunLoop(s.Tick)
		})
	}
	go func() {
		<-ctx.Done()
		for _, res := range s.Resources {
			res.Stop()
		}
	}()
	return g.Wait()
}

// Stop requests every resource to stop after its current cycle.
func (s *Supervisor) Stop() {
	for _, res := range s.Resources {
		res.Stop()
	}
}
