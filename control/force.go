package control

import (
	"sync"

	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/values"
)

// ForceTable holds the addresses an operator has pinned to an explicit
// value via io.force (§6.3), keyed by the address's canonical text. There
// is no forcing machinery anywhere below this package: ioimage.Image only
// knows how to read and write its byte vectors, so forcing is implemented
// here as an overlay reapplied around a driver's normal I/O, the same
// decorator shape ioimage.HealthDegradedDriver uses for its OnError policy.
type ForceTable struct {
	mu     sync.RWMutex
	forced map[string]forcedValue
}

type forcedValue struct {
	addr ioimage.Address
	val  values.Value
}

// NewForceTable builds an empty ForceTable.
func NewForceTable() *ForceTable {
	return &ForceTable{forced: make(map[string]forcedValue)}
}

// Force pins addr to v until a matching Unforce.
func (f *ForceTable) Force(addr ioimage.Address, v values.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced[addr.String()] = forcedValue{addr: addr, val: v}
}

// Unforce releases addr, if it was forced.
func (f *ForceTable) Unforce(addr ioimage.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.forced, addr.String())
}

// List returns a snapshot of every forced address's current value, keyed
// by address text.
func (f *ForceTable) List() map[string]values.Value {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]values.Value, len(f.forced))
	for addr, fv := range f.forced {
		out[addr] = fv.val
	}
	return out
}

// apply writes every forced value into img, overriding whatever a driver
// or the evaluated program just wrote there.
func (f *ForceTable) apply(img *ioimage.Image) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fv := range f.forced {
		if err := img.Write(fv.addr, fv.val); err != nil {
			return err
		}
	}
	return nil
}

// ForcingDriver decorates an ioimage.Driver so the resource's configured
// Forces overlay wins on every cycle: forced inputs override whatever the
// wrapped driver just read, and forced outputs override whatever the
// program just computed, immediately before the wrapped driver writes them
// to the wire. Grounded on ioimage.HealthDegradedDriver: embed Driver,
// wrap ReadInputs/WriteOutputs.
type ForcingDriver struct {
	ioimage.Driver
	Forces *ForceTable
}

// NewForcingDriver wraps d so Forces is reapplied around its I/O.
func NewForcingDriver(d ioimage.Driver, forces *ForceTable) *ForcingDriver {
	return &ForcingDriver{Driver: d, Forces: forces}
}

func (f *ForcingDriver) ReadInputs(img *ioimage.Image) error {
	if err := f.Driver.ReadInputs(img); err != nil {
		return err
	}
	return f.Forces.apply(img)
}

func (f *ForcingDriver) WriteOutputs(img *ioimage.Image) error {
	if err := f.Forces.apply(img); err != nil {
		return err
	}
	return f.Driver.WriteOutputs(img)
}
