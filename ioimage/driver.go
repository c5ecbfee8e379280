package ioimage

import (
	"strings"
	"sync"

	"github.com/stplatform/stcore/errs"
)

// OnErrorPolicy selects how a driver fault is handled (§7): "fault" raises,
// "warn" degrades the driver's health without raising.
type OnErrorPolicy string

const (
	OnErrorFault OnErrorPolicy = "fault"
	OnErrorWarn  OnErrorPolicy = "warn"
)

// Driver is the external collaborator contract the runtime consumes for a
// concrete I/O transport (Modbus/EtherCAT/GPIO/simulated); the concrete
// transports are out of scope per spec §1.
type Driver interface {
	Name() string
	ReadInputs(img *Image) error
	WriteOutputs(img *Image) error
	Health() error
}

// Validator checks a driver's configuration params before construction.
type Validator func(params map[string]any) error

// Constructor builds a Driver from validated params.
type Constructor func(params map[string]any) (Driver, error)

type registration struct {
	validate Validator
	build    Constructor
}

// Registry maps a driver name (case-insensitive) to (validator,
// constructor) pairs (§4.I).
type Registry struct {
	mu  sync.RWMutex
	reg map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{reg: make(map[string]registration)}
}

func (r *Registry) Register(name string, validate Validator, build Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reg[strings.ToLower(name)] = registration{validate: validate, build: build}
}

// Instantiate validates params then constructs the named driver.
func (r *Registry) Instantiate(name string, params map[string]any) (Driver, error) {
	r.mu.RLock()
	reg, ok := r.reg[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.KindIoDriver, "no driver registered under name %q", name)
	}
	if reg.validate != nil {
		if err := reg.validate(params); err != nil {
			return nil, errs.Wrap(errs.KindIoDriver, err, "driver %q rejected its configuration", name)
		}
	}
	return reg.build(params)
}

// HealthDegradedDriver decorates a Driver so ReadInputs/WriteOutputs honor
// an OnError policy: "warn" swallows the error and marks the driver
// unhealthy instead of propagating it to the cycle.
type HealthDegradedDriver struct {
	Driver
	Policy  OnErrorPolicy
	healthy bool
	lastErr error
	mu      sync.Mutex
}

func NewHealthDegraded(d Driver, policy OnErrorPolicy) *HealthDegradedDriver {
	return &HealthDegradedDriver{Driver: d, Policy: policy, healthy: true}
}

func (h *HealthDegradedDriver) guard(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		h.healthy = true
		h.lastErr = nil
		return nil
	}
	h.lastErr = err
	if h.Policy == OnErrorWarn {
		h.healthy = false
		return nil
	}
	return err
}

func (h *HealthDegradedDriver) ReadInputs(img *Image) error  { return h.guard(h.Driver.ReadInputs(img)) }
func (h *HealthDegradedDriver) WriteOutputs(img *Image) error { return h.guard(h.Driver.WriteOutputs(img)) }

func (h *HealthDegradedDriver) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.healthy {
		return errs.Wrap(errs.KindIoDriver, h.lastErr, "driver %q is degraded", h.Driver.Name())
	}
	return nil
}
