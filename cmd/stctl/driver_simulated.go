package main

import "github.com/stplatform/stcore/ioimage"

// simulatedDriver is the "simulated" transport ioimage.Driver's own doc
// comment names alongside Modbus/EtherCAT/GPIO as a legitimate concrete
// implementation (the real fieldbus transports are out of scope, a
// simulator standing in for hardware is not): it reads and writes nothing,
// letting `stctl run` exercise the resource's cycle loop, scheduler, and
// control socket against a bundle with no physical I/O attached.
type simulatedDriver struct{}

func (simulatedDriver) Name() string                          { return "simulated" }
func (simulatedDriver) ReadInputs(img *ioimage.Image) error   { return nil }
func (simulatedDriver) WriteOutputs(img *ioimage.Image) error { return nil }
func (simulatedDriver) Health() error                         { return nil }
