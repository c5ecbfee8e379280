package stdlib

import (
	"time"

	"github.com/stplatform/stcore/values"
)

// FunctionBlock is implemented by each standard function block (§4.H).
// Instance state is a plain name -> Value map mirroring the instance
// variables the memory arena already carries for a user-declared FB, so
// the runtime can load/store it through the ordinary instance path
// without this package needing to know about memory/ir.
type FunctionBlock interface {
	// Defaults returns the initial field values for a freshly created
	// instance.
	Defaults() map[string]values.Value
	// Step consumes the current state and this cycle's bound inputs,
	// advances dt (for the timers), and returns the updated state —
	// inputs, outputs and internal bookkeeping fields all live in the
	// same map, keyed by the FB's declared variable names.
	Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error)
}

// StandardFB looks up a standard function block implementation by its
// IEC 61131-3 type name.
func StandardFB(typeName string) (FunctionBlock, bool) {
	fb, ok := standardFBs[typeName]
	return fb, ok
}

var standardFBs = map[string]FunctionBlock{
	"RS":     rsFB{},
	"SR":     srFB{},
	"R_TRIG": rTrigFB{},
	"F_TRIG": fTrigFB{},
	"CTU":    ctuFB{},
	"CTD":    ctdFB{},
	"CTUD":   ctudFB{},
	"TP":     tpFB{},
	"TON":    tonFB{},
	"TOF":    tofFB{},
}

func getBool(state map[string]values.Value, name string) bool {
	b, _ := state[name].(values.Bool)
	return b.V
}

func setBool(state map[string]values.Value, name string, v bool) {
	state[name] = values.Bool{V: v}
}

func getDuration(state map[string]values.Value, name string) time.Duration {
	d, _ := state[name].(values.Duration)
	return d.V
}

func setDuration(state map[string]values.Value, name string, v time.Duration) {
	state[name] = values.Duration{V: v}
}

func getInt(state map[string]values.Value, name string) int64 {
	switch x := state[name].(type) {
	case values.SInt:
		return x.V
	case values.UInt:
		return int64(x.V)
	}
	return 0
}

// rsFB is reset-dominant: Q1 := if R then false elif S1 then true else Q1.
type rsFB struct{}

func (rsFB) Defaults() map[string]values.Value {
	return map[string]values.Value{"S1": values.Bool{}, "R": values.Bool{}, "Q1": values.Bool{}}
}

func (rsFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	switch {
	case getBool(state, "R"):
		setBool(state, "Q1", false)
	case getBool(state, "S1"):
		setBool(state, "Q1", true)
	}
	return state, nil
}

// srFB is set-dominant: Q1 := if S1 then true elif R then false else Q1.
type srFB struct{}

func (srFB) Defaults() map[string]values.Value {
	return map[string]values.Value{"S1": values.Bool{}, "R": values.Bool{}, "Q1": values.Bool{}}
}

func (srFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	switch {
	case getBool(state, "S1"):
		setBool(state, "Q1", true)
	case getBool(state, "R"):
		setBool(state, "Q1", false)
	}
	return state, nil
}

// rTrigFB latches the previous CLK: Q := CLK ∧ ¬prev.
type rTrigFB struct{}

func (rTrigFB) Defaults() map[string]values.Value {
	return map[string]values.Value{"CLK": values.Bool{}, "Q": values.Bool{}, "prev": values.Bool{}}
}

func (rTrigFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	clk := getBool(state, "CLK")
	setBool(state, "Q", clk && !getBool(state, "prev"))
	setBool(state, "prev", clk)
	return state, nil
}

// fTrigFB is the falling-edge detector: Q := ¬CLK ∧ prev.
type fTrigFB struct{}

func (fTrigFB) Defaults() map[string]values.Value {
	return map[string]values.Value{"CLK": values.Bool{}, "Q": values.Bool{}, "prev": values.Bool{}}
}

func (fTrigFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	clk := getBool(state, "CLK")
	setBool(state, "Q", !clk && getBool(state, "prev"))
	setBool(state, "prev", clk)
	return state, nil
}

// ctuFB counts up, bounded at PV: Q := CV >= PV.
type ctuFB struct{}

func (ctuFB) Defaults() map[string]values.Value {
	return map[string]values.Value{
		"CU": values.Bool{}, "R": values.Bool{}, "PV": values.SInt{Width: 32},
		"Q": values.Bool{}, "CV": values.SInt{Width: 32}, "prevCU": values.Bool{},
	}
}

func (ctuFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	pv := getInt(state, "PV")
	cv := getInt(state, "CV")
	cu := getBool(state, "CU")
	switch {
	case getBool(state, "R"):
		cv = 0
	case cu && !getBool(state, "prevCU") && cv < pv:
		cv++
	}
	setBool(state, "prevCU", cu)
	state["CV"] = values.SInt{Width: 32, V: cv}
	setBool(state, "Q", cv >= pv)
	return state, nil
}

// ctdFB counts down from a load, bounded at zero: Q := CV <= 0.
type ctdFB struct{}

func (ctdFB) Defaults() map[string]values.Value {
	return map[string]values.Value{
		"CD": values.Bool{}, "LD": values.Bool{}, "PV": values.SInt{Width: 32},
		"Q": values.Bool{}, "CV": values.SInt{Width: 32}, "prevCD": values.Bool{},
	}
}

func (ctdFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	cv := getInt(state, "CV")
	cd := getBool(state, "CD")
	switch {
	case getBool(state, "LD"):
		cv = getInt(state, "PV")
	case cd && !getBool(state, "prevCD") && cv > 0:
		cv--
	}
	setBool(state, "prevCD", cd)
	state["CV"] = values.SInt{Width: 32, V: cv}
	setBool(state, "Q", cv <= 0)
	return state, nil
}

// ctudFB combines CTU and CTD over a shared CV: QU := CV >= PV, QD := CV <= 0.
type ctudFB struct{}

func (ctudFB) Defaults() map[string]values.Value {
	return map[string]values.Value{
		"CU": values.Bool{}, "CD": values.Bool{}, "R": values.Bool{}, "LD": values.Bool{},
		"PV": values.SInt{Width: 32}, "QU": values.Bool{}, "QD": values.Bool{},
		"CV": values.SInt{Width: 32}, "prevCU": values.Bool{}, "prevCD": values.Bool{},
	}
}

func (ctudFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	pv := getInt(state, "PV")
	cv := getInt(state, "CV")
	cu, cd := getBool(state, "CU"), getBool(state, "CD")
	switch {
	case getBool(state, "R"):
		cv = 0
	case getBool(state, "LD"):
		cv = pv
	default:
		if cu && !getBool(state, "prevCU") && cv < pv {
			cv++
		}
		if cd && !getBool(state, "prevCD") && cv > 0 {
			cv--
		}
	}
	setBool(state, "prevCU", cu)
	setBool(state, "prevCD", cd)
	state["CV"] = values.SInt{Width: 32, V: cv}
	setBool(state, "QU", cv >= pv)
	setBool(state, "QD", cv <= 0)
	return state, nil
}

// tpFB is the non-retriggerable pulse timer: a rising edge on IN starts a
// PT-long pulse on Q, regardless of what IN does afterward.
type tpFB struct{}

func (tpFB) Defaults() map[string]values.Value {
	return map[string]values.Value{
		"IN": values.Bool{}, "PT": values.Duration{}, "Q": values.Bool{},
		"ET": values.Duration{}, "active": values.Bool{}, "prevIN": values.Bool{},
	}
}

func (tpFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	in := getBool(state, "IN")
	pt := getDuration(state, "PT")
	active := getBool(state, "active")
	if in && !getBool(state, "prevIN") && !active {
		active = true
		setDuration(state, "ET", 0)
	}
	if active {
		et := getDuration(state, "ET") + dt
		if et >= pt {
			et = pt
			active = false
		}
		setDuration(state, "ET", et)
	}
	setBool(state, "prevIN", in)
	setBool(state, "active", active)
	setBool(state, "Q", active)
	return state, nil
}

// tonFB is the on-delay timer: Q goes true once IN has held for PT.
type tonFB struct{}

func (tonFB) Defaults() map[string]values.Value {
	return map[string]values.Value{
		"IN": values.Bool{}, "PT": values.Duration{}, "Q": values.Bool{}, "ET": values.Duration{},
	}
}

func (tonFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	pt := getDuration(state, "PT")
	if getBool(state, "IN") {
		et := getDuration(state, "ET") + dt
		if et > pt {
			et = pt
		}
		setDuration(state, "ET", et)
		setBool(state, "Q", et >= pt)
	} else {
		setDuration(state, "ET", 0)
		setBool(state, "Q", false)
	}
	return state, nil
}

// tofFB is the off-delay timer: Q drops false only after IN has been false
// for PT.
type tofFB struct{}

func (tofFB) Defaults() map[string]values.Value {
	return map[string]values.Value{
		"IN": values.Bool{}, "PT": values.Duration{}, "Q": values.Bool{}, "ET": values.Duration{},
	}
}

func (tofFB) Step(state map[string]values.Value, dt time.Duration) (map[string]values.Value, error) {
	pt := getDuration(state, "PT")
	if getBool(state, "IN") {
		setDuration(state, "ET", 0)
		setBool(state, "Q", true)
	} else {
		et := getDuration(state, "ET") + dt
		if et > pt {
			et = pt
		}
		setDuration(state, "ET", et)
		setBool(state, "Q", et < pt)
	}
	return state, nil
}
