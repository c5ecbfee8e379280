package debugctl

import (
	"sync/atomic"

	"github.com/stplatform/stcore/ir"
)

// BreakpointID identifies one set breakpoint or logpoint for the lifetime
// of the control session; ids never recycle.
type BreakpointID uint64

// HitConditionOp is the comparison a hit condition applies to a
// breakpoint's per-hit counter (§4.L: "==", "%", "≥").
type HitConditionOp int

const (
	// HitNone means every match stops (no hit-count gating).
	HitNone HitConditionOp = iota
	HitEqual
	HitModulo
	HitAtLeast
)

// HitCondition gates a breakpoint stop by its cumulative hit counter.
type HitCondition struct {
	Op HitConditionOp
	N  uint64
}

func (h HitCondition) satisfied(hits uint64) bool {
	switch h.Op {
	case HitEqual:
		return hits == h.N
	case HitModulo:
		return h.N != 0 && hits%h.N == 0
	case HitAtLeast:
		return hits >= h.N
	default:
		return true
	}
}

// BreakpointSpec describes one breakpoint to install via SetBreakpoints.
// Loc must match a statement's SourceLocation exactly (file_id, start,
// end) for the breakpoint to ever be considered. Condition, if non-nil,
// is a compiled boolean expression evaluated against the stopping frame;
// a non-bool result or evaluation error suppresses the stop rather than
// propagating (§4.L).
type BreakpointSpec struct {
	Loc          ir.SourceLocation
	Condition    ir.Expr
	HitCondition HitCondition
}

type breakpoint struct {
	id   BreakpointID
	spec BreakpointSpec
	hits atomic.Uint64
}

// LogSegment is one piece of a logpoint message: literal Text, or an
// inline Expr to evaluate and interpolate in place. Exactly one of the two
// is meaningful per segment — a nil Expr means literal text.
type LogSegment struct {
	Text string
	Expr ir.Expr
}

// LogpointSpec describes one logpoint: on match, its Segments are
// formatted into a message and emitted as a DebugLog event without ever
// stopping execution (§4.L).
type LogpointSpec struct {
	Loc      ir.SourceLocation
	Segments []LogSegment
}

type logpoint struct {
	id   BreakpointID
	spec LogpointSpec
}
