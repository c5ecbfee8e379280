package ir

import (
	"time"

	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// RetainPolicy mirrors the subset of symbols.Modifier relevant to a global's
// persistence behavior.
type RetainPolicy int

const (
	RetainDefault RetainPolicy = iota
	RetainRetain
	RetainNonRetain
	RetainPersistent
)

// GlobalInit is one lowered global variable (§3.5).
type GlobalInit struct {
	Name          string
	Type          types.ID
	Initializer   Expr
	Retain        RetainPolicy
	DirectAddress *AccessPath
	Using         []string
}

// Param is one function/function-block parameter.
type Param struct {
	Name      string
	Type      types.ID
	Direction symbols.Direction
	Default   Expr
}

// Local is one non-parameter local variable.
type Local struct {
	Name   string
	Type   types.ID
	Retain RetainPolicy
}

type FunctionDef struct {
	Name       string
	ReturnType types.ID
	Params     []Param
	Locals     []Local
	Body       []Stmt
}

type MethodDef struct {
	Name       string
	ReturnType types.ID
	Params     []Param
	Locals     []Local
	Body       []Stmt
	Visibility symbols.Visibility
	Modifiers  symbols.Modifier
}

type FunctionBlockDef struct {
	Name       string
	Base       string // empty if none
	Params     []Param
	Persistent []Local
	Temps      []Local
	Methods    []MethodDef
	Body       []Stmt
}

type ClassDef struct {
	Name       string
	Base       string
	Interfaces []string
	Vars       []Local
	Methods    []MethodDef
	Properties []string
}

type ProgramDef struct {
	Name  string
	Vars  []Local
	Temps []Local
	Body  []Stmt
}

// TaskConfig is one PROGRAM-organization task (§3.5, §4.J).
type TaskConfig struct {
	Name            string
	Interval        time.Duration
	SingleTrigger   string // global name, empty if periodic
	Priority        int
	Programs        []string // bound program instance names
	FBInstanceRefs  []string // bound function-block instance names (FB WITH task)
}

// AccessPathKind discriminates the two lowered shapes of §4.E.
type AccessPathKind int

const (
	AccessDirect AccessPathKind = iota
	AccessParts
)

// AccessSegmentKind discriminates a Parts-shaped access path segment.
type AccessSegmentKind int

const (
	SegName AccessSegmentKind = iota
	SegIndex
	SegPartial
)

type AccessSegment struct {
	Kind  AccessSegmentKind
	Name  string
	Index int64
}

// AccessPath is either Direct{address,text} or Parts[...] (§4.E).
type AccessPath struct {
	Kind     AccessPathKind
	Address  string // Direct: the raw "%IX0.0" text
	Text     string
	Segments []AccessSegment // Parts
}

// WildcardRequirement records an `AT %I*`-style variable that configuration
// must bind to a concrete address before the first cycle (§3.4, §4.E).
type WildcardRequirement struct {
	VarName string
	Area    byte // 'I', 'Q', or 'M'
	Bound   bool
	Address string
}

// FBTaskBinding records "FB WITH t", executed on t's cadence rather than
// inline from a program body (§4.E, §4.J).
type FBTaskBinding struct {
	InstanceName string
	TaskName     string
}

// SourceProgram is the contract lowering consumes from an external parser
// (out of scope per spec §1): the raw, unresolved declarations in source
// order, keyed by simple name, with every `AT`/address clause and constant
// initializer still carrying unlowered text/expressions.
type SourceProgram struct {
	GlobalDecls    []GlobalInit
	FunctionDecls  []FunctionDef
	FBDecls        []FunctionBlockDef
	ClassDecls     []ClassDef
	ProgramDecls   []ProgramDef
	TaskDecls      []TaskConfig
	ProgramBindings map[string]string // program instance name -> task name
	FBBindings      []FBTaskBinding
}

// Program is the full lowered program model of §3.5.
type Program struct {
	Globals     []GlobalInit
	Functions   []FunctionDef
	FBs         []FunctionBlockDef
	Classes     []ClassDef
	Programs    []ProgramDef
	Tasks       []TaskConfig
	AccessDecls []AccessPath
	FBBindings  []FBTaskBinding
	Wildcards   []WildcardRequirement
}
