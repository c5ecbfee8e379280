// Package ir is the lowered program model of spec §3.5 plus the lowering
// pass of §4.E that produces it from a parsed CST and a pre-built symbol
// table. The concrete CST/token shapes are out of scope per spec §1 (owned
// by an external parser); this package only defines the contract lowering
// consumes (see SourceProgram in program.go) and the executable model it
// produces, which the evaluator (package eval) walks directly.
package ir

import "github.com/stplatform/stcore/types"

// SourceLocation drives breakpoints and debug snapshots (§4.E).
type SourceLocation struct {
	FileID     uint32
	Start, End int
}

// ExprID is a stable per-file expression identity, assigned by descending
// the file's parse tree in document order and enumerating expression-kind
// nodes (§4.D). Lowering assigns these; the semantic database's type_of and
// expr_id_at_offset queries key off them.
type ExprID uint32

// Expr is the executable expression node interface.
type Expr interface {
	exprNode()
	Loc() SourceLocation
}

type base struct{ Location SourceLocation }

func (base) exprNode()            {}
func (b base) Loc() SourceLocation { return b.Location }

// Literal is a constant value baked in by lowering.
type Literal struct {
	base
	ID   ExprID
	Type types.ID
	Raw  any // concrete Go value backing the literal, e.g. int64, float64, string, bool
}

// This/Super reference the current/base instance inside a method body.
type This struct {
	base
	ID ExprID
}
type Super struct {
	base
	ID ExprID
}

// Sizeof evaluates to SizeOf(Type) at runtime (actually foldable at lower
// time once Type is resolved, but kept as a node so debug display can show
// the original operand).
type Sizeof struct {
	base
	ID   ExprID
	Type types.ID
}

// NameRef is an unqualified or qualified name reference, resolved by
// lowering to a symbol id (opaque here; package eval resolves it through
// the memory subsystem at evaluation time via Name).
type NameRef struct {
	base
	ID   ExprID
	Name string
}

// Arg is one call argument, positional (Name == "") or named.
type Arg struct {
	Name string
	Expr Expr
}

// Call invokes a function, method or standard-library entry by name.
type Call struct {
	base
	ID     ExprID
	Callee string
	Args   []Arg
}

type UnaryOp int

const (
	OpPlus UnaryOp = iota
	OpNeg
	OpNot
)

type Unary struct {
	base
	ID ExprID
	Op UnaryOp
	X  Expr
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpAnd
	OpOr
	OpXor
	OpBitAnd
	OpBitOr
	OpBitXor
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpShl
	OpShr
	OpRol
	OpRor
)

type Binary struct {
	base
	ID   ExprID
	Op   BinaryOp
	L, R Expr
}

// Index is an N-dimensional array subscript.
type Index struct {
	base
	ID      ExprID
	X       Expr
	Indices []Expr
}

// Field is a struct field or type-member access.
type Field struct {
	base
	ID   ExprID
	X    Expr
	Name string
}

// Deref reads/writes through a reference ("r^").
type Deref struct {
	base
	ID ExprID
	X  Expr
}

// AddressOf captures a memory location ("REF(x)").
type AddressOf struct {
	base
	ID ExprID
	X  Expr
}

// AssignAttempt is "r ?= q": assigns only on structural pointee compatibility.
type AssignAttempt struct {
	base
	ID     ExprID
	Target Expr
	Source Expr
}

// Paren preserves explicit parenthesization for debug display.
type Paren struct {
	base
	ID ExprID
	X  Expr
}
