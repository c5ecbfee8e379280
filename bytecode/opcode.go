package bytecode

import "github.com/stplatform/stcore/errs"

// Opcode is one recognized instruction tag in a POU_BODIES payload. The
// instruction set here is intentionally small: the runtime interprets the
// lowered IR directly (spec Non-goals: "a tree-walking ... interpreter over
// a lowered program model", not a bytecode VM), so POU_BODIES exists as a
// portable interchange format a separate compiler backend would emit and
// this package only needs to validate, never execute.
type Opcode byte

const (
	OpNop Opcode = iota
	OpPushConst
	OpLoadRef
	OpStoreRef
	OpCall
	OpJump
	OpJumpIfFalse
	OpBinary
	OpUnary
	OpReturn
	OpHalt
)

// operandWidth gives the number of operand bytes following each opcode
// byte. OpPushConst's operand is a u32 string-table/const-pool index,
// OpLoadRef/OpStoreRef a u32 REF_TABLE index, OpCall a u32 POU id,
// OpJump/OpJumpIfFalse a u32 code offset, OpBinary/OpUnary a single
// sub-opcode byte; the rest take no operand.
var operandWidth = map[Opcode]int{
	OpNop:         0,
	OpPushConst:   4,
	OpLoadRef:     4,
	OpStoreRef:    4,
	OpCall:        4,
	OpJump:        4,
	OpJumpIfFalse: 4,
	OpBinary:      1,
	OpUnary:       1,
	OpReturn:      0,
	OpHalt:        0,
}

// ValidateOpcodes walks code byte by byte, rejecting any byte that isn't a
// recognized opcode or a valid operand of the opcode preceding it, and
// checking that every jump target lies inside [0, len(code)) and every call
// operand names a POU id with an entry in pous (§6.1 "Opcode validation").
func ValidateOpcodes(code []byte, pous []POUIndexEntry) error {
	pouCount := uint32(len(pous))
	i := 0
	for i < len(code) {
		op := Opcode(code[i])
		width, ok := operandWidth[op]
		if !ok {
			return errs.New(errs.KindInvalidBytecode, "unrecognized opcode 0x%02x at offset %d", code[i], i)
		}
		operandStart := i + 1
		if operandStart+width > len(code) {
			return errs.New(errs.KindInvalidBytecode, "opcode at offset %d truncated operand", i)
		}
		operand := code[operandStart : operandStart+width]

		switch op {
		case OpJump, OpJumpIfFalse:
			target := le32(operand)
			if target >= uint32(len(code)) {
				return errs.New(errs.KindInvalidBytecode, "jump at offset %d targets out-of-range offset %d", i, target)
			}
		case OpCall:
			id := le32(operand)
			if id >= pouCount {
				return errs.New(errs.KindInvalidBytecode, "call at offset %d references unknown POU id %d", i, id)
			}
		}

		i = operandStart + width
	}
	return nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
