package bytecode

import "github.com/stplatform/stcore/errs"

// Validate performs the structural checks Decode defers: it parses
// POU_INDEX, slices each POU's code window out of POU_BODIES and opcode-
// validates it, and (when a DEBUG_MAP section is present) slices and
// monotonicity-checks each POU's debug window. Decode alone only verifies
// the container's header/section-table invariants; Validate is the
// §6.1 "Decoder invariants" pass a loader runs before trusting the
// container's code.
func Validate(c *Container) error {
	pouIndexSection, ok := c.Section(SectionPOUIndex)
	if !ok {
		return errs.New(errs.KindInvalidBytecodeMetadata, "missing POU_INDEX section")
	}
	pous, err := DecodePOUIndex(pouIndexSection.Payload)
	if err != nil {
		return err
	}

	bodies, ok := c.Section(SectionPOUBodies)
	if !ok {
		return errs.New(errs.KindInvalidBytecodeMetadata, "missing POU_BODIES section")
	}

	var debugMap Section
	hasDebug := false
	if s, ok := c.Section(SectionDebugMap); ok {
		debugMap, hasDebug = s, true
	}

	for i, pou := range pous {
		code, err := window(bodies.Payload, pou.CodeOffset, pou.CodeLength)
		if err != nil {
			return errs.Wrap(errs.KindInvalidBytecode, err, "POU %d code window", i)
		}
		if err := ValidateOpcodes(code, pous); err != nil {
			return errs.Wrap(errs.KindInvalidBytecode, err, "POU %d", i)
		}

		if pou.DebugLength == 0 {
			continue
		}
		if !hasDebug {
			return errs.New(errs.KindInvalidBytecodeMetadata, "POU %d declares a debug window but no DEBUG_MAP section is present", i)
		}
		debugWindow, err := window(debugMap.Payload, pou.DebugOffset, pou.DebugLength)
		if err != nil {
			return errs.Wrap(errs.KindInvalidBytecodeMetadata, err, "POU %d debug window", i)
		}
		if _, err := DecodeDebugMapWindow(debugWindow); err != nil {
			return errs.Wrap(errs.KindInvalidBytecodeMetadata, err, "POU %d", i)
		}
	}
	return nil
}
