package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalBuilder() *Builder {
	pous := []POUIndexEntry{
		{NameIdx: 0, CodeOffset: 0, CodeLength: 2, DebugOffset: 0, DebugLength: 0},
	}
	code := []byte{byte(OpNop), byte(OpReturn)}
	refs := []RefEntry{{Tag: LocGlobal, OwnerID: 0, Offset: 0, Segments: []uint32{0}}}
	res := []ResourceMeta{{
		NameIdx: 0, InputSize: 0, OutputSize: 0, MemorySize: 8,
		Tasks: []TaskMeta{{NameIdx: 1, IntervalNS: 1_000_000, Priority: 10, SingleIdx: NoSingle}},
	}}

	return NewBuilder().
		AddSection(SectionStringTable, EncodeStringTable([]string{"X", "main"})).
		AddSection(SectionRefTable, EncodeRefTable(refs)).
		AddSection(SectionResourceMeta, EncodeResourceMeta(res)).
		AddSection(SectionPOUIndex, EncodePOUIndex(pous)).
		AddSection(SectionPOUBodies, code)
}

func TestBuildDecodeRoundTrip(t *testing.T) {
	data, err := minimalBuilder().Build()
	require.NoError(t, err)

	c, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(SupportedMajor), c.Header.Major)

	strs, err := DecodeStringTable(mustSection(t, c, SectionStringTable))
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "main"}, strs)

	refs, err := DecodeRefTable(mustSection(t, c, SectionRefTable))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, LocGlobal, refs[0].Tag)
	assert.Equal(t, []uint32{0}, refs[0].Segments)

	res, err := DecodeResourceMeta(mustSection(t, c, SectionResourceMeta))
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Len(t, res[0].Tasks, 1)
	assert.Equal(t, NoSingle, res[0].Tasks[0].SingleIdx)

	require.NoError(t, Validate(c))
}

func mustSection(t *testing.T, c *Container, id SectionID) []byte {
	t.Helper()
	s, ok := c.Section(id)
	require.True(t, ok, "missing section %s", id)
	return s.Payload
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data, err := minimalBuilder().Build()
	require.NoError(t, err)
	data[0] = 'X'
	_, err = Decode(data)
	assert.ErrorContains(t, err, "invalid magic")
}

func TestDecodeRejectsUnsupportedMajorVersion(t *testing.T) {
	data, err := minimalBuilder().Build()
	require.NoError(t, err)
	data[4] = 99
	_, err = Decode(data)
	assert.ErrorContains(t, err, "unsupported major version")
}

func TestBuildRejectsMissingRequiredSection(t *testing.T) {
	_, err := NewBuilder().
		AddSection(SectionStringTable, EncodeStringTable(nil)).
		Build()
	assert.ErrorContains(t, err, "missing required section")
}

func TestDecodeRejectsChecksumMismatch(t *testing.T) {
	data, err := minimalBuilder().Build()
	require.NoError(t, err)

	// Flip a byte inside the first section's payload (right after the
	// header) without touching its checksum entry.
	data[headerSize] ^= 0xFF

	_, err = Decode(data)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestDecodeRejectsTruncatedFile(t *testing.T) {
	data, err := minimalBuilder().Build()
	require.NoError(t, err)
	_, err = Decode(data[:10])
	assert.Error(t, err)
}

func TestValidateRejectsBadJumpTarget(t *testing.T) {
	pous := []POUIndexEntry{{NameIdx: 0, CodeOffset: 0, CodeLength: 5}}
	code := make([]byte, 5)
	code[0] = byte(OpJump)
	// operand = 0xFFFFFFFF, far outside the 5-byte code window.
	code[1], code[2], code[3], code[4] = 0xFF, 0xFF, 0xFF, 0xFF

	data, err := NewBuilder().
		AddSection(SectionStringTable, nil).
		AddSection(SectionRefTable, nil).
		AddSection(SectionResourceMeta, nil).
		AddSection(SectionPOUIndex, EncodePOUIndex(pous)).
		AddSection(SectionPOUBodies, code).
		Build()
	require.NoError(t, err)

	c, err := Decode(data)
	require.NoError(t, err)
	assert.ErrorContains(t, Validate(c), "out-of-range offset")
}

func TestValidateRejectsUnrecognizedOpcode(t *testing.T) {
	pous := []POUIndexEntry{{NameIdx: 0, CodeOffset: 0, CodeLength: 1}}
	code := []byte{0xEE}

	data, err := NewBuilder().
		AddSection(SectionStringTable, nil).
		AddSection(SectionRefTable, nil).
		AddSection(SectionResourceMeta, nil).
		AddSection(SectionPOUIndex, EncodePOUIndex(pous)).
		AddSection(SectionPOUBodies, code).
		Build()
	require.NoError(t, err)

	c, err := Decode(data)
	require.NoError(t, err)
	assert.ErrorContains(t, Validate(c), "unrecognized opcode")
}

func TestDecodeDebugMapWindowRejectsNonMonotonicOffsets(t *testing.T) {
	entries := []DebugEntry{
		{CodeOffset: 4, FileID: 1, Line: 10},
		{CodeOffset: 2, FileID: 1, Line: 11},
	}
	_, err := DecodeDebugMapWindow(EncodeDebugMapWindow(entries))
	assert.ErrorContains(t, err, "precedes previous entry")
}

func TestCompatibleVersion(t *testing.T) {
	h := Header{Major: 1, Minor: 3}
	assert.True(t, CompatibleVersion(h, "v1.0.0"))
	assert.True(t, CompatibleVersion(h, "v1.3.0"))
	assert.False(t, CompatibleVersion(h, "v1.4.0"))
	assert.False(t, CompatibleVersion(h, "v2.0.0"))
}
