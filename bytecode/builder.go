package bytecode

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/stplatform/stcore/errs"
)

// Builder assembles a bytecode container payload-by-payload and serializes
// it to bytes that Decode can read back bit-for-bit, the round-trip
// property §6.1 implies by specifying the format symmetrically.
type Builder struct {
	Minor    uint16
	Flags    uint32
	sections []namedSection
}

type namedSection struct {
	id      SectionID
	payload []byte
}

// NewBuilder starts a container at the supported major version.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddSection appends a section payload. Sections are written to the file in
// the order added; Build 4-byte-pads each payload before placing the next.
func (b *Builder) AddSection(id SectionID, payload []byte) *Builder {
	b.sections = append(b.sections, namedSection{id: id, payload: payload})
	return b
}

// Build serializes the header, padded payloads, and section table, in that
// order, matching the layout Decode expects: a reader never needs the
// section table to precede the payloads it describes.
func (b *Builder) Build() ([]byte, error) {
	seen := make(map[SectionID]bool, len(b.sections))
	for _, s := range b.sections {
		if seen[s.id] {
			return nil, errs.New(errs.KindInvalidBytecode, "duplicate section %s", s.id)
		}
		seen[s.id] = true
	}
	for _, id := range required {
		if !seen[id] {
			return nil, errs.New(errs.KindInvalidBytecodeMetadata, "missing required section %s", id)
		}
	}

	buf := make([]byte, headerSize)
	offsets := make([]uint32, len(b.sections))
	for i, s := range b.sections {
		for len(buf)%alignment != 0 {
			buf = append(buf, 0)
		}
		offsets[i] = uint32(len(buf))
		buf = append(buf, s.payload...)
	}

	tableOff := uint32(len(buf))
	for i, s := range b.sections {
		var entry [sectionEntrySize]byte
		binary.LittleEndian.PutUint16(entry[0:2], uint16(s.id))
		binary.LittleEndian.PutUint32(entry[2:6], offsets[i])
		binary.LittleEndian.PutUint32(entry[6:10], uint32(len(s.payload)))
		binary.LittleEndian.PutUint32(entry[10:14], crc32.ChecksumIEEE(s.payload))
		buf = append(buf, entry[:]...)
	}

	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], SupportedMajor)
	binary.LittleEndian.PutUint16(buf[6:8], b.Minor)
	binary.LittleEndian.PutUint32(buf[8:12], b.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], tableOff)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(b.sections)))

	return buf, nil
}
