// Package bytecode implements the §6.1 container format: a fixed header, a
// section table, and 4-byte-aligned payload sections, each covered by a
// CRC32 checksum. It mirrors the shape of the teacher's own PE reader
// (file.go's mmap-backed File plus helper.go's structUnpack): Open
// memory-maps a path with github.com/edsrzf/mmap-go and Decode parses the
// header and section table out of whatever []byte backs it, whether that's
// a mapped file or an in-memory buffer handed to a test.
package bytecode

import (
	"encoding/binary"
	"hash/crc32"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/stplatform/stcore/errs"
)

// Magic is the 4-byte container signature.
var Magic = [4]byte{'S', 'T', 'B', 'C'}

// SupportedMajor is the only major version this decoder accepts. A
// mismatched major version is a hard incompatibility (§6.1); minor version
// differences are forward-compatible and gated by golang.org/x/mod/semver
// in CompatibleVersion.
const SupportedMajor = 1

const headerSize = 4 + 2 + 2 + 4 + 4 + 4 // magic, major, minor, flags, section table offset, section count
const sectionEntrySize = 2 + 4 + 4 + 4   // section_id, payload_offset, payload_length, checksum
const alignment = 4

// SectionID identifies one section-table entry (§6.1).
type SectionID uint16

const (
	SectionStringTable SectionID = iota + 1
	SectionRefTable
	SectionResourceMeta
	SectionPOUIndex
	SectionPOUBodies
	SectionIoMap
	SectionVarMeta
	SectionRetainInit
	SectionDebugMap
)

func (id SectionID) String() string {
	switch id {
	case SectionStringTable:
		return "STRING_TABLE"
	case SectionRefTable:
		return "REF_TABLE"
	case SectionResourceMeta:
		return "RESOURCE_META"
	case SectionPOUIndex:
		return "POU_INDEX"
	case SectionPOUBodies:
		return "POU_BODIES"
	case SectionIoMap:
		return "IO_MAP"
	case SectionVarMeta:
		return "VAR_META"
	case SectionRetainInit:
		return "RETAIN_INIT"
	case SectionDebugMap:
		return "DEBUG_MAP"
	default:
		return "UNKNOWN"
	}
}

// required lists the sections §6.1 mandates be present in every container.
var required = []SectionID{
	SectionStringTable,
	SectionRefTable,
	SectionResourceMeta,
	SectionPOUIndex,
	SectionPOUBodies,
}

// Header is the fixed-size container header.
type Header struct {
	Major, Minor      uint16
	Flags             uint32
	SectionTableOff   uint32
	SectionCount      uint32
}

// Section is one decoded section-table entry plus a view onto its payload.
type Section struct {
	ID       SectionID
	Offset   uint32
	Length   uint32
	Checksum uint32
	Payload  []byte
}

// Container is a decoded, validated bytecode container. Its Data field is
// the full backing buffer (mmap'd or in-memory); Sections indexes into it.
type Container struct {
	Header   Header
	Sections map[SectionID]Section

	Data []byte
	data mmap.MMap // non-nil only when Data came from Open, so Close can Unmap
	f    *os.File
}

// Open memory-maps path and decodes it, the way pe.New mmaps a target
// binary instead of reading it into a heap buffer.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidBytecode, err, "open bytecode file %q", path)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.KindInvalidBytecode, err, "mmap bytecode file %q", path)
	}
	c, err := Decode([]byte(data))
	if err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	c.data = data
	c.f = f
	return c, nil
}

// Close releases the mmap backing a Container opened with Open. It is a
// no-op for a Container built by Decode from an in-memory buffer.
func (c *Container) Close() error {
	var err error
	if c.data != nil {
		err = c.data.Unmap()
		c.data = nil
	}
	if c.f != nil {
		if cerr := c.f.Close(); err == nil {
			err = cerr
		}
		c.f = nil
	}
	return err
}

// Decode parses and validates the header and section table of data,
// enforcing every invariant in §6.1 except opcode/debug-map validation,
// which Validate performs separately (it parses POU_INDEX itself).
func Decode(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, errs.New(errs.KindInvalidBytecode, "file too small for header: %d bytes", len(data))
	}
	if [4]byte(data[0:4]) != Magic {
		return nil, errs.New(errs.KindInvalidBytecode, "invalid magic %q", data[0:4])
	}
	h := Header{
		Major:           binary.LittleEndian.Uint16(data[4:6]),
		Minor:           binary.LittleEndian.Uint16(data[6:8]),
		Flags:           binary.LittleEndian.Uint32(data[8:12]),
		SectionTableOff: binary.LittleEndian.Uint32(data[12:16]),
		SectionCount:    binary.LittleEndian.Uint32(data[16:20]),
	}
	if h.Major != SupportedMajor {
		return nil, errs.New(errs.KindUnsupportedBytecodeVersion, "unsupported major version %d (want %d)", h.Major, SupportedMajor)
	}

	sections := make(map[SectionID]Section, h.SectionCount)
	var occupied []Section
	tableOff := uint64(h.SectionTableOff)
	for i := uint32(0); i < h.SectionCount; i++ {
		entryOff := tableOff + uint64(i)*sectionEntrySize
		if entryOff+sectionEntrySize > uint64(len(data)) {
			return nil, errs.New(errs.KindInvalidBytecode, "section table entry %d out of bounds", i)
		}
		e := data[entryOff : entryOff+sectionEntrySize]
		id := SectionID(binary.LittleEndian.Uint16(e[0:2]))
		off := binary.LittleEndian.Uint32(e[2:6])
		length := binary.LittleEndian.Uint32(e[6:10])
		checksum := binary.LittleEndian.Uint32(e[10:14])

		if off%alignment != 0 {
			return nil, errs.New(errs.KindInvalidBytecode, "section %s payload offset %d is not 4-byte aligned", id, off)
		}
		end := uint64(off) + uint64(length)
		if end > uint64(len(data)) {
			return nil, errs.New(errs.KindInvalidBytecode, "section %s payload [%d:%d] exceeds file length %d", id, off, end, len(data))
		}
		for _, o := range occupied {
			if overlaps(o.Offset, o.Length, off, length) {
				return nil, errs.New(errs.KindInvalidBytecode, "section %s payload overlaps section %s", id, o.ID)
			}
		}
		payload := data[off:end]
		if crc32.ChecksumIEEE(payload) != checksum {
			return nil, errs.New(errs.KindInvalidBytecode, "section %s checksum mismatch", id)
		}
		s := Section{ID: id, Offset: off, Length: length, Checksum: checksum, Payload: payload}
		sections[id] = s
		occupied = append(occupied, s)
	}

	for _, id := range required {
		if _, ok := sections[id]; !ok {
			return nil, errs.New(errs.KindInvalidBytecodeMetadata, "missing required section %s", id)
		}
	}

	return &Container{Header: h, Sections: sections, Data: data}, nil
}

func overlaps(aOff, aLen, bOff, bLen uint32) bool {
	aEnd, bEnd := aOff+aLen, bOff+bLen
	return aOff < bEnd && bOff < aEnd
}

// Section looks up a decoded section by id.
func (c *Container) Section(id SectionID) (Section, bool) {
	s, ok := c.Sections[id]
	return s, ok
}
