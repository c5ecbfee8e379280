package bytecode

import (
	"encoding/binary"

	"github.com/stplatform/stcore/errs"
)

// LocationTag is a REF_TABLE entry's storage area (§6.1).
type LocationTag uint8

const (
	LocGlobal LocationTag = iota
	LocLocal
	LocInstance
	LocRetain
	LocIo
)

// IoArea distinguishes the three I/O image areas an Io-tagged RefEntry's
// OwnerID selects between (§6.1: "owner_id for Io selects area").
type IoArea uint32

const (
	IoAreaInput IoArea = iota
	IoAreaOutput
	IoAreaMemory
)

// RefEntry is one decoded REF_TABLE row: a location plus the chain of
// member-access segments (string-table indices) needed to resolve a nested
// field, e.g. `motor.status.running`.
type RefEntry struct {
	Tag      LocationTag
	OwnerID  uint32
	Offset   uint32
	Segments []uint32
}

// DecodeStringTable splits a STRING_TABLE payload into its length-prefixed
// UTF-8 entries.
func DecodeStringTable(payload []byte) ([]string, error) {
	var out []string
	i := 0
	for i < len(payload) {
		if i+4 > len(payload) {
			return nil, errs.New(errs.KindInvalidBytecode, "string table entry truncated at offset %d", i)
		}
		n := binary.LittleEndian.Uint32(payload[i : i+4])
		i += 4
		end := i + int(n)
		if end > len(payload) {
			return nil, errs.New(errs.KindInvalidBytecode, "string table entry length %d at offset %d exceeds payload", n, i)
		}
		out = append(out, string(payload[i:end]))
		i = end
	}
	return out, nil
}

// EncodeStringTable is DecodeStringTable's inverse, used by Builder.
func EncodeStringTable(entries []string) []byte {
	var buf []byte
	for _, s := range entries {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, s...)
	}
	return buf
}

// DecodeRefTable parses a REF_TABLE payload into its entries.
func DecodeRefTable(payload []byte) ([]RefEntry, error) {
	var out []RefEntry
	i := 0
	for i < len(payload) {
		if i+11 > len(payload) {
			return nil, errs.New(errs.KindInvalidBytecode, "ref table entry truncated at offset %d", i)
		}
		tag := LocationTag(payload[i])
		owner := binary.LittleEndian.Uint32(payload[i+1 : i+5])
		off := binary.LittleEndian.Uint32(payload[i+5 : i+9])
		segCount := binary.LittleEndian.Uint16(payload[i+9 : i+11])
		i += 11
		segs := make([]uint32, segCount)
		for s := range segs {
			if i+4 > len(payload) {
				return nil, errs.New(errs.KindInvalidBytecode, "ref table entry segment truncated at offset %d", i)
			}
			segs[s] = binary.LittleEndian.Uint32(payload[i : i+4])
			i += 4
		}
		if tag > LocIo {
			return nil, errs.New(errs.KindInvalidBytecodeMetadata, "ref table entry has unknown location_tag %d", tag)
		}
		if tag == LocIo && owner > uint32(IoAreaMemory) {
			return nil, errs.New(errs.KindInvalidBytecodeMetadata, "ref table entry has unknown io area %d", owner)
		}
		out = append(out, RefEntry{Tag: tag, OwnerID: owner, Offset: off, Segments: segs})
	}
	return out, nil
}

// EncodeRefTable is DecodeRefTable's inverse.
func EncodeRefTable(entries []RefEntry) []byte {
	var buf []byte
	for _, e := range entries {
		var head [11]byte
		head[0] = byte(e.Tag)
		binary.LittleEndian.PutUint32(head[1:5], e.OwnerID)
		binary.LittleEndian.PutUint32(head[5:9], e.Offset)
		binary.LittleEndian.PutUint16(head[9:11], uint16(len(e.Segments)))
		buf = append(buf, head[:]...)
		for _, s := range e.Segments {
			var sBuf [4]byte
			binary.LittleEndian.PutUint32(sBuf[:], s)
			buf = append(buf, sBuf[:]...)
		}
	}
	return buf
}

// POUIndexEntry is one POU_INDEX row: the code and debug-info windows for
// one Program Organization Unit, as offsets into the POU_BODIES and
// DEBUG_MAP payloads respectively.
type POUIndexEntry struct {
	NameIdx     uint32
	CodeOffset  uint32
	CodeLength  uint32
	DebugOffset uint32
	DebugLength uint32
}

const pouIndexEntrySize = 4 * 5

// DecodePOUIndex parses a POU_INDEX payload.
func DecodePOUIndex(payload []byte) ([]POUIndexEntry, error) {
	if len(payload)%pouIndexEntrySize != 0 {
		return nil, errs.New(errs.KindInvalidBytecodeMetadata, "POU_INDEX length %d is not a multiple of entry size %d", len(payload), pouIndexEntrySize)
	}
	n := len(payload) / pouIndexEntrySize
	out := make([]POUIndexEntry, n)
	for i := range out {
		e := payload[i*pouIndexEntrySize : (i+1)*pouIndexEntrySize]
		out[i] = POUIndexEntry{
			NameIdx:     binary.LittleEndian.Uint32(e[0:4]),
			CodeOffset:  binary.LittleEndian.Uint32(e[4:8]),
			CodeLength:  binary.LittleEndian.Uint32(e[8:12]),
			DebugOffset: binary.LittleEndian.Uint32(e[12:16]),
			DebugLength: binary.LittleEndian.Uint32(e[16:20]),
		}
	}
	return out, nil
}

// EncodePOUIndex is DecodePOUIndex's inverse.
func EncodePOUIndex(entries []POUIndexEntry) []byte {
	buf := make([]byte, len(entries)*pouIndexEntrySize)
	for i, e := range entries {
		b := buf[i*pouIndexEntrySize : (i+1)*pouIndexEntrySize]
		binary.LittleEndian.PutUint32(b[0:4], e.NameIdx)
		binary.LittleEndian.PutUint32(b[4:8], e.CodeOffset)
		binary.LittleEndian.PutUint32(b[8:12], e.CodeLength)
		binary.LittleEndian.PutUint32(b[12:16], e.DebugOffset)
		binary.LittleEndian.PutUint32(b[16:20], e.DebugLength)
	}
	return buf
}

// TaskMeta is one RESOURCE_META task entry. SingleIdx is the NoSingle
// sentinel when the task is cyclic/interrupt rather than single-triggered.
type TaskMeta struct {
	NameIdx    uint32
	IntervalNS uint64
	Priority   uint8
	SingleIdx  uint32
}

// NoSingle marks a TaskMeta with no single-trigger global.
const NoSingle = ^uint32(0)

// ResourceMeta is one RESOURCE_META resource entry.
type ResourceMeta struct {
	NameIdx    uint32
	InputSize  uint32
	OutputSize uint32
	MemorySize uint32
	Tasks      []TaskMeta
}

// DecodeResourceMeta parses a RESOURCE_META payload.
func DecodeResourceMeta(payload []byte) ([]ResourceMeta, error) {
	var out []ResourceMeta
	i := 0
	for i < len(payload) {
		if i+18 > len(payload) {
			return nil, errs.New(errs.KindInvalidBytecodeMetadata, "resource meta entry truncated at offset %d", i)
		}
		r := ResourceMeta{
			NameIdx:    binary.LittleEndian.Uint32(payload[i : i+4]),
			InputSize:  binary.LittleEndian.Uint32(payload[i+4 : i+8]),
			OutputSize: binary.LittleEndian.Uint32(payload[i+8 : i+12]),
			MemorySize: binary.LittleEndian.Uint32(payload[i+12 : i+16]),
		}
		taskCount := binary.LittleEndian.Uint16(payload[i+16 : i+18])
		i += 18
		r.Tasks = make([]TaskMeta, taskCount)
		for t := range r.Tasks {
			if i+17 > len(payload) {
				return nil, errs.New(errs.KindInvalidBytecodeMetadata, "task meta entry truncated at offset %d", i)
			}
			r.Tasks[t] = TaskMeta{
				NameIdx:    binary.LittleEndian.Uint32(payload[i : i+4]),
				IntervalNS: binary.LittleEndian.Uint64(payload[i+4 : i+12]),
				Priority:   payload[i+12],
				SingleIdx:  binary.LittleEndian.Uint32(payload[i+13 : i+17]),
			}
			i += 17
		}
		out = append(out, r)
	}
	return out, nil
}

// EncodeResourceMeta is DecodeResourceMeta's inverse.
func EncodeResourceMeta(entries []ResourceMeta) []byte {
	var buf []byte
	for _, r := range entries {
		var head [18]byte
		binary.LittleEndian.PutUint32(head[0:4], r.NameIdx)
		binary.LittleEndian.PutUint32(head[4:8], r.InputSize)
		binary.LittleEndian.PutUint32(head[8:12], r.OutputSize)
		binary.LittleEndian.PutUint32(head[12:16], r.MemorySize)
		binary.LittleEndian.PutUint16(head[16:18], uint16(len(r.Tasks)))
		buf = append(buf, head[:]...)
		for _, t := range r.Tasks {
			var tb [17]byte
			binary.LittleEndian.PutUint32(tb[0:4], t.NameIdx)
			binary.LittleEndian.PutUint64(tb[4:12], t.IntervalNS)
			tb[12] = t.Priority
			binary.LittleEndian.PutUint32(tb[13:17], t.SingleIdx)
			buf = append(buf, tb[:]...)
		}
	}
	return buf
}

// DebugEntry is one DEBUG_MAP row mapping a code offset within a POU's code
// window back to a source location.
type DebugEntry struct {
	CodeOffset uint32
	FileID     uint32
	Line       uint32
	Col        uint32
}

const debugEntrySize = 4 * 4

// DecodeDebugMapWindow parses one POU's slice of the DEBUG_MAP payload
// (pou.DebugOffset:pou.DebugOffset+pou.DebugLength) and enforces "Debug-map
// entries must reference monotonically non-decreasing code offsets per
// POU" (§6.1).
func DecodeDebugMapWindow(payload []byte) ([]DebugEntry, error) {
	if len(payload)%debugEntrySize != 0 {
		return nil, errs.New(errs.KindInvalidBytecodeMetadata, "debug map window length %d is not a multiple of entry size %d", len(payload), debugEntrySize)
	}
	n := len(payload) / debugEntrySize
	out := make([]DebugEntry, n)
	var prev uint32
	for i := range out {
		e := payload[i*debugEntrySize : (i+1)*debugEntrySize]
		d := DebugEntry{
			CodeOffset: binary.LittleEndian.Uint32(e[0:4]),
			FileID:     binary.LittleEndian.Uint32(e[4:8]),
			Line:       binary.LittleEndian.Uint32(e[8:12]),
			Col:        binary.LittleEndian.Uint32(e[12:16]),
		}
		if i > 0 && d.CodeOffset < prev {
			return nil, errs.New(errs.KindInvalidBytecodeMetadata, "debug map entry %d code offset %d precedes previous entry's %d", i, d.CodeOffset, prev)
		}
		prev = d.CodeOffset
		out[i] = d
	}
	return out, nil
}

// EncodeDebugMapWindow is DecodeDebugMapWindow's inverse.
func EncodeDebugMapWindow(entries []DebugEntry) []byte {
	buf := make([]byte, len(entries)*debugEntrySize)
	for i, e := range entries {
		b := buf[i*debugEntrySize : (i+1)*debugEntrySize]
		binary.LittleEndian.PutUint32(b[0:4], e.CodeOffset)
		binary.LittleEndian.PutUint32(b[4:8], e.FileID)
		binary.LittleEndian.PutUint32(b[8:12], e.Line)
		binary.LittleEndian.PutUint32(b[12:16], e.Col)
	}
	return buf
}

func window(payload []byte, offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(payload)) {
		return nil, errs.New(errs.KindInvalidBytecodeMetadata, "window [%d:%d] exceeds payload length %d", offset, end, len(payload))
	}
	return payload[offset:end], nil
}
