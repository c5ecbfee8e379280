package ioimage

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/values"
)

// Image holds the three process-image byte vectors plus the name-keyed
// binding overlay the evaluator reads/writes through (§3.4, §4.I).
type Image struct {
	mu       sync.RWMutex
	Inputs   []byte
	Outputs  []byte
	Markers  []byte
	bindings map[string]Address
}

// NewImage allocates an image with the given per-area byte counts.
func NewImage(inputBytes, outputBytes, markerBytes int) *Image {
	return &Image{
		Inputs:   make([]byte, inputBytes),
		Outputs:  make([]byte, outputBytes),
		Markers:  make([]byte, markerBytes),
		bindings: make(map[string]Address),
	}
}

func (img *Image) areaBytes(a Area) []byte {
	switch a {
	case AreaInput:
		return img.Inputs
	case AreaOutput:
		return img.Outputs
	case AreaMemory:
		return img.Markers
	default:
		return nil
	}
}

// Bind associates a variable name with a concrete address, driving both
// direct reads and the name-keyed storage overlay (§4.I). Wildcard
// addresses may only be bound through configuration, never directly by
// lowering, so Bind rejects them here.
func (img *Image) Bind(name string, addr Address) error {
	if addr.Wildcard {
		return errs.New(errs.KindInvalidIoAddress, "wildcard address %q must be resolved by configuration before binding", addr)
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	img.bindings[strings.ToUpper(name)] = addr
	return nil
}

func (img *Image) BoundAddress(name string) (Address, bool) {
	img.mu.RLock()
	defer img.mu.RUnlock()
	a, ok := img.bindings[strings.ToUpper(name)]
	return a, ok
}

func (img *Image) boundsCheck(buf []byte, byteOff, width int) error {
	if byteOff < 0 || byteOff+width > len(buf) {
		return errs.New(errs.KindInvalidIoAddress, "address byte offset %d+%d exceeds image of %d bytes", byteOff, width, len(buf))
	}
	return nil
}

// Read returns the Value stored at addr, little-endian decoded.
func (img *Image) Read(addr Address) (values.Value, error) {
	img.mu.RLock()
	defer img.mu.RUnlock()
	buf := img.areaBytes(addr.Area)
	if buf == nil {
		return nil, errs.New(errs.KindInvalidIoAddress, "unknown area for address %q", addr)
	}
	if addr.Size == SizeBit {
		if err := img.boundsCheck(buf, addr.Byte, 1); err != nil {
			return nil, err
		}
		bit := buf[addr.Byte]&(1<<uint(addr.Bit)) != 0
		return values.Bool{V: bit}, nil
	}
	width := addr.Size.ByteWidth()
	if err := img.boundsCheck(buf, addr.Byte, width); err != nil {
		return nil, err
	}
	switch addr.Size {
	case SizeByte:
		return values.BitString{Width: 8, V: uint64(buf[addr.Byte])}, nil
	case SizeWord:
		return values.BitString{Width: 16, V: uint64(binary.LittleEndian.Uint16(buf[addr.Byte:]))}, nil
	case SizeDWord:
		return values.BitString{Width: 32, V: uint64(binary.LittleEndian.Uint32(buf[addr.Byte:]))}, nil
	case SizeLWord:
		return values.BitString{Width: 64, V: binary.LittleEndian.Uint64(buf[addr.Byte:])}, nil
	default:
		return nil, errs.New(errs.KindInvalidIoAddress, "unhandled address size for %q", addr)
	}
}

// Write stores v at addr, little-endian encoded.
func (img *Image) Write(addr Address, v values.Value) error {
	img.mu.Lock()
	defer img.mu.Unlock()
	buf := img.areaBytes(addr.Area)
	if buf == nil {
		return errs.New(errs.KindInvalidIoAddress, "unknown area for address %q", addr)
	}
	if addr.Size == SizeBit {
		if err := img.boundsCheck(buf, addr.Byte, 1); err != nil {
			return err
		}
		b, ok := v.(values.Bool)
		if !ok {
			return errs.New(errs.KindTypeMismatch, "address %q expects BOOL, got %v", addr, v.Kind())
		}
		mask := byte(1) << uint(addr.Bit)
		if b.V {
			buf[addr.Byte] |= mask
		} else {
			buf[addr.Byte] &^= mask
		}
		return nil
	}
	width := addr.Size.ByteWidth()
	if err := img.boundsCheck(buf, addr.Byte, width); err != nil {
		return err
	}
	raw, err := rawBits(v)
	if err != nil {
		return err
	}
	switch addr.Size {
	case SizeByte:
		buf[addr.Byte] = byte(raw)
	case SizeWord:
		binary.LittleEndian.PutUint16(buf[addr.Byte:], uint16(raw))
	case SizeDWord:
		binary.LittleEndian.PutUint32(buf[addr.Byte:], uint32(raw))
	case SizeLWord:
		binary.LittleEndian.PutUint64(buf[addr.Byte:], raw)
	default:
		return errs.New(errs.KindInvalidIoAddress, "unhandled address size for %q", addr)
	}
	return nil
}

func rawBits(v values.Value) (uint64, error) {
	switch x := v.(type) {
	case values.BitString:
		return x.V, nil
	case values.UInt:
		return x.V, nil
	case values.SInt:
		return uint64(x.V), nil
	default:
		return 0, errs.New(errs.KindTypeMismatch, "value of kind %v has no raw bit encoding", v.Kind())
	}
}

// ReadBound reads through a name binding.
func (img *Image) ReadBound(name string) (values.Value, error) {
	addr, ok := img.BoundAddress(name)
	if !ok {
		return nil, errs.New(errs.KindInvalidIoAddress, "no binding for %q", name)
	}
	return img.Read(addr)
}

// WriteBound writes through a name binding.
func (img *Image) WriteBound(name string, v values.Value) error {
	addr, ok := img.BoundAddress(name)
	if !ok {
		return errs.New(errs.KindInvalidIoAddress, "no binding for %q", name)
	}
	return img.Write(addr, v)
}

// ApplySafeState writes every configured (address, value) pair, used by the
// SafeHalt fault policy (§4.K, property 8).
func (img *Image) ApplySafeState(entries map[string]values.Value) error {
	for addrText, v := range entries {
		addr, err := Parse(addrText)
		if err != nil {
			return err
		}
		if err := img.Write(addr, v); err != nil {
			return err
		}
	}
	return nil
}
