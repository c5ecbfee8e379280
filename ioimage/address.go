// Package ioimage implements the I/O process image of spec §4.I: address
// parsing, byte/bit/word/dword views over three byte vectors
// (inputs/outputs/marker), a driver registry and safe-state application.
package ioimage

import (
	"strconv"
	"strings"

	"github.com/stplatform/stcore/errs"
)

// Area identifies which of the three process-image byte vectors an address
// selects.
type Area byte

const (
	AreaInput  Area = 'I'
	AreaOutput Area = 'Q'
	AreaMemory Area = 'M'
)

// Size identifies the bit-width view requested by the address suffix.
type Size byte

const (
	SizeBit    Size = 'X'
	SizeByte   Size = 'B'
	SizeWord   Size = 'W'
	SizeDWord  Size = 'D'
	SizeLWord  Size = 'L'
)

// Address is the parsed form of `'%' (I|Q|M) (X|B|W|D|L) ( '*' | path )`
// (§4.I), or of a bare wildcard `'%' (I|Q|M) '*'`, which leaves Size zero.
type Address struct {
	Area     Area
	Size     Size
	Byte     int
	Bit      int // only meaningful when Size == SizeBit
	Path     []int
	Wildcard bool
	raw      string
}

func (a Address) String() string { return a.raw }

// Parse parses one `%…` address literal.
func Parse(s string) (Address, error) {
	raw := s
	if !strings.HasPrefix(s, "%") {
		return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q must start with '%%'", raw)
	}
	s = s[1:]
	if len(s) < 2 {
		return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q is too short", raw)
	}
	area := Area(s[0])
	switch area {
	case AreaInput, AreaOutput, AreaMemory:
	default:
		return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q has an unknown area %q", raw, string(s[0]))
	}
	if s[1:] == "*" {
		return Address{Area: area, Wildcard: true, raw: raw}, nil
	}
	size := Size(s[1])
	switch size {
	case SizeBit, SizeByte, SizeWord, SizeDWord, SizeLWord:
	default:
		return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q has an unknown size %q", raw, string(s[1]))
	}
	rest := s[2:]
	if rest == "*" {
		return Address{Area: area, Size: size, Wildcard: true, raw: raw}, nil
	}
	if rest == "" {
		return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q has no path", raw)
	}
	parts := strings.Split(rest, ".")
	path := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q has a malformed path segment %q", raw, p)
		}
		path = append(path, n)
	}
	addr := Address{Area: area, Size: size, Path: path, raw: raw}
	if len(path) == 0 {
		return Address{}, errs.New(errs.KindInvalidIoAddress, "address %q has an empty path", raw)
	}
	addr.Byte = path[0]
	if size == SizeBit {
		if len(path) < 2 {
			return Address{}, errs.New(errs.KindInvalidIoAddress, "bit address %q is missing a bit index", raw)
		}
		addr.Bit = path[1]
		if addr.Bit < 0 || addr.Bit > 7 {
			return Address{}, errs.New(errs.KindInvalidIoAddress, "bit address %q has a bit index out of range 0..7", raw)
		}
	}
	return addr, nil
}

// ByteWidth returns the number of bytes Size spans.
func (s Size) ByteWidth() int {
	switch s {
	case SizeBit, SizeByte:
		return 1
	case SizeWord:
		return 2
	case SizeDWord:
		return 4
	case SizeLWord:
		return 8
	default:
		return 0
	}
}
