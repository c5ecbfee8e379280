// Package types implements the named-type registry (spec §4.A): builtin and
// user types, alias resolution, assignment compatibility and structural
// size computation. It is grounded on the teacher's pe.File header-parsing
// idiom only in spirit (a flat registry of typed constants plus a handful
// of pure query methods); the structural-compatibility walk itself has no
// analog in the teacher and is written fresh from spec §3.2/§4.A.
package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stplatform/stcore/errs"
)

// ID is a stable type identifier. Builtin ids are reserved constants and
// never change across runs; user types start at FirstUserID.
type ID uint32

// Builtin ids, stable across runs per the §4.A contract.
const (
	IDUnknown ID = iota
	IDBool
	IDSInt8
	IDSInt16
	IDSInt32
	IDSInt64
	IDUInt8
	IDUInt16
	IDUInt32
	IDUInt64
	IDFloat32
	IDFloat64
	IDBitString8
	IDBitString16
	IDBitString32
	IDBitString64
	IDDuration
	IDDate
	IDTimeOfDay
	IDDateTime
	IDDate64
	IDTimeOfDay64
	IDDateTime64
	IDChar
	IDWChar
	IDString
	IDWString
	IDNull

	// Generic ANY_* constraint groups. They can appear only as parameter
	// constraints, never as a storage type (checked in IsAssignable and by
	// the registry's RegisterType entry point).
	IDAny
	IDAnyInt
	IDAnyReal
	IDAnyBit
	IDAnyNum
	IDAnyString
	IDAnyDate
	IDAnyDuration

	// FirstUserID is the first id handed out to a user-registered type.
	FirstUserID ID = 1000
)

// Kind tags the shape of a Type.
type Kind int

const (
	KindElementary Kind = iota
	KindString
	KindWString
	KindArray
	KindStruct
	KindUnion
	KindEnum
	KindSubrange
	KindAlias
	KindReference
	KindPointer
	KindGeneric
)

// Dimension is an inclusive array bound. WildcardUpper marks the "matches
// anything" bound used by formal parameters typed as an open array.
const WildcardUpper = int64(1<<63 - 1)

type Dimension struct {
	Lower, Upper int64
}

func (d Dimension) IsWildcard() bool { return d.Lower == 0 && d.Upper == WildcardUpper }

func (d Dimension) Len() int64 {
	if d.IsWildcard() {
		return 0
	}
	return d.Upper - d.Lower + 1
}

// Field is one struct field, in declaration order.
type Field struct {
	Name string
	Type ID
}

// EnumVariant is one named value of an enum type.
type EnumVariant struct {
	Name  string
	Value int64
}

// Subrange restricts a base integer type to [Lo, Hi].
type Subrange struct {
	Base   ID
	Lo, Hi int64
}

// Type is the tagged sum described in spec §3.2.
type Type struct {
	Kind Kind
	Name string // canonical, uppercased

	// KindElementary carries no extra payload; IDUnknown..IDAnyDuration
	// constants stand for themselves.
	Elementary ID

	// KindString / KindWString.
	MaxLen    int // 0 means "no declared max length"
	HasMaxLen bool

	// KindArray.
	ElemType ID
	Dims     []Dimension

	// KindStruct / KindUnion.
	Fields []Field

	// KindEnum.
	EnumBase     ID
	EnumVariants []EnumVariant

	// KindSubrange.
	Subrange Subrange

	// KindAlias.
	AliasTarget ID

	// KindReference / KindPointer.
	PointeeType ID
}

// Registry maps both a TypeId and a canonical (uppercased) name to a Type.
type Registry struct {
	mu      sync.RWMutex
	byID    map[ID]*Type
	byName  map[string]ID
	nextID  ID
}

// New builds a Registry pre-seeded with every builtin type.
func New() *Registry {
	r := &Registry{
		byID:   make(map[ID]*Type),
		byName: make(map[string]ID),
		nextID: FirstUserID,
	}
	r.registerBuiltin()
	return r
}

func (r *Registry) put(id ID, t *Type) {
	r.byID[id] = t
	r.byName[strings.ToUpper(t.Name)] = id
}

func (r *Registry) registerBuiltin() {
	elem := func(id ID, name string) {
		r.put(id, &Type{Kind: KindElementary, Name: name, Elementary: id})
	}
	elem(IDBool, "BOOL")
	elem(IDSInt8, "SINT")
	elem(IDSInt16, "INT")
	elem(IDSInt32, "DINT")
	elem(IDSInt64, "LINT")
	elem(IDUInt8, "USINT")
	elem(IDUInt16, "UINT")
	elem(IDUInt32, "UDINT")
	elem(IDUInt64, "ULINT")
	elem(IDFloat32, "REAL")
	elem(IDFloat64, "LREAL")
	elem(IDBitString8, "BYTE")
	elem(IDBitString16, "WORD")
	elem(IDBitString32, "DWORD")
	elem(IDBitString64, "LWORD")
	elem(IDDuration, "TIME")
	elem(IDDate, "DATE")
	elem(IDTimeOfDay, "TOD")
	elem(IDDateTime, "DT")
	elem(IDDate64, "LDATE")
	elem(IDTimeOfDay64, "LTOD")
	elem(IDDateTime64, "LDT")
	elem(IDChar, "CHAR")
	elem(IDWChar, "WCHAR")
	elem(IDNull, "NULL")
	r.put(IDString, &Type{Kind: KindString, Name: "STRING"})
	r.put(IDWString, &Type{Kind: KindWString, Name: "WSTRING"})

	generic := func(id ID, name string) {
		r.put(id, &Type{Kind: KindGeneric, Name: name, Elementary: id})
	}
	generic(IDAny, "ANY")
	generic(IDAnyInt, "ANY_INT")
	generic(IDAnyReal, "ANY_REAL")
	generic(IDAnyBit, "ANY_BIT")
	generic(IDAnyNum, "ANY_NUM")
	generic(IDAnyString, "ANY_STRING")
	generic(IDAnyDate, "ANY_DATE")
	generic(IDAnyDuration, "ANY_DURATION")
}

func (r *Registry) allocID() ID {
	id := r.nextID
	r.nextID++
	return id
}

// RegisterType registers a fully-formed user type under name and returns
// its id. Generic ANY_* kinds are rejected: they are query-only constraints,
// never storage types.
func (r *Registry) RegisterType(name string, t Type) (ID, error) {
	if t.Kind == KindGeneric {
		return IDUnknown, errs.New(errs.KindUnsupportedType, "generic type %q cannot be registered as a storage type", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.allocID()
	t.Name = name
	r.put(id, &t)
	return id, nil
}

// RegisterReference registers an anonymous REF_TO/POINTER TO type and
// returns its id.
func (r *Registry) RegisterReference(target ID, pointer bool) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.allocID()
	k := KindReference
	prefix := "REF_TO"
	if pointer {
		k = KindPointer
		prefix = "POINTER TO"
	}
	name := fmt.Sprintf("%s %s", prefix, r.nameLocked(target))
	r.put(id, &Type{Kind: k, Name: name, PointeeType: target})
	return id
}

// RegisterEnum registers a named enum type and returns its id.
func (r *Registry) RegisterEnum(name string, base ID, variants []EnumVariant) (ID, error) {
	seen := make(map[int64]bool, len(variants))
	for _, v := range variants {
		if seen[v.Value] {
			return IDUnknown, errs.New(errs.KindUnsupportedType, "enum %q declares value %d more than once", name, v.Value)
		}
		seen[v.Value] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.allocID()
	r.put(id, &Type{Kind: KindEnum, Name: name, EnumBase: base, EnumVariants: append([]EnumVariant(nil), variants...)})
	return id, nil
}

func (r *Registry) nameLocked(id ID) string {
	if t, ok := r.byID[id]; ok {
		return t.Name
	}
	return "?"
}

// Lookup resolves a canonical type name (case-insensitive) to its id.
func (r *Registry) Lookup(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[strings.ToUpper(name)]
	return id, ok
}

// Get returns the Type for id.
func (r *Registry) Get(id ID) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// resolveBase follows KindAlias/KindSubrange chains down to a non-alias
// base type id. Guards against cycles defensively even though lowering is
// supposed to reject them before they reach here (spec §9).
func (r *Registry) resolveBase(id ID) (ID, *Type, error) {
	seen := make(map[ID]bool)
	cur := id
	for {
		if seen[cur] {
			return IDUnknown, nil, errs.New(errs.KindCyclicDependency, "alias cycle at type id %d", id)
		}
		seen[cur] = true
		t, ok := r.byID[cur]
		if !ok {
			return IDUnknown, nil, errs.New(errs.KindUndefinedName, "unknown type id %d", cur)
		}
		switch t.Kind {
		case KindAlias:
			cur = t.AliasTarget
		case KindSubrange:
			cur = t.Subrange.Base
		default:
			return cur, t, nil
		}
	}
}

var elementarySize = map[ID]uint64{
	IDBool: 1, IDSInt8: 1, IDUInt8: 1,
	IDSInt16: 2, IDUInt16: 2,
	IDSInt32: 4, IDUInt32: 4,
	IDSInt64: 8, IDUInt64: 8,
	IDFloat32: 4, IDFloat64: 8,
	IDBitString8: 1, IDBitString16: 2, IDBitString32: 4, IDBitString64: 8,
	IDDuration: 8,
	IDDate: 4, IDTimeOfDay: 4, IDDateTime: 4,
	IDDate64: 8, IDTimeOfDay64: 8, IDDateTime64: 8,
	IDChar: 1, IDWChar: 2,
	IDNull: 8,
}

const machineWordSize = 8

// SizeOf computes the structural size in bytes of id, per §4.A: arrays
// multiply element size by total element count, unions take the max variant
// size, references/pointers are machine-word sized, and strings without a
// declared max length are rejected with UnsupportedType.
func (r *Registry) SizeOf(id ID) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sizeOfLocked(id, make(map[ID]bool))
}

func (r *Registry) sizeOfLocked(id ID, visiting map[ID]bool) (uint64, error) {
	if visiting[id] {
		return 0, errs.New(errs.KindCyclicDependency, "type id %d is recursively sized", id)
	}
	visiting[id] = true
	defer delete(visiting, id)

	base, t, err := r.resolveBase(id)
	if err != nil {
		return 0, err
	}
	switch t.Kind {
	case KindElementary:
		if sz, ok := elementarySize[t.Elementary]; ok {
			return sz, nil
		}
		return 0, errs.New(errs.KindUnsupportedType, "no size known for elementary type id %d", base)
	case KindString:
		if !t.HasMaxLen {
			return 0, errs.New(errs.KindUnsupportedType, "STRING %q has no declared max length", t.Name)
		}
		return uint64(t.MaxLen) + 1, nil
	case KindWString:
		if !t.HasMaxLen {
			return 0, errs.New(errs.KindUnsupportedType, "WSTRING %q has no declared max length", t.Name)
		}
		return (uint64(t.MaxLen) + 1) * 2, nil
	case KindArray:
		elemSz, err := r.sizeOfLocked(t.ElemType, visiting)
		if err != nil {
			return 0, err
		}
		var total uint64 = 1
		for _, d := range t.Dims {
			if d.IsWildcard() {
				return 0, errs.New(errs.KindUnsupportedType, "array %q has an unbound wildcard dimension", t.Name)
			}
			total *= uint64(d.Len())
		}
		return total * elemSz, nil
	case KindStruct:
		var total uint64
		for _, f := range t.Fields {
			sz, err := r.sizeOfLocked(f.Type, visiting)
			if err != nil {
				return 0, err
			}
			total += sz
		}
		return total, nil
	case KindUnion:
		var max uint64
		for _, f := range t.Fields {
			sz, err := r.sizeOfLocked(f.Type, visiting)
			if err != nil {
				return 0, err
			}
			if sz > max {
				max = sz
			}
		}
		return max, nil
	case KindEnum:
		return r.sizeOfLocked(t.EnumBase, visiting)
	case KindReference, KindPointer:
		return machineWordSize, nil
	case KindGeneric:
		return 0, errs.New(errs.KindUnsupportedType, "generic type %q has no storage size", t.Name)
	default:
		return 0, errs.New(errs.KindUnsupportedType, "unhandled type kind for %q", t.Name)
	}
}

var signedWiden = map[ID]map[ID]bool{
	IDSInt8:  {IDSInt16: true, IDSInt32: true, IDSInt64: true},
	IDSInt16: {IDSInt32: true, IDSInt64: true},
	IDSInt32: {IDSInt64: true},
}

var unsignedWiden = map[ID]map[ID]bool{
	IDUInt8:  {IDUInt16: true, IDUInt32: true, IDUInt64: true},
	IDUInt16: {IDUInt32: true, IDUInt64: true},
	IDUInt32: {IDUInt64: true},
}

var intToFloat = map[ID]map[ID]bool{
	IDSInt8: {IDFloat32: true, IDFloat64: true}, IDSInt16: {IDFloat32: true, IDFloat64: true},
	IDSInt32: {IDFloat32: true, IDFloat64: true}, IDSInt64: {IDFloat64: true},
	IDUInt8: {IDFloat32: true, IDFloat64: true}, IDUInt16: {IDFloat32: true, IDFloat64: true},
	IDUInt32: {IDFloat32: true, IDFloat64: true}, IDUInt64: {IDFloat64: true},
	IDFloat32: {IDFloat64: true},
}

var bitWiden = map[ID]map[ID]bool{
	IDBitString8:  {IDBitString16: true, IDBitString32: true, IDBitString64: true},
	IDBitString16: {IDBitString32: true, IDBitString64: true},
	IDBitString32: {IDBitString64: true},
}

func isAnyGroup(id ID) (ID, bool) {
	switch id {
	case IDAny, IDAnyInt, IDAnyReal, IDAnyBit, IDAnyNum, IDAnyString, IDAnyDate, IDAnyDuration:
		return id, true
	}
	return IDUnknown, false
}

func memberOfGroup(group, base ID) bool {
	switch group {
	case IDAny:
		return true
	case IDAnyInt:
		switch base {
		case IDSInt8, IDSInt16, IDSInt32, IDSInt64, IDUInt8, IDUInt16, IDUInt32, IDUInt64:
			return true
		}
	case IDAnyReal:
		return base == IDFloat32 || base == IDFloat64
	case IDAnyNum:
		return memberOfGroup(IDAnyInt, base) || memberOfGroup(IDAnyReal, base)
	case IDAnyBit:
		switch base {
		case IDBool, IDBitString8, IDBitString16, IDBitString32, IDBitString64:
			return true
		}
	case IDAnyString:
		return base == IDString || base == IDWString
	case IDAnyDate:
		switch base {
		case IDDate, IDTimeOfDay, IDDateTime, IDDate64, IDTimeOfDay64, IDDateTime64:
			return true
		}
	case IDAnyDuration:
		return base == IDDuration
	}
	return false
}

// IsAssignable reports whether a value of type `source` may be assigned to
// storage declared as `target`, per the structural rules of §3.2/§4.A.
func (r *Registry) IsAssignable(target, source ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isAssignableLocked(target, source)
}

func (r *Registry) isAssignableLocked(target, source ID) bool {
	tBase, tType, errT := r.resolveBase(target)
	sBase, sType, errS := r.resolveBase(source)
	if errT != nil || errS != nil {
		return false
	}
	if tBase == sBase {
		return true
	}
	if group, ok := isAnyGroup(tBase); ok {
		return memberOfGroup(group, sBase)
	}
	if sBase == IDNull && (tType.Kind == KindReference || tType.Kind == KindPointer) {
		return true
	}
	if tType.Kind == KindString && sType.Kind == KindString {
		return true
	}
	if tType.Kind == KindWString && sType.Kind == KindWString {
		return true
	}
	if signedWiden[sBase][tBase] || unsignedWiden[sBase][tBase] || intToFloat[sBase][tBase] {
		return true
	}
	if bitWiden[sBase][tBase] {
		return true
	}
	if tType.Kind == KindArray && sType.Kind == KindArray {
		return r.arraysCompatibleLocked(tType, sType)
	}
	if tType.Kind == KindStruct && sType.Kind == KindStruct {
		return tType.Name == sType.Name
	}
	if tType.Kind == KindEnum && sType.Kind == KindEnum {
		return tType.Name == sType.Name
	}
	if (tType.Kind == KindReference || tType.Kind == KindPointer) &&
		(sType.Kind == KindReference || sType.Kind == KindPointer) {
		return tType.PointeeType == sType.PointeeType
	}
	return false
}

func (r *Registry) arraysCompatibleLocked(target, source *Type) bool {
	if len(target.Dims) != len(source.Dims) {
		return false
	}
	if !r.isAssignableLocked(target.ElemType, source.ElemType) && target.ElemType != source.ElemType {
		return false
	}
	for i := range target.Dims {
		td, sd := target.Dims[i], source.Dims[i]
		if td.IsWildcard() {
			continue
		}
		if td != sd {
			return false
		}
	}
	return true
}
