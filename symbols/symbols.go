// Package symbols implements the declaration table and scope-resolution
// algorithm of spec §3.3/§4.B. It is written fresh (the teacher has no
// analog to a lexical scope tree), but keeps the teacher's habit of a flat
// table type with small, single-purpose query methods.
package symbols

import (
	"sort"
	"strings"

	"github.com/stplatform/stcore/errs"
	"github.com/stplatform/stcore/types"
)

// ScopeID identifies a node in the scope tree. The root scope is ScopeID(0).
type ScopeID uint32

// Kind enumerates the declaration kinds of §3.3.
type Kind int

const (
	KindProgram Kind = iota
	KindFunction
	KindFunctionBlock
	KindClass
	KindInterface
	KindMethod
	KindProperty
	KindVariable
	KindParameter
	KindType
	KindNamespace
	KindEnumVariant
)

// Visibility controls member lookup across type boundaries (§4.B step 4).
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityProtected
	VisibilityInternal
)

// Modifier flags, combined via bitwise OR.
type Modifier uint16

const (
	ModAbstract Modifier = 1 << iota
	ModFinal
	ModOverride
	ModConstant
	ModExternal
	ModRetain
	ModNonRetain
	ModPersistent
)

func (m Modifier) Has(f Modifier) bool { return m&f != 0 }

// Direction is the parameter-passing direction.
type Direction int

const (
	DirIn Direction = iota
	DirOut
	DirInOut
)

// SourceRange locates a declaration in its source file.
type SourceRange struct {
	FileID     uint32
	Start, End int
}

// Symbol is one declaration (spec §3.3).
type Symbol struct {
	ID            uint32
	QualifiedName string
	SimpleName    string
	Kind          Kind
	Parent        ScopeID
	DeclaredType  types.ID
	Visibility    Visibility
	Modifiers     Modifier
	Direction     Direction
	HasDirection  bool
	Range         SourceRange
	Origin        *SourceRange // cross-file re-declaration origin
	DirectAddress string       // e.g. "%IX0.0", empty if none
	Initializer   any          // opaque expression node, owned by package ir
}

// scope is one node of the lexical scope tree.
type scope struct {
	id       ScopeID
	parent   ScopeID
	isRoot   bool
	owner    *Symbol // the POU/namespace symbol that opened this scope, nil for root
	names    map[string][]*Symbol
	using    []string // qualified namespace names imported via USING, inner to outer order is caller's job
	children []ScopeID
}

// Table is the full symbol table for one compilation unit (or, when built
// by the semantic database for project-wide resolution, for a virtual
// project root). It is intentionally not concurrency-safe: callers build one
// per query and the semantic database caches the result behind its own
// revision check (§4.D).
type Table struct {
	reg       *types.Registry
	scopes    map[ScopeID]*scope
	nextScope ScopeID
	nextSym   uint32
	byID      map[uint32]*Symbol
	namespace map[string]ScopeID // qualified namespace name -> its scope
	typeMembers map[types.ID]map[string]*Symbol // normalized member name -> symbol, per declaring type
	typeParent map[types.ID]types.ID            // inheritance: derived -> base
}

// NewTable creates an empty table with a root scope.
func NewTable(reg *types.Registry) *Table {
	t := &Table{
		reg:         reg,
		scopes:      make(map[ScopeID]*scope),
		byID:        make(map[uint32]*Symbol),
		namespace:   make(map[string]ScopeID),
		typeMembers: make(map[types.ID]map[string]*Symbol),
		typeParent:  make(map[types.ID]types.ID),
	}
	root := &scope{id: 0, isRoot: true, names: make(map[string][]*Symbol)}
	t.scopes[0] = root
	t.nextScope = 1
	return t
}

// NewScope opens a child scope of parent, optionally owned by a POU symbol.
func (t *Table) NewScope(parent ScopeID, owner *Symbol) ScopeID {
	id := t.nextScope
	t.nextScope++
	s := &scope{id: id, parent: parent, names: make(map[string][]*Symbol), owner: owner}
	t.scopes[id] = s
	if p, ok := t.scopes[parent]; ok {
		p.children = append(p.children, id)
	}
	return id
}

// AddUsing records a USING import on scope, inner-to-outer resolution order
// depends on the order directives were added (§4.B step 3).
func (t *Table) AddUsing(scope ScopeID, qualifiedNamespace string) {
	if s, ok := t.scopes[scope]; ok {
		s.using = append(s.using, qualifiedNamespace)
	}
}

// RegisterNamespace associates a qualified namespace name with a scope, so
// qualified lookups and USING directives can find it.
func (t *Table) RegisterNamespace(qualifiedName string, scope ScopeID) {
	t.namespace[strings.ToUpper(qualifiedName)] = scope
}

// Declare adds sym to scope. Multiple visible declarations with identical
// qualified name and kind are tolerated here (the table records both); the
// caller (lowering) applies the tie-break (first by source position) and
// reports DuplicateDeclaration via DuplicatesOf.
func (t *Table) Declare(scopeID ScopeID, sym *Symbol) *Symbol {
	t.nextSym++
	sym.ID = t.nextSym
	sym.Parent = scopeID
	s, ok := t.scopes[scopeID]
	if !ok {
		s = &scope{id: scopeID, names: make(map[string][]*Symbol)}
		t.scopes[scopeID] = s
	}
	key := strings.ToUpper(sym.SimpleName)
	s.names[key] = append(s.names[key], sym)
	t.byID[sym.ID] = sym
	return sym
}

// DuplicatesOf returns every sibling declaration in scope sharing sym's
// simple name and kind, sorted by source position, so callers can report
// DuplicateDeclaration for everything after the first.
func (t *Table) DuplicatesOf(scope ScopeID, sym *Symbol) []*Symbol {
	s, ok := t.scopes[scope]
	if !ok {
		return nil
	}
	key := strings.ToUpper(sym.SimpleName)
	var out []*Symbol
	for _, cand := range s.names[key] {
		if cand.Kind == sym.Kind {
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

// DeclareTypeMember records a member (variable/method/property) of a
// declaring type, keyed by the normalized (uppercased) member name, per the
// dynamic-dispatch design note in spec §9.
func (t *Table) DeclareTypeMember(owner types.ID, sym *Symbol) {
	m, ok := t.typeMembers[owner]
	if !ok {
		m = make(map[string]*Symbol)
		t.typeMembers[owner] = m
	}
	m[strings.ToUpper(sym.SimpleName)] = sym
}

// SetBase records owner's base type for inheritance-chain walks.
func (t *Table) SetBase(owner, base types.ID) { t.typeParent[owner] = base }

// Lookup implements the algorithm of §4.B: qualified names split on '.' and
// resolve through namespaces; unqualified names walk the scope chain then
// USING directives.
func (t *Table) Lookup(name string, from ScopeID) (*Symbol, error) {
	if strings.Contains(name, ".") {
		return t.lookupQualified(name)
	}
	key := strings.ToUpper(name)

	// Walk from `from` to root.
	for cur := from; ; {
		s, ok := t.scopes[cur]
		if !ok {
			break
		}
		if syms, ok := s.names[key]; ok && len(syms) > 0 {
			return firstByPosition(syms), nil
		}
		if s.isRoot {
			break
		}
		cur = s.parent
	}

	// Walk USING directives from inner to outer.
	for cur := from; ; {
		s, ok := t.scopes[cur]
		if !ok {
			break
		}
		for _, ns := range s.using {
			if sym, err := t.lookupQualified(ns + "." + name); err == nil {
				return sym, nil
			}
		}
		if s.isRoot {
			break
		}
		cur = s.parent
	}

	return nil, errs.New(errs.KindUndefinedName, "undefined name %q", name)
}

func (t *Table) lookupQualified(name string) (*Symbol, error) {
	parts := strings.Split(name, ".")
	nsKey := strings.ToUpper(strings.Join(parts[:len(parts)-1], "."))
	scopeID, ok := t.namespace[nsKey]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "undefined namespace %q", nsKey)
	}
	last := strings.ToUpper(parts[len(parts)-1])
	s, ok := t.scopes[scopeID]
	if !ok {
		return nil, errs.New(errs.KindUndefinedName, "undefined name %q", name)
	}
	if syms, ok := s.names[last]; ok && len(syms) > 0 {
		return firstByPosition(syms), nil
	}
	return nil, errs.New(errs.KindUndefinedName, "undefined name %q", name)
}

func firstByPosition(syms []*Symbol) *Symbol {
	best := syms[0]
	for _, s := range syms[1:] {
		if s.Range.Start < best.Range.Start {
			best = s
		}
	}
	return best
}

// ResolveMember walks receiver's inheritance chain looking for a member
// named `name`, applying visibility rules relative to the scope the access
// occurs `from`. `fromType` is the type id of the POU the access expression
// lexically appears in (IDUnknown if at namespace scope), used to decide
// private/protected access.
func (t *Table) ResolveMember(receiver types.ID, name string, fromType types.ID) (*Symbol, error) {
	key := strings.ToUpper(name)
	for cur := receiver; cur != types.IDUnknown; {
		if m, ok := t.typeMembers[cur]; ok {
			if sym, ok := m[key]; ok {
				if !t.visibleFrom(sym, cur, fromType) {
					return nil, errs.New(errs.KindUndefinedName, "member %q of %v is not accessible here", name, cur)
				}
				return sym, nil
			}
		}
		base, ok := t.typeParent[cur]
		if !ok {
			break
		}
		cur = base
	}
	return nil, errs.New(errs.KindUndefinedName, "undefined member %q", name)
}

func (t *Table) visibleFrom(sym *Symbol, declaringType, fromType types.ID) bool {
	switch sym.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityPrivate:
		return fromType == declaringType
	case VisibilityProtected:
		return fromType == declaringType || t.isDescendant(fromType, declaringType)
	case VisibilityInternal:
		// Namespace membership is tracked by the caller via qualified
		// names; the table only knows type identity, so internal access
		// is permitted within the same declaring type or its descendants
		// as a conservative approximation, and the semantic DB's
		// namespace-aware diagnostic pass (§4.D) tightens it further.
		return fromType == declaringType || t.isDescendant(fromType, declaringType)
	default:
		return false
	}
}

func (t *Table) isDescendant(candidate, ancestor types.ID) bool {
	for cur := candidate; cur != types.IDUnknown; {
		base, ok := t.typeParent[cur]
		if !ok {
			return false
		}
		if base == ancestor {
			return true
		}
		cur = base
	}
	return false
}

// AllInScope returns every symbol declared directly in scope, for diagnostic
// passes (unused-symbol, etc.) that need to enumerate declarations.
func (t *Table) AllInScope(scope ScopeID) []*Symbol {
	s, ok := t.scopes[scope]
	if !ok {
		return nil
	}
	var out []*Symbol
	for _, syms := range s.names {
		out = append(out, syms...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start < out[j].Range.Start })
	return out
}

func (t *Table) Symbol(id uint32) (*Symbol, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// Registry returns the type registry this table resolves DeclaredType ids
// against, so callers outside the package (e.g. the semantic database's
// expression type-checking pass) can look types up without the table
// needing to re-expose every Registry method itself.
func (t *Table) Registry() *types.Registry { return t.reg }

// AllScopes returns every scope id the table has opened, in ascending
// (creation) order, for diagnostic passes that need to walk the whole
// scope tree rather than a single scope (§4.D unused-symbol, USING
// resolution).
func (t *Table) AllScopes() []ScopeID {
	out := make([]ScopeID, 0, len(t.scopes))
	for id := range t.scopes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UsingOf returns the USING directives recorded on scope via AddUsing, in
// the order they were added.
func (t *Table) UsingOf(scope ScopeID) []string {
	s, ok := t.scopes[scope]
	if !ok {
		return nil
	}
	return s.using
}

// NamespaceExists reports whether name was registered via RegisterNamespace,
// so a USING directive naming it can be told apart from one that resolves
// to nothing.
func (t *Table) NamespaceExists(name string) bool {
	_, ok := t.namespace[strings.ToUpper(name)]
	return ok
}

// BaseOf returns owner's direct base type as recorded by SetBase.
func (t *Table) BaseOf(owner types.ID) (types.ID, bool) {
	b, ok := t.typeParent[owner]
	return b, ok
}

// ScopeOwnedBy returns the scope that NewScope opened on owner's behalf, if
// any. Used by OOP diagnostics to recover a class/function-block's member
// scope starting only from its declaration symbol.
func (t *Table) ScopeOwnedBy(owner *Symbol) (ScopeID, bool) {
	for id, s := range t.scopes {
		if s.owner == owner {
			return id, true
		}
	}
	return 0, false
}
