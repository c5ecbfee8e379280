// Package semdb implements the incremental semantic database of spec §4.D:
// a thread-safe, revision-counted cache over three query families —
// source text, file symbols/diagnostics, and expression typing — keyed by
// an opaque FileID. The actual parsing, lowering, and type-checking logic
// is an external collaborator per spec §1 ("the concrete lexer token
// shapes, the CST tree representation, parser error recovery strategy ...
// are out of scope"); this package owns only the cache and its
// invalidation contract, and calls out to a caller-supplied Backend for
// every derived query's real computation, the same way the teacher's own
// pe.Logger seam lets a caller supply concrete behavior behind a narrow
// interface without this package needing to know what's on the other side.
package semdb

import (
	"sort"
	"sync"

	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// FileID identifies one source file. Opaque and caller-assigned.
type FileID uint32

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// Diagnostic is one reported issue from a file's analyze pass.
type Diagnostic struct {
	File       FileID
	Code       string
	Start, End int
	Message    string
	Severity   Severity
}

// Analysis is the (symbols, diagnostics) pair analyze(id) returns (§4.D).
type Analysis struct {
	Symbols     *symbols.Table
	Diagnostics []Diagnostic
}

// Backend supplies the actual parse/lower/type-check computation the
// database caches. Every method receives the file's current source text
// directly (rather than reading it back out of the DB) so a Backend never
// needs its own reference to the DB for that one thing; Diagnose also
// receives the DB itself, since project-wide diagnostics legitimately need
// to call back into FileSymbols for other files (§4.D "per-file
// isolation": "computing analyze(A) may consult file_symbols(B) for
// project-wide resolution").
type Backend interface {
	// BuildSymbols parses and lowers text into file_symbols(id): all
	// declarations, resolved type ids, and the scope tree (§4.D).
	BuildSymbols(id FileID, text string) (*symbols.Table, error)
	// Diagnose runs every diagnostic pass over id's own symbols, returning
	// them in any order; the database sorts by (file, start, code) before
	// caching (§4.D "Determinism").
	Diagnose(id FileID, text string, tbl *symbols.Table, db *DB) ([]Diagnostic, error)
	// TypeOf returns the type of the exprID-th expression node of id's
	// parse tree, expression nodes numbered in document order (§4.D).
	TypeOf(id FileID, text string, exprID int) (types.ID, error)
	// ExprIDAtOffset returns the smallest enclosing expression's stable
	// index at a byte offset into text (§4.D).
	ExprIDAtOffset(id FileID, text string, offset int) (int, error)
}

type cachedSymbols struct {
	rev uint64
	val *symbols.Table
}

type cachedAnalysis struct {
	rev uint64
	val *Analysis
}

type cachedType struct {
	rev uint64
	val types.ID
}

type fileEntry struct {
	text   string
	exists bool

	symbols  *cachedSymbols
	analysis *cachedAnalysis
	typeOf   map[int]cachedType
}

// DB is the semantic database: a single global revision counter plus one
// cache entry per (file, query). Reads and writes are serialized through a
// single RWMutex over the source map and caches, matching §5's "Semantic
// DB: reads and writes are serialized through a reader-writer lock over
// the source map and caches; cache entries are shared-owned; a write
// increments the revision atomically."
//
// There is deliberately no dependency graph between cache entries (§4.D
// "Per-file isolation"): any edit to any file bumps the one global
// revision, and every cached entry everywhere is invalidated by a single
// strict-equality comparison against it on its next read. This is coarser
// than fine-grained edge accounting, and correct because of it.
type DB struct {
	mu       sync.RWMutex
	backend  Backend
	revision uint64
	files    map[FileID]*fileEntry
}

// New builds an empty DB driven by backend.
func New(backend Backend) *DB {
	return &DB{backend: backend, files: make(map[FileID]*fileEntry)}
}

// Revision returns the current global revision, chiefly useful in tests
// asserting the monotonicity invariant.
func (db *DB) Revision() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.revision
}

// SetSourceText installs text as file id's content, atomically replacing
// whatever was there and bumping the global revision (§4.D "Atomic
// edits"). Every cache entry this file held is dropped immediately; every
// other file's cache entries are left in place but will miss on their next
// read, since their recorded revision no longer equals the bumped one.
func (db *DB) SetSourceText(id FileID, text string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.revision++
	f, ok := db.files[id]
	if !ok {
		f = &fileEntry{}
		db.files[id] = f
	}
	f.text = text
	f.exists = true
	f.symbols = nil
	f.analysis = nil
	f.typeOf = nil
}

// RemoveSourceText deletes file id and bumps the global revision.
func (db *DB) RemoveSourceText(id FileID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.revision++
	delete(db.files, id)
}

// SourceText returns file id's current text, if any has been set.
func (db *DB) SourceText(id FileID) (string, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	f, ok := db.files[id]
	if !ok || !f.exists {
		return "", false
	}
	return f.text, true
}

func sortDiagnostics(ds []Diagnostic) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].File != ds[j].File {
			return ds[i].File < ds[j].File
		}
		if ds[i].Start != ds[j].Start {
			return ds[i].Start < ds[j].Start
		}
		return ds[i].Code < ds[j].Code
	})
}
