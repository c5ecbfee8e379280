package semdb

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/symbols"
	"github.com/stplatform/stcore/types"
)

// countingBackend is a stub Backend that counts how many times each method
// actually runs, so tests can assert a cache hit skipped it. Its
// BuildSymbols/Diagnose/TypeOf results are derived purely from the text's
// shape (line count, substring presence) — there is no real ST parser in
// this tree (lexing, parsing, and the CST are out of scope) — just enough
// to exercise the database's caching contract.
type countingBackend struct {
	mu               sync.Mutex
	buildSymbolsN    int
	diagnoseN        int
	typeOfN          int
	exprAtOffsetN    int
	diagsFor         map[FileID][]Diagnostic
	crossFileLookups map[FileID]FileID // file -> file whose symbols it consults in Diagnose
	db               func() *DB
}

func (b *countingBackend) BuildSymbols(id FileID, text string) (*symbols.Table, error) {
	b.mu.Lock()
	b.buildSymbolsN++
	b.mu.Unlock()
	tbl := symbols.NewTable(types.New())
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tbl.RegisterNamespace(line, 0)
	}
	return tbl, nil
}

func (b *countingBackend) Diagnose(id FileID, text string, tbl *symbols.Table, db *DB) ([]Diagnostic, error) {
	b.mu.Lock()
	b.diagnoseN++
	other, wantsCrossFile := b.crossFileLookups[id]
	b.mu.Unlock()
	if wantsCrossFile {
		if _, err := db.FileSymbols(other); err != nil {
			return nil, err
		}
	}
	return b.diagsFor[id], nil
}

func (b *countingBackend) TypeOf(id FileID, text string, exprID int) (types.ID, error) {
	b.mu.Lock()
	b.typeOfN++
	b.mu.Unlock()
	return types.IDSInt32, nil
}

func (b *countingBackend) ExprIDAtOffset(id FileID, text string, offset int) (int, error) {
	b.mu.Lock()
	b.exprAtOffsetN++
	b.mu.Unlock()
	return offset / 4, nil
}

func newCountingBackend() *countingBackend {
	return &countingBackend{
		diagsFor:         make(map[FileID][]Diagnostic),
		crossFileLookups: make(map[FileID]FileID),
	}
}

func TestSetSourceTextBumpsRevisionMonotonically(t *testing.T) {
	db := New(newCountingBackend())
	r0 := db.Revision()
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")
	r1 := db.Revision()
	db.SetSourceText(2, "PROGRAM B\nEND_PROGRAM")
	r2 := db.Revision()
	assert.Less(t, r0, r1)
	assert.Less(t, r1, r2)
}

func TestFileSymbolsCachedUntilRevisionChanges(t *testing.T) {
	backend := newCountingBackend()
	db := New(backend)
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")

	_, err := db.FileSymbols(1)
	require.NoError(t, err)
	_, err = db.FileSymbols(1)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.buildSymbolsN, "second call should hit the cache")

	db.SetSourceText(1, "PROGRAM A2\nEND_PROGRAM")
	_, err = db.FileSymbols(1)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.buildSymbolsN, "edit invalidates the cache")
}

func TestFileSymbolsCacheInvalidatedByUnrelatedFileEdit(t *testing.T) {
	backend := newCountingBackend()
	db := New(backend)
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")
	db.SetSourceText(2, "PROGRAM B\nEND_PROGRAM")

	_, err := db.FileSymbols(1)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.buildSymbolsN)

	// Editing file 2 bumps the single global revision; per §4.D there is no
	// dependency graph, so file 1's cache entry is invalidated too even
	// though nothing about file 1 changed.
	db.SetSourceText(2, "PROGRAM B2\nEND_PROGRAM")
	_, err = db.FileSymbols(1)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.buildSymbolsN, "unrelated edit must invalidate file 1's cache (coarse invalidation)")
}

func TestAnalyzeConsultsOtherFilesSymbols(t *testing.T) {
	backend := newCountingBackend()
	backend.crossFileLookups[1] = 2
	db := New(backend)
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")
	db.SetSourceText(2, "PROGRAM B\nEND_PROGRAM")

	_, err := db.Analyze(1)
	require.NoError(t, err)
	// Analyze(1) consulted FileSymbols(2) as a side effect, per §4.D's
	// "analyze(A) may consult file_symbols(B) for project-wide resolution".
	assert.Equal(t, 2, backend.buildSymbolsN, "file_symbols(1) from Analyze's own call plus file_symbols(2) from the cross-file lookup, each computed once")
}

func TestAnalyzeDiagnosticsAreSortedDeterministically(t *testing.T) {
	backend := newCountingBackend()
	backend.diagsFor[1] = []Diagnostic{
		{File: 1, Start: 30, Code: "E002"},
		{File: 1, Start: 10, Code: "E003"},
		{File: 1, Start: 10, Code: "E001"},
	}
	db := New(backend)
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")

	a, err := db.Analyze(1)
	require.NoError(t, err)
	require.Len(t, a.Diagnostics, 3)
	assert.Equal(t, "E001", a.Diagnostics[0].Code)
	assert.Equal(t, "E003", a.Diagnostics[1].Code)
	assert.Equal(t, "E002", a.Diagnostics[2].Code)
}

func TestTypeOfCachedPerExprID(t *testing.T) {
	backend := newCountingBackend()
	db := New(backend)
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")

	_, err := db.TypeOf(1, 0)
	require.NoError(t, err)
	_, err = db.TypeOf(1, 1)
	require.NoError(t, err)
	_, err = db.TypeOf(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.typeOfN, "two distinct expr ids computed once each")
}

func TestExprIDAtOffsetDelegatesToBackend(t *testing.T) {
	backend := newCountingBackend()
	db := New(backend)
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")

	id, err := db.ExprIDAtOffset(1, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.Equal(t, 1, backend.exprAtOffsetN)
}

func TestQueriesOnUnknownFileReturnUndefinedName(t *testing.T) {
	db := New(newCountingBackend())
	_, err := db.FileSymbols(99)
	assert.Error(t, err)
	_, err = db.Analyze(99)
	assert.Error(t, err)
	_, err = db.TypeOf(99, 0)
	assert.Error(t, err)
	_, err = db.ExprIDAtOffset(99, 0)
	assert.Error(t, err)
}

func TestRemoveSourceTextDropsFileAndBumpsRevision(t *testing.T) {
	db := New(newCountingBackend())
	db.SetSourceText(1, "PROGRAM A\nEND_PROGRAM")
	rev := db.Revision()

	db.RemoveSourceText(1)
	assert.Greater(t, db.Revision(), rev)
	_, ok := db.SourceText(1)
	assert.False(t, ok)

	_, err := db.FileSymbols(1)
	assert.Error(t, err)
}
