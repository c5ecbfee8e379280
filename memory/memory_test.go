package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

func TestGlobalsDeclareGetSet(t *testing.T) {
	g := NewGlobals()
	g.Declare("Counter", values.SInt{Width: 32, V: 0})
	require.NoError(t, g.Set("counter", values.SInt{Width: 32, V: 5}))
	v, err := g.Get("COUNTER")
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 5}, v)
}

func TestGlobalsSetUndeclared(t *testing.T) {
	g := NewGlobals()
	assert.Error(t, g.Set("missing", values.Bool{V: true}))
}

func TestFrameStackKeepsFrameReachableAfterNestedPush(t *testing.T) {
	fs := NewFrameStack()
	outer := fs.PushNew()
	outer.Declare("x", values.SInt{Width: 32, V: 1})

	inner := fs.PushNew()
	inner.Declare("y", values.SInt{Width: 32, V: 2})
	assert.Equal(t, inner, fs.Top())

	// Outer frame stays addressable by id while inner is active.
	f, ok := fs.ByID(outer.ID)
	require.True(t, ok)
	v, err := f.Get("x")
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 1}, v)

	fs.Pop()
	assert.Equal(t, outer, fs.Top())
	_, ok = fs.ByID(inner.ID)
	assert.False(t, ok)
}

func TestArenaBaseChain(t *testing.T) {
	a := NewArena()
	base := a.New(types.ID(1001), 0, false, map[string]values.Value{"V": values.Bool{V: true}})
	derived := a.New(types.ID(1002), base.ID, true, map[string]values.Value{"W": values.Bool{V: false}})

	parent, err := a.Base(derived.ID)
	require.NoError(t, err)
	assert.Equal(t, base.ID, parent)

	_, err = a.Base(base.ID)
	assert.Error(t, err)
}

func TestResolveAndAssignNestedArrayOfStruct(t *testing.T) {
	inner := values.Struct{Name: "Point", Fields: []values.StructField{
		{Name: "X", Value: values.SInt{Width: 32, V: 1}},
		{Name: "Y", Value: values.SInt{Width: 32, V: 2}},
	}}
	arr := values.Array{
		Dims:     []types.Dimension{{Lower: 0, Upper: 1}},
		Elements: []values.Value{inner, inner},
	}
	g := NewGlobals()
	g.Declare("Points", arr)

	store := &RuntimeStore{Globals: g}
	target := &values.RefTarget{
		Location: GlobalLocation("Points"),
		Path:     []values.PathSegment{values.IndexSeg(1), values.FieldSeg("Y")},
	}

	v, err := Resolve(store, target)
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 2}, v)

	require.NoError(t, Assign(store, target, values.SInt{Width: 32, V: 99}))

	v, err = Resolve(store, target)
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 99}, v)

	// Sibling element at index 0 must be untouched by the rebuild.
	other, err := Resolve(store, &values.RefTarget{
		Location: GlobalLocation("Points"),
		Path:     []values.PathSegment{values.IndexSeg(0), values.FieldSeg("Y")},
	})
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 2}, other)
}

func TestAssignThroughNullReference(t *testing.T) {
	store := &RuntimeStore{Globals: NewGlobals()}
	err := Assign(store, nil, values.Bool{V: true})
	assert.Error(t, err)
}

func TestRuntimeStoreRoutesToInstanceAndIO(t *testing.T) {
	g := NewGlobals()
	arena := NewArena()
	img := ioimage.NewImage(0, 2, 0)
	addr, err := ioimage.Parse("%QW0")
	require.NoError(t, err)
	require.NoError(t, img.Bind("LampWord", addr))

	inst := arena.New(types.ID(1001), 0, false, map[string]values.Value{"Enabled": values.Bool{V: false}})
	store := &RuntimeStore{Globals: g, Arena: arena, Image: img}

	require.NoError(t, store.SetLocation(InstanceLocation(inst.ID, "Enabled"), values.Bool{V: true}))
	v, err := store.GetLocation(InstanceLocation(inst.ID, "Enabled"))
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, v)

	require.NoError(t, store.SetLocation(IoLocation("LampWord"), values.BitString{Width: 16, V: 0xBEEF}))
	v, err = store.GetLocation(IoLocation("LampWord"))
	require.NoError(t, err)
	assert.Equal(t, values.BitString{Width: 16, V: 0xBEEF}, v)
}

func TestRetainSnapshotRoundTrip(t *testing.T) {
	g := NewGlobals()
	g.Declare("Total", values.SInt{Width: 32, V: 7})
	arena := NewArena()
	inst := arena.New(types.ID(1001), 0, false, map[string]values.Value{"Accum": values.SInt{Width: 32, V: 3}})

	entries, err := RetainSnapshot(g, arena, []string{"Total"}, map[values.InstanceID][]string{inst.ID: {"Accum"}})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	g2 := NewGlobals()
	g2.Declare("Total", values.SInt{Width: 32, V: 0})
	arena2 := NewArena()
	inst2 := arena2.New(types.ID(1001), 0, false, map[string]values.Value{"Accum": values.SInt{Width: 32, V: 0}})
	require.Equal(t, inst.ID, inst2.ID)

	store := &RuntimeStore{Globals: g2, Arena: arena2}
	require.NoError(t, RestoreSnapshot(store, entries))

	v, err := g2.Get("Total")
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 7}, v)
}
