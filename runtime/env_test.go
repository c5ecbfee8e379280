package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/eval"
	"github.com/stplatform/stcore/ir"
	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/stdlib"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

func newTestStore() *memory.RuntimeStore {
	return &memory.RuntimeStore{
		Globals: memory.NewGlobals(),
		Frames:  memory.NewFrameStack(),
		Arena:   memory.NewArena(),
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *memory.RuntimeStore, *types.Registry) {
	t.Helper()
	reg := types.New()
	store := newTestStore()
	d := NewDispatcher(&ir.Program{}, reg, stdlib.New(), eval.New(), store)
	return d, store, reg
}

func TestEnvLookupPrefersFrameOverGlobal(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	store.Globals.Declare("X", values.SInt{Width: 32, V: 1})
	frame := store.Frames.PushNew()
	frame.Declare("X", values.SInt{Width: 32, V: 2})

	env := d.NewEnv(frame, nil, nil)
	v, err := env.Lookup("X")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.(values.SInt).V)
}

func TestEnvLookupFallsBackToInstanceThenGlobal(t *testing.T) {
	d, store, reg := newTestDispatcher(t)
	id, err := reg.RegisterType("MYFB", types.Type{Kind: types.KindStruct, Name: "MYFB"})
	require.NoError(t, err)
	inst := store.Arena.New(id, 0, false, map[string]values.Value{"MEMBER": values.Bool{V: true}})
	store.Globals.Declare("G", values.Bool{V: false})

	env := d.NewEnv(nil, &inst, nil)
	v, err := env.Lookup("MEMBER")
	require.NoError(t, err)
	assert.True(t, v.(values.Bool).V)

	v, err = env.Lookup("G")
	require.NoError(t, err)
	assert.False(t, v.(values.Bool).V)
}

func TestEnvAssignWritesThroughFrame(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	frame := store.Frames.PushNew()
	frame.Declare("X", values.SInt{Width: 32, V: 0})
	env := d.NewEnv(frame, nil, nil)

	require.NoError(t, env.Assign("X", values.SInt{Width: 32, V: 9}))
	v, err := frame.Get("X")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.(values.SInt).V)
}

func TestEnvAddressOfResolvesEachScope(t *testing.T) {
	d, store, reg := newTestDispatcher(t)
	id, err := reg.RegisterType("MYFB", types.Type{Kind: types.KindStruct, Name: "MYFB"})
	require.NoError(t, err)
	inst := store.Arena.New(id, 0, false, map[string]values.Value{"M": values.Bool{V: true}})
	store.Globals.Declare("G", values.Bool{V: true})
	frame := store.Frames.PushNew()
	frame.Declare("L", values.Bool{V: true})

	env := d.NewEnv(frame, &inst, nil)

	ref, err := env.AddressOf("L")
	require.NoError(t, err)
	assert.Equal(t, "L", ref.Location.Name)

	ref, err = env.AddressOf("M")
	require.NoError(t, err)
	assert.Equal(t, "M", ref.Location.Name)

	ref, err = env.AddressOf("G")
	require.NoError(t, err)
	assert.Equal(t, memory.GlobalLocation("G"), ref.Location)

	_, err = env.AddressOf("NOPE")
	assert.Error(t, err)
}

func TestEnvThisAndSuper(t *testing.T) {
	d, store, reg := newTestDispatcher(t)
	baseID, err := reg.RegisterType("BASE", types.Type{Kind: types.KindStruct, Name: "BASE"})
	require.NoError(t, err)
	base := store.Arena.New(baseID, 0, false, nil)
	derivedID, err := reg.RegisterType("DERIVED", types.Type{Kind: types.KindStruct, Name: "DERIVED"})
	require.NoError(t, err)
	derived := store.Arena.New(derivedID, base.ID, true, nil)

	env := d.NewEnv(nil, &derived, &base)
	this, ok := env.This()
	require.True(t, ok)
	assert.Equal(t, derived.ID, this.ID)

	super, ok := env.Super()
	require.True(t, ok)
	assert.Equal(t, base.ID, super.ID)

	bare := d.NewEnv(nil, nil, nil)
	_, ok = bare.This()
	assert.False(t, ok)
	_, ok = bare.Super()
	assert.False(t, ok)
}
