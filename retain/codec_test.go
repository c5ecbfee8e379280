package retain

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/memory"
	"github.com/stplatform/stcore/types"
	"github.com/stplatform/stcore/values"
)

func roundTrip(t *testing.T, v values.Value) values.Value {
	t.Helper()
	var w writer
	require.NoError(t, encodeValue(&w, v))
	got, err := decodeValue(newReader(w.buf.Bytes()))
	require.NoError(t, err)
	return got
}

func TestEncodeDecodeScalarValues(t *testing.T) {
	tests := []values.Value{
		values.Bool{V: true},
		values.SInt{Width: 16, V: -42},
		values.UInt{Width: 8, V: 200},
		values.Float{Width: 32, V: 3.5},
		values.Float{Width: 64, V: 2.718281828},
		values.BitString{Width: 32, V: 0xCAFEBABE},
		values.Duration{V: 1500 * time.Millisecond},
		values.Char{V: 'x'},
		values.WChar{V: '大'},
		values.String{Type: types.IDString, V: "hello"},
		values.WString{Type: types.IDWString, V: []rune("héllo")},
		values.Enum{Type: types.ID(99), Name: "COLOR", Variant: "RED", Value: 1},
		values.Instance{Type: types.ID(7), ID: 3},
		values.Null{},
	}
	for _, v := range tests {
		t.Run(fmt.Sprintf("%T", v), func(t *testing.T) {
			assert.Equal(t, v, roundTrip(t, v))
		})
	}
}

func TestEncodeDecodeDateValuesPreserveUnixNano(t *testing.T) {
	now := time.Unix(0, 1_700_000_000_123_000_000).UTC()
	d := values.Date{Profile: values.ProfileNanos64, V: now}
	got := roundTrip(t, d).(values.Date)
	assert.Equal(t, now.UnixNano(), got.V.UnixNano())

	dt := values.DateTime{Profile: values.ProfileTicks32, V: now}
	gotDT := roundTrip(t, dt).(values.DateTime)
	assert.Equal(t, now.UnixNano(), gotDT.V.UnixNano())

	tod := values.TimeOfDay{Profile: values.ProfileNanos64, V: 5 * time.Hour}
	assert.Equal(t, tod, roundTrip(t, tod))
}

func TestEncodeDecodeArray(t *testing.T) {
	arr := values.Array{
		Type:     types.ID(10),
		ElemType: types.IDSInt32,
		Dims:     []types.Dimension{{Lower: 0, Upper: 2}},
		Elements: []values.Value{
			values.SInt{Width: 32, V: 1},
			values.SInt{Width: 32, V: 2},
			values.SInt{Width: 32, V: 3},
		},
	}
	assert.Equal(t, arr, roundTrip(t, arr))
}

func TestEncodeDecodeStruct(t *testing.T) {
	s := values.Struct{
		Type: types.ID(20),
		Name: "POINT",
		Fields: []values.StructField{
			{Name: "X", Value: values.SInt{Width: 32, V: 1}},
			{Name: "Y", Value: values.SInt{Width: 32, V: 2}},
		},
	}
	assert.Equal(t, s, roundTrip(t, s))
}

func TestEncodeDecodeReferenceWithPath(t *testing.T) {
	ref := values.Reference{
		PointeeType: types.IDSInt32,
		Target: &values.RefTarget{
			Location: values.Location{Area: "global", Name: "arr"},
			Offset:   4,
			Path: []values.PathSegment{
				values.IndexSeg(1, 2),
				values.FieldSeg("member"),
			},
		},
	}
	got := roundTrip(t, ref).(values.Reference)
	require.NotNil(t, got.Target)
	assert.Equal(t, ref.Target.Location, got.Target.Location)
	assert.Equal(t, ref.Target.Offset, got.Target.Offset)
	assert.Equal(t, ref.Target.Path, got.Target.Path)
}

func TestEncodeDecodeNullReference(t *testing.T) {
	ref := values.Reference{PointeeType: types.IDSInt32}
	got := roundTrip(t, ref).(values.Reference)
	assert.True(t, got.IsNull())
}

func TestDecodeValueRejectsUnknownTag(t *testing.T) {
	_, err := decodeValue(newReader([]byte{0xFF}))
	assert.ErrorContains(t, err, "unknown retain value tag")
}

func TestDecodeValueRejectsTruncatedData(t *testing.T) {
	_, err := decodeValue(newReader([]byte{byte(tagSInt)}))
	assert.Error(t, err)
}

func TestEncodeDecodeAllRoundTrip(t *testing.T) {
	entries := []memory.RetainEntry{
		{Scope: "global", Name: "r", Value: values.SInt{Width: 16, V: 42}},
		{Scope: "instance:3", Name: "acc", Value: values.Bool{V: true}},
		{Scope: "program:M", Name: "counter", Value: values.SInt{Width: 32, V: -1}},
	}
	data, err := EncodeAll(entries)
	require.NoError(t, err)
	got, err := DecodeAll(data)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestFileLoadMissingIsNotAnError(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.retain"))
	entries, ok, err := f.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, entries)
}

func TestFileSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.retain")
	f := NewFile(path)
	entries := []memory.RetainEntry{
		{Scope: "global", Name: "r", Value: values.SInt{Width: 16, V: 42}},
	}
	require.NoError(t, f.Save(entries))

	got, ok, err := f.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entries, got)
}

func TestFileSaveOverwritesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.retain")
	f := NewFile(path)
	require.NoError(t, f.Save([]memory.RetainEntry{{Scope: "global", Name: "r", Value: values.SInt{Width: 16, V: 1}}}))
	require.NoError(t, f.Save([]memory.RetainEntry{{Scope: "global", Name: "r", Value: values.SInt{Width: 16, V: 2}}}))

	got, ok, err := f.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, values.SInt{Width: 16, V: 2}, got[0].Value)
}
