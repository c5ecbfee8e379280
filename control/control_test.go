package control

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stplatform/stcore/ioimage"
	"github.com/stplatform/stcore/values"
)

func TestForceTableApplyOverridesImage(t *testing.T) {
	img := ioimage.NewImage(0, 1, 0)
	addr, err := ioimage.Parse("%QX0.0")
	require.NoError(t, err)

	forces := NewForceTable()
	forces.Force(addr, values.Bool{V: true})

	d := &stubDriver{}
	fd := NewForcingDriver(d, forces)

	require.NoError(t, fd.WriteOutputs(img))
	v, err := img.Read(addr)
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, v)
}

func TestForceTableUnforceStopsOverriding(t *testing.T) {
	img := ioimage.NewImage(0, 1, 0)
	addr, err := ioimage.Parse("%QX0.0")
	require.NoError(t, err)

	forces := NewForceTable()
	forces.Force(addr, values.Bool{V: true})
	forces.Unforce(addr)

	require.NoError(t, img.Write(addr, values.Bool{V: false}))
	fd := NewForcingDriver(&stubDriver{}, forces)
	require.NoError(t, fd.WriteOutputs(img))

	v, err := img.Read(addr)
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: false}, v)
}

func TestForcingDriverReadInputsAppliesForces(t *testing.T) {
	img := ioimage.NewImage(1, 0, 0)
	addr, err := ioimage.Parse("%IX0.0")
	require.NoError(t, err)

	forces := NewForceTable()
	forces.Force(addr, values.Bool{V: true})

	d := &stubDriver{} // a real driver would set Inputs from the field; here it leaves it zero
	fd := NewForcingDriver(d, forces)
	require.NoError(t, fd.ReadInputs(img))

	v, err := img.Read(addr)
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, v)
}

type stubDriver struct{}

func (stubDriver) Name() string                      { return "stub" }
func (stubDriver) ReadInputs(*ioimage.Image) error    { return nil }
func (stubDriver) WriteOutputs(*ioimage.Image) error  { return nil }
func (stubDriver) Health() error                     { return nil }

func TestDecodeLiteralRecoversIntegers(t *testing.T) {
	v, err := decodeLiteral(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, values.SInt{Width: 32, V: 42}, v)
}

func TestDecodeLiteralRecoversFloats(t *testing.T) {
	v, err := decodeLiteral(json.RawMessage(`1.5`))
	require.NoError(t, err)
	assert.Equal(t, values.Float{Width: 64, V: 1.5}, v)
}

func TestDecodeLiteralRecoversBoolAndString(t *testing.T) {
	b, err := decodeLiteral(json.RawMessage(`true`))
	require.NoError(t, err)
	assert.Equal(t, values.Bool{V: true}, b)

	s, err := decodeLiteral(json.RawMessage(`"hello"`))
	require.NoError(t, err)
	str, ok := s.(values.String)
	require.True(t, ok)
	assert.Equal(t, "hello", str.V)
}

func TestRegisterIOReadWriteForceUnforceList(t *testing.T) {
	img := ioimage.NewImage(0, 1, 0)
	forces := NewForceTable()
	s := NewServer(nil)
	RegisterIO(s, img, forces)

	writeResp := s.dispatch(Request{ID: 1, Type: "io.write", Params: json.RawMessage(`{"address":"%QX0.0","value":true}`)})
	require.True(t, writeResp.OK, writeResp.Error)

	readResp := s.dispatch(Request{ID: 2, Type: "io.read", Params: json.RawMessage(`{"address":"%QX0.0"}`)})
	require.True(t, readResp.OK, readResp.Error)
	result := readResp.Result.(map[string]any)
	assert.Equal(t, "true", result["value"])

	forceResp := s.dispatch(Request{ID: 3, Type: "io.force", Params: json.RawMessage(`{"address":"%QX0.0","value":false}`)})
	require.True(t, forceResp.OK, forceResp.Error)

	listResp := s.dispatch(Request{ID: 4, Type: "io.list", Params: nil})
	require.True(t, listResp.OK, listResp.Error)
	forced := listResp.Result.([]map[string]any)
	require.Len(t, forced, 1)
	assert.Equal(t, "%QX0.0", forced[0]["address"])

	unforceResp := s.dispatch(Request{ID: 5, Type: "io.unforce", Params: json.RawMessage(`{"address":"%QX0.0"}`)})
	require.True(t, unforceResp.OK, unforceResp.Error)

	listResp2 := s.dispatch(Request{ID: 6, Type: "io.list", Params: nil})
	assert.Len(t, listResp2.Result.([]map[string]any), 0)
}

func TestDispatchUnknownType(t *testing.T) {
	s := NewServer(nil)
	resp := s.dispatch(Request{ID: 1, Type: "bogus"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unrecognized request type")
}

func TestServeRoundTripOverTCP(t *testing.T) {
	img := ioimage.NewImage(0, 1, 0)
	forces := NewForceTable()
	s := NewServer(nil)
	RegisterIO(s, img, forces)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(ctx, "tcp", addr) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	defer conn.Close()

	req := Request{ID: 7, Type: "io.write", Params: json.RawMessage(`{"address":"%QX0.0","value":true}`)}
	line, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(line, '\n'))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	respLine, err := reader.ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(respLine, &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, uint32(7), resp.ID)

	cancel()
	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not shut down after ctx cancellation")
	}
}
