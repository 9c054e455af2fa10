package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlighting/olardm/pkg/pid"
	"github.com/openlighting/olardm/pkg/rdm"
	"github.com/openlighting/olardm/pkg/rpc"
	"github.com/openlighting/olardm/pkg/uid"
	"github.com/openlighting/olardm/pkg/wire"
)

const sessionDefs = `
pid {
  name: "SUPPORTED_PARAMETERS"
  value: 80
  get_request { }
  get_response {
    field {
      type: GROUP
      name: "params"
      field { type: UINT16 name: "param_id" }
    }
  }
}
pid {
  name: "DEVICE_LABEL"
  value: 130
  get_request { }
  get_response { field { type: STRING name: "label" max_size: 32 } }
  set_request { field { type: STRING name: "label" max_size: 32 } }
  set_response { }
}
pid {
  name: "DMX_START_ADDRESS"
  value: 240
  get_request { }
  get_response { field { type: UINT16 name: "dmx_address" } }
  set_request { field { type: UINT16 name: "dmx_address" range { min: 1 max: 512 } } }
  set_response { }
}
manufacturer {
  manufacturer_id: 31344
  manufacturer_name: "Open Lighting"
  pid {
    name: "SERIAL_NUMBER"
    value: 32768
    get_request { }
    get_response { field { type: UINT32 name: "serial_number" } }
  }
}
`

// daemon answers every call with a fixed reply.
type daemon struct {
	reply []byte
	calls []string
	last  *wire.RDMRequest
}

func (d *daemon) Call(method string, args []byte, done rpc.Callback) error {
	d.calls = append(d.calls, method)
	if method == wire.MethodRDMCommand {
		req, err := wire.DecodeRDMRequest(args)
		if err != nil {
			return err
		}
		d.last = req
	}
	done(d.reply, nil)
	return nil
}

func newSession(t *testing.T, d *daemon) (*session, *bytes.Buffer) {
	t.Helper()
	store, err := pid.LoadDefinitions(pid.Source{Name: "pids.proto", Data: []byte(sessionDefs)})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return &session{client: rdm.NewClient(d, store), universe: 1, out: out}, out
}

func ackWith(t *testing.T, paramID uint16, data []byte) []byte {
	t.Helper()
	b, err := wire.EncodeRDMResponse(&wire.RDMResponse{
		ResponseCode: wire.ResponseCompletedOK,
		ResponseType: wire.ResponseTypeAck,
		ParamID:      paramID,
		ParamData:    data,
	})
	require.NoError(t, err)
	return b
}

func TestSessionGetByName(t *testing.T) {
	d := &daemon{}
	sess, out := newSession(t, d)
	d.reply = ackWith(t, 130, []byte("Dimmer"))

	require.NoError(t, sess.exec(context.Background(), "get", []string{"7a70:00000001", "0", "device_label"}))
	assert.Equal(t, "label: Dimmer\n", out.String())
	require.NotNil(t, d.last)
	assert.Equal(t, uint16(130), d.last.ParamID)
	assert.Equal(t, wire.GetCommand, d.last.CommandClass)
	assert.Equal(t, uint32(1), d.last.Universe)
}

func TestSessionSetByCode(t *testing.T) {
	d := &daemon{}
	sess, out := newSession(t, d)
	d.reply = ackWith(t, 240, nil)

	require.NoError(t, sess.exec(context.Background(), "set", []string{"7a70:00000001", "all", "0xf0", "17"}))
	assert.Equal(t, "ok\n", out.String())
	assert.Equal(t, pid.AllSubDevices, d.last.SubDevice)
	assert.Equal(t, []byte{0x00, 0x11}, d.last.ParamData)
}

func TestSessionManufacturerPid(t *testing.T) {
	d := &daemon{}
	sess, out := newSession(t, d)
	d.reply = ackWith(t, 0x8000, []byte{0, 0, 0x30, 0x39})

	require.NoError(t, sess.exec(context.Background(), "get", []string{"7a70:00000001", "0", "SERIAL_NUMBER"}))
	assert.Equal(t, "serial_number: 12345\n", out.String())

	// Another manufacturer's device cannot reach the parameter.
	err := sess.exec(context.Background(), "get", []string{"0001:00000001", "0", "SERIAL_NUMBER"})
	assert.ErrorIs(t, err, pid.ErrUnknownPid)
}

func TestSessionRepeatedFields(t *testing.T) {
	d := &daemon{}
	sess, out := newSession(t, d)
	d.reply = ackWith(t, 80, []byte{0x00, 0x82, 0x00, 0xf0})

	require.NoError(t, sess.exec(context.Background(), "get", []string{"7a70:00000001", "0", "SUPPORTED_PARAMETERS"}))
	assert.Equal(t, "params:\n  [0]\n    param_id: 130\n  [1]\n    param_id: 240\n", out.String())
}

func TestSessionValidationNeverSends(t *testing.T) {
	d := &daemon{}
	sess, _ := newSession(t, d)

	err := sess.exec(context.Background(), "set", []string{"7a70:00000001", "0", "DMX_START_ADDRESS", "0"})
	assert.ErrorContains(t, err, "value out of range")
	assert.Empty(t, d.calls)
}

func TestSessionNackPrinted(t *testing.T) {
	d := &daemon{}
	sess, out := newSession(t, d)
	b, err := wire.EncodeRDMResponse(&wire.RDMResponse{
		ResponseCode: wire.ResponseCompletedOK,
		ResponseType: wire.ResponseTypeNackReason,
		ParamID:      240,
		ParamData:    []byte{0x00, 0x06},
	})
	require.NoError(t, err)
	d.reply = b

	require.NoError(t, sess.exec(context.Background(), "get", []string{"7a70:00000001", "0", "DMX_START_ADDRESS"}))
	assert.Contains(t, out.String(), "error: DMX_START_ADDRESS: nack: ")
}

func TestSessionUIDs(t *testing.T) {
	d := &daemon{}
	sess, out := newSession(t, d)
	reply, err := wire.Marshal(&wire.UIDListReply{
		Universe: 1,
		UIDs:     []uid.UID{uid.New(0x7a70, 2), uid.New(0x0001, 9), uid.New(0x7a70, 1)},
	})
	require.NoError(t, err)
	d.reply = reply

	require.NoError(t, sess.exec(context.Background(), "uids", nil))
	assert.Equal(t, "0001:00000009\n7a70:00000001\n7a70:00000002\n3 device(s) on universe 1\n", out.String())

	out.Reset()
	require.NoError(t, sess.exec(context.Background(), "discover", []string{"full"}))
	assert.Equal(t, []string{wire.MethodGetUIDs, wire.MethodForceDiscovery}, d.calls)
}

func TestSessionPids(t *testing.T) {
	sess, out := newSession(t, &daemon{})

	require.NoError(t, sess.exec(context.Background(), "pids", []string{"31344"}))
	assert.Equal(t, "0x8000 SERIAL_NUMBER                    GET [Open Lighting]\n", out.String())

	out.Reset()
	require.NoError(t, sess.exec(context.Background(), "pids", nil))
	assert.Contains(t, out.String(), "0x00f0 DMX_START_ADDRESS                GET,SET\n")
}

func TestSessionUsage(t *testing.T) {
	sess, _ := newSession(t, &daemon{})
	ctx := context.Background()

	assert.ErrorIs(t, sess.exec(ctx, "get", []string{"7a70:00000001"}), errUsage)
	assert.ErrorIs(t, sess.exec(ctx, "discover", []string{"partial"}), errUsage)
	assert.ErrorIs(t, sess.exec(ctx, "universe", nil), errUsage)
	assert.ErrorContains(t, sess.exec(ctx, "bogus", nil), `unknown command "bogus"`)
	assert.ErrorContains(t, sess.exec(ctx, "get", []string{"7a70:00000001", "x", "DEVICE_LABEL"}), "sub-device")

	require.NoError(t, sess.exec(ctx, "universe", []string{"4"}))
	assert.Equal(t, uint32(4), sess.universe)
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	cfg, err := loadConfig(flags{server: "10.0.0.5:9010", universe: 3, logLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:9010", cfg.Server)
	assert.Equal(t, uint32(3), cfg.Universe)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = loadConfig(flags{server: "no-port"})
	assert.Error(t, err)
}
