package rpc

import (
	"bytes"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlighting/olardm/pkg/log"
	"github.com/openlighting/olardm/pkg/transport"
	"github.com/openlighting/olardm/pkg/wire"
)

// bufferConn records written frames and never produces input.
type bufferConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed int
}

func (b *bufferConn) Read(p []byte) (int, error) { select {} }

func (b *bufferConn) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufferConn) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func (b *bufferConn) envelopes(t *testing.T) []*wire.Envelope {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()

	reader := transport.NewFrameReader(bytes.NewReader(data))
	var out []*wire.Envelope
	for {
		payload, err := reader.ReadFrame()
		if err != nil {
			return out
		}
		env, err := wire.DecodeEnvelope(payload)
		require.NoError(t, err)
		out = append(out, env)
	}
}

func encode(t *testing.T, env *wire.Envelope) []byte {
	t.Helper()
	data, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)
	return data
}

type result struct {
	reply []byte
	err   error
}

func collect() (Callback, <-chan result) {
	ch := make(chan result, 4)
	return func(reply []byte, err error) { ch <- result{reply, err} }, ch
}

func wait(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
		return result{}
	}
}

func TestCallAssignsIncreasingIDs(t *testing.T) {
	conn := &bufferConn{}
	ch := NewChannel(conn)

	require.NoError(t, ch.Call("A", []byte{1}, func([]byte, error) {}))
	require.NoError(t, ch.Call("B", nil, func([]byte, error) {}))

	envs := conn.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, wire.MsgRequest, envs[0].Type)
	assert.Equal(t, "A", envs[0].Method)
	assert.Equal(t, []byte{1}, envs[0].Buffer)
	assert.Equal(t, envs[0].ID+1, envs[1].ID)
	assert.Equal(t, 2, ch.Outstanding())
}

func TestReplyTypes(t *testing.T) {
	tests := []struct {
		name  string
		reply wire.Envelope
		check func(t *testing.T, r result)
	}{
		{
			name:  "response",
			reply: wire.Envelope{Type: wire.MsgResponse, Buffer: []byte("data")},
			check: func(t *testing.T, r result) {
				require.NoError(t, r.err)
				assert.Equal(t, []byte("data"), r.reply)
			},
		},
		{
			name:  "failed",
			reply: wire.Envelope{Type: wire.MsgResponseFailed, Buffer: []byte("universe 3 not found")},
			check: func(t *testing.T, r result) {
				var remote *RemoteError
				require.ErrorAs(t, r.err, &remote)
				assert.Equal(t, "universe 3 not found", remote.Message)
				assert.Equal(t, "RDMCommand", remote.Method)
			},
		},
		{
			name:  "not implemented",
			reply: wire.Envelope{Type: wire.MsgResponseNotImplemented},
			check: func(t *testing.T, r result) {
				assert.ErrorIs(t, r.err, ErrNotImplemented)
			},
		},
		{
			name:  "cancel",
			reply: wire.Envelope{Type: wire.MsgResponseCancel},
			check: func(t *testing.T, r result) {
				assert.ErrorIs(t, r.err, ErrCancelled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &bufferConn{}
			ch := NewChannel(conn)
			done, results := collect()
			require.NoError(t, ch.Call("RDMCommand", nil, done))

			reply := tt.reply
			reply.ID = conn.envelopes(t)[0].ID
			ch.HandleFrame(encode(t, &reply))

			tt.check(t, wait(t, results))
			assert.Equal(t, 0, ch.Outstanding())

			// A second reply for the same id is ignored.
			ch.HandleFrame(encode(t, &reply))
			assert.Empty(t, results)
		})
	}
}

func TestUnknownIDIgnored(t *testing.T) {
	conn := &bufferConn{}
	ch := NewChannel(conn)
	done, results := collect()
	require.NoError(t, ch.Call("GetUIDs", nil, done))

	ch.HandleFrame(encode(t, &wire.Envelope{Type: wire.MsgResponse, ID: 999}))
	ch.HandleFrame([]byte{0xff, 0x00}) // not an envelope

	assert.Empty(t, results)
	assert.Equal(t, 1, ch.Outstanding())
}

func TestDuplicateIDFailsDisplacedCall(t *testing.T) {
	conn := &bufferConn{}
	ch := NewChannel(conn)

	first, firstResults := collect()
	require.NoError(t, ch.Call("A", nil, first))

	// Force the counter to wrap onto the outstanding id.
	ch.mu.Lock()
	ch.seq = 0
	ch.mu.Unlock()

	second, secondResults := collect()
	require.NoError(t, ch.Call("B", nil, second))

	r := wait(t, firstResults)
	assert.ErrorIs(t, r.err, ErrDuplicateID)
	assert.Empty(t, secondResults)
	assert.Equal(t, 1, ch.Outstanding())
}

func TestCloseFailsOutstandingOnce(t *testing.T) {
	conn := &bufferConn{}
	capture := &captureLogger{}
	ch := NewChannel(conn, WithProtocolLogger(capture))

	var closeCalls int
	ch.SetCloseHandler(func() { closeCalls++ })

	var mu sync.Mutex
	failures := map[string]int{}
	for _, m := range []string{"A", "B", "C"} {
		method := m
		require.NoError(t, ch.Call(method, nil, func(_ []byte, err error) {
			assert.ErrorIs(t, err, ErrChannelClosed)
			mu.Lock()
			failures[method]++
			mu.Unlock()
		}))
	}

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1}, failures)
	assert.Equal(t, 1, closeCalls)
	assert.Equal(t, 1, conn.closed)
	assert.True(t, ch.Closed())
	assert.ErrorIs(t, ch.Call("D", nil, func([]byte, error) { t.Error("callback after close") }), ErrChannelClosed)

	var sawClose bool
	for _, e := range capture.snapshot() {
		if e.StateChange != nil && e.StateChange.NewState == "CLOSED" {
			sawClose = true
		}
	}
	assert.True(t, sawClose, "expected CLOSED state event")
}

func TestPipeRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	hold := make(chan struct{})

	server := NewChannel(serverConn, WithRequestHandler(func(method string, args []byte, reply ReplyFunc) {
		switch method {
		case "Echo":
			reply(args, nil)
		case "Later":
			go func() {
				time.Sleep(10 * time.Millisecond)
				reply([]byte("late"), nil)
			}()
		case "Fail":
			reply(nil, errors.New("no such universe"))
		case "Hold":
			close(hold)
		default:
			reply(nil, ErrNotImplemented)
		}
	}))
	client := NewChannel(clientConn)

	go server.Serve()
	serveDone := make(chan error, 1)
	go func() { serveDone <- client.Serve() }()

	done, results := collect()
	require.NoError(t, client.Call("Echo", []byte("ping"), done))
	r := wait(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, []byte("ping"), r.reply)

	require.NoError(t, client.Call("Later", nil, done))
	r = wait(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, []byte("late"), r.reply)

	require.NoError(t, client.Call("Fail", nil, done))
	r = wait(t, results)
	var remote *RemoteError
	require.ErrorAs(t, r.err, &remote)
	assert.Equal(t, "no such universe", remote.Message)

	require.NoError(t, client.Call("Missing", nil, done))
	r = wait(t, results)
	assert.ErrorIs(t, r.err, ErrNotImplemented)

	// A peer without a handler answers NOT_IMPLEMENTED.
	require.NoError(t, server.Call("Reverse", nil, done))
	r = wait(t, results)
	assert.ErrorIs(t, r.err, ErrNotImplemented)

	// Remote close ends Serve and fails outstanding calls.
	blocked, blockedResults := collect()
	require.NoError(t, client.Call("Hold", nil, blocked))
	<-hold
	require.NoError(t, server.Close())

	r = wait(t, blockedResults)
	assert.ErrorIs(t, r.err, ErrChannelClosed)
	select {
	case err := <-serveDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client Serve did not return")
	}
	assert.True(t, client.Closed())
}

func TestRemoteErrorString(t *testing.T) {
	assert.Equal(t, "remote error: boom", (&RemoteError{Message: "boom"}).Error())
	assert.Equal(t, "GetUIDs failed: boom", (&RemoteError{Method: "GetUIDs", Message: "boom"}).Error())
}

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) snapshot() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}
