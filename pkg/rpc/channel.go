package rpc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlighting/olardm/pkg/log"
	"github.com/openlighting/olardm/pkg/transport"
	"github.com/openlighting/olardm/pkg/wire"
)

// Channel errors.
var (
	ErrChannelClosed  = errors.New("rpc channel closed")
	ErrDuplicateID    = errors.New("duplicate request id")
	ErrNotImplemented = errors.New("method not implemented")
	ErrCancelled      = errors.New("call cancelled")
)

// RemoteError carries the failure text of a RESPONSE_FAILED reply.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Method == "" {
		return "remote error: " + e.Message
	}
	return fmt.Sprintf("%s failed: %s", e.Method, e.Message)
}

// Callback receives the outcome of one call. Exactly one of reply and err is
// meaningful.
type Callback func(reply []byte, err error)

// ReplyFunc answers an inbound request. Only the first invocation is sent.
type ReplyFunc func(reply []byte, err error)

// RequestHandler serves requests initiated by the peer. The handler may
// answer synchronously or keep reply and answer later from any goroutine.
// Returning ErrNotImplemented or ErrCancelled through reply maps to the
// matching envelope type; any other error is sent as RESPONSE_FAILED.
type RequestHandler func(method string, args []byte, reply ReplyFunc)

type outstandingCall struct {
	method string
	done   Callback
	sent   time.Time
}

// Channel correlates requests and replies over one framed connection.
type Channel struct {
	mu sync.Mutex

	conn   io.ReadWriteCloser
	frames transport.FrameReadWriter

	seq     uint32
	pending map[uint32]*outstandingCall
	closed  bool

	closeOnce    sync.Once
	closeHandler func()
	handler      RequestHandler

	logger         *slog.Logger
	protocolLogger log.Logger
	connID         string
	remoteAddr     string
	maxMessageSize uint32
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) { c.logger = logger }
}

// WithProtocolLogger enables protocol capture for frames and envelopes.
func WithProtocolLogger(logger log.Logger) Option {
	return func(c *Channel) { c.protocolLogger = logger }
}

// WithRequestHandler serves requests sent by the peer. Without a handler
// such requests are answered with RESPONSE_NOT_IMPLEMENTED.
func WithRequestHandler(h RequestHandler) Option {
	return func(c *Channel) { c.handler = h }
}

// WithMaxMessageSize limits the payload size in both directions.
func WithMaxMessageSize(size uint32) Option {
	return func(c *Channel) { c.maxMessageSize = size }
}

// WithConnectionID overrides the generated connection id used in protocol events.
func WithConnectionID(id string) Option {
	return func(c *Channel) { c.connID = id }
}

// NewChannel wraps conn. Call Serve to start processing replies.
func NewChannel(conn io.ReadWriteCloser, opts ...Option) *Channel {
	c := &Channel{
		conn:           conn,
		pending:        make(map[uint32]*outstandingCall),
		connID:         uuid.New().String(),
		maxMessageSize: transport.DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if nc, ok := conn.(net.Conn); ok && nc.RemoteAddr() != nil {
		c.remoteAddr = nc.RemoteAddr().String()
	}

	framer := transport.NewFramerWithMaxSize(conn, c.maxMessageSize)
	if c.protocolLogger != nil {
		framer.SetLogger(c.protocolLogger, c.connID)
	}
	c.frames = framer
	return c
}

// ConnectionID returns the id used to tag protocol events.
func (c *Channel) ConnectionID() string {
	return c.connID
}

// SetCloseHandler registers fn to run once when the channel closes.
func (c *Channel) SetCloseHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeHandler = fn
}

// Outstanding returns the number of calls awaiting a reply.
func (c *Channel) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Closed reports whether the channel has been closed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Call sends a request and arranges for done to receive the reply.
//
// An error is returned, and done is never invoked, if the channel is closed
// or the request cannot be written.
func (c *Channel) Call(method string, args []byte, done Callback) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.seq++
	id := c.seq
	displaced := c.pending[id]
	call := &outstandingCall{method: method, done: done, sent: time.Now()}
	c.pending[id] = call
	c.mu.Unlock()

	if displaced != nil {
		if c.logger != nil {
			c.logger.Warn("rpc: sequence id reused while call outstanding",
				"msgID", id,
				"method", displaced.method)
		}
		displaced.done(nil, fmt.Errorf("%w: %d", ErrDuplicateID, id))
	}

	env := &wire.Envelope{Type: wire.MsgRequest, ID: id, Method: method, Buffer: args}
	if err := c.send(env); err != nil {
		c.mu.Lock()
		owned := c.pending[id] == call
		if owned {
			delete(c.pending, id)
		}
		c.mu.Unlock()
		if !owned {
			// Close already failed the call through done.
			return nil
		}
		return err
	}
	return nil
}

// Serve reads frames until the connection ends, dispatching each one, and
// then closes the channel. A clean end of stream returns nil.
func (c *Channel) Serve() error {
	for {
		payload, err := c.frames.ReadFrame()
		if err != nil {
			c.Close()
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		c.HandleFrame(payload)
	}
}

// HandleFrame dispatches one complete frame payload.
func (c *Channel) HandleFrame(payload []byte) {
	env, err := wire.DecodeEnvelope(payload)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("rpc: dropping undecodable frame", "size", len(payload), "error", err)
		}
		c.logError(err, "decode envelope")
		return
	}
	c.logMessage(log.DirectionIn, env)

	if env.Type == wire.MsgRequest {
		c.handleRequest(env)
		return
	}

	c.mu.Lock()
	call, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()

	if !ok {
		if c.logger != nil {
			c.logger.Debug("rpc: reply for unknown id ignored", "msgID", env.ID, "type", env.Type.String())
		}
		return
	}
	if c.logger != nil {
		c.logger.Debug("rpc: reply",
			"msgID", env.ID,
			"method", call.method,
			"type", env.Type.String(),
			"rtt", time.Since(call.sent))
	}

	switch env.Type {
	case wire.MsgResponse:
		call.done(env.Buffer, nil)
	case wire.MsgResponseFailed:
		call.done(nil, &RemoteError{Method: call.method, Message: string(env.Buffer)})
	case wire.MsgResponseNotImplemented:
		call.done(nil, fmt.Errorf("%w: %s", ErrNotImplemented, call.method))
	case wire.MsgResponseCancel:
		call.done(nil, ErrCancelled)
	}
}

// Close fails all outstanding calls, closes the connection and runs the
// close handler. Safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		pending := c.pending
		c.pending = make(map[uint32]*outstandingCall)
		handler := c.closeHandler
		c.mu.Unlock()

		err = c.conn.Close()

		for id, call := range pending {
			if c.logger != nil {
				c.logger.Debug("rpc: failing outstanding call on close", "msgID", id, "method", call.method)
			}
			call.done(nil, ErrChannelClosed)
		}

		if c.protocolLogger != nil {
			c.protocolLogger.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: c.connID,
				RemoteAddr:   c.remoteAddr,
				Layer:        log.LayerRPC,
				Category:     log.CategoryState,
				StateChange: &log.StateChangeEvent{
					OldState: "OPEN",
					NewState: "CLOSED",
					Reason:   fmt.Sprintf("%d outstanding call(s) failed", len(pending)),
				},
			})
		}

		if handler != nil {
			handler()
		}
	})
	return err
}

func (c *Channel) handleRequest(env *wire.Envelope) {
	var once sync.Once
	reply := func(data []byte, err error) {
		once.Do(func() {
			out := &wire.Envelope{ID: env.ID}
			switch {
			case err == nil:
				out.Type = wire.MsgResponse
				out.Buffer = data
			case errors.Is(err, ErrNotImplemented):
				out.Type = wire.MsgResponseNotImplemented
			case errors.Is(err, ErrCancelled):
				out.Type = wire.MsgResponseCancel
			default:
				out.Type = wire.MsgResponseFailed
				out.Buffer = []byte(err.Error())
			}
			if serr := c.send(out); serr != nil && c.logger != nil {
				c.logger.Debug("rpc: failed to send reply", "msgID", env.ID, "error", serr)
			}
		})
	}

	if c.handler == nil {
		reply(nil, ErrNotImplemented)
		return
	}
	c.handler(env.Method, env.Buffer, reply)
}

func (c *Channel) send(env *wire.Envelope) error {
	data, err := wire.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if err := c.frames.WriteFrame(data); err != nil {
		c.logError(err, "write "+env.Type.String())
		return err
	}
	c.logMessage(log.DirectionOut, env)
	return nil
}

func (c *Channel) logMessage(dir log.Direction, env *wire.Envelope) {
	if c.protocolLogger == nil {
		return
	}
	msg := &log.MessageEvent{
		Type:      env.Type,
		MessageID: env.ID,
		Method:    env.Method,
		Size:      len(env.Buffer),
	}
	if env.Type == wire.MsgResponseFailed {
		msg.Error = string(env.Buffer)
	}
	c.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    dir,
		Layer:        log.LayerRPC,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remoteAddr,
		Message:      msg,
	})
}

func (c *Channel) logError(err error, context string) {
	if c.protocolLogger == nil {
		return
	}
	c.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerRPC,
		Category:     log.CategoryError,
		RemoteAddr:   c.remoteAddr,
		Error: &log.ErrorEventData{
			Layer:   log.LayerRPC,
			Message: err.Error(),
			Context: context,
		},
	})
}
