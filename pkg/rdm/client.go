package rdm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openlighting/olardm/pkg/log"
	"github.com/openlighting/olardm/pkg/pid"
	"github.com/openlighting/olardm/pkg/rpc"
	"github.com/openlighting/olardm/pkg/uid"
	"github.com/openlighting/olardm/pkg/wire"
)

// Default queue drain bounds.
const (
	DefaultMaxPolls     = 25
	DefaultDrainTimeout = 30 * time.Second
)

// Caller issues one daemon call. *rpc.Channel implements it.
type Caller interface {
	Call(method string, args []byte, done rpc.Callback) error
}

// Scheduler runs deferred work. The default uses the wall clock and
// time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
	Now() time.Time
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
func (wallClock) Now() time.Time                       { return time.Now() }

// DrainPolicy bounds queue draining after an ACK_TIMER. Draining stops with
// ErrQueueDrainExceeded after MaxPolls polls or once Timeout has passed
// since the first ACK_TIMER.
type DrainPolicy struct {
	MaxPolls int
	Timeout  time.Duration
}

// DefaultDrainPolicy returns the default bounds.
func DefaultDrainPolicy() DrainPolicy {
	return DrainPolicy{MaxPolls: DefaultMaxPolls, Timeout: DefaultDrainTimeout}
}

// Callback receives the outcome of a transaction exactly once.
type Callback func(res *Result, err error)

// Request describes one transaction.
type Request struct {
	Universe     uint32
	UID          uid.UID
	SubDevice    uint16
	Pid          *pid.Pid
	CommandClass wire.CommandClass // GetCommand, SetCommand or DiscoveryCommand

	// Args are packed with the request layout. When Args is nil, Data is
	// sent as-is.
	Args []string
	Data []byte

	IncludeRawResponse bool
}

// Client runs RDM transactions over a Caller.
type Client struct {
	caller    Caller
	store     *pid.Store
	scheduler Scheduler
	drain     DrainPolicy

	logger         *slog.Logger
	protocolLogger log.Logger
	connID         string

	mu            sync.RWMutex
	queuedHandler QueuedMessageHandler

	nextTxn atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithProtocolLogger records transaction state changes as protocol events
// tagged with connID.
func WithProtocolLogger(logger log.Logger, connID string) Option {
	return func(c *Client) {
		c.protocolLogger = logger
		c.connID = connID
	}
}

// WithDrainPolicy overrides the queue drain bounds.
func WithDrainPolicy(p DrainPolicy) Option {
	return func(c *Client) { c.drain = p }
}

// WithScheduler replaces the wall clock used for ACK_TIMER waits.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) { c.scheduler = s }
}

// NewClient returns a client sending through caller and resolving layouts
// in store.
func NewClient(caller Caller, store *pid.Store, opts ...Option) *Client {
	c := &Client{
		caller:    caller,
		store:     store,
		scheduler: wallClock{},
		drain:     DefaultDrainPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the parameter store used by the client.
func (c *Client) Store() *pid.Store {
	return c.store
}

// SetQueuedMessageHandler registers fn for unrelated messages seen while
// draining the queue.
func (c *Client) SetQueuedMessageHandler(fn QueuedMessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queuedHandler = fn
}

func (c *Client) queuedMessageHandler() QueuedMessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queuedHandler
}

// Send starts a transaction. Argument and addressing problems are returned
// as *pid.ValidationError before anything is sent, as is a failure to issue
// the first call; done is not invoked in those cases. Otherwise done
// receives the outcome exactly once.
func (c *Client) Send(req Request, done Callback) error {
	if req.Pid == nil {
		return fmt.Errorf("rdm: %w", pid.ErrUnknownPid)
	}
	if !req.CommandClass.IsRequest() {
		return &pid.ValidationError{Field: "command class", Msg: req.CommandClass.String() + " is not a request class"}
	}

	data := req.Data
	if req.Args != nil {
		var err error
		if data, err = req.Pid.Pack(req.CommandClass, req.Args); err != nil {
			return err
		}
	}
	if req.Pid.Supports(req.CommandClass) {
		if err := req.Pid.ValidateAddress(req.CommandClass, req.UID, req.SubDevice); err != nil {
			return err
		}
	}

	t := &transaction{
		id:     c.nextTxn.Add(1),
		client: c,
		req:    req,
		data:   data,
		done:   done,
		state:  stateIdle,
	}
	return t.start()
}

// Get runs a GET and waits for the outcome.
func (c *Client) Get(ctx context.Context, universe uint32, target uid.UID, subDevice uint16, p *pid.Pid, args ...string) (*Result, error) {
	return c.Do(ctx, Request{Universe: universe, UID: target, SubDevice: subDevice, Pid: p, CommandClass: wire.GetCommand, Args: nonNil(args)})
}

// Set runs a SET and waits for the outcome.
func (c *Client) Set(ctx context.Context, universe uint32, target uid.UID, subDevice uint16, p *pid.Pid, args ...string) (*Result, error) {
	return c.Do(ctx, Request{Universe: universe, UID: target, SubDevice: subDevice, Pid: p, CommandClass: wire.SetCommand, Args: nonNil(args)})
}

// Discover runs a DISCOVERY command and waits for the outcome.
func (c *Client) Discover(ctx context.Context, universe uint32, target uid.UID, subDevice uint16, p *pid.Pid, args ...string) (*Result, error) {
	return c.Do(ctx, Request{Universe: universe, UID: target, SubDevice: subDevice, Pid: p, CommandClass: wire.DiscoveryCommand, Args: nonNil(args)})
}

// Do sends req and waits for its outcome or for ctx to end. A transaction
// abandoned through ctx still runs to completion in the background.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)
	if err := c.Send(req, func(res *Result, err error) { ch <- outcome{res, err} }); err != nil {
		return nil, err
	}
	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ForceDiscovery asks the daemon to run discovery on a universe and returns
// the UIDs found. Incremental discovery is used unless full is set.
func (c *Client) ForceDiscovery(ctx context.Context, universe uint32, full bool) ([]uid.UID, error) {
	return c.uidCall(ctx, wire.MethodForceDiscovery, &wire.DiscoveryRequest{Universe: universe, Full: full})
}

// GetUIDs returns the UIDs the daemon currently knows on a universe.
func (c *Client) GetUIDs(ctx context.Context, universe uint32) ([]uid.UID, error) {
	return c.uidCall(ctx, wire.MethodGetUIDs, &wire.UniverseRequest{Universe: universe})
}

func (c *Client) uidCall(ctx context.Context, method string, args any) ([]uid.UID, error) {
	data, err := wire.Marshal(args)
	if err != nil {
		return nil, err
	}
	type outcome struct {
		reply []byte
		err   error
	}
	ch := make(chan outcome, 1)
	if err := c.caller.Call(method, data, func(reply []byte, err error) { ch <- outcome{reply, err} }); err != nil {
		return nil, err
	}

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		var list wire.UIDListReply
		if err := wire.Unmarshal(o.reply, &list); err != nil {
			return nil, fmt.Errorf("decoding %s reply: %w", method, err)
		}
		return list.UIDs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func nonNil(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}

// IsTransportError reports whether err came from the channel rather than
// from the device.
func IsTransportError(err error) bool {
	var remote *rpc.RemoteError
	return errors.Is(err, rpc.ErrChannelClosed) ||
		errors.Is(err, rpc.ErrNotImplemented) ||
		errors.Is(err, rpc.ErrCancelled) ||
		errors.As(err, &remote)
}
