// Package rpc implements the request/response channel to the daemon.
//
// A Channel owns one framed connection. Call sends a REQUEST envelope tagged
// with the next sequence number and records the completion callback; the
// matching reply envelope resolves it:
//
//   - RESPONSE delivers the reply bytes
//   - RESPONSE_FAILED delivers a *RemoteError with the daemon's text
//   - RESPONSE_NOT_IMPLEMENTED delivers ErrNotImplemented
//   - RESPONSE_CANCEL delivers ErrCancelled
//
// Replies for unknown sequence numbers are ignored. Every callback runs at
// most once, on the goroutine running Serve, and never while the channel's
// lock is held, so callbacks may issue further calls.
//
// # Closing
//
// Close (or the connection ending under Serve) fails every outstanding call
// with ErrChannelClosed, runs the close handler once and rejects later calls.
//
//	ch := rpc.NewChannel(conn, rpc.WithLogger(slog.Default()))
//	go ch.Serve()
//	ch.Call(wire.MethodGetUIDs, args, func(reply []byte, err error) { ... })
package rpc
