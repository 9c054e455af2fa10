// Package log provides structured protocol capture for the RDM client.
//
// This package defines the Logger interface and Event types for recording
// protocol-level events at each layer (transport, rpc, rdm). It is separate
// from operational logging (slog): protocol capture is a complete,
// machine-readable trace for debugging conversations with the daemon.
//
// # Basic Usage
//
//	// Console during development
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file
//	logger, _ := log.NewFileLogger("/var/log/olardm/session.rlog")
//
//	// Both
//	logger := log.NewMultiLogger(console, file)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - RPC: decoded envelopes (MessageEvent)
//   - RDM: transaction state changes (TransactionEvent)
//
// Connection lifecycle changes and errors have dedicated event types.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .rlog
// extension. Reader replays them with optional filtering.
package log
