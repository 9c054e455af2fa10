// Package transport provides the framing layer between the client and the
// daemon.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   RDM parameter data (pid)     │
//	├────────────────────────────────┤
//	│   CBOR envelopes (wire, rpc)   │
//	├────────────────────────────────┤
//	│   4-byte version/size header   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Header
//
// Each frame starts with one 32-bit big-endian word. The top 4 bits carry the
// protocol version (always 1) and the low 28 bits the payload length. Frames
// with another version are skipped without losing stream alignment.
//
// # Reassembly
//
// Reassembler accepts the byte stream in chunks of any size, down to single
// bytes, and yields each payload once its last byte has arrived. FrameReader
// drives a Reassembler from an io.Reader; FrameWriter emits one frame per
// Write call so concurrent writers never interleave.
package transport
