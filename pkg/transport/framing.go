package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/openlighting/olardm/pkg/log"
)

// Framing constants.
const (
	// HeaderSize is the size of the frame header in bytes.
	HeaderSize = 4

	// ProtocolVersion is the only header version this package speaks.
	ProtocolVersion = 1

	// MaxPayloadSize is the largest length the 28-bit size field can carry.
	MaxPayloadSize = 1<<28 - 1

	// DefaultMaxMessageSize is the default maximum payload size (1 MiB).
	DefaultMaxMessageSize = 1 << 20

	// MaxLogFrameDataSize is the maximum frame data size to include in logs (4 KB).
	MaxLogFrameDataSize = 4096

	versionShift = 28
	sizeMask     = MaxPayloadSize

	readChunkSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the payload exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrShortHeader indicates fewer than HeaderSize bytes were given to DecodeHeader.
	ErrShortHeader = errors.New("short frame header")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")
)

// EncodeHeader returns the header for a payload of size bytes.
//
// The header is one 32-bit big-endian word: the version in the top 4 bits and
// the payload length in the low 28.
func EncodeHeader(size int) ([HeaderSize]byte, error) {
	var hdr [HeaderSize]byte
	if size < 0 || size > MaxPayloadSize {
		return hdr, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, MaxPayloadSize)
	}
	binary.BigEndian.PutUint32(hdr[:], uint32(ProtocolVersion)<<versionShift|uint32(size))
	return hdr, nil
}

// DecodeHeader splits a header into its version and payload length.
func DecodeHeader(b []byte) (version uint8, size uint32, err error) {
	if len(b) < HeaderSize {
		return 0, 0, ErrShortHeader
	}
	word := binary.BigEndian.Uint32(b[:HeaderSize])
	return uint8(word >> versionShift), word & sizeMask, nil
}

// Reassembler turns an arbitrarily chunked byte stream back into payloads.
//
// Frames with a version other than ProtocolVersion are consumed and dropped so
// the stream stays aligned. Their payloads are skipped as they arrive and never
// buffered, so the size limit does not apply to them. Not safe for concurrent
// use.
type Reassembler struct {
	buf            []byte
	maxMessageSize uint32
	discarded      int
	skip           uint32 // payload bytes of a dropped frame still to come

	logger log.Logger
	connID string
}

// NewReassembler creates a reassembler with the default size limit.
func NewReassembler() *Reassembler {
	return NewReassemblerWithMaxSize(DefaultMaxMessageSize)
}

// NewReassemblerWithMaxSize creates a reassembler with a custom size limit.
func NewReassemblerWithMaxSize(maxSize uint32) *Reassembler {
	if maxSize == 0 || maxSize > MaxPayloadSize {
		maxSize = MaxPayloadSize
	}
	return &Reassembler{maxMessageSize: maxSize}
}

// SetLogger configures protocol capture for inbound frames.
// Pass nil to disable logging.
func (r *Reassembler) SetLogger(logger log.Logger, connID string) {
	r.logger = logger
	r.connID = connID
}

// Feed appends data to the internal buffer and returns every payload that is
// now complete, in stream order.
//
// ErrMessageTooLarge is returned when a current-version header announces a
// payload above the limit; the stream cannot be resynchronised after that.
// Payloads completed before the oversized header are still returned.
func (r *Reassembler) Feed(data []byte) ([][]byte, error) {
	r.buf = append(r.buf, data...)

	var payloads [][]byte
	off := 0
	for {
		if r.skip > 0 {
			n := min(int(r.skip), len(r.buf)-off)
			off += n
			r.skip -= uint32(n)
			if r.skip > 0 {
				break
			}
		}
		if len(r.buf)-off < HeaderSize {
			break
		}

		version, size, _ := DecodeHeader(r.buf[off:])
		if version != ProtocolVersion {
			off += HeaderSize
			r.skip = size
			r.discarded++
			r.logDiscarded(size)
			continue
		}
		if size > r.maxMessageSize {
			r.compact(off)
			return payloads, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, size, r.maxMessageSize)
		}
		end := off + HeaderSize + int(size)
		if len(r.buf) < end {
			break
		}

		payload := make([]byte, size)
		copy(payload, r.buf[off+HeaderSize:end])
		off = end
		r.logFrame(payload)
		payloads = append(payloads, payload)
	}
	r.compact(off)
	return payloads, nil
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Discarded returns the number of frames dropped for a version mismatch.
func (r *Reassembler) Discarded() int {
	return r.discarded
}

// Reset drops any partially received frame.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.skip = 0
}

func (r *Reassembler) compact(off int) {
	if off == 0 {
		return
	}
	n := copy(r.buf, r.buf[off:])
	r.buf = r.buf[:n]
}

func (r *Reassembler) logFrame(payload []byte) {
	if r.logger == nil {
		return
	}
	r.logger.Log(makeFrameEvent(r.connID, payload, log.DirectionIn))
}

// logDiscarded records a dropped frame by size only; its payload is never held.
func (r *Reassembler) logDiscarded(size uint32) {
	if r.logger == nil {
		return
	}
	event := makeFrameEvent(r.connID, nil, log.DirectionIn)
	event.Frame.Size = FrameSize(int(size))
	event.Frame.Discarded = true
	r.logger.Log(event)
}

// FrameWriter writes framed payloads to an underlying writer.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize uint32
	mu             sync.Mutex

	logger log.Logger
	connID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxMessageSize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom max size.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	if maxSize == 0 || maxSize > MaxPayloadSize {
		maxSize = MaxPayloadSize
	}
	return &FrameWriter{
		w:              w,
		maxMessageSize: maxSize,
	}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame writes one header and payload with a single Write call.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if uint32(len(data)) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}
	hdr, err := EncodeHeader(len(data))
	if err != nil {
		return err
	}

	frame := make([]byte, 0, HeaderSize+len(data))
	frame = append(frame, hdr[:]...)
	frame = append(frame, data...)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.connID, data, log.DirectionOut))
	}
	return nil
}

// FrameReader reads framed payloads from an underlying reader.
type FrameReader struct {
	r       io.Reader
	asm     *Reassembler
	pending [][]byte
	chunk   []byte
	err     error
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom max size.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{
		r:     r,
		asm:   NewReassemblerWithMaxSize(maxSize),
		chunk: make([]byte, readChunkSize),
	}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.asm.SetLogger(logger, connID)
}

// ReadFrame returns the next payload.
// It returns io.EOF when the stream ends on a frame boundary and
// ErrFrameTruncated when it ends inside a frame.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for len(fr.pending) == 0 {
		if fr.err != nil {
			return nil, fr.err
		}
		n, err := fr.r.Read(fr.chunk)
		if n > 0 {
			payloads, ferr := fr.asm.Feed(fr.chunk[:n])
			fr.pending = append(fr.pending, payloads...)
			if ferr != nil {
				fr.err = ferr
			}
		}
		if err != nil && fr.err == nil {
			fr.err = fr.readError(err)
		}
	}

	payload := fr.pending[0]
	fr.pending = fr.pending[1:]
	return payload, nil
}

func (fr *FrameReader) readError(err error) error {
	if errors.Is(err, io.EOF) {
		if fr.asm.Buffered() > 0 {
			return ErrFrameTruncated
		}
		return io.EOF
	}
	return fmt.Errorf("failed to read frame: %w", err)
}

// Discarded returns the number of frames dropped for a version mismatch.
func (fr *FrameReader) Discarded() int {
	return fr.asm.Discarded()
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// NewFramerWithMaxSize creates a framer with a custom max message size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures logging for both reader and writer.
// Pass nil to disable logging.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// FrameSize returns the total frame size including the header.
func FrameSize(payloadSize int) int {
	return HeaderSize + payloadSize
}

// makeFrameEvent creates a log event for a frame.
func makeFrameEvent(connID string, data []byte, direction log.Direction) log.Event {
	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      FrameSize(len(data)),
			Data:      frameData,
			Truncated: truncated,
		},
	}
}
