package transport

// FrameReadWriter provides framed payload I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads one payload.
	ReadFrame() ([]byte, error)

	// WriteFrame writes one payload.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ FrameReadWriter = (*Framer)(nil)
)
