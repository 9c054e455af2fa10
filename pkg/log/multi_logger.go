package log

// MultiLogger copies each event to several sinks, typically a capture file
// and the slog console adapter.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger fans out to sinks in order. Nil sinks are dropped and nested
// MultiLoggers are flattened, so callers can pass optional sinks unchecked.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, s := range sinks {
		switch s := s.(type) {
		case nil:
		case *MultiLogger:
			if s != nil {
				m.sinks = append(m.sinks, s.sinks...)
			}
		default:
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of sinks.
func (m *MultiLogger) Len() int {
	return len(m.sinks)
}

// Log sends event to every sink.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
