package log

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/openlighting/olardm/pkg/wire"
)

func writeEvents(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.rlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		out = append(out, e)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := writeEvents(t,
		Event{Timestamp: base, ConnectionID: "a", Direction: DirectionOut, Layer: LayerTransport, Frame: &FrameEvent{Size: 10}},
		Event{Timestamp: base.Add(time.Second), ConnectionID: "a", Direction: DirectionIn, Layer: LayerRPC,
			Message: &MessageEvent{Type: wire.MsgResponse, MessageID: 1}},
		Event{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Layer: LayerRDM, Category: CategoryState,
			Transaction: &TransactionEvent{ID: 1, UID: "7a70:00000001", ParamID: 0x0060, NewState: "acked"}},
		Event{Timestamp: base.Add(3 * time.Second), ConnectionID: "b", Layer: LayerRDM, Category: CategoryState,
			Transaction: &TransactionEvent{ID: 2, UID: "7a70:00000002", ParamID: 0x00f0, NewState: "sent"}},
	)

	out := DirectionOut
	rdm := LayerRDM
	pidCode := uint16(0x0060)
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "no filter", filter: Filter{}, want: 4},
		{name: "connection", filter: Filter{ConnectionID: "a"}, want: 2},
		{name: "direction", filter: Filter{Direction: &out}, want: 1},
		{name: "layer", filter: Filter{Layer: &rdm}, want: 2},
		{name: "uid", filter: Filter{UID: "7a70:00000002"}, want: 1},
		{name: "param id", filter: Filter{ParamID: &pidCode}, want: 1},
		{name: "time window", filter: Filter{TimeStart: &start, TimeEnd: &end}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer r.Close()
			if got := len(readAll(t, r)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.rlog")); err == nil {
		t.Error("expected error for missing file")
	}
}
