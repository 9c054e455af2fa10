package commands

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openlighting/olardm/pkg/log"
	"github.com/openlighting/olardm/pkg/wire"
)

const testConn = "abc12345-6789-0123-4567-890abcdef012"

var t0 = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func txEvent(offset time.Duration, id uint64, paramID uint16, name, from, to string) log.Event {
	return log.Event{
		Timestamp:    t0.Add(offset),
		ConnectionID: testConn,
		Direction:    log.DirectionOut,
		Layer:        log.LayerRDM,
		Category:     log.CategoryState,
		Transaction: &log.TransactionEvent{
			ID:           id,
			UID:          "7a70:00000001",
			ParamID:      paramID,
			PidName:      name,
			CommandClass: wire.GetCommand,
			OldState:     from,
			NewState:     to,
		},
	}
}

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp: t0, ConnectionID: testConn, RemoteAddr: "127.0.0.1:9010",
			Direction: log.DirectionOut, Layer: log.LayerTransport, Category: log.CategoryMessage,
			Frame: &log.FrameEvent{Size: 12, Data: []byte{0x10, 0x00, 0x00, 0x08}},
		},
		{
			Timestamp: t0.Add(time.Millisecond), ConnectionID: testConn,
			Direction: log.DirectionOut, Layer: log.LayerRPC, Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: wire.MsgRequest, MessageID: 7, Method: wire.MethodRDMCommand, Size: 20},
		},
		txEvent(2*time.Millisecond, 1, 0x0082, "DEVICE_LABEL", "IDLE", "SENT"),
		txEvent(3*time.Millisecond, 1, 0x0082, "DEVICE_LABEL", "SENT", "ACK_TIMER_WAIT"),
		txEvent(500*time.Millisecond, 1, 0x0082, "DEVICE_LABEL", "ACK_TIMER_WAIT", "SENT"),
		txEvent(600*time.Millisecond, 1, 0x0082, "DEVICE_LABEL", "SENT", "ACKED"),
		txEvent(700*time.Millisecond, 2, 0x00f0, "", "IDLE", "SENT"),
		txEvent(800*time.Millisecond, 2, 0x00f0, "", "SENT", "NACKED"),
		{
			Timestamp: t0.Add(time.Second), ConnectionID: testConn,
			Direction: log.DirectionIn, Layer: log.LayerRPC, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerRPC, Message: "connection reset", Context: "serve"},
		},
	}
}

func writeCapture(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.rlog")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		fl.Log(e)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestViewFormatsEvents(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z [conn:abc12345] OUT TRANSPORT Frame",
		"  Data: 10000008",
		"OUT RPC REQUEST",
		"  Method: RDMCommand",
		"OUT RDM Transaction",
		"  #1 GET 7a70:00000001 sub-device 0 DEVICE_LABEL",
		"  SENT -> ACK_TIMER_WAIT",
		"  #2 GET 7a70:00000001 sub-device 0 0x00f0",
		"IN  RPC Error",
		"  Context: serve",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestViewFilters(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{Layer: "rdm", Pid: "0xf0"}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, "Transaction"); got != 2 {
		t.Errorf("expected 2 transaction events, got %d:\n%s", got, out)
	}
	if strings.Contains(out, "DEVICE_LABEL") {
		t.Errorf("unexpected DEVICE_LABEL event:\n%s", out)
	}
}

func TestFilterOptionsErrors(t *testing.T) {
	cases := []struct {
		opts FilterOptions
		want string
	}{
		{FilterOptions{Layer: "wire"}, "invalid layer"},
		{FilterOptions{Direction: "up"}, "invalid direction"},
		{FilterOptions{Category: "control"}, "invalid category"},
		{FilterOptions{Pid: "DEVICE_LABEL"}, "invalid pid"},
		{FilterOptions{TimeStart: "yesterday"}, "invalid time-start"},
		{FilterOptions{TimeEnd: "tomorrow"}, "invalid time-end"},
	}
	for _, tc := range cases {
		_, err := tc.opts.Build()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("Build(%+v) = %v, want error containing %q", tc.opts, err, tc.want)
		}
	}
}

func TestRunFilterWritesMatchingEvents(t *testing.T) {
	path := writeCapture(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "acked.rlog")

	var buf bytes.Buffer
	opts := FilterOptions{UID: "7A70:00000001", TimeEnd: t0.Add(650 * time.Millisecond).Format(time.RFC3339Nano)}
	if err := RunFilter(path, output, opts, &buf); err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 4 events") {
		t.Errorf("unexpected summary: %s", buf.String())
	}

	reader, err := log.NewReader(output)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()
	n, err := forEach(reader, func(e log.Event) error {
		if e.Transaction == nil || e.Transaction.ID != 1 {
			t.Errorf("unexpected event in filtered file: %+v", e)
		}
		return nil
	})
	if err != nil || n != 4 {
		t.Errorf("read %d events (err %v), want 4", n, err)
	}
}

func TestRunFilterRejectsSameFile(t *testing.T) {
	path := writeCapture(t, sampleEvents())
	if err := RunFilter(path, path, FilterOptions{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error when output is the input capture")
	}
}

func TestFilteredPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"session.rlog", "session.filtered.rlog"},
		{"/tmp/a/b.rlog", "/tmp/a/b.filtered.rlog"},
		{"capture", "capture.filtered.rlog"},
	}
	for _, tt := range tests {
		if got := FilteredPath(tt.in); got != tt.want {
			t.Errorf("FilteredPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportCSV(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", "", FilterOptions{Layer: "rpc"}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parsing csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header plus 2", len(rows))
	}
	if rows[0][0] != "timestamp" || len(rows[0]) != len(csvHeader) {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][5] != "REQUEST" || rows[1][6] != "7" || rows[1][7] != "RDMCommand" {
		t.Errorf("unexpected request row %v", rows[1])
	}
	if rows[2][5] != "Error" {
		t.Errorf("unexpected error row %v", rows[2])
	}
}

func TestExportJSONL(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", "", FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(sampleEvents()) {
		t.Errorf("got %d lines, want %d", len(lines), len(sampleEvents()))
	}

	if err := RunExport(path, "xml", "", FilterOptions{}, &buf); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestStats(t *testing.T) {
	path := writeCapture(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Total Events: 9",
		"  RDM:            6",
		"Transactions: 2",
		"  ACKED:          1",
		"  NACKED:         1",
		"  ACK_TIMER:      1",
		"  DEVICE_LABEL                     1",
		"  0x00f0                           1",
		"Connections: 1",
		"daemon 127.0.0.1:9010",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}
}

func TestStatsMissingFile(t *testing.T) {
	if err := RunStats(filepath.Join(t.TempDir(), "missing.rlog"), &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing file")
	}
}
