package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/openlighting/olardm/pkg/log"
)

// Terminal transaction states as written by the rdm client.
var terminalStates = []string{"ACKED", "NACKED", "FAILED"}

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Errors            int
	DiscardedFrames   int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}

	// Transactions counts finished transactions by terminal state.
	Transactions map[string]int
	// AckTimerWaits counts entries into ACK_TIMER_WAIT.
	AckTimerWaits int
	// Pids counts finished transactions per parameter name.
	Pids map[string]int
}

// ConnectionStats holds statistics for a single daemon connection.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	RemoteAddr string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
		Transactions:      make(map[string]int),
		Pids:              make(map[string]int),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if conn.RemoteAddr == "" {
		conn.RemoteAddr = event.RemoteAddr
	}

	if event.Error != nil {
		s.Errors++
	}
	if event.Frame != nil && event.Frame.Discarded {
		s.DiscardedFrames++
	}
	if tx := event.Transaction; tx != nil {
		if tx.NewState == "ACK_TIMER_WAIT" {
			s.AckTimerWaits++
		}
		for _, terminal := range terminalStates {
			if tx.NewState == terminal {
				s.Transactions[terminal]++
				name := tx.PidName
				if name == "" {
					name = fmt.Sprintf("0x%04x", tx.ParamID)
				}
				s.Pids[name]++
			}
		}
	}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	if _, err := forEach(reader, func(event log.Event) error {
		stats.add(event)
		return nil
	}); err != nil {
		return err
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== RDM Protocol Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerRPC, log.LayerRDM} {
		printCount(w, layer.String(), stats.EventsByLayer[layer])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		printCount(w, cat.String(), stats.EventsByCategory[cat])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		printCount(w, dir.String(), stats.EventsByDirection[dir])
	}
	fmt.Fprintln(w)

	total := 0
	for _, n := range stats.Transactions {
		total += n
	}
	if total > 0 {
		fmt.Fprintf(w, "Transactions: %d\n", total)
		for _, st := range terminalStates {
			printCount(w, st, stats.Transactions[st])
		}
		printCount(w, "ACK_TIMER", stats.AckTimerWaits)
		fmt.Fprintln(w)

		names := make([]string, 0, len(stats.Pids))
		for name := range stats.Pids {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if stats.Pids[names[i]] != stats.Pids[names[j]] {
				return stats.Pids[names[i]] > stats.Pids[names[j]]
			}
			return names[i] < names[j]
		})
		fmt.Fprintln(w, "Transactions by PID:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-32s %d\n", name, stats.Pids[name])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	ids := make([]string, 0, len(stats.Connections))
	for id := range stats.Connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Connections[ids[i]].FirstSeen.Before(stats.Connections[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		c := stats.Connections[id]
		fmt.Fprintf(w, "  [%s] %d events, duration %s", shortenConnID(id), c.Events,
			c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond))
		if c.RemoteAddr != "" {
			fmt.Fprintf(w, ", daemon %s", c.RemoteAddr)
		}
		fmt.Fprintln(w)
	}

	if stats.DiscardedFrames > 0 {
		fmt.Fprintf(w, "\nDiscarded Frames: %d\n", stats.DiscardedFrames)
	}
	if stats.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", stats.Errors)
	}
}

func printCount(w io.Writer, label string, n int) {
	if n > 0 {
		fmt.Fprintf(w, "  %-15s %d\n", label+":", n)
	}
}
