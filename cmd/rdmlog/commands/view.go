package commands

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/openlighting/olardm/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the events of path that match opts.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	_, err = forEach(reader, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
	return err
}

// eventType names the payload carried by an event.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.Transaction != nil:
		return "Transaction"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	}
	return "Unknown"
}

// formatEvent writes a header line, the payload details and a blank line.
func formatEvent(w io.Writer, event log.Event) {
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format(timestampLayout),
		shortenConnID(event.ConnectionID),
		event.Direction,
		event.Layer,
		eventType(event))

	switch {
	case event.Frame != nil:
		f := event.Frame
		fmt.Fprintf(w, "  Size: %d bytes\n", f.Size)
		if len(f.Data) > 0 {
			suffix := ""
			if f.Truncated {
				suffix = " (truncated)"
			}
			fmt.Fprintf(w, "  Data: %s%s\n", hex.EncodeToString(f.Data), suffix)
		}
		if f.Discarded {
			fmt.Fprintln(w, "  Discarded: version mismatch")
		}
	case event.Message != nil:
		m := event.Message
		fmt.Fprintf(w, "  MessageID: %d\n", m.MessageID)
		if m.Method != "" {
			fmt.Fprintf(w, "  Method: %s\n", m.Method)
		}
		fmt.Fprintf(w, "  Size: %d bytes\n", m.Size)
		if m.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", m.Error)
		}
	case event.Transaction != nil:
		tx := event.Transaction
		name := tx.PidName
		if name == "" {
			name = fmt.Sprintf("0x%04x", tx.ParamID)
		}
		fmt.Fprintf(w, "  #%d %s %s sub-device %d %s\n", tx.ID, tx.CommandClass, tx.UID, tx.SubDevice, name)
		formatTransition(w, tx.OldState, tx.NewState, tx.Reason)
	case event.StateChange != nil:
		sc := event.StateChange
		formatTransition(w, sc.OldState, sc.NewState, sc.Reason)
	case event.Error != nil:
		e := event.Error
		fmt.Fprintf(w, "  Layer: %s\n", e.Layer)
		fmt.Fprintf(w, "  Message: %s\n", e.Message)
		if e.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", e.Context)
		}
	}

	fmt.Fprintln(w)
}

func formatTransition(w io.Writer, from, to, reason string) {
	if from != "" {
		fmt.Fprintf(w, "  %s -> %s\n", from, to)
	} else {
		fmt.Fprintf(w, "  -> %s\n", to)
	}
	if reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", reason)
	}
}

func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
