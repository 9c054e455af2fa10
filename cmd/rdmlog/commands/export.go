package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/openlighting/olardm/pkg/log"
)

// RunExport writes the matching events of path as jsonl or csv to output,
// or to w when output is empty.
func RunExport(path, format, output string, opts FilterOptions, w io.Writer) error {
	var write func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		write = exportJSONL
	case "csv":
		write = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	filter, err := opts.Build()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return write(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	_, err := forEach(reader, func(event log.Event) error {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
	return err
}

var csvHeader = []string{
	"timestamp", "connection_id", "direction", "layer", "category",
	"type", "message_id", "method", "uid", "pid", "state",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	_, err := forEach(reader, func(event log.Event) error {
		var msgID, method, uid, pid, state string
		switch {
		case event.Message != nil:
			msgID = strconv.FormatUint(uint64(event.Message.MessageID), 10)
			method = event.Message.Method
		case event.Transaction != nil:
			uid = event.Transaction.UID
			pid = fmt.Sprintf("0x%04x", event.Transaction.ParamID)
			state = event.Transaction.NewState
		case event.StateChange != nil:
			state = event.StateChange.NewState
		}
		row := []string{
			event.Timestamp.UTC().Format(timestampLayout),
			event.ConnectionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			eventType(event),
			msgID, method, uid, pid, state,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
	cw.Flush()
	if err != nil {
		return err
	}
	return cw.Error()
}
