// Package commands implements the rdmlog subcommands.
package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openlighting/olardm/pkg/log"
)

// FilterOptions are the textual filter flags shared by view, export and filter.
type FilterOptions struct {
	ConnID    string
	UID       string
	Pid       string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// Build converts the options into a reader filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{ConnectionID: o.ConnID, UID: strings.ToLower(o.UID)}

	if o.Pid != "" {
		code, err := strconv.ParseUint(o.Pid, 0, 16)
		if err != nil {
			return filter, fmt.Errorf("invalid pid %q: must be a parameter code", o.Pid)
		}
		pid := uint16(code)
		filter.ParamID = &pid
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "rpc":
		return log.LayerRPC, nil
	case "rdm":
		return log.LayerRDM, nil
	}
	return 0, fmt.Errorf("invalid layer: %s (must be transport, rpc, or rdm)", s)
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	}
	return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	}
	return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
}

// FilteredPath names the default output of filter: session.rlog becomes
// session.filtered.rlog.
func FilteredPath(path string) string {
	return strings.TrimSuffix(path, log.CaptureExt) + ".filtered" + log.CaptureExt
}

// RunFilter copies the events of path that match opts into output. Captures
// are opened for appending, so output must not be path itself.
func RunFilter(path, output string, opts FilterOptions, w io.Writer) error {
	if filepath.Clean(output) == filepath.Clean(path) {
		return fmt.Errorf("output %s is the capture being filtered", output)
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

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}

	count, err := forEach(reader, func(event log.Event) error {
		logger.Log(event)
		return nil
	})
	if cerr := logger.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, output)
	return nil
}

// forEach calls fn for every remaining event and returns how many it saw.
func forEach(reader *log.Reader, fn func(log.Event) error) (int, error) {
	n := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return n, err
		}
		n++
	}
}
