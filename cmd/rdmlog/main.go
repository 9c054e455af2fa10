// Command rdmlog views and analyzes RDM protocol capture files.
//
// Capture files are written by rdmctl with the -protocol-log flag.
//
// Usage:
//
//	rdmlog <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View capture in human-readable format
//	export   Export capture to JSON lines or CSV
//	filter   Filter capture and write to new file
//	stats    Show transaction and traffic statistics
//
// Examples:
//
//	# View only transaction state changes
//	rdmlog view -layer rdm session.rlog
//
//	# Follow one device and parameter
//	rdmlog view -uid 7a70:00000001 -pid 0x00f0 session.rlog
//
//	# Export RPC envelopes to CSV
//	rdmlog export -format csv -layer rpc session.rlog
//
//	# Keep one connection
//	rdmlog filter -conn-id abc12345-... -o conn.rlog session.rlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openlighting/olardm/cmd/rdmlog/commands"
)

const usage = `rdmlog - RDM Protocol Capture Analyzer

Usage:
  rdmlog <command> [flags] <file.rlog>

Commands:
  view     View capture in human-readable format
  export   Export capture to JSON lines or CSV
  filter   Filter capture and write to new file
  stats    Show transaction and traffic statistics

Use "rdmlog <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet returns a flag set whose usage names the command and its summary.
func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "rdmlog %s - %s\n\nUsage:\n  rdmlog %s [flags] <file.rlog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// filterFlags registers the event filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	var o commands.FilterOptions
	fs.StringVar(&o.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&o.UID, "uid", "", "Filter transactions by device UID (mmmm:dddddddd)")
	fs.StringVar(&o.Pid, "pid", "", "Filter transactions by parameter code")
	fs.StringVar(&o.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&o.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&o.Layer, "layer", "", "Filter by layer (transport, rpc, rdm)")
	fs.StringVar(&o.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&o.Category, "category", "", "Filter by category (message, state, error)")
	return &o
}

// parsePath parses args and returns the single capture file argument.
func parsePath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return "", fmt.Errorf("log file path required")
	}
	return fs.Arg(0), nil
}

func runView(args []string) error {
	fs := newFlagSet("view", "View capture in human-readable format")
	opts := filterFlags(fs)
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunView(path, *opts, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Export capture to JSON lines or CSV")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output, *opts, os.Stdout)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Filter capture and write to new file")
	output := fs.String("o", "", "Output file (default: <file>.filtered.rlog)")
	opts := filterFlags(fs)
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	if *output == "" {
		*output = commands.FilteredPath(path)
	}
	return commands.RunFilter(path, *output, *opts, os.Stdout)
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Show transaction and traffic statistics")
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
