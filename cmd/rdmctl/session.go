package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/openlighting/olardm/pkg/pid"
	"github.com/openlighting/olardm/pkg/rdm"
	"github.com/openlighting/olardm/pkg/uid"
	"github.com/openlighting/olardm/pkg/wire"
)

var errUsage = errors.New("usage")

// session runs commands against one daemon connection.
type session struct {
	client   *rdm.Client
	universe uint32
	out      io.Writer
}

// exec runs one command line split into words. It reports errUsage when
// the arguments do not fit the command.
func (s *session) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "get":
		return s.transaction(ctx, wire.GetCommand, args)
	case "set":
		return s.transaction(ctx, wire.SetCommand, args)
	case "uids":
		return s.uids(ctx, args)
	case "discover":
		return s.discover(ctx, args)
	case "pids":
		return s.pids(args)
	case "universe":
		return s.setUniverse(args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// transaction handles: <uid> <sub-device> <pid> [args...]
func (s *session) transaction(ctx context.Context, cc wire.CommandClass, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	target, err := uid.Parse(args[0])
	if err != nil {
		return err
	}
	sub, err := parseSubDevice(args[1])
	if err != nil {
		return err
	}
	p, err := s.resolvePid(args[2], target.Manufacturer)
	if err != nil {
		return err
	}

	res, err := s.client.Do(ctx, rdm.Request{
		Universe:     s.universe,
		UID:          target,
		SubDevice:    sub,
		Pid:          p,
		CommandClass: cc,
		Args:         append([]string{}, args[3:]...),
	})
	if err != nil {
		return err
	}
	printResult(s.out, res)
	return nil
}

func (s *session) uids(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	list, err := s.client.GetUIDs(ctx, s.universe)
	if err != nil {
		return err
	}
	s.printUIDs(list)
	return nil
}

// discover handles: [full]
func (s *session) discover(ctx context.Context, args []string) error {
	full := false
	switch {
	case len(args) == 1 && args[0] == "full":
		full = true
	case len(args) != 0:
		return errUsage
	}
	list, err := s.client.ForceDiscovery(ctx, s.universe, full)
	if err != nil {
		return err
	}
	s.printUIDs(list)
	return nil
}

// pids handles: [manufacturer-id]
func (s *session) pids(args []string) error {
	store := s.client.Store()
	var list []*pid.Pid
	switch len(args) {
	case 0:
		list = store.Pids()
	case 1:
		id, err := strconv.ParseUint(args[0], 0, 16)
		if err != nil {
			return fmt.Errorf("manufacturer id %q: %w", args[0], err)
		}
		list = store.ManufacturerPids(uint16(id))
	default:
		return errUsage
	}

	for _, p := range list {
		var classes []string
		for _, cc := range []wire.CommandClass{wire.DiscoveryCommand, wire.GetCommand, wire.SetCommand} {
			if p.Supports(cc) {
				classes = append(classes, cc.String())
			}
		}
		owner := ""
		if p.Manufacturer != 0 {
			owner = fmt.Sprintf(" [0x%04x]", p.Manufacturer)
			if name, ok := store.ManufacturerName(p.Manufacturer); ok {
				owner = fmt.Sprintf(" [%s]", name)
			}
		}
		fmt.Fprintf(s.out, "0x%04x %-32s %s%s\n", p.Value, p.Name, strings.Join(classes, ","), owner)
	}
	return nil
}

func (s *session) setUniverse(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	u, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("universe %q: %w", args[0], err)
	}
	s.universe = uint32(u)
	fmt.Fprintf(s.out, "universe %d\n", s.universe)
	return nil
}

// resolvePid accepts a parameter name or a numeric code.
func (s *session) resolvePid(ref string, manufacturer uint16) (*pid.Pid, error) {
	store := s.client.Store()
	if p, ok := store.PidByName(ref, manufacturer); ok {
		return p, nil
	}
	if code, err := strconv.ParseUint(ref, 0, 16); err == nil {
		if p, ok := store.Pid(uint16(code), manufacturer); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", pid.ErrUnknownPid, ref)
}

func (s *session) printUIDs(list []uid.UID) {
	sorted := append([]uid.UID(nil), list...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Manufacturer != sorted[j].Manufacturer {
			return sorted[i].Manufacturer < sorted[j].Manufacturer
		}
		return sorted[i].Device < sorted[j].Device
	})
	for _, u := range sorted {
		fmt.Fprintln(s.out, u)
	}
	fmt.Fprintf(s.out, "%d device(s) on universe %d\n", len(sorted), s.universe)
}

func parseSubDevice(s string) (uint16, error) {
	if strings.EqualFold(s, "all") {
		return pid.AllSubDevices, nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("sub-device %q: %w", s, err)
	}
	return uint16(v), nil
}

// printResult writes the outcome of a transaction.
func printResult(w io.Writer, res *rdm.Result) {
	if err := res.Err(); err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		if res.DecodeErr != nil && len(res.Raw) > 0 {
			fmt.Fprintf(w, "raw: % x\n", res.Raw)
		}
		return
	}
	if res.Polls > 0 {
		fmt.Fprintf(w, "(%d queued message poll(s))\n", res.Polls)
	}
	switch {
	case len(res.Fields) > 0:
		printFields(w, res.Fields, "")
	case len(res.Raw) > 0:
		fmt.Fprintf(w, "raw: % x\n", res.Raw)
	default:
		fmt.Fprintln(w, "ok")
	}
}

// printFields writes unpacked fields in sorted order, one per line.
// Repeated groups are lists of records and are indented below their name.
func printFields(w io.Writer, fields map[string]any, indent string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch v := fields[name].(type) {
		case []map[string]any:
			fmt.Fprintf(w, "%s%s:\n", indent, name)
			for i, rec := range v {
				fmt.Fprintf(w, "%s  [%d]\n", indent, i)
				printFields(w, rec, indent+"    ")
			}
		case map[string]any:
			fmt.Fprintf(w, "%s%s:\n", indent, name)
			printFields(w, v, indent+"  ")
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, name, v)
		}
	}
}

// printQueued reports a queued message that arrived for another parameter.
func printQueued(w io.Writer, msg *rdm.QueuedMessage) {
	name := fmt.Sprintf("0x%04x", msg.ParamID)
	if msg.Pid != nil {
		name = msg.Pid.Name
	}
	fmt.Fprintf(w, "queued message from %s sub-device %d: %s %s\n", msg.UID, msg.SubDevice, name, msg.ResponseType)
	switch {
	case len(msg.Fields) > 0:
		printFields(w, msg.Fields, "  ")
	case len(msg.Raw) > 0:
		fmt.Fprintf(w, "  raw: % x\n", msg.Raw)
	}
}
