package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// shell is the interactive prompt.
type shell struct {
	sess *session
	rl   *readline.Instance
}

func newShell(sess *session) (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rdm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("get"),
			readline.PcItem("set"),
			readline.PcItem("uids"),
			readline.PcItem("discover", readline.PcItem("full")),
			readline.PcItem("pids"),
			readline.PcItem("universe"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	sess.out = rl.Stdout()
	return &shell{sess: sess, rl: rl}, nil
}

// Stdout returns a writer that does not clobber the prompt.
func (sh *shell) Stdout() io.Writer {
	return sh.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx is cancelled.
func (sh *shell) Run(ctx context.Context) {
	defer sh.rl.Close()

	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := sh.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			sh.printHelp()
		case "quit", "exit", "q":
			return
		default:
			err := sh.sess.exec(ctx, cmd, args)
			switch {
			case errors.Is(err, errUsage):
				fmt.Fprintf(sh.Stdout(), "usage: %s\n", usageFor(cmd))
			case err != nil:
				fmt.Fprintf(sh.Stdout(), "error: %v\n", err)
			}
		}
	}
}

func (sh *shell) printHelp() {
	fmt.Fprint(sh.Stdout(), `Commands:
  get <uid> <sub-device> <pid> [args...]   Send a GET
  set <uid> <sub-device> <pid> [args...]   Send a SET
  uids                                     List known devices
  discover [full]                          Run discovery
  pids [manufacturer-id]                   List parameter definitions
  universe <n>                             Switch universe
  help                                     Show this help
  quit                                     Exit
`)
}

func usageFor(cmd string) string {
	switch cmd {
	case "get", "set":
		return cmd + " <uid> <sub-device> <pid> [args...]"
	case "discover":
		return "discover [full]"
	case "pids":
		return "pids [manufacturer-id]"
	case "universe":
		return "universe <n>"
	}
	return cmd
}
