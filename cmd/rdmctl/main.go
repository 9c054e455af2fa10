// Command rdmctl sends RDM commands through the lighting daemon.
//
// Usage:
//
//	rdmctl [flags] <command> [args...]
//
// Flags:
//
//	-config string        YAML configuration file
//	-server string        Daemon address (default from config, "localhost:9010")
//	-universe uint        Universe to address
//	-pid-dir string       Directory of parameter definition files
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Write a protocol capture (.rlog) to this file
//
// Commands:
//
//	get <uid> <sub-device> <pid> [args...]
//	set <uid> <sub-device> <pid> [args...]
//	uids
//	discover [full]
//	pids [manufacturer-id]
//	shell
//
// Examples:
//
//	rdmctl -universe 2 get 7a70:00000001 0 DEVICE_LABEL
//	rdmctl set 7a70:00000001 0 DMX_START_ADDRESS 17
//	rdmctl -protocol-log session.rlog shell
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlighting/olardm/pkg/config"
	"github.com/openlighting/olardm/pkg/connection"
	"github.com/openlighting/olardm/pkg/log"
	"github.com/openlighting/olardm/pkg/pid"
	"github.com/openlighting/olardm/pkg/rdm"
	"github.com/openlighting/olardm/pkg/rpc"
	"github.com/openlighting/olardm/pkg/transport"
)

// flags override values from the configuration file when set.
type flags struct {
	configFile  string
	server      string
	universe    uint
	pidDir      string
	logLevel    string
	protocolLog string
}

func main() {
	var f flags
	flag.StringVar(&f.configFile, "config", "", "YAML configuration file")
	flag.StringVar(&f.server, "server", "", "Daemon address host:port")
	flag.UintVar(&f.universe, "universe", 0, "Universe to address")
	flag.StringVar(&f.pidDir, "pid-dir", "", "Directory of parameter definition files")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&f.protocolLog, "protocol-log", "", "Write a protocol capture to this file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rdmctl [flags] <get|set|uids|discover|pids|shell> [args...]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: rdmctl %s\n", usageFor(flag.Arg(0)))
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(f flags) (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.server != "" {
		cfg.Server = f.server
	}
	if f.universe != 0 {
		cfg.Universe = uint32(f.universe)
	}
	if f.pidDir != "" {
		cfg.PidDir = f.pidDir
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.protocolLog != "" {
		cfg.ProtocolLog = f.protocolLog
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	store, err := pid.LoadDir(cfg.PidDir)
	if err != nil {
		return fmt.Errorf("loading parameter definitions: %w", err)
	}
	logger.Debug("parameter definitions loaded", "dir", cfg.PidDir, "pids", len(store.Pids()), "version", store.Version())

	// pids needs no daemon connection.
	if cmd == "pids" {
		sess := &session{client: rdm.NewClient(nil, store), universe: cfg.Universe, out: os.Stdout}
		return sess.exec(ctx, cmd, args)
	}

	// Protocol events go to the capture file and, at debug level, to slog.
	var sinks []log.Logger
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("opening protocol log: %w", err)
		}
		defer func() {
			written, dropped := fl.Counts()
			if err := fl.Close(); err != nil {
				logger.Warn("closing protocol log", "path", cfg.ProtocolLog, "error", err)
			}
			logger.Debug("protocol log closed", "path", cfg.ProtocolLog, "events", written, "dropped", dropped)
		}()
		sinks = append(sinks, fl)
	}
	if cfg.Level() <= slog.LevelDebug {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}
	var protocolLogger log.Logger
	if ml := log.NewMultiLogger(sinks...); ml.Len() > 0 {
		protocolLogger = ml
	}

	conn, err := transport.Dial(ctx, cfg.Server, transport.DialConfig{
		ConnectTimeout: time.Duration(cfg.Dial.ConnectTimeout),
		Attempts:       cfg.Dial.Attempts,
		Backoff: connection.BackoffConfig{
			Initial: time.Duration(cfg.Dial.InitialBackoff),
			Max:     time.Duration(cfg.Dial.MaxBackoff),
		},
	})
	if err != nil {
		return err
	}

	chOpts := []rpc.Option{rpc.WithLogger(logger), rpc.WithMaxMessageSize(cfg.MaxMessageSize)}
	if protocolLogger != nil {
		chOpts = append(chOpts, rpc.WithProtocolLogger(protocolLogger))
	}
	ch := rpc.NewChannel(conn, chOpts...)
	defer ch.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch.SetCloseHandler(func() {
		logger.Info("daemon connection closed", "server", cfg.Server)
		cancel()
	})
	go func() {
		if err := ch.Serve(); err != nil {
			logger.Warn("connection ended", "error", err)
		}
	}()

	clientOpts := []rdm.Option{
		rdm.WithLogger(logger),
		rdm.WithDrainPolicy(rdm.DrainPolicy{
			MaxPolls: cfg.QueueDrain.MaxPolls,
			Timeout:  time.Duration(cfg.QueueDrain.Timeout),
		}),
	}
	if protocolLogger != nil {
		clientOpts = append(clientOpts, rdm.WithProtocolLogger(protocolLogger, ch.ConnectionID()))
	}
	client := rdm.NewClient(ch, store, clientOpts...)
	sess := &session{client: client, universe: cfg.Universe, out: os.Stdout}

	if cmd != "shell" {
		client.SetQueuedMessageHandler(func(msg *rdm.QueuedMessage) { printQueued(os.Stdout, msg) })
		return sess.exec(ctx, cmd, args)
	}

	sh, err := newShell(sess)
	if err != nil {
		return err
	}
	client.SetQueuedMessageHandler(func(msg *rdm.QueuedMessage) { printQueued(sh.Stdout(), msg) })
	sh.Run(ctx)
	return nil
}
