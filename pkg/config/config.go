// Package config loads the client configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openlighting/olardm/pkg/transport"
)

// DefaultServer is the daemon's RPC address.
const DefaultServer = "localhost:9010"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// QueueDrain bounds queued-message polling after an ACK_TIMER.
type QueueDrain struct {
	MaxPolls int      `yaml:"maxPolls"`
	Timeout  Duration `yaml:"timeout"`
}

// Dial controls how the daemon connection is established.
type Dial struct {
	ConnectTimeout Duration `yaml:"connectTimeout"`
	Attempts       int      `yaml:"attempts"`
	InitialBackoff Duration `yaml:"initialBackoff"`
	MaxBackoff     Duration `yaml:"maxBackoff"`
}

// Config is the client configuration.
type Config struct {
	Server         string     `yaml:"server"`
	Universe       uint32     `yaml:"universe"`
	PidDir         string     `yaml:"pidDir"`
	LogLevel       string     `yaml:"logLevel"`
	ProtocolLog    string     `yaml:"protocolLog"`
	MaxMessageSize uint32     `yaml:"maxMessageSize"`
	QueueDrain     QueueDrain `yaml:"queueDrain"`
	Dial           Dial       `yaml:"dial"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:         DefaultServer,
		Universe:       1,
		PidDir:         "/usr/share/ola/pids",
		LogLevel:       "info",
		MaxMessageSize: transport.DefaultMaxMessageSize,
		QueueDrain: QueueDrain{
			MaxPolls: 25,
			Timeout:  Duration(30 * time.Second),
		},
		Dial: Dial{
			ConnectTimeout: Duration(5 * time.Second),
			Attempts:       3,
			InitialBackoff: Duration(250 * time.Millisecond),
			MaxBackoff:     Duration(5 * time.Second),
		},
	}
}

// Parse reads YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error
	if _, _, err := net.SplitHostPort(c.Server); err != nil {
		errs = append(errs, fmt.Errorf("server %q: %w", c.Server, err))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.MaxMessageSize == 0 || c.MaxMessageSize > transport.MaxPayloadSize {
		errs = append(errs, fmt.Errorf("maxMessageSize %d outside 1..%d", c.MaxMessageSize, transport.MaxPayloadSize))
	}
	if c.QueueDrain.MaxPolls <= 0 {
		errs = append(errs, fmt.Errorf("queueDrain.maxPolls must be positive"))
	}
	if c.QueueDrain.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("queueDrain.timeout must be positive"))
	}
	if c.Dial.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("dial.attempts must be positive"))
	}
	if c.Dial.InitialBackoff <= 0 || c.Dial.MaxBackoff < c.Dial.InitialBackoff {
		errs = append(errs, fmt.Errorf("dial backoff [%s, %s] is invalid",
			time.Duration(c.Dial.InitialBackoff), time.Duration(c.Dial.MaxBackoff)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
