package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/openlighting/olardm/pkg/connection"
)

// DialConfig configures how the daemon connection is established.
type DialConfig struct {
	// ConnectTimeout bounds each individual attempt (default: 5s).
	ConnectTimeout time.Duration

	// Attempts is the number of connection attempts (default: 1).
	Attempts int

	// Backoff spaces out retries. Zero values use the connection defaults.
	Backoff connection.BackoffConfig
}

// Dial connects to the daemon at address, retrying with exponential backoff
// until an attempt succeeds, the attempts are exhausted or ctx is done.
func Dial(ctx context.Context, address string, cfg DialConfig) (net.Conn, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	backoff := connection.NewBackoff(cfg.Backoff)
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt == cfg.Attempts {
			break
		}

		timer := time.NewTimer(backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("dial %s failed after %d attempt(s): %w", address, cfg.Attempts, lastErr)
}
