package connection

import (
	"math/rand"
	"time"
)

// Defaults for daemon connection attempts.
const (
	InitialBackoff    = 250 * time.Millisecond
	MaxBackoff        = 5 * time.Second
	BackoffMultiplier = 2.0
	JitterFactor      = 0.25
)

// BackoffConfig shapes the retry schedule. Zero values take the defaults;
// a negative Jitter disables jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = InitialBackoff
	}
	if c.Max < c.Initial {
		c.Max = max(MaxBackoff, c.Initial)
	}
	if c.Multiplier <= 1 {
		c.Multiplier = BackoffMultiplier
	}
	if c.Jitter == 0 {
		c.Jitter = JitterFactor
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	return c
}

// Backoff walks an exponential retry schedule. It is owned by a single
// dialing goroutine and is not safe for concurrent use.
type Backoff struct {
	cfg     BackoffConfig
	retries int
	random  func() float64
}

// NewBackoff returns a schedule positioned before the first retry.
func NewBackoff(cfg BackoffConfig) *Backoff {
	return &Backoff{cfg: cfg.withDefaults(), random: rand.Float64}
}

// Base returns the un-jittered delay before retry n (0-based).
func (b *Backoff) Base(n int) time.Duration {
	d := float64(b.cfg.Initial)
	for i := 0; i < n; i++ {
		d *= b.cfg.Multiplier
		if d >= float64(b.cfg.Max) {
			return b.cfg.Max
		}
	}
	return time.Duration(d)
}

// Next returns the delay before the next retry and advances the schedule.
func (b *Backoff) Next() time.Duration {
	base := b.Base(b.retries)
	b.retries++
	if b.cfg.Jitter == 0 {
		return base
	}
	return base + time.Duration(float64(base)*b.cfg.Jitter*b.random())
}

// Retries reports how many delays Next has handed out since the last Reset.
func (b *Backoff) Retries() int {
	return b.retries
}

// Reset rewinds the schedule after a successful connect.
func (b *Backoff) Reset() {
	b.retries = 0
}
