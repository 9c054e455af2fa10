package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffSchedule(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: 250 * time.Millisecond, Max: 5 * time.Second, Jitter: -1})

	want := []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, b.Next(), "retry %d", i)
	}
	assert.Equal(t, len(want), b.Retries())

	b.Reset()
	assert.Equal(t, 0, b.Retries())
	assert.Equal(t, 250*time.Millisecond, b.Next())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	for i := 0; i < 20; i++ {
		base := b.Base(b.Retries())
		d := b.Next()
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+time.Duration(float64(base)*JitterFactor))
	}
}

func TestBackoffJitterUsesRandomSource(t *testing.T) {
	b := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Jitter: 0.5})
	b.random = func() float64 { return 1 }
	assert.Equal(t, 150*time.Millisecond, b.Next())
}

func TestBackoffDefaults(t *testing.T) {
	b := NewBackoff(BackoffConfig{})
	assert.Equal(t, InitialBackoff, b.Base(0))
	assert.Equal(t, MaxBackoff, b.Base(100))

	// A maximum below the initial delay is lifted to the default.
	b = NewBackoff(BackoffConfig{Initial: 10 * time.Second, Max: time.Second})
	assert.Equal(t, 10*time.Second, b.Base(0))
	assert.Equal(t, 10*time.Second, b.Base(3))
}
