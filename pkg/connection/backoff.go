package connection

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Default connect retry backoff.
const (
	// InitialBackoff is the delay before the second connect attempt.
	InitialBackoff = 500 * time.Millisecond

	// MaxBackoff is the maximum delay between connect attempts.
	MaxBackoff = 8 * time.Second

	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum jitter as a fraction of base delay.
	JitterFactor = 0.25
)

// BackoffConfig allows customizing backoff parameters. Zero fields take the
// package defaults, except Jitter where zero disables jitter.
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
	if c.Max <= 0 {
		c.Max = MaxBackoff
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier < 1 {
		c.Multiplier = BackoffMultiplier
	}
	c.Jitter = math.Min(math.Max(c.Jitter, 0), 1)
	return c
}

// Delay returns the base delay (without jitter) after the given failed
// attempt, counting from 1.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(c.Initial) * math.Pow(c.Multiplier, float64(attempt-1))
	if d >= float64(c.Max) {
		return c.Max
	}
	return time.Duration(d)
}

// Backoff is the retry schedule of one connect call. It is not safe for
// concurrent use; every connect owns its own.
type Backoff struct {
	cfg      BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a schedule with the default settings.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor})
}

// NewBackoffWithConfig creates a schedule with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	return &Backoff{
		cfg: cfg.withDefaults(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the jittered delay before the next attempt and advances the
// schedule.
func (b *Backoff) Next() time.Duration {
	b.attempts++
	d := b.cfg.Delay(b.attempts)
	if b.cfg.Jitter > 0 {
		d += time.Duration(float64(d) * b.cfg.Jitter * b.rng.Float64())
	}
	return d
}

// Wait sleeps for the next backoff delay. It returns ctx.Err() if ctx ends
// first.
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Attempts returns how many delays the schedule has handed out.
func (b *Backoff) Attempts() int { return b.attempts }

// Reset restarts the schedule.
func (b *Backoff) Reset() { b.attempts = 0 }
