package connection

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	defaults := BackoffConfig{}
	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for i, exp := range want {
		if got := defaults.Delay(i + 1); got != exp {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, exp)
		}
	}

	if got := defaults.Delay(0); got != InitialBackoff {
		t.Errorf("Delay(0) = %v, want %v", got, InitialBackoff)
	}

	linear := BackoffConfig{Initial: 50 * time.Millisecond, Multiplier: 1}
	if got := linear.Delay(10); got != 50*time.Millisecond {
		t.Errorf("multiplier 1: Delay(10) = %v, want 50ms", got)
	}

	inverted := BackoffConfig{Initial: time.Second, Max: time.Millisecond}
	if got := inverted.Delay(3); got != time.Second {
		t.Errorf("max below initial: Delay(3) = %v, want 1s", got)
	}
}

func TestBackoffWithoutJitter(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 100 * time.Millisecond,
		Max:     500 * time.Millisecond,
	})

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}
	for i, exp := range expected {
		if got := b.Next(); got != exp {
			t.Errorf("Attempt %d: got %v, want %v", i+1, got, exp)
		}
	}
	if b.Attempts() != len(expected) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(expected))
	}

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
	}
	if got := b.Next(); got != 100*time.Millisecond {
		t.Errorf("first delay after reset = %v, want 100ms", got)
	}
}

func TestBackoffJitter(t *testing.T) {
	upper := time.Duration(float64(InitialBackoff)*(1+JitterFactor)) + time.Millisecond

	b := NewBackoff()
	seen := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		b.Reset()
		d := b.Next()
		if d < InitialBackoff || d > upper {
			t.Errorf("sample %d: %v out of range [%v, %v]", i, d, InitialBackoff, upper)
		}
		seen[d] = true
	}
	if len(seen) == 1 {
		t.Error("all jittered samples are identical")
	}
}

func TestBackoffWait(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: time.Millisecond, Max: time.Millisecond})
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}

	slow := NewBackoffWithConfig(BackoffConfig{Initial: time.Hour, Max: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := slow.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}
