package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := Constant{Interval: 5 * time.Second}
	for attempt := 1; attempt <= 10; attempt++ {
		assert.Equal(t, 5*time.Second, c.Delay(attempt))
	}
}

func TestLinear_GrowsLinearly(t *testing.T) {
	l := Linear{Base: time.Second, Max: time.Minute}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestLinear_CapsAtMax(t *testing.T) {
	l := Linear{Base: time.Second, Max: 5 * time.Second}
	assert.Equal(t, 5*time.Second, l.Delay(10))
	assert.Equal(t, 5*time.Second, l.Delay(100))
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := Exponential{Base: time.Second, Max: time.Hour}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := Exponential{Base: time.Second, Max: 10 * time.Second}
	assert.Equal(t, 10*time.Second, e.Delay(5))
	assert.Equal(t, 10*time.Second, e.Delay(20))
}

func TestPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, Backoff: Constant{Interval: 0}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_RetriesUpToMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	p := Policy{MaxAttempts: 3, Backoff: Constant{Interval: 0}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestPolicy_NonRetryableStopsAfterOneAttempt(t *testing.T) {
	calls := 0
	fatal := errors.New("unauthorized")
	p := Policy{
		MaxAttempts: 5,
		Backoff:     Constant{Interval: 0},
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-retryable error must not be retried")
}

func TestPolicy_RecoversMidway(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 5, Backoff: Constant{Interval: 0}}

	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPolicy_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{MaxAttempts: 3, Backoff: Constant{Interval: time.Hour}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicy_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	calls := 0
	p := Policy{}

	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}
