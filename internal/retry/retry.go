// Package retry provides the shared retry policy used by the OAuth manager
// and the upload stage: max attempts, a pluggable backoff strategy, and a
// retryable-error predicate.
package retry

import (
	"context"
	"time"
)

// Backoff computes the delay before retry attempt n (1-indexed). Attempt 1
// is the first retry after the initial failure.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

func (c Constant) Delay(_ int) time.Duration { return c.Interval }

// Linear increases the delay linearly with the attempt number:
// Delay = min(Base * attempt, Max).
type Linear struct {
	Base time.Duration
	Max  time.Duration
}

func (l Linear) Delay(attempt int) time.Duration {
	d := l.Base * time.Duration(attempt)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// Exponential doubles the delay each attempt:
// Delay = min(Base * 2^(attempt-1), Max).
type Exponential struct {
	Base time.Duration
	Max  time.Duration
}

func (e Exponential) Delay(attempt int) time.Duration {
	d := e.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if e.Max > 0 && d > e.Max {
			return e.Max
		}
	}
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// Policy is a reusable retry policy. Retryable decides per error whether
// another attempt may help; a nil Retryable retries every error.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Retryable   func(error) bool
}

// Do runs fn up to MaxAttempts times, sleeping Backoff.Delay(n) between
// attempts. It stops early when fn succeeds, when Retryable rejects the
// error, or when ctx is done. The last error is returned unwrapped so
// callers can classify it.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff.Delay(attempt)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
