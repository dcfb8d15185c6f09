package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff describes an exponential backoff schedule
type Backoff struct {
	// MaxAttempts counts the first try; values below 1 mean a single attempt
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	// Jitter is a fraction in [0,1] applied symmetrically to each wait
	Jitter float64
}

// DefaultBackoff is used for connecting to infrastructure at startup
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 5,
		Initial:     500 * time.Millisecond,
		Max:         10 * time.Second,
		Multiplier:  2,
		Jitter:      0.1,
	}
}

// Wait returns the delay before the given retry (1-based)
func (b Backoff) Wait(retry int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = time.Second
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}

	d := float64(initial) * math.Pow(mult, float64(retry-1))
	if b.Jitter > 0 {
		j := math.Min(b.Jitter, 1)
		d += d * j * (rand.Float64()*2 - 1)
	}
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if d < 0 {
		d = float64(initial)
	}
	return time.Duration(d)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent stops Do from retrying err
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Notify is called before each wait
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, returns a permanent error, the attempts
// run out or ctx is done.
func Do(ctx context.Context, b Backoff, op func(ctx context.Context) error, notify Notify) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}

		wait := b.Wait(attempt)
		if notify != nil {
			notify(attempt, lastErr, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
