package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastBackoff(attempts int) Backoff {
	return Backoff{MaxAttempts: attempts, Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	notified := 0
	err := Do(context.Background(), fastBackoff(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		notified++
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestDo_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), fastBackoff(3), func(ctx context.Context) error {
		calls++
		return boom
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	boom := errors.New("bad credentials")
	calls := 0
	err := Do(context.Background(), fastBackoff(5), func(ctx context.Context) error {
		calls++
		return Permanent(boom)
	}, nil)

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastBackoff(3), func(ctx context.Context) error {
		t.Fatal("op must not run")
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_WaitCapped(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, b.Wait(1))
	assert.Equal(t, 200*time.Millisecond, b.Wait(2))
	assert.Equal(t, 300*time.Millisecond, b.Wait(3))
	assert.Equal(t, 300*time.Millisecond, b.Wait(10))
}
