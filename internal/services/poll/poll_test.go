package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_SucceedsWhenConditionTurnsTrue(t *testing.T) {
	var calls atomic.Int32
	start := time.Now()

	err := Until(context.Background(), 20*time.Millisecond, time.Second, func(context.Context) bool {
		return calls.Add(1) >= 3
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestUntil_TimesOut(t *testing.T) {
	start := time.Now()

	err := Until(context.Background(), 10*time.Millisecond, 100*time.Millisecond, func(context.Context) bool {
		return false
	})

	assert.ErrorIs(t, err, ErrTimeout)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestUntil_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := Until(ctx, 10*time.Millisecond, 5*time.Second, func(context.Context) bool {
		return false
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestUntil_ConditionSeesDeadline(t *testing.T) {
	_ = Until(context.Background(), 10*time.Millisecond, 50*time.Millisecond, func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return true
	})
}
