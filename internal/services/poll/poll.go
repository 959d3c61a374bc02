// Package poll provides the fixed-cadence, deadline-bounded wait used by the
// connection and reachability checks.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultInterval is the cadence at which conditions are re-checked.
const DefaultInterval = 100 * time.Millisecond

// ErrTimeout is returned when the condition did not hold before the timeout.
var ErrTimeout = errors.New("timed out waiting for condition")

var errNotYet = errors.New("condition not met")

// Until evaluates cond every interval until it returns true, the timeout
// elapses (ErrTimeout) or ctx is cancelled (ctx.Err()). cond receives a
// context bounded by the timeout so slow checks cannot overrun it.
func Until(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) bool) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.WithContext(backoff.NewConstantBackOff(interval), waitCtx)
	err := backoff.Retry(func() error {
		if cond(waitCtx) {
			return nil
		}
		return errNotYet
	}, b)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrTimeout
}
