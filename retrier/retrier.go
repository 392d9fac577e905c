// Package retrier retries an operation over a fixed backoff schedule.
package retrier

import (
	"context"
	"fmt"
	"time"
)

// Retrier runs an operation up to len(backoff)+1 times, sleeping between
// attempts according to the schedule.
type Retrier struct {
	backoff []time.Duration
}

// New creates a Retrier with the given backoff schedule. An empty schedule
// means a single attempt.
func New(backoff ...time.Duration) *Retrier {
	return &Retrier{backoff: backoff}
}

// Run executes fn until it succeeds or the schedule is exhausted. The context
// is checked between attempts, not during fn itself.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= len(r.backoff) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff[attempt]):
		}
	}
	return fmt.Errorf("max retry attempts reached: %w", err)
}
