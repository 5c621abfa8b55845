package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how Do retries.
type Policy struct {
	// Attempts counts the first call. Zero means 3.
	Attempts int
	Backoff  Backoff

	// OnRetry runs before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Do calls op until it succeeds, fails permanently, or runs out of attempts.
// Exhaustion returns an error matching ErrMaxRetriesExceeded and the last
// error from op.
func Do(ctx context.Context, p Policy, op func(context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 3
	}

	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return joinLast(err, last)
		}

		last = op(ctx)
		if last == nil || IsPermanent(last) {
			return last
		}
		if attempt == attempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, last)
		}

		delay := p.Backoff.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, last, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return joinLast(ctx.Err(), last)
		case <-timer.C:
		}
	}
}

func joinLast(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %w)", ctxErr, last)
}

// WithTimeout runs op under a deadline of d. When the deadline fires first
// it returns ErrTimeout without waiting for op, which sees its context
// cancelled.
func WithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
