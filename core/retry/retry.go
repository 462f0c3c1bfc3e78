// Package retry runs an operation a bounded number of times with
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrContextCancelled is returned when the context ends while waiting.
var ErrContextCancelled = errors.New("context cancelled during retry")

// maxShift caps the backoff exponent so the delay cannot overflow.
const maxShift = 30

// Policy configures retry behavior.
type Policy struct {
	// Attempts is the total number of tries. Values below 1 mean one try.
	Attempts int
	// BaseDelay is the wait after the first failure; it doubles each time.
	BaseDelay time.Duration
	// Sleep waits for d or until ctx ends. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Once is a policy with a single attempt and no waiting.
func Once() Policy {
	return Policy{Attempts: 1}
}

// FromMillis builds a policy from attempt count and base delay in ms.
func FromMillis(attempts, delayMs int) Policy {
	return Policy{
		Attempts:  attempts,
		BaseDelay: time.Duration(delayMs) * time.Millisecond,
	}
}

// MaxAttempts returns the effective number of tries.
func (p Policy) MaxAttempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Delay returns the wait after failed attempt k (1-based):
// BaseDelay * 2^(k-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift > maxShift {
		shift = maxShift
	}
	return p.BaseDelay * time.Duration(1<<uint(shift))
}

// Do calls fn until it succeeds or the attempts are used up. fn receives
// the 1-based attempt number. The last error is returned wrapped.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	attempts := p.MaxAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < attempts {
			if err := sleep(ctx, p.Delay(attempt)); err != nil {
				return fmt.Errorf("%w: %w", ErrContextCancelled, err)
			}
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
