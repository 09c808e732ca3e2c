package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls how many times an operation is attempted and how long to
// wait between attempts. Multiplier <= 1 keeps the delay fixed.
type Config struct {
	Attempts   int
	Delay      time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// Fixed returns a config that waits the same delay between every attempt.
func Fixed(attempts int, delay time.Duration) Config {
	return Config{Attempts: attempts, Delay: delay}
}

// OnRetry is invoked after a failed attempt that will be retried.
// left is the number of attempts remaining.
type OnRetry func(attempt, left int, err error)

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// The last error is wrapped when every attempt fails.
func Do[T any](ctx context.Context, cfg Config, onRetry OnRetry, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.Attempts, 1)
	delay := cfg.Delay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, attempts-attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		if cfg.Multiplier > 1 {
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return zero, fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
