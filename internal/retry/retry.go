// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts. There is no backoff: the sensor node's connect
// loop waits the same interval every time and, when the attempts run out,
// the caller carries on unconnected.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	"go.uber.org/zap"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures Do
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	// Values below 1 mean a single try.
	MaxAttempts int

	// Delay is the wait between attempts
	Delay time.Duration

	// Sleep replaces the wall-clock wait; tests pass a fake.
	Sleep SleepFunc
}

// DefaultPolicy mirrors the node's WiFi join loop: 20 tries, 500ms apart
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 20,
		Delay:       500 * time.Millisecond,
	}
}

// Result reports how a Do call ended
type Result struct {
	// Success indicates whether an attempt returned nil
	Success bool

	// Attempts is the number of attempts made
	Attempts int

	// Err is the last attempt's error, or the context error if Do was
	// cancelled while waiting.
	Err error
}

// Do calls fn until it returns nil, the attempts are used up, or ctx is
// cancelled. fn receives the 1-based attempt number.
func (p Policy) Do(ctx context.Context, name string, fn func(attempt int) error) Result {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var result Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Delay); err != nil {
				result.Err = err
				return result
			}
		}

		result.Attempts = attempt
		err := fn(attempt)
		if err == nil {
			result.Success = true
			result.Err = nil
			if attempt > 1 {
				logging.Info("Succeeded after retry",
					zap.String("operation", name),
					zap.Int("attempt", attempt),
				)
			}
			return result
		}

		result.Err = err
		logging.Debug("Attempt failed",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
	}

	result.Err = fmt.Errorf("%s failed after %d attempts: %w", name, result.Attempts, result.Err)
	logging.Warn("Giving up",
		zap.String("operation", name),
		zap.Int("attempts", result.Attempts),
		zap.Error(result.Err),
	)
	return result
}

// Sleep waits for d, returning early with ctx.Err() if ctx is cancelled
func Sleep(ctx context.Context, d time.Duration) error {
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
