package retryx

import (
	"context"
	"errors"
	"time"

	"github.com/Abraxas-365/realtor/pkg/logx"
)

// Config controls retry behaviour
type Config struct {
	MaxAttempts  int           // total attempts including the first, <=0 means 1
	InitialDelay time.Duration // wait before the second attempt, doubled afterwards
	MaxDelay     time.Duration
	ShouldRetry  func(err error) bool // nil retries every error
}

// DefaultConfig suits short outbound webhook calls
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// Do calls fn until it succeeds, attempts run out, or ctx is done.
// The last error is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) || attempt == cfg.MaxAttempts {
			break
		}

		logx.WithFields(logx.Fields{
			"attempt": attempt,
			"max":     cfg.MaxAttempts,
			"delay":   delay.String(),
		}).Debugf("retrying after error: %v", lastErr)

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
