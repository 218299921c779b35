package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/custodia-labs/ragsync/internal/logger"
)

// RetryConfig controls how locked files are re-read.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Delay is the wait between tries.
	Delay time.Duration
}

// DefaultRetryConfig retries five times one second apart.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 5, Delay: time.Second}
}

// retry runs fn until it succeeds, the error is permanent, or attempts run
// out. A missing file is permanent; anything else may be a transient lock.
func retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("%s succeeded on attempt %d", name, attempt)
			}
			return nil
		}
		if errors.Is(lastErr, fs.ErrNotExist) || attempt == cfg.Attempts {
			break
		}

		logger.Debug("%s failed (attempt %d/%d): %v", name, attempt, cfg.Attempts, lastErr)
		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
	return lastErr
}
