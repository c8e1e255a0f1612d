package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OpenWithRetry calls open until it succeeds, up to retries additional
// attempts spaced delay apart. It gives up early if ctx is canceled.
func OpenWithRetry(ctx context.Context, retries int, delay time.Duration, logger *slog.Logger, open func() (Store, error)) (Store, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		s, err := open()
		if err == nil {
			return s, nil
		}
		lastErr = err

		if attempt == retries {
			break
		}
		if logger != nil {
			logger.Warn("store connection failed, retrying",
				"attempt", attempt+1,
				"retries", retries,
				"delay", delay,
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("open store after %d attempts: %w", retries+1, lastErr)
}
