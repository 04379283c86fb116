package cart

import (
	"context"
	"time"
)

// RetryConfig configures exponential backoff for backend connections
type RetryConfig struct {
	MaxRetries int           // Maximum number of attempts
	BaseDelay  time.Duration // Initial delay between attempts
	MaxDelay   time.Duration // Maximum delay between attempts
	Multiplier float64       // Exponential backoff multiplier
}

// DefaultRetryConfig allows a Redis that starts alongside the server a few seconds to come up
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 4,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2,
	}
}

// retryWithBackoff runs fn until it succeeds, the attempts run out or ctx ends.
// The last error from fn is returned.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := config.BaseDelay

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < config.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return lastErr
}
