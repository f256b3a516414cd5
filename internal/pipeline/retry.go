package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/dyike/marktbot/internal/marktplaats"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// Retryable selects the errors worth another attempt. Nil means Transient.
	Retryable func(error) bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}
}

// Retry executes fn with exponential backoff. Errors that are not retryable
// are returned immediately and unwrapped.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = Transient
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1)))
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted: %w", lastErr)
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Transient reports marketplace failures that may succeed on a later
// attempt: network errors, throttling and 5xx responses. Rejected sessions,
// rejected logins and missing login tokens are not transient.
func Transient(err error) bool {
	var te *marktplaats.TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.Err != nil {
		return !errors.Is(te.Err, context.Canceled) && !errors.Is(te.Err, context.DeadlineExceeded)
	}
	return te.StatusCode == http.StatusTooManyRequests || te.StatusCode >= 500
}
