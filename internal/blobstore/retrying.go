package blobstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// RetryConfig defines retry behavior for blob store operations.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns sensible defaults for remote object storage.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// Retrying wraps a Store with retry logic.
type Retrying struct {
	store  Store
	config RetryConfig
}

// NewRetrying creates a retrying store wrapper.
func NewRetrying(store Store, config RetryConfig) *Retrying {
	return &Retrying{store: store, config: config}
}

// Upload implements Store with retry logic.
func (r *Retrying) Upload(ctx context.Context, key string, data []byte, mime string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(r.calculateDelay(attempt))
		}

		url, err := r.store.Upload(ctx, key, data, mime)
		if err == nil {
			return url, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return "", fmt.Errorf("upload failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// Get implements Store with retry logic.
func (r *Retrying) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(r.calculateDelay(attempt))
		}

		data, err := r.store.Get(ctx, url)
		if err == nil {
			return data, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, fmt.Errorf("get failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// calculateDelay implements exponential backoff with jitter.
func (r *Retrying) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	// Jitter: ±25%
	jitter := delay * 0.25 * (2*float64(time.Now().UnixNano()%1000)/1000 - 1)
	return time.Duration(delay + jitter)
}

// isRetryableError determines if an error should be retried. Missing objects
// and cancelled contexts never are.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"server error",
		"throttling",
		"slowdown",
		"requesttimeout",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
