// Package retry provides common retry logic with exponential backoff for ledgerlink.
package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for retry logic
type Config struct {
	MaxAttempts   uint64
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// LedgerDefaults returns the defaults for calls to the ledger application.
// No retries are performed unless the caller raises MaxAttempts.
func LedgerDefaults() *Config {
	return &Config{
		MaxAttempts:   0,
		BaseDelay:     250 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		JitterPercent: 10,
	}
}

// PostgreSQLDefaults returns sensible defaults for PostgreSQL operations
func PostgreSQLDefaults() *Config {
	return &Config{
		MaxAttempts:   10,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		JitterPercent: 10,
	}
}

// EtcdDefaults returns sensible defaults for etcd operations
func EtcdDefaults() *Config {
	return &Config{
		MaxAttempts:   15, // etcd can take longer to recover
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      1 * time.Minute,
		JitterPercent: 15,
	}
}

// WithOperation performs a general operation with retry logic
func WithOperation(ctx context.Context, config *Config, operation func() error, operationName string) error {
	return WithRetryable(ctx, config, operation, operationName, nil)
}

// WithRetryable is like WithOperation but only retries errors for which
// retryable returns true. A nil retryable retries every error.
func WithRetryable(ctx context.Context, config *Config, operation func() error, operationName string, retryable func(error) bool) error {
	backoff := config.CreateBackoff()
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		entry := logrus.WithError(err).
			WithField("operation", operationName).
			WithField("attempt", attempt)
		if uint64(attempt) > config.MaxAttempts {
			entry.Debug("Operation failed, no attempts left")
		} else {
			entry.Warn("Operation failed, retrying...")
		}
		return retry.RetryableError(err)
	})
}

// CreateBackoff creates a reusable backoff strategy from config
func (c *Config) CreateBackoff() retry.Backoff {
	backoff := retry.NewExponential(c.BaseDelay)
	backoff = retry.WithMaxRetries(c.MaxAttempts, backoff)
	backoff = retry.WithCappedDuration(c.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(c.JitterPercent, backoff)
	return backoff
}
