package db

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/retry"
)

// NewWithRetry creates a new PostgreSQL connection pool with retry logic.
// An unparsable connection string fails at once.
func NewWithRetry(ctx context.Context, connStr string) (PgxPoolIface, error) {
	config := retry.PostgreSQLDefaults()

	var pool PgxPoolIface
	err := retry.WithRetryable(ctx, config, func() error {
		var attemptErr error
		pool, attemptErr = New(ctx, connStr)
		if attemptErr != nil {
			return attemptErr
		}

		// Test the connection with a ping
		if pingErr := pool.Ping(ctx); pingErr != nil {
			pool.Close()
			return pingErr
		}

		return nil
	}, "Postgres connect", func(err error) bool {
		return !errors.Is(err, ErrInvalidURL)
	})

	if err != nil {
		logrus.WithError(err).Error("Failed to establish PostgreSQL connection after all retries")
		return nil, err
	}

	return pool, nil
}
