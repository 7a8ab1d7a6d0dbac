package etcd

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/retry"
)

// NewEtcdClientWithRetry creates a new etcd client with retry logic. An
// invalid DSN fails at once.
func NewEtcdClientWithRetry(ctx context.Context, dsn string) (*EtcdClient, error) {
	config := retry.EtcdDefaults()

	var client *EtcdClient
	err := retry.WithRetryable(ctx, config, func() error {
		var attemptErr error
		client, attemptErr = NewEtcdClient(dsn)
		if attemptErr != nil {
			return attemptErr
		}

		if testErr := client.Healthcheck(ctx); testErr != nil {
			_ = client.Close()
			return testErr
		}

		return nil
	}, "etcd connect", func(err error) bool {
		return !errors.Is(err, ErrInvalidDSN)
	})

	if err != nil {
		logrus.WithError(err).Error("Failed to establish etcd connection after all retries")
		return nil, err
	}

	return client, nil
}

