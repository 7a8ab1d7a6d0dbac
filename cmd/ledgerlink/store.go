package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/collection"
	"github.com/cybertec-postgresql/ledgerlink/internal/db"
	"github.com/cybertec-postgresql/ledgerlink/internal/etcd"
	"github.com/cybertec-postgresql/ledgerlink/internal/sync"
)

// openStore connects the sync record backend selected by --store. The
// returned close function releases its connections.
func openStore(ctx context.Context, config *Config, files *collection.Store) (sync.Store, func(), error) {
	switch config.Store {
	case "file", "":
		logrus.WithField("data_dir", config.DataDir).Info("Using file sync store")
		return sync.NewFileStore(files), func() {}, nil

	case "postgres":
		pool, err := db.NewWithRetry(ctx, config.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
		}
		if err := db.ApplyMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logrus.Info("Using PostgreSQL sync store")
		return sync.NewPostgresStore(pool), pool.Close, nil

	case "etcd":
		client, err := etcd.NewEtcdClientWithRetry(ctx, config.EtcdDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to etcd after retries: %w", err)
		}
		logrus.WithField("prefix", client.Prefix()).Info("Using etcd sync store")
		closeClient := func() {
			if err := client.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close etcd client")
			}
		}
		return sync.NewEtcdStore(client.Client, client.Prefix()), closeClient, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", config.Store)
}
