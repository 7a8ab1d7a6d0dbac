// Package etcd provides the etcd connection used by the etcd-backed sync store.
package etcd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdClient wraps the etcd client together with the key prefix taken from the DSN
type EtcdClient struct {
	*clientv3.Client
	prefix string
}

// ErrInvalidDSN is returned for etcd connection strings that cannot be parsed
var ErrInvalidDSN = errors.New("failed to parse etcd DSN")

// NewEtcdClient creates a new etcd client with DSN parsing
func NewEtcdClient(dsn string) (*EtcdClient, error) {
	config, err := parseEtcdDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDSN, err)
	}

	client, err := clientv3.New(*config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	logrus.WithField("endpoints", config.Endpoints).Info("Connected to etcd successfully")

	return &EtcdClient{
		Client: client,
		prefix: GetPrefix(dsn),
	}, nil
}

// Prefix returns the key prefix all ledgerlink keys live under
func (c *EtcdClient) Prefix() string {
	return c.prefix
}

// Close closes the etcd client connection
func (c *EtcdClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Healthcheck performs a cheap read to verify the cluster answers
func (c *EtcdClient) Healthcheck(ctx context.Context) error {
	if _, err := c.Client.Get(ctx, c.prefix+"healthcheck", clientv3.WithCountOnly()); err != nil {
		return fmt.Errorf("etcd healthcheck failed: %w", err)
	}
	return nil
}

// parseEtcdDSN parses etcd DSN format: etcd://[user:password@]host1:port1[,host2:port2]/[prefix]?param=value
func parseEtcdDSN(dsn string) (*clientv3.Config, error) {
	if dsn == "" {
		return nil, fmt.Errorf("etcd DSN is required")
	}

	if !strings.HasPrefix(dsn, "etcd://") {
		return nil, fmt.Errorf("etcd DSN must start with etcd://")
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("etcd DSN has no endpoints")
	}

	// Extract endpoints from host part
	endpoints := strings.Split(u.Host, ",")
	for i, endpoint := range endpoints {
		if !strings.Contains(endpoint, ":") {
			endpoints[i] = endpoint + ":2379" // Default etcd port
		}
	}

	config := &clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	}

	if u.User != nil {
		if username := u.User.Username(); username != "" {
			config.Username = username
		}
		if password, _ := u.User.Password(); password != "" {
			config.Password = password
		}
	}

	params := u.Query()

	if timeout := params.Get("dial_timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid dial_timeout: %w", err)
		}
		config.DialTimeout = d
	}

	if username := params.Get("username"); username != "" {
		config.Username = username
	}

	if password := params.Get("password"); password != "" {
		config.Password = password
	}

	switch params.Get("tls") {
	case "enabled":
		config.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	case "insecure":
		config.TLS = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in through the DSN
	}

	return config, nil
}

// GetPrefix extracts the key prefix from the etcd DSN path, always ending in "/"
func GetPrefix(dsn string) string {
	if dsn == "" || !strings.HasPrefix(dsn, "etcd://") {
		return "/"
	}

	u, err := url.Parse(dsn)
	if err != nil || u.Path == "" {
		return "/"
	}

	if !strings.HasSuffix(u.Path, "/") {
		return u.Path + "/"
	}
	return u.Path
}
