// Package ledger speaks the envelope protocol of the external ledger
// application: it posts XML requests over HTTP and turns the loosely formed
// replies into company names.
package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultURL is where the ledger application listens for envelope requests
	DefaultURL = "http://localhost:9000"
	// DefaultTimeout bounds a single request, including reading the body
	DefaultTimeout = 5 * time.Second

	contentType  = "application/xml"
	maxReplySize = 32 << 20
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sender posts a raw envelope and returns the raw reply
type Sender interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
	URL() string
}

// Config holds the transport settings
type Config struct {
	URL     string
	Timeout time.Duration
}

// DefaultConfig returns the fixed local endpoint with a five second bound
func DefaultConfig() Config {
	return Config{
		URL:     DefaultURL,
		Timeout: DefaultTimeout,
	}
}

// Client is the HTTP transport to the ledger application. It never retries.
type Client struct {
	url      string
	timeout  time.Duration
	maxReply int64
	client   *http.Client
}

// NewClient builds a transport client, filling zero config values with defaults
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &Client{
		url:      cfg.URL,
		timeout:  cfg.Timeout,
		maxReply: maxReplySize,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: cfg.Timeout,
				MaxIdleConns:          2,
				IdleConnTimeout:       30 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
	}
}

// URL returns the endpoint requests are posted to
func (c *Client) URL() string {
	return c.url
}

// Send posts payload to the ledger application and returns the reply body.
// Any failure is reported as a *TransportError matching ErrTransport.
func (c *Client) Send(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, c.fail("build request", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail("post", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReply+1))
	if err != nil {
		return nil, c.fail("read reply", err)
	}
	if int64(len(body)) > c.maxReply {
		return nil, c.fail("read reply", fmt.Errorf("reply exceeds %d bytes", c.maxReply))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail("post", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body = bytes.TrimPrefix(body, utf8BOM)
	if !utf8.Valid(body) {
		return nil, c.fail("decode reply", fmt.Errorf("reply is not valid UTF-8 text"))
	}

	logrus.WithFields(logrus.Fields{
		"url":         c.url,
		"request_len": len(payload),
		"reply_len":   len(body),
		"duration":    time.Since(start),
	}).Debug("Ledger request completed")

	return body, nil
}

func (c *Client) fail(op string, err error) error {
	logrus.WithError(err).WithFields(logrus.Fields{
		"url": c.url,
		"op":  op,
	}).Debug("Ledger request failed")
	return &TransportError{Op: op, URL: c.url, Err: err}
}
