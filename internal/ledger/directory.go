package ledger

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/retry"
)

// ConnectionStatus is derived from the most recent probe and never persisted
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// DemoCompanies is returned in place of an empty listing when the demo
// fallback is enabled. This is legacy behavior kept so the UI can be exercised
// without a ledger application: it hides both a roster with zero companies and
// a reply that could not be parsed.
var DemoCompanies = []string{"Rahul Enterprises (Demo)", "Demo Company"}

// Resolver lists the companies known to the ledger application
type Resolver struct {
	sender       Sender
	demoFallback bool
	retry        *retry.Config
}

// ResolverOption allows configuring a Resolver
type ResolverOption func(*Resolver)

// WithDemoFallback substitutes DemoCompanies for an empty listing
func WithDemoFallback(enabled bool) ResolverOption {
	return func(r *Resolver) { r.demoFallback = enabled }
}

// WithRetry sets the retry policy applied to listing requests
func WithRetry(config *retry.Config) ResolverOption {
	return func(r *Resolver) { r.retry = config }
}

// NewResolver creates a resolver on top of the given transport
func NewResolver(sender Sender, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		sender: sender,
		retry:  retry.LedgerDefaults(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URL returns the ledger endpoint used by the resolver
func (r *Resolver) URL() string {
	return r.sender.URL()
}

// ListCompanies returns the company names in the order the ledger reported
// them. A transport failure is returned as an error matching ErrTransport.
func (r *Resolver) ListCompanies(ctx context.Context) ([]string, error) {
	var reply []byte
	err := retry.WithOperation(ctx, r.retry, func() error {
		var sendErr error
		reply, sendErr = r.sender.Send(ctx, CompanyListRequest())
		return sendErr
	}, "ledger list companies")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	companies := ExtractField(reply, FieldTag(CompanyListField))
	if len(companies) == 0 {
		if r.demoFallback {
			logrus.WithFields(logrus.Fields{
				"fallback":  "demo",
				"reply_len": len(reply),
			}).Warn("Ledger reply contained no companies, returning demo companies")
			return append([]string(nil), DemoCompanies...), nil
		}
		logrus.WithField("reply_len", len(reply)).Warn("Ledger reply contained no companies")
		return []string{}, nil
	}

	logrus.WithField("count", len(companies)).Debug("Listed ledger companies")
	return companies, nil
}

// ProbeStatus reports whether the ledger application answers at all.
// The reply content is not inspected.
func (r *Resolver) ProbeStatus(ctx context.Context) ConnectionStatus {
	if _, err := r.sender.Send(ctx, StatusProbeRequest()); err != nil {
		logrus.WithError(err).Debug("Ledger status probe failed")
		return StatusDisconnected
	}
	return StatusConnected
}
