package ledger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertec-postgresql/ledgerlink/internal/retry"
)

// fakeSender replays canned replies and records the payloads it was given
type fakeSender struct {
	reply    []byte
	err      error
	payloads [][]byte
}

func (f *fakeSender) Send(_ context.Context, payload []byte) ([]byte, error) {
	f.payloads = append(f.payloads, payload)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeSender) URL() string { return "http://ledger.test" }

var errDown = &TransportError{Op: "post", URL: "http://ledger.test", Err: errors.New("connection refused")}

func TestListCompaniesRoundTrip(t *testing.T) {
	sender := &fakeSender{reply: []byte(`<ListofCompanies>Acme</ListofCompanies><ListofCompanies>Beta Inc</ListofCompanies>`)}
	resolver := NewResolver(sender)

	companies, err := resolver.ListCompanies(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Beta Inc"}, companies)
	require.Len(t, sender.payloads, 1)
	assert.Equal(t, CompanyListRequest(), sender.payloads[0])
}

func TestListCompaniesEmptyReply(t *testing.T) {
	reply := []byte(`<ENVELOPE><HEADER><STATUS>1</STATUS></HEADER></ENVELOPE>`)

	t.Run("demo fallback enabled", func(t *testing.T) {
		resolver := NewResolver(&fakeSender{reply: reply}, WithDemoFallback(true))
		companies, err := resolver.ListCompanies(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Rahul Enterprises (Demo)", "Demo Company"}, companies)

		// callers must not be able to corrupt the stub
		companies[0] = "changed"
		assert.Equal(t, "Rahul Enterprises (Demo)", DemoCompanies[0])
	})

	t.Run("demo fallback disabled", func(t *testing.T) {
		resolver := NewResolver(&fakeSender{reply: reply})
		companies, err := resolver.ListCompanies(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, companies)
		assert.Empty(t, companies)
	})
}

func TestListCompaniesTransportFailure(t *testing.T) {
	for _, fallback := range []bool{false, true} {
		resolver := NewResolver(&fakeSender{err: errDown}, WithDemoFallback(fallback))
		companies, err := resolver.ListCompanies(context.Background())
		assert.Nil(t, companies)
		assert.ErrorIs(t, err, ErrTransport)
	}
}

func TestListCompaniesRetries(t *testing.T) {
	sender := &fakeSender{err: errDown}
	resolver := NewResolver(sender, WithRetry(&retry.Config{
		MaxAttempts:   2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		JitterPercent: 0,
	}))

	_, err := resolver.ListCompanies(context.Background())

	assert.ErrorIs(t, err, ErrTransport)
	assert.Len(t, sender.payloads, 3)
}

func TestProbeStatus(t *testing.T) {
	connected := NewResolver(&fakeSender{reply: []byte("garbage that is not xml")})
	assert.Equal(t, StatusConnected, connected.ProbeStatus(context.Background()))

	sender := &fakeSender{err: errDown}
	disconnected := NewResolver(sender)
	assert.Equal(t, StatusDisconnected, disconnected.ProbeStatus(context.Background()))
	assert.Equal(t, StatusProbeRequest(), sender.payloads[0])
}

func TestResolverOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<ENVELOPE>\r\n<ListofCompanies>Acme</ListofCompanies>\r\n</ENVELOPE>"))
	}))
	resolver := NewResolver(NewClient(Config{URL: server.URL, Timeout: time.Second}))

	companies, err := resolver.ListCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, companies)
	assert.Equal(t, StatusConnected, resolver.ProbeStatus(context.Background()))

	server.Close()
	assert.Equal(t, StatusDisconnected, resolver.ProbeStatus(context.Background()))
	_, err = resolver.ListCompanies(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}
