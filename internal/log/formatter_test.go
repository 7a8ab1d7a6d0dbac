package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(jsonOutput bool) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(NewFormatter(jsonOutput))
	return logger, buf
}

func TestJSONFormatterFieldNames(t *testing.T) {
	logger, buf := newTestLogger(true)
	logger.WithField("client_id", 42).Info("sync committed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sync committed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
	assert.EqualValues(t, 42, entry["client_id"])
}

func TestTextFormatter(t *testing.T) {
	logger, buf := newTestLogger(false)
	logger.WithField("company", "Acme").Warn("fallback")

	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "msg=fallback")
	assert.Contains(t, out, "company=Acme")
	assert.Contains(t, out, "ts=")
}
