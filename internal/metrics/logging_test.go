package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger(buf *bytes.Buffer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(buf), zapcore.InfoLevel))
}

// accessLines decodes every JSON log line written to buf.
func accessLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLoggingMiddleware_LogsRoutes(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(NewRegistry(), bufferLogger(&buf))

	serve(h, http.MethodGet, "/healthz")
	serve(h, http.MethodGet, "/metrics")
	serve(h, http.MethodGet, "/secret")

	lines := accessLines(t, &buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "http request", lines[0]["msg"])
	assert.Equal(t, "GET", lines[0]["method"])
	assert.Equal(t, "/healthz", lines[0]["path"])
	assert.Equal(t, "/healthz", lines[0]["route"])
	assert.Equal(t, float64(200), lines[0]["status"])
	assert.Contains(t, lines[0], "duration_ms")

	assert.Equal(t, "/metrics", lines[1]["route"])

	assert.Equal(t, "other", lines[2]["route"])
	assert.NotEqual(t, float64(200), lines[2]["status"])
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(NewRegistry(), bufferLogger(&buf))

	w := serve(h, http.MethodGet, "/healthz")
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "cron-42")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "cron-42", w.Header().Get("X-Request-ID"))

	lines := accessLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, generated, lines[0]["request_id"])
	assert.Equal(t, "cron-42", lines[1]["request_id"])
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(NewRegistry(), bufferLogger(&buf))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "10.0.0.5:41234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := accessLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "10.0.0.5:41234", lines[0]["client_ip"])
	assert.Equal(t, "203.0.113.7", lines[1]["client_ip"])
}
