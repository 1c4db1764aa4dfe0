package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T, level string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "authcore",
		Version: "test",
		Env:     "test",
		Level:   level,
		Format:  "json",
		Output:  &buf,
	})
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew_BaseAttributesAndLevel(t *testing.T) {
	logger, buf := newBufferedLogger(t, "warn")

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	require.Equal(t, "kept", lines[0]["msg"])
	require.Equal(t, "authcore", lines[0]["service"])
	require.Equal(t, "v", lines[0]["k"])
	require.Same(t, logger, slog.Default())
}

func TestNew_RedactsSecrets(t *testing.T) {
	logger, buf := newBufferedLogger(t, "debug")

	logger.Info("login",
		"password", "hunter2",
		"token", "eyJhbGciOi...",
		slogx.Token("access", "eyJhbGciOi..."),
	)

	out := buf.String()
	require.NotContains(t, out, "hunter2")
	require.NotContains(t, out, "eyJhbGciOi")

	lines := decodeLines(t, buf)
	require.Equal(t, "[REDACTED]", lines[0]["password"])
	require.Equal(t, cryptox.FingerprintToken("eyJhbGciOi..."), lines[0]["access_fp"])
}

func TestFromContext(t *testing.T) {
	logger, buf := newBufferedLogger(t, "info")

	require.Same(t, logger, slogx.FromContext(context.Background()))

	ctx := slogx.WithRequestID(context.Background(), "req-1")
	ctx = slogx.With(ctx, "account_id", "123456")
	slogx.FromContext(ctx).Info("hello")

	lines := decodeLines(t, buf)
	require.Equal(t, "req-1", lines[0]["req_id"])
	require.Equal(t, "123456", lines[0]["account_id"])
}

func TestHTTPMiddleware(t *testing.T) {
	logger, buf := newBufferedLogger(t, "info")

	var seen *slog.Logger
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))

		require.NotSame(t, logger, seen)
		reqID := rec.Header().Get(slogx.RequestIDHeader)
		_, err := idx.Parse(reqID)
		require.NoError(t, err)

		lines := decodeLines(t, buf)
		require.Equal(t, "http_request", lines[0]["msg"])
		require.Equal(t, reqID, lines[0]["req_id"])
		require.EqualValues(t, http.StatusTeapot, lines[0]["status"])
	})

	t.Run("keeps valid request id", func(t *testing.T) {
		id := idx.New().String()
		req := httptest.NewRequest(http.MethodGet, "/token", nil)
		req.Header.Set(slogx.RequestIDHeader, id)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, id, rec.Header().Get(slogx.RequestIDHeader))
	})

	t.Run("replaces junk request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/token", nil)
		req.Header.Set(slogx.RequestIDHeader, "x\ny")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.NotEqual(t, "x\ny", rec.Header().Get(slogx.RequestIDHeader))
	})
}
