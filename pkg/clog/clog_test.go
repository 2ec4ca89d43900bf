package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_HeadlineAndAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewAttributesHandler(NewTextHandler(buf, WithColor(false))))

	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "request_id", "r-1")
	logger.InfoContext(ctx, "job started", "task_id", "T1", "job_type", "execution", "error", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INFO T1 execution \"job started\" \"boom\"")
	assert.Equal(t, "    request_id=r-1", lines[1])
}

func TestTextHandler_LevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTextHandler(buf, WithColor(false), WithLevel(slog.LevelWarn)))
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestTextHandler_Group(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTextHandler(buf, WithColor(false))).WithGroup("scanner").With("interval", "1m")
	logger.Info("tick")
	assert.Contains(t, buf.String(), "scanner.interval=1m")
}

func TestContextAttributes_NoBag(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "k", "v")
	assert.Nil(t, GetAttributes(ctx))
	assert.Nil(t, GetError(ctx))
}

func TestSlogChiMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(NewAttributesHandler(NewTextHandler(buf, WithColor(false)))))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := SlogChiMiddleware(func(r *http.Request) bool { return r.URL.Path == "/health" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			AddAttribute(r.Context(), "task_id", "T9")
			w.WriteHeader(http.StatusNotFound)
		}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/T9", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	assert.Contains(t, out, "WARN GET /api/tasks/T9 T9 \"Not Found\"")
	assert.NotContains(t, out, "/health")
}

func TestConnectCodeToLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, ConnectCodeToLevel(connect.CodeNotFound))
	assert.Equal(t, slog.LevelInfo, ConnectCodeToLevel(connect.CodeInvalidArgument))
	assert.Equal(t, slog.LevelError, ConnectCodeToLevel(connect.CodeUnavailable))
	assert.Equal(t, slog.LevelError, ConnectCodeToLevel(connect.CodeInternal))
	assert.Equal(t, slog.LevelWarn, HTTPStatusToLevel(http.StatusBadRequest))
	assert.Equal(t, slog.LevelError, HTTPStatusToLevel(http.StatusServiceUnavailable))
}
