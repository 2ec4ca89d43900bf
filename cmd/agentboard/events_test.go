package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/pkg/color"
)

func TestReadEvents(t *testing.T) {
	color.Disable()

	stream := strings.Join([]string{
		`data: {"type":"connected","timestamp":"2026-01-02T03:04:05Z"}`,
		``,
		`: keep-alive`,
		``,
		`data: {"type":"task_moved","taskId":"T1","payload":{"task":{"id":"T1"},"from":"backlog","to":"refinement"},"timestamp":"2026-01-02T03:04:06Z"}`,
		``,
		`data: {"type":"agent_updated","taskId":"T1","payload":{"type":"refinement","status":"pending","agentId":"agent-1"},"timestamp":"2026-01-02T03:04:07Z"}`,
		``,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, readEvents(strings.NewReader(stream), newPrinter(&out, false)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "connected")
	assert.Contains(t, lines[1], "T1")
	assert.Contains(t, lines[1], "backlog -> refinement")
	assert.Contains(t, lines[2], "refinement pending agent-1")
}

func TestReadEvents_JSON(t *testing.T) {
	var out bytes.Buffer
	data := `{"type":"board_refresh","timestamp":"2026-01-02T03:04:05Z"}`
	require.NoError(t, readEvents(strings.NewReader("data: "+data+"\n\n"), newPrinter(&out, true)))
	assert.Equal(t, data+"\n", out.String())
}

func TestTailEvents_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "T9", r.URL.Query().Get("task_id"))
		assert.Equal(t, "Bearer wrong", r.Header.Get("Authorization"))
		http.Error(w, `{"code":"unauthenticated"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := tailEvents(context.Background(), srv.Client(), srv.URL, "wrong", "T9", newPrinter(&bytes.Buffer{}, false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDescribe(t *testing.T) {
	err := connect.NewError(connect.CodeNotFound, errors.New("task not found"))
	assert.Equal(t, "task not found (not_found)", describe(err))
	assert.Equal(t, "boom", describe(errors.New("boom")))
}
