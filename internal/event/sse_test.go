package event

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/internal/eventbus"
)

type stream struct {
	t *testing.T
	r *bufio.Reader
}

// next returns the next non-blank line of the stream.
func (s *stream) next() string {
	s.t.Helper()
	for {
		line, err := s.r.ReadString('\n')
		require.NoError(s.t, err)
		line = strings.TrimRight(line, "\n")
		if line != "" {
			return line
		}
	}
}

func (s *stream) nextEvent() eventbus.Event {
	s.t.Helper()
	line := s.next()
	require.True(s.t, strings.HasPrefix(line, "data: "), "unexpected line %q", line)
	var ev eventbus.Event
	require.NoError(s.t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
	return ev
}

func open(t *testing.T, h *Handler, query string) (*stream, context.CancelFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events"+query, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return &stream{t: t, r: bufio.NewReader(resp.Body)}, cancel
}

func TestHandler_StreamsEvents(t *testing.T) {
	bus := eventbus.New()
	s, cancel := open(t, NewHandler(bus), "")
	defer cancel()

	hello := s.nextEvent()
	assert.Equal(t, eventbus.TypeConnected, hello.Type)
	require.Equal(t, 1, bus.Len())

	bus.Emit(context.Background(), eventbus.Event{Type: eventbus.TypeTaskCreated, TaskID: "T1"})
	ev := s.nextEvent()
	assert.Equal(t, eventbus.TypeTaskCreated, ev.Type)
	assert.Equal(t, "T1", ev.TaskID)

	cancel()
	assert.Eventually(t, func() bool { return bus.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_TaskFilter(t *testing.T) {
	bus := eventbus.New()
	s, cancel := open(t, NewHandler(bus), "?task_id=T2")
	defer cancel()

	hello := s.nextEvent()
	assert.Equal(t, "T2", hello.TaskID)

	bus.Emit(context.Background(), eventbus.Event{Type: eventbus.TypeTaskUpdated, TaskID: "T1"})
	bus.Emit(context.Background(), eventbus.Event{Type: eventbus.TypeTaskUpdated, TaskID: "T2"})
	bus.Emit(context.Background(), eventbus.Event{Type: eventbus.TypeBoardRefresh})

	first := s.nextEvent()
	assert.Equal(t, "T2", first.TaskID)
	second := s.nextEvent()
	assert.Equal(t, eventbus.TypeBoardRefresh, second.Type)
}

func TestHandler_KeepAlive(t *testing.T) {
	h := NewHandler(eventbus.New())
	h.keepAlive = 20 * time.Millisecond
	s, cancel := open(t, h, "")
	defer cancel()

	s.nextEvent()
	assert.Equal(t, ": keep-alive", s.next())
}
