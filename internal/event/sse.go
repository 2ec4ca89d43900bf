// Package event streams bus events to browsers as server-sent events.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kazz187/agentboard/internal/eventbus"
)

const (
	clientBuffer      = 64
	keepAliveInterval = 30 * time.Second
)

// Handler serves GET /api/events. The optional task_id query parameter
// limits the stream to one task; events without a task id always pass.
type Handler struct {
	bus       *eventbus.Bus
	keepAlive time.Duration
	now       func() time.Time
}

func NewHandler(bus *eventbus.Bus) *Handler {
	return &Handler{bus: bus, keepAlive: keepAliveInterval, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)
	taskID := r.URL.Query().Get("task_id")

	ch := make(chan eventbus.Event, clientBuffer)
	var dropped atomic.Bool
	unsubscribe := h.bus.Subscribe(func(_ context.Context, ev eventbus.Event) error {
		if taskID != "" && ev.TaskID != "" && ev.TaskID != taskID {
			return nil
		}
		select {
		case ch <- ev:
		default:
			dropped.Store(true)
		}
		return nil
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := h.write(ctx, w, eventbus.Event{Type: eventbus.TypeConnected, TaskID: taskID, Timestamp: h.now()}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		slog.ErrorContext(ctx, "event stream: response cannot be flushed", "error", err)
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case ev := <-ch:
			// The client missed events; tell it to reload before going on.
			if dropped.Swap(false) {
				slog.WarnContext(ctx, "event stream: client too slow, events dropped", "task_id", taskID)
				if err := h.write(ctx, w, eventbus.Event{Type: eventbus.TypeBoardRefresh, Timestamp: h.now()}); err != nil {
					return
				}
			}
			if err := h.write(ctx, w, ev); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// write skips events that cannot be encoded and only fails on I/O errors.
func (h *Handler) write(ctx context.Context, w io.Writer, ev eventbus.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "event stream: failed to marshal event", "event_type", ev.Type, "error", err)
		return nil
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
