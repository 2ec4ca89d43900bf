package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/agentboard/pkg/panicerr"
)

type Type string

const (
	TypeTaskCreated   Type = "task_created"
	TypeTaskUpdated   Type = "task_updated"
	TypeTaskMoved     Type = "task_moved"
	TypeTaskDeleted   Type = "task_deleted"
	TypeTaskCommented Type = "task_commented"
	TypeTaskAssigned  Type = "task_assigned"
	TypeAgentUpdated  Type = "agent_updated"
	TypeBoardRefresh  Type = "board_refresh"

	// TypeConnected is only sent by transports as a stream handshake.
	TypeConnected Type = "connected"
)

type Event struct {
	Type      Type      `json:"type"`
	TaskID    string    `json:"taskId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives events synchronously on the emitting goroutine.
type Handler func(ctx context.Context, ev Event) error

// Bus is an in-process broadcaster. Delivery is best effort to whoever is
// subscribed when Emit runs; nothing is stored or replayed.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	now      func() time.Time
}

func New() *Bus {
	return &Bus{
		handlers: make(map[string]Handler),
		now:      time.Now,
	}
}

// Subscribe registers h and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	id := ulid.Make().String()
	b.mu.Lock()
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Emit stamps ev with the current time and hands it to every handler. A
// handler that fails or panics is logged and skipped.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	ev.Timestamp = b.now()

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := panicerr.Call(func() error { return h(ctx, ev) }); err != nil {
			slog.WarnContext(ctx, "eventbus: handler failed", "event_type", ev.Type, "task_id", ev.TaskID, "error", err)
		}
	}
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
