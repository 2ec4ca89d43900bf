package agentruntime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/job"
)

const dispatchBuffer = 64

// ErrNoWorker is returned when no connected worker can take a dispatch.
var ErrNoWorker = errors.New("no worker available")

type connection struct {
	workerID      string
	maxConcurrent int
	active        int
	lastHeartbeat time.Time
	dispatchCh    chan *boardv1.Dispatch
}

// Registry is a job.Runtime backed by worker processes that subscribe to
// RuntimeService.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection // keyed by workerID
	now   func() time.Time
}

var _ job.Runtime = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		now:   time.Now,
	}
}

// Register adds a worker and returns the channel its dispatches arrive on.
// A worker registering again replaces its previous connection.
func (r *Registry) Register(workerID string, maxConcurrent int) chan *boardv1.Dispatch {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ch := make(chan *boardv1.Dispatch, dispatchBuffer)
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.conns[workerID]; ok {
		close(old.dispatchCh)
	}
	r.conns[workerID] = &connection{
		workerID:      workerID,
		maxConcurrent: maxConcurrent,
		lastHeartbeat: r.now(),
		dispatchCh:    ch,
	}
	return ch
}

// Unregister removes the worker if ch is still its current channel.
func (r *Registry) Unregister(workerID string, ch chan *boardv1.Dispatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[workerID]; ok && conn.dispatchCh == ch {
		close(conn.dispatchCh)
		delete(r.conns, workerID)
	}
}

func (r *Registry) UpdateHeartbeat(workerID string, activeJobs int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[workerID]
	if !ok {
		return false
	}
	conn.lastHeartbeat = r.now()
	conn.active = activeJobs
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// pick prefers the worker named like the agent, then the least loaded one
// with capacity left. Callers hold r.mu.
func (r *Registry) pick(agentID string) *connection {
	if conn, ok := r.conns[agentID]; ok && conn.active < conn.maxConcurrent {
		return conn
	}
	var best *connection
	for _, conn := range r.conns {
		if conn.active >= conn.maxConcurrent {
			continue
		}
		if best == nil || conn.active < best.active {
			best = conn
		}
	}
	return best
}

func (r *Registry) Dispatch(_ context.Context, req *job.DispatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn := r.pick(req.AgentID)
	if conn == nil {
		return fmt.Errorf("%w: %w", ErrNoWorker, job.ErrRuntimeUnavailable)
	}
	msg := &boardv1.Dispatch{
		Prompt:         req.Prompt,
		AgentID:        req.AgentID,
		Label:          req.Label,
		TimeoutSeconds: req.TimeoutSeconds,
		TaskID:         req.TaskID,
		JobType:        string(req.JobType),
	}
	select {
	case conn.dispatchCh <- msg:
		// Counted until the next heartbeat reports the real number.
		conn.active++
		return nil
	default:
		return fmt.Errorf("worker %s is not keeping up: %w", conn.workerID, job.ErrRuntimeUnavailable)
	}
}
