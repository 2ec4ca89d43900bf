// Package recovery finds delegated jobs that stopped making progress and
// puts them back into the queue.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/agentboard/internal/chat"
	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/job"
)

const DefaultStaleThreshold = 5 * time.Minute

// Stuck is an active job whose attempt began longer ago than the threshold.
type Stuck struct {
	TaskID string
	Type   job.Type
	Record *job.Record
}

// ID identifies the stuck job in recovery results.
func (s Stuck) ID() string {
	return fmt.Sprintf("%s:%s", s.TaskID, s.Type)
}

// Redispatcher sends a requeued record to the agent runtime again.
type Redispatcher interface {
	Redispatch(ctx context.Context, rec *job.Record) (*job.Record, error)
}

type Scanner struct {
	jobs      job.Repository
	chat      *chat.Service
	bus       *eventbus.Bus
	threshold time.Duration
	now       func() time.Time
}

func NewScanner(jobs job.Repository, chatSvc *chat.Service, bus *eventbus.Bus, threshold time.Duration) *Scanner {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return &Scanner{
		jobs:      jobs,
		chat:      chatSvc,
		bus:       bus,
		threshold: threshold,
		now:       time.Now,
	}
}

func (s *Scanner) isStuck(r *job.Record, now time.Time) bool {
	return r.Status.Active() && now.Sub(r.StartedAt) > s.threshold
}

// Scan lists stuck jobs. It never writes.
func (s *Scanner) Scan(ctx context.Context) ([]Stuck, error) {
	records, err := s.jobs.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var stuck []Stuck
	for _, r := range records {
		if s.isStuck(r, now) {
			stuck = append(stuck, Stuck{TaskID: r.TaskID, Type: r.Type, Record: r})
		}
	}
	return stuck, nil
}

// Recover requeues every stuck job as a new pending attempt with no bound
// agent and notes it in the task transcript. Each job is handled on its
// own; failures are joined into the returned error.
func (s *Scanner) Recover(ctx context.Context) ([]string, error) {
	recovered, _, err := s.recover(ctx)
	return recovered, err
}

func (s *Scanner) recover(ctx context.Context) ([]string, []*job.Record, error) {
	stuck, err := s.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}
	var (
		ids     []string
		records []*job.Record
		errs    []error
	)
	for _, st := range stuck {
		rec, prev, err := s.requeue(ctx, st)
		if err != nil {
			errs = append(errs, fmt.Errorf("recover %s: %w", st.ID(), err))
			continue
		}
		if rec == nil {
			continue
		}
		if _, err := s.chat.System(ctx, st.TaskID,
			fmt.Sprintf("%s job was %s for more than %s and has been requeued.", st.Type, prev, s.threshold)); err != nil {
			slog.WarnContext(ctx, "recovery: failed to append chat entry", "task_id", st.TaskID, "error", err)
		}
		s.emit(ctx, rec)
		ids = append(ids, st.ID())
		records = append(records, rec)
		slog.InfoContext(ctx, "recovery: job requeued", "task_id", st.TaskID, "job_type", st.Type, "previous_status", prev, "attempt", rec.Attempt)
	}
	return ids, records, errors.Join(errs...)
}

// requeue returns a nil record when the job progressed after the scan.
func (s *Scanner) requeue(ctx context.Context, st Stuck) (*job.Record, job.Status, error) {
	var (
		prev    job.Status
		changed bool
	)
	rec, err := s.jobs.Mutate(ctx, st.TaskID, st.Type, func(r *job.Record) error {
		changed = false
		now := s.now()
		if !s.isStuck(r, now) {
			return job.ErrUnchanged
		}
		prev = r.Status
		r.Status = job.StatusPending
		r.AgentID = ""
		r.SessionKey = ""
		r.StartedAt = now
		r.Attempt++
		changed = true
		return nil
	})
	if err != nil || !changed {
		return nil, "", err
	}
	return rec, prev, nil
}

// Run sweeps every interval until ctx is done. Requeued jobs are handed to
// rd when it is non-nil.
func (s *Scanner) Run(ctx context.Context, interval time.Duration, rd Redispatcher) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.InfoContext(ctx, "recovery: scanner started", "interval", interval, "threshold", s.threshold)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx, rd)
		}
	}
}

func (s *Scanner) sweep(ctx context.Context, rd Redispatcher) {
	_, records, err := s.recover(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "recovery: sweep failed", "error", err)
	}
	if rd == nil {
		return
	}
	for _, rec := range records {
		if _, err := rd.Redispatch(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "recovery: redispatch failed", "task_id", rec.TaskID, "job_type", rec.Type, "error", err)
		}
	}
}

func (s *Scanner) emit(ctx context.Context, rec *job.Record) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(ctx, eventbus.Event{Type: eventbus.TypeAgentUpdated, TaskID: rec.TaskID, Payload: job.ToMessage(rec)})
}
