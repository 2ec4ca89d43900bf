package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kazz187/agentboard/internal/chat"
	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/pipeline"
	"github.com/kazz187/agentboard/internal/task"
	"github.com/kazz187/agentboard/pkg/cerr"
)

// ErrRuntimeUnavailable is wrapped by Runtime implementations when the agent
// runtime cannot be reached or refuses the dispatch.
var ErrRuntimeUnavailable = errors.New("agent runtime unavailable")

const maxSummaryLen = 2000

type DispatchRequest struct {
	TaskID         string
	JobType        Type
	Prompt         string
	AgentID        string
	Label          string
	TimeoutSeconds int
}

// Runtime hands prompts to an external agent runtime. Dispatch returns once
// the runtime has accepted the work; results come back through Complete.
type Runtime interface {
	Dispatch(ctx context.Context, req *DispatchRequest) error
}

type Config struct {
	Timeout     time.Duration
	ChatHistory int
}

type Tracker struct {
	repo    Repository
	tasks   *task.Service
	chat    *chat.Service
	runtime Runtime
	bus     *eventbus.Bus
	cfg     Config
	now     func() time.Time
}

func NewTracker(repo Repository, tasks *task.Service, chatSvc *chat.Service, runtime Runtime, bus *eventbus.Bus, cfg Config) *Tracker {
	return &Tracker{
		repo:    repo,
		tasks:   tasks,
		chat:    chatSvc,
		runtime: runtime,
		bus:     bus,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start records a pending job for the task, replacing any previous record of
// the same type, and dispatches it. A dispatch failure is stored on the
// returned record with status error; it is not returned as an error.
func (tr *Tracker) Start(ctx context.Context, taskID string, typ Type, agentID, prompt string) (*Record, error) {
	if err := task.ValidateID(taskID); err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, cerr.NewValidationError("agent_id", "agent id is required")
	}
	t, err := tr.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if prompt == "" {
		history, err := tr.chat.List(ctx, taskID, tr.cfg.ChatHistory)
		if err != nil {
			return nil, err
		}
		prompt = BuildPrompt(typ, t, history)
	}

	rec := &Record{
		Status:    StatusPending,
		AgentID:   agentID,
		TaskID:    taskID,
		Type:      typ,
		Prompt:    prompt,
		StartedAt: tr.now(),
		Attempt:   1,
	}
	if err := tr.repo.Put(ctx, rec); err != nil {
		return nil, err
	}
	tr.note(ctx, taskID, fmt.Sprintf("Started %s with agent %s.", typ, agentID))
	if typ == TypeRefinement {
		if _, err := tr.tasks.SetRefinement(ctx, taskID, task.RefinementPlaceholder, ""); err != nil {
			slog.WarnContext(ctx, "job: failed to set refinement placeholder", "task_id", taskID, "error", err)
		}
	}
	tr.emit(ctx, rec)

	return tr.dispatch(ctx, rec)
}

// Redispatch sends an existing pending record to the runtime again. It is
// used after a record was requeued.
func (tr *Tracker) Redispatch(ctx context.Context, rec *Record) (*Record, error) {
	return tr.dispatch(ctx, rec)
}

func (tr *Tracker) dispatch(ctx context.Context, rec *Record) (*Record, error) {
	err := tr.runtime.Dispatch(ctx, &DispatchRequest{
		TaskID:         rec.TaskID,
		JobType:        rec.Type,
		Prompt:         rec.Prompt,
		AgentID:        rec.AgentID,
		Label:          rec.Label(),
		TimeoutSeconds: int(tr.cfg.Timeout / time.Second),
	})
	if err == nil {
		return rec, nil
	}

	slog.WarnContext(ctx, "job: dispatch failed", "task_id", rec.TaskID, "job_type", rec.Type, "error", err)
	startedAt := rec.StartedAt
	failed, mErr := tr.repo.Mutate(ctx, rec.TaskID, rec.Type, func(r *Record) error {
		// A newer attempt owns the record.
		if !r.StartedAt.Equal(startedAt) || r.Status != StatusPending {
			return ErrUnchanged
		}
		now := tr.now()
		r.Status = StatusError
		r.Error = err.Error()
		r.CompletedAt = &now
		return nil
	})
	if mErr != nil {
		return nil, mErr
	}
	tr.note(ctx, rec.TaskID, fmt.Sprintf("Failed to dispatch %s: %v", rec.Type, err))
	if rec.Type == TypeRefinement {
		tr.clearPlaceholder(ctx, rec.TaskID)
	}
	tr.emit(ctx, failed)
	return failed, nil
}

// Poll returns the current record, or an idle record when none exists.
func (tr *Tracker) Poll(ctx context.Context, taskID string, typ Type) (*Record, error) {
	if err := task.ValidateID(taskID); err != nil {
		return nil, err
	}
	rec, err := tr.repo.Get(ctx, taskID, typ)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return &Record{Status: StatusIdle, TaskID: taskID, Type: typ}, nil
		}
		return nil, err
	}
	return rec, nil
}

type AcknowledgeInput struct {
	TaskID     string
	Type       Type
	AgentID    string
	SessionKey string
	Status     Status
}

// Acknowledge records that the runtime picked the job up. Acknowledging an
// execution job moves the task from todo to in_progress.
func (tr *Tracker) Acknowledge(ctx context.Context, in AcknowledgeInput) (*Record, error) {
	if err := task.ValidateID(in.TaskID); err != nil {
		return nil, err
	}
	if in.Status != StatusSpawning && in.Status != StatusRunning {
		return nil, cerr.NewValidationError("status", fmt.Sprintf("cannot acknowledge with status %q", in.Status))
	}
	rec, err := tr.repo.Mutate(ctx, in.TaskID, in.Type, func(r *Record) error {
		if r.Status.Terminal() {
			return cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf("job already %s", r.Status), nil)
		}
		if in.AgentID != "" {
			r.AgentID = in.AgentID
		}
		if in.SessionKey != "" {
			r.SessionKey = in.SessionKey
		}
		r.Status = in.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if in.Type == TypeExecution {
		if _, err := tr.tasks.Advance(ctx, in.TaskID, pipeline.StatusInProgress); err != nil {
			slog.WarnContext(ctx, "job: failed to mark task in progress", "task_id", in.TaskID, "error", err)
		}
	}
	tr.emit(ctx, rec)
	return rec, nil
}

type CompleteInput struct {
	TaskID  string
	Type    Type
	AgentID string
	Result  string
	Error   string
}

func (in CompleteInput) failed() bool {
	return in.Error != ""
}

// Complete ingests the runtime callback. Completing a record that is already
// done changes nothing.
func (tr *Tracker) Complete(ctx context.Context, in CompleteInput) error {
	if err := task.ValidateID(in.TaskID); err != nil {
		return err
	}
	if in.Type == TypeRefinement && !in.failed() && strings.TrimSpace(in.Result) == "" {
		return cerr.NewValidationError("result", "refinement result is required")
	}
	done := false
	rec, err := tr.repo.Mutate(ctx, in.TaskID, in.Type, func(r *Record) error {
		done = r.Status == StatusDone
		if done {
			return ErrUnchanged
		}
		now := tr.now()
		r.CompletedAt = &now
		if in.AgentID != "" {
			r.AgentID = in.AgentID
		}
		if in.failed() {
			r.Status = StatusError
			r.Error = in.Error
			return nil
		}
		r.Status = StatusDone
		r.Error = ""
		r.Summary = summarize(in.Result)
		return nil
	})
	if err != nil {
		return err
	}
	if done {
		slog.InfoContext(ctx, "job: ignoring completion of finished job", "task_id", in.TaskID, "job_type", in.Type)
		return nil
	}
	defer tr.emit(ctx, rec)

	if in.failed() {
		tr.note(ctx, in.TaskID, fmt.Sprintf("%s failed: %s", capitalize(string(in.Type)), in.Error))
		if in.Type == TypeRefinement {
			tr.clearPlaceholder(ctx, in.TaskID)
		}
		return nil
	}

	if in.Result != "" {
		if _, err := tr.chat.Agent(ctx, in.TaskID, rec.AgentID, in.Result); err != nil {
			slog.WarnContext(ctx, "job: failed to append result", "task_id", in.TaskID, "error", err)
		}
	}
	tr.note(ctx, in.TaskID, fmt.Sprintf("%s completed.", capitalize(string(in.Type))))

	switch in.Type {
	case TypeRefinement:
		return tr.applyRefinement(ctx, in.TaskID, in.Result)
	case TypeExecution:
		if _, err := tr.tasks.Advance(ctx, in.TaskID, pipeline.StatusReview); err != nil {
			return fmt.Errorf("failed to move task %s to review: %w", in.TaskID, err)
		}
	}
	return nil
}

func (tr *Tracker) applyRefinement(ctx context.Context, taskID, text string) error {
	t, err := tr.tasks.SetRefinement(ctx, taskID, text, "")
	if err != nil {
		return fmt.Errorf("failed to store refinement of task %s: %w", taskID, err)
	}
	if t.Status != pipeline.StatusRefinement {
		return nil
	}
	if _, err := tr.tasks.Advance(ctx, taskID, pipeline.StatusPendingApproval); err != nil {
		return fmt.Errorf("failed to move task %s to pending approval: %w", taskID, err)
	}
	return nil
}

func (tr *Tracker) clearPlaceholder(ctx context.Context, taskID string) {
	if _, err := tr.tasks.SetRefinement(ctx, taskID, "", task.RefinementPlaceholder); err != nil {
		slog.WarnContext(ctx, "job: failed to clear refinement placeholder", "task_id", taskID, "error", err)
	}
}

// DeleteByTask removes the task's job records.
func (tr *Tracker) DeleteByTask(ctx context.Context, taskID string) error {
	if err := task.ValidateID(taskID); err != nil {
		return err
	}
	return tr.repo.DeleteByTask(ctx, taskID)
}

func (tr *Tracker) note(ctx context.Context, taskID, content string) {
	if _, err := tr.chat.System(ctx, taskID, content); err != nil {
		slog.WarnContext(ctx, "job: failed to append chat entry", "task_id", taskID, "error", err)
	}
}

func (tr *Tracker) emit(ctx context.Context, rec *Record) {
	if tr.bus == nil {
		return
	}
	tr.bus.Emit(ctx, eventbus.Event{Type: eventbus.TypeAgentUpdated, TaskID: rec.TaskID, Payload: ToMessage(rec)})
}

func summarize(result string) string {
	result = strings.TrimSpace(result)
	if r := []rune(result); len(r) > maxSummaryLen {
		return string(r[:maxSummaryLen]) + "…"
	}
	return result
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
