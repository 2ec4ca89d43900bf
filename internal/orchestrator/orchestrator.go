package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/agentboard/internal/job"
	"github.com/kazz187/agentboard/internal/pipeline"
	"github.com/kazz187/agentboard/internal/task"
	"github.com/kazz187/agentboard/pkg/panicerr"
)

const errBuffer = 64

// JobStarter is the part of the job tracker the dispatcher needs.
type JobStarter interface {
	Start(ctx context.Context, taskID string, typ job.Type, agentID, prompt string) (*job.Record, error)
}

// PullRequester opens a pull request for a finished task's branch.
type PullRequester interface {
	Request(ctx context.Context, t *task.Task) error
}

// TriggerError describes a stage that could not be started.
type TriggerError struct {
	TaskID string
	Stage  string
	Err    error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("%s trigger for task %s: %v", e.Stage, e.TaskID, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

// Dispatcher starts the next pipeline stage after a task moved. Stages run
// in the background; their failures are delivered to Run.
type Dispatcher struct {
	jobs           JobStarter
	prs            PullRequester
	defaultAgentID string

	wg   conc.WaitGroup
	errs chan *TriggerError
}

var _ task.MoveHook = (*Dispatcher)(nil)

func New(jobs JobStarter, prs PullRequester, defaultAgentID string) *Dispatcher {
	return &Dispatcher{
		jobs:           jobs,
		prs:            prs,
		defaultAgentID: defaultAgentID,
		errs:           make(chan *TriggerError, errBuffer),
	}
}

// OnMoved inspects the new status of t and fires the matching stage without
// blocking the caller.
func (d *Dispatcher) OnMoved(ctx context.Context, t *task.Task, from pipeline.Status) {
	ctx = context.WithoutCancel(ctx)
	snapshot := *t

	switch t.Status {
	case pipeline.StatusRefinement:
		if t.AssignedAgentID == "" {
			slog.InfoContext(ctx, "orchestrator: refinement not started, task is unassigned", "task_id", t.ID)
			return
		}
		d.spawn(ctx, t.ID, "refinement", func() error {
			_, err := d.jobs.Start(ctx, snapshot.ID, job.TypeRefinement, snapshot.AssignedAgentID, "")
			return err
		})
	case pipeline.StatusTodo:
		agentID := t.AssignedAgentID
		if agentID == "" {
			agentID = d.defaultAgentID
		}
		d.spawn(ctx, t.ID, "execution", func() error {
			_, err := d.jobs.Start(ctx, snapshot.ID, job.TypeExecution, agentID, "")
			return err
		})
	case pipeline.StatusDone:
		if t.Branch == "" || d.prs == nil {
			return
		}
		d.spawn(ctx, t.ID, "pull_request", func() error {
			return d.prs.Request(ctx, &snapshot)
		})
	}
	slog.DebugContext(ctx, "orchestrator: task moved", "task_id", t.ID, "from", from, "to", t.Status)
}

func (d *Dispatcher) spawn(ctx context.Context, taskID, stage string, fn func() error) {
	d.wg.Go(func() {
		err := panicerr.Call(fn)
		if err == nil {
			slog.InfoContext(ctx, "orchestrator: stage started", "task_id", taskID, "stage", stage)
			return
		}
		terr := &TriggerError{TaskID: taskID, Stage: stage, Err: err}
		select {
		case d.errs <- terr:
		default:
			slog.ErrorContext(ctx, "orchestrator: trigger failed", "task_id", taskID, "stage", stage, "error", err)
		}
	})
}

// Run logs trigger failures until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case terr := <-d.errs:
			slog.ErrorContext(ctx, "orchestrator: trigger failed", "task_id", terr.TaskID, "stage", terr.Stage, "error", terr.Err)
		}
	}
}

// Errors exposes failed triggers to callers that do not use Run.
func (d *Dispatcher) Errors() <-chan *TriggerError {
	return d.errs
}

// Wait blocks until every stage fired so far has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
