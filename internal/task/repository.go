package task

import (
	"context"
	"errors"

	"github.com/kazz187/agentboard/internal/pipeline"
)

// ErrUnchanged may be returned by a Mutate callback to leave the stored task
// as it is. Mutate then returns the current task and a nil error.
var ErrUnchanged = errors.New("task unchanged")

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	// Mutate reads the task, applies fn and writes the result only if the
	// stored task has not changed in between. Conflicting writes are
	// retried with a fresh read, so fn may run more than once.
	Mutate(ctx context.Context, id string, fn func(t *Task) error) (*Task, error)
	Delete(ctx context.Context, id string) error
}

// Cleaner removes data owned by a task when the task is deleted.
type Cleaner interface {
	DeleteByTask(ctx context.Context, taskID string) error
}

// MoveHook is notified after a status change has been persisted. It must
// not block.
type MoveHook interface {
	OnMoved(ctx context.Context, t *Task, from pipeline.Status)
}
