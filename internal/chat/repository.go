package chat

import "context"

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// List returns the task's entries oldest first.
	List(ctx context.Context, taskID string) ([]*Entry, error)
	DeleteByTask(ctx context.Context, taskID string) error
}
