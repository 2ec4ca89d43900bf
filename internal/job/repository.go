package job

import (
	"context"
	"errors"
)

// ErrUnchanged may be returned by a Mutate callback to keep the stored
// record as it is.
var ErrUnchanged = errors.New("job unchanged")

type Repository interface {
	Get(ctx context.Context, taskID string, typ Type) (*Record, error)
	// Put stores r, replacing any record of the same task and type.
	Put(ctx context.Context, r *Record) error
	// Mutate applies fn to the stored record and writes it back only if
	// nobody wrote in between. fn may run more than once.
	Mutate(ctx context.Context, taskID string, typ Type, fn func(r *Record) error) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	DeleteByTask(ctx context.Context, taskID string) error
}
