package repositoryimpl

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/agentboard/internal/task"
	"github.com/kazz187/agentboard/pkg/cerr"
	"github.com/kazz187/agentboard/pkg/storage"
)

const (
	tasksPrefix = "tasks"

	maxMutateAttempts = 8
)

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) (string, error) {
	if err := storage.CheckName(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s.yaml", tasksPrefix, id), nil
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	p, err := path(t.ID)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	data, err := marshal(t)
	if err != nil {
		return err
	}
	if _, err := r.storage.WriteIfMatch(ctx, p, data, ""); err != nil {
		if errors.Is(err, storage.ErrVersionMismatch) {
			return cerr.NewError(cerr.AlreadyExists, "task already exists", err)
		}
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	p, err := path(id)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	data, err := r.storage.Read(ctx, p)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	return unmarshal(data)
}

// List returns every task in storage order. Unreadable entries are skipped
// since a task may be deleted while the listing is in progress.
func (r *YAMLRepository) List(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	tasks := make([]*task.Task, 0, len(paths))
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		t, err := unmarshal(data)
		if err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *YAMLRepository) Mutate(ctx context.Context, id string, fn func(t *task.Task) error) (*task.Task, error) {
	p, err := path(id)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	for range maxMutateAttempts {
		data, version, err := r.storage.ReadVersion(ctx, p)
		if err != nil {
			return nil, cerr.WrapStorageReadError("task", err)
		}
		t, err := unmarshal(data)
		if err != nil {
			return nil, err
		}
		if err := fn(t); err != nil {
			if errors.Is(err, task.ErrUnchanged) {
				return t, nil
			}
			return nil, err
		}
		t.Version++
		out, err := marshal(t)
		if err != nil {
			return nil, err
		}
		if _, err := r.storage.WriteIfMatch(ctx, p, out, version); err != nil {
			if errors.Is(err, storage.ErrVersionMismatch) {
				continue
			}
			return nil, cerr.WrapStorageWriteError("task", err)
		}
		return t, nil
	}
	return nil, cerr.WrapStorageWriteError("task", storage.ErrVersionMismatch)
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	p, err := path(id)
	if err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	if err := r.storage.Delete(ctx, p); err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return nil
}

func marshal(t *task.Task) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	return data, nil
}

func unmarshal(data []byte) (*task.Task, error) {
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &t, nil
}
