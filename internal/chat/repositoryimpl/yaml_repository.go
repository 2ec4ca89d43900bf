package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/agentboard/internal/chat"
	"github.com/kazz187/agentboard/pkg/cerr"
	"github.com/kazz187/agentboard/pkg/storage"
)

const chatPrefix = "chat"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func dir(taskID string) (string, error) {
	if err := storage.CheckName(taskID); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", chatPrefix, taskID), nil
}

func path(taskID, id string) (string, error) {
	d, err := dir(taskID)
	if err != nil {
		return "", err
	}
	if err := storage.CheckName(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s.yaml", d, id), nil
}

func (r *YAMLRepository) Append(ctx context.Context, e *chat.Entry) error {
	p, err := path(e.TaskID, e.ID)
	if err != nil {
		return cerr.WrapStorageWriteError("chat entry", err)
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal chat entry: %w", err))
	}
	if _, err := r.storage.WriteIfMatch(ctx, p, data, ""); err != nil {
		if errors.Is(err, storage.ErrVersionMismatch) {
			return cerr.NewError(cerr.AlreadyExists, "chat entry already exists", err)
		}
		return cerr.WrapStorageWriteError("chat entry", err)
	}
	return nil
}

// List relies on entry ids being ULIDs, which sort by creation time.
func (r *YAMLRepository) List(ctx context.Context, taskID string) ([]*chat.Entry, error) {
	d, err := dir(taskID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("chat", err)
	}
	paths, err := r.storage.List(ctx, d)
	if err != nil {
		return nil, cerr.WrapStorageReadError("chat", err)
	}
	sort.Strings(paths)

	entries := make([]*chat.Entry, 0, len(paths))
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var e chat.Entry
		if err := yaml.Unmarshal(data, &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

func (r *YAMLRepository) DeleteByTask(ctx context.Context, taskID string) error {
	d, err := dir(taskID)
	if err != nil {
		return cerr.WrapStorageDeleteError("chat", err)
	}
	paths, err := r.storage.List(ctx, d)
	if err != nil {
		return cerr.WrapStorageReadError("chat", err)
	}
	var errs []error
	for _, p := range paths {
		if err := r.storage.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return cerr.WrapStorageDeleteError("chat", err)
	}
	return nil
}
