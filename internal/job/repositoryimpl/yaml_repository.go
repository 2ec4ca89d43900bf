package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kazz187/agentboard/internal/job"
	"github.com/kazz187/agentboard/pkg/cerr"
	"github.com/kazz187/agentboard/pkg/storage"
)

const (
	jobsPrefix = "jobs"

	maxMutateAttempts = 8
)

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(taskID string, typ job.Type) (string, error) {
	if err := storage.CheckName(taskID); err != nil {
		return "", err
	}
	if err := storage.CheckName(string(typ)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s_%s.yaml", jobsPrefix, taskID, typ), nil
}

func (r *YAMLRepository) Get(ctx context.Context, taskID string, typ job.Type) (*job.Record, error) {
	p, err := path(taskID, typ)
	if err != nil {
		return nil, cerr.WrapStorageReadError("job", err)
	}
	data, err := r.storage.Read(ctx, p)
	if err != nil {
		return nil, cerr.WrapStorageReadError("job", err)
	}
	return unmarshal(data)
}

func (r *YAMLRepository) Put(ctx context.Context, rec *job.Record) error {
	p, err := path(rec.TaskID, rec.Type)
	if err != nil {
		return cerr.WrapStorageWriteError("job", err)
	}
	data, err := marshal(rec)
	if err != nil {
		return err
	}
	if err := r.storage.Write(ctx, p, data); err != nil {
		return cerr.WrapStorageWriteError("job", err)
	}
	return nil
}

func (r *YAMLRepository) Mutate(ctx context.Context, taskID string, typ job.Type, fn func(rec *job.Record) error) (*job.Record, error) {
	p, err := path(taskID, typ)
	if err != nil {
		return nil, cerr.WrapStorageReadError("job", err)
	}
	for range maxMutateAttempts {
		data, version, err := r.storage.ReadVersion(ctx, p)
		if err != nil {
			return nil, cerr.WrapStorageReadError("job", err)
		}
		rec, err := unmarshal(data)
		if err != nil {
			return nil, err
		}
		if err := fn(rec); err != nil {
			if errors.Is(err, job.ErrUnchanged) {
				return rec, nil
			}
			return nil, err
		}
		out, err := marshal(rec)
		if err != nil {
			return nil, err
		}
		if _, err := r.storage.WriteIfMatch(ctx, p, out, version); err != nil {
			if errors.Is(err, storage.ErrVersionMismatch) {
				continue
			}
			return nil, cerr.WrapStorageWriteError("job", err)
		}
		return rec, nil
	}
	return nil, cerr.WrapStorageWriteError("job", storage.ErrVersionMismatch)
}

func (r *YAMLRepository) List(ctx context.Context) ([]*job.Record, error) {
	paths, err := r.storage.List(ctx, jobsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("jobs", err)
	}
	sort.Strings(paths)

	records := make([]*job.Record, 0, len(paths))
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		rec, err := unmarshal(data)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *YAMLRepository) DeleteByTask(ctx context.Context, taskID string) error {
	var errs []error
	for _, typ := range job.Types() {
		p, err := path(taskID, typ)
		if err != nil {
			return cerr.WrapStorageDeleteError("job", err)
		}
		if err := r.storage.Delete(ctx, p); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return cerr.WrapStorageDeleteError("job", err)
	}
	return nil
}

func marshal(rec *job.Record) ([]byte, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal job: %w", err))
	}
	return data, nil
}

func unmarshal(data []byte) (*job.Record, error) {
	var rec job.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal job: %w", err))
	}
	return &rec, nil
}
