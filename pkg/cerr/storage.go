package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/agentboard/pkg/storage"
)

func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, storage.ErrInvalidName) {
		return invalidName(target, err)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to read %s: %w", target, err))
}

func WrapStorageWriteError(target string, err error) error {
	if errors.Is(err, storage.ErrInvalidName) {
		return invalidName(target, err)
	}
	if errors.Is(err, storage.ErrVersionMismatch) {
		return NewError(Aborted, fmt.Sprintf("%s was modified concurrently", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to write %s: %w", target, err))
}

func WrapStorageDeleteError(target string, err error) error {
	if errors.Is(err, storage.ErrInvalidName) {
		return invalidName(target, err)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to delete %s: %w", target, err))
}

func invalidName(target string, err error) error {
	e := NewValidationError("id", fmt.Sprintf("invalid %s id", target))
	e.Err = err
	return e
}
