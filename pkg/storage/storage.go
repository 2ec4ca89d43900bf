package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrVersionMismatch is returned by WriteIfMatch when the stored object has
// changed since the caller read it (or exists when the caller expected none).
var ErrVersionMismatch = errors.New("version mismatch")

// Storage provides an abstraction over key-value style file storage.
//
// Versions are opaque tokens. An empty version passed to WriteIfMatch means
// the path must not exist yet.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	ReadVersion(ctx context.Context, path string) ([]byte, string, error)
	Write(ctx context.Context, path string, data []byte) error
	WriteIfMatch(ctx context.Context, path string, data []byte, version string) (string, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ErrInvalidName is returned by CheckName for a path element that could
// address a file outside its own directory.
var ErrInvalidName = errors.New("invalid name")

// CheckName rejects an empty path element or one containing a separator or
// "..". Repositories call it on every id before building a storage path.
func CheckName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
