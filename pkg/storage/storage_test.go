package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	lite, err := NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]Storage{"local": local, "sqlite": lite}
}

func TestStorage_ReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Read(ctx, "tasks/a.yaml")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Write(ctx, "tasks/a.yaml", []byte("one")))
			data, err := s.Read(ctx, "tasks/a.yaml")
			require.NoError(t, err)
			assert.Equal(t, "one", string(data))

			ok, err := s.Exists(ctx, "tasks/a.yaml")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Delete(ctx, "tasks/a.yaml"))
			require.ErrorIs(t, s.Delete(ctx, "tasks/a.yaml"), ErrNotFound)

			ok, err = s.Exists(ctx, "tasks/a.yaml")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStorage_WriteIfMatch(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v1, err := s.WriteIfMatch(ctx, "jobs/x.yaml", []byte("first"), "")
			require.NoError(t, err)

			_, err = s.WriteIfMatch(ctx, "jobs/x.yaml", []byte("again"), "")
			require.ErrorIs(t, err, ErrVersionMismatch, "create must fail when the path exists")

			data, got, err := s.ReadVersion(ctx, "jobs/x.yaml")
			require.NoError(t, err)
			assert.Equal(t, "first", string(data))
			assert.Equal(t, v1, got)

			v2, err := s.WriteIfMatch(ctx, "jobs/x.yaml", []byte("second"), v1)
			require.NoError(t, err)
			assert.NotEqual(t, v1, v2)

			_, err = s.WriteIfMatch(ctx, "jobs/x.yaml", []byte("stale"), v1)
			require.ErrorIs(t, err, ErrVersionMismatch)

			data, err = s.Read(ctx, "jobs/x.yaml")
			require.NoError(t, err)
			assert.Equal(t, "second", string(data))

			_, err = s.WriteIfMatch(ctx, "jobs/missing.yaml", []byte("x"), v2)
			require.ErrorIs(t, err, ErrVersionMismatch)
		})
	}
}

func TestStorage_ListIsNotRecursive(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, "chat/t1/a.yaml", []byte("a")))
			require.NoError(t, s.Write(ctx, "chat/t1/b.yaml", []byte("b")))
			require.NoError(t, s.Write(ctx, "chat/t2/c.yaml", []byte("c")))
			require.NoError(t, s.Write(ctx, "chat/top.yaml", []byte("top")))

			paths, err := s.List(ctx, "chat/t1")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"chat/t1/a.yaml", "chat/t1/b.yaml"}, paths)

			paths, err = s.List(ctx, "chat")
			require.NoError(t, err)
			assert.Equal(t, []string{"chat/top.yaml"}, paths)

			paths, err = s.List(ctx, "nothing")
			require.NoError(t, err)
			assert.Empty(t, paths)
		})
	}
}

func TestListDirect(t *testing.T) {
	keys := []string{"tasks/a.yaml", "tasks/sub/b.yaml", "tasksx/c.yaml", "tasks/"}
	assert.Equal(t, []string{"tasks/a.yaml"}, listDirect("tasks", keys))
	assert.Equal(t, []string{"tasks/a.yaml"}, listDirect("tasks/", keys))
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"01HZX3K6Q2W8D4Y7B9N5M1C0TA", "T1", "abc_execution", "a.b"} {
		assert.NoError(t, CheckName(name), name)
	}
	for _, name := range []string{"", "..", "../jobs/x_execution", "a/b", `a\b`, "x..y"} {
		assert.ErrorIs(t, CheckName(name), ErrInvalidName, name)
	}
}
