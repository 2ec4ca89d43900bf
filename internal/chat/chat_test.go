package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/internal/chat"
	"github.com/kazz187/agentboard/internal/chat/repositoryimpl"
	"github.com/kazz187/agentboard/pkg/cerr"
	"github.com/kazz187/agentboard/pkg/storage"
)

func newService(t *testing.T) *chat.Service {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return chat.NewService(repositoryimpl.NewYAMLRepository(s))
}

func TestService_AppendAndList(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Append(ctx, &chat.Entry{TaskID: "T1", Role: chat.RoleHuman, Content: "please look at the login form"})
	require.NoError(t, err)
	_, err = svc.Agent(ctx, "T1", "agent-1", "on it")
	require.NoError(t, err)
	_, err = svc.System(ctx, "T1", "job requeued")
	require.NoError(t, err)
	_, err = svc.System(ctx, "T2", "other task")
	require.NoError(t, err)

	entries, err := svc.List(ctx, "T1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, chat.RoleHuman, entries[0].Role)
	assert.Equal(t, "agent-1", entries[1].AgentID)
	assert.Equal(t, chat.RoleSystem, entries[2].Role)

	last, err := svc.List(ctx, "T1", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "on it", last[0].Content)
}

func TestService_AppendValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	tests := map[string]*chat.Entry{
		"missing task":  {Role: chat.RoleHuman, Content: "x"},
		"blank content": {TaskID: "T1", Role: chat.RoleHuman, Content: "  "},
		"unknown role":  {TaskID: "T1", Role: "robot", Content: "x"},
	}
	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Append(ctx, e)
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
		})
	}
}

func TestService_DeleteByTask(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for range 3 {
		_, err := svc.System(ctx, "T1", "line")
		require.NoError(t, err)
	}
	_, err := svc.System(ctx, "T2", "kept")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteByTask(ctx, "T1"))
	require.NoError(t, svc.DeleteByTask(ctx, "missing"))

	gone, err := svc.List(ctx, "T1", 0)
	require.NoError(t, err)
	assert.Empty(t, gone)
	kept, err := svc.List(ctx, "T2", 0)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
