package task_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/chat"
	chatrepo "github.com/kazz187/agentboard/internal/chat/repositoryimpl"
	"github.com/kazz187/agentboard/internal/task"
	"github.com/kazz187/agentboard/pkg/cerr"
	"github.com/kazz187/agentboard/pkg/storage"
)

func newTaskClient(t *testing.T) boardv1.TaskServiceClient {
	t.Helper()
	f := newFixture(t)
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	chatSvc := chat.NewService(chatrepo.NewYAMLRepository(s))

	mux := http.NewServeMux()
	mux.Handle(boardv1.NewTaskServiceHandler(task.NewServer(f.svc, chatSvc),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor())))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return boardv1.NewTaskServiceClient(srv.Client(), srv.URL)
}

func TestServer_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTaskClient(t)

	created, err := client.CreateTask(ctx, connect.NewRequest(&boardv1.CreateTaskRequest{Title: "Fix login bug", AssignedAgentID: "agent-1"}))
	require.NoError(t, err)
	id := created.Msg.Task.ID
	assert.Equal(t, "backlog", created.Msg.Task.Status)

	moved, err := client.MoveTask(ctx, connect.NewRequest(&boardv1.MoveTaskRequest{ID: id, Status: "refinement"}))
	require.NoError(t, err)
	assert.Equal(t, "refinement", moved.Msg.Task.Status)

	_, err = client.MoveTask(ctx, connect.NewRequest(&boardv1.MoveTaskRequest{ID: id, Status: "done"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.MoveTask(ctx, connect.NewRequest(&boardv1.MoveTaskRequest{ID: id, Status: "archived"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	board, err := client.ListTasksByStatus(ctx, connect.NewRequest(&boardv1.ListTasksByStatusRequest{}))
	require.NoError(t, err)
	require.Len(t, board.Msg.Columns, 7)
	assert.Equal(t, "refinement", board.Msg.Columns[1].Status)
	require.Len(t, board.Msg.Columns[1].Tasks, 1)

	posted, err := client.PostChat(ctx, connect.NewRequest(&boardv1.PostChatRequest{TaskID: id, Content: "mind the session cookie"}))
	require.NoError(t, err)
	assert.Equal(t, "human", posted.Msg.Entry.Role)

	transcript, err := client.ListChat(ctx, connect.NewRequest(&boardv1.ListChatRequest{TaskID: id}))
	require.NoError(t, err)
	assert.Len(t, transcript.Msg.Entries, 1)

	deleted, err := client.DeleteTask(ctx, connect.NewRequest(&boardv1.DeleteTaskRequest{ID: id}))
	require.NoError(t, err)
	assert.True(t, deleted.Msg.Deleted)

	_, err = client.GetTask(ctx, connect.NewRequest(&boardv1.GetTaskRequest{ID: id}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestServer_ValidationErrorCarriesFieldDetail(t *testing.T) {
	client := newTaskClient(t)

	_, err := client.CreateTask(context.Background(), connect.NewRequest(&boardv1.CreateTaskRequest{}))
	var connectErr *connect.Error
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, connect.CodeInvalidArgument, connectErr.Code())
	assert.NotEmpty(t, connectErr.Details())
}
