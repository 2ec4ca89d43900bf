package main

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
)

type fakeTasks struct {
	boardv1.TaskServiceClient

	comment *boardv1.AddCommentRequest
	update  *boardv1.UpdateTaskRequest
	chat    *boardv1.ListChatRequest
	moveErr error
}

func (f *fakeTasks) GetTask(_ context.Context, req *connect.Request[boardv1.GetTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	return connect.NewResponse(&boardv1.TaskResponse{Task: &boardv1.Task{ID: req.Msg.ID, Title: "Add login", Refinement: "1. add form"}}), nil
}

func (f *fakeTasks) ListChat(_ context.Context, req *connect.Request[boardv1.ListChatRequest]) (*connect.Response[boardv1.ListChatResponse], error) {
	f.chat = req.Msg
	return connect.NewResponse(&boardv1.ListChatResponse{Entries: []*boardv1.ChatEntry{{ID: "C1", Role: "user", Content: "use oauth"}}}), nil
}

func (f *fakeTasks) ListTasks(_ context.Context, req *connect.Request[boardv1.ListTasksRequest]) (*connect.Response[boardv1.ListTasksResponse], error) {
	return connect.NewResponse(&boardv1.ListTasksResponse{Tasks: []*boardv1.Task{
		{ID: "T1", Title: "one", Status: req.Msg.Status},
		{ID: "T2", Title: "two", Status: req.Msg.Status},
	}}), nil
}

func (f *fakeTasks) AddComment(_ context.Context, req *connect.Request[boardv1.AddCommentRequest]) (*connect.Response[boardv1.AddCommentResponse], error) {
	f.comment = req.Msg
	return connect.NewResponse(&boardv1.AddCommentResponse{Comment: &boardv1.Comment{ID: "CM1", Author: req.Msg.Author, Content: req.Msg.Content}}), nil
}

func (f *fakeTasks) UpdateTask(_ context.Context, req *connect.Request[boardv1.UpdateTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	f.update = req.Msg
	return connect.NewResponse(&boardv1.TaskResponse{Task: &boardv1.Task{ID: req.Msg.ID}}), nil
}

func (f *fakeTasks) MoveTask(context.Context, *connect.Request[boardv1.MoveTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	return nil, f.moveErr
}

func text(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestTools_GetTaskIncludesChat(t *testing.T) {
	fake := &fakeTasks{}
	tl := &tools{tasks: fake, agentID: "agent-1"}

	res, err := tl.GetTask(context.Background(), nil, &mcp.CallToolParamsFor[GetTaskInput]{Arguments: GetTaskInput{ID: "T1"}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "1. add form")
	assert.Contains(t, out, "use oauth")
	assert.Equal(t, defaultChatLimit, fake.chat.Limit)
}

func TestTools_ListTasks(t *testing.T) {
	tl := &tools{tasks: &fakeTasks{}}
	res, err := tl.ListTasks(context.Background(), nil, &mcp.CallToolParamsFor[ListTasksInput]{Arguments: ListTasksInput{Status: "todo"}})
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, `"total": 2`)
	assert.Contains(t, out, `"status": "todo"`)
}

func TestTools_AddCommentUsesAgentID(t *testing.T) {
	fake := &fakeTasks{}
	tl := &tools{tasks: fake, agentID: "agent-1"}

	res, err := tl.AddComment(context.Background(), nil, &mcp.CallToolParamsFor[AddCommentInput]{Arguments: AddCommentInput{ID: "T1", Content: "halfway"}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotNil(t, fake.comment)
	assert.Equal(t, "agent-1", fake.comment.Author)
	assert.Equal(t, "halfway", fake.comment.Content)
}

func TestTools_UpdateTaskOnlySetsGivenFields(t *testing.T) {
	fake := &fakeTasks{}
	tl := &tools{tasks: fake}
	branch := "feature/login"

	_, err := tl.UpdateTask(context.Background(), nil, &mcp.CallToolParamsFor[UpdateTaskInput]{Arguments: UpdateTaskInput{ID: "T1", Branch: &branch}})
	require.NoError(t, err)
	require.NotNil(t, fake.update)
	assert.Equal(t, "feature/login", *fake.update.Branch)
	assert.Nil(t, fake.update.Description)
}

func TestTools_BoardErrorsBecomeToolErrors(t *testing.T) {
	fake := &fakeTasks{moveErr: connect.NewError(connect.CodeFailedPrecondition, errors.New("transition backlog -> done is not allowed"))}
	tl := &tools{tasks: fake}

	res, err := tl.MoveTask(context.Background(), nil, &mcp.CallToolParamsFor[MoveTaskInput]{Arguments: MoveTaskInput{ID: "T1", Status: "done"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "not allowed")
}
