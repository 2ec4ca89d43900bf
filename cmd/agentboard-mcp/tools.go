package main

import (
	"context"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
)

const defaultChatLimit = 20

type tools struct {
	tasks   boardv1.TaskServiceClient
	agentID string
}

func (t *tools) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "agentboard_list_tasks",
		Title:       "agentboard: List Tasks",
		Description: "List tasks on the board, optionally filtered by status, assigned agent or label.",
		InputSchema: ListTasksInputSchema,
	}, t.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agentboard_get_task",
		Title:       "agentboard: Get Task",
		Description: "Get a task with its approved plan, comments and most recent chat entries.",
		InputSchema: GetTaskInputSchema,
	}, t.GetTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agentboard_add_comment",
		Title:       "agentboard: Add Comment",
		Description: "Add a comment to a task. The comment is authored by this agent.",
		InputSchema: AddCommentInputSchema,
	}, t.AddComment)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agentboard_update_task",
		Title:       "agentboard: Update Task",
		Description: "Update a task's description or branch. Status changes go through agentboard_move_task.",
		InputSchema: UpdateTaskInputSchema,
	}, t.UpdateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agentboard_link_pull_request",
		Title:       "agentboard: Link Pull Request",
		Description: "Record the pull request opened for a task.",
		InputSchema: LinkPullRequestInputSchema,
	}, t.LinkPullRequest)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agentboard_move_task",
		Title:       "agentboard: Move Task",
		Description: "Move a task along the pipeline. Only transitions allowed by the board's pipeline succeed.",
		InputSchema: MoveTaskInputSchema,
	}, t.MoveTask)
}

func (t *tools) ListTasks(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListTasksInput]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments
	req := &boardv1.ListTasksRequest{Status: in.Status, AssignedAgentID: in.AssignedAgentID}
	if in.Label != "" {
		req.Labels = []string{in.Label}
	}
	resp, err := t.tasks.ListTasks(ctx, connect.NewRequest(req))
	if err != nil {
		return errorResult("listing tasks", err), nil
	}

	summaries := make([]map[string]any, 0, len(resp.Msg.Tasks))
	for _, task := range resp.Msg.Tasks {
		summaries = append(summaries, map[string]any{
			"id":              task.ID,
			"title":           task.Title,
			"status":          task.Status,
			"priority":        task.Priority,
			"assignedAgentId": task.AssignedAgentID,
		})
	}
	return jsonResult(map[string]any{"tasks": summaries, "total": len(summaries)}), nil
}

func (t *tools) GetTask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GetTaskInput]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments
	resp, err := t.tasks.GetTask(ctx, connect.NewRequest(&boardv1.GetTaskRequest{ID: in.ID}))
	if err != nil {
		return errorResult("getting task", err), nil
	}

	limit := in.ChatLimit
	if limit <= 0 {
		limit = defaultChatLimit
	}
	chat, err := t.tasks.ListChat(ctx, connect.NewRequest(&boardv1.ListChatRequest{TaskID: in.ID, Limit: limit}))
	if err != nil {
		return errorResult("listing chat", err), nil
	}
	return jsonResult(map[string]any{"task": resp.Msg.Task, "chat": chat.Msg.Entries}), nil
}

func (t *tools) AddComment(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[AddCommentInput]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments
	resp, err := t.tasks.AddComment(ctx, connect.NewRequest(&boardv1.AddCommentRequest{
		ID:      in.ID,
		Author:  t.agentID,
		Content: in.Content,
	}))
	if err != nil {
		return errorResult("adding comment", err), nil
	}
	return jsonResult(resp.Msg.Comment), nil
}

func (t *tools) UpdateTask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[UpdateTaskInput]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments
	resp, err := t.tasks.UpdateTask(ctx, connect.NewRequest(&boardv1.UpdateTaskRequest{
		ID:          in.ID,
		Description: in.Description,
		Branch:      in.Branch,
	}))
	if err != nil {
		return errorResult("updating task", err), nil
	}
	return jsonResult(resp.Msg.Task), nil
}

func (t *tools) LinkPullRequest(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[LinkPullRequestInput]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments
	resp, err := t.tasks.LinkPullRequest(ctx, connect.NewRequest(&boardv1.LinkPullRequestRequest{
		ID:     in.ID,
		URL:    in.URL,
		Status: in.Status,
	}))
	if err != nil {
		return errorResult("linking pull request", err), nil
	}
	return jsonResult(resp.Msg.Task), nil
}

func (t *tools) MoveTask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[MoveTaskInput]) (*mcp.CallToolResultFor[any], error) {
	in := params.Arguments
	resp, err := t.tasks.MoveTask(ctx, connect.NewRequest(&boardv1.MoveTaskRequest{ID: in.ID, Status: in.Status}))
	if err != nil {
		return errorResult("moving task", err), nil
	}
	return jsonResult(resp.Msg.Task), nil
}

func jsonResult(v any) *mcp.CallToolResultFor[any] {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encoding result", err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// errorResult reports a failed board call to the model instead of failing
// the protocol request.
func errorResult(action string, err error) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error %s: %v", action, err)}},
	}
}
