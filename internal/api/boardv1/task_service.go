package boardv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const TaskServiceName = "agentboard.v1.TaskService"

const (
	TaskServiceCreateTaskProcedure        = "/agentboard.v1.TaskService/CreateTask"
	TaskServiceGetTaskProcedure           = "/agentboard.v1.TaskService/GetTask"
	TaskServiceListTasksProcedure         = "/agentboard.v1.TaskService/ListTasks"
	TaskServiceListTasksByStatusProcedure = "/agentboard.v1.TaskService/ListTasksByStatus"
	TaskServiceUpdateTaskProcedure        = "/agentboard.v1.TaskService/UpdateTask"
	TaskServiceMoveTaskProcedure          = "/agentboard.v1.TaskService/MoveTask"
	TaskServiceAssignTaskProcedure        = "/agentboard.v1.TaskService/AssignTask"
	TaskServiceAddCommentProcedure        = "/agentboard.v1.TaskService/AddComment"
	TaskServiceLinkPullRequestProcedure   = "/agentboard.v1.TaskService/LinkPullRequest"
	TaskServiceDeleteTaskProcedure        = "/agentboard.v1.TaskService/DeleteTask"
	TaskServiceListChatProcedure          = "/agentboard.v1.TaskService/ListChat"
	TaskServicePostChatProcedure          = "/agentboard.v1.TaskService/PostChat"
)

type TaskServiceHandler interface {
	CreateTask(context.Context, *connect.Request[CreateTaskRequest]) (*connect.Response[TaskResponse], error)
	GetTask(context.Context, *connect.Request[GetTaskRequest]) (*connect.Response[TaskResponse], error)
	ListTasks(context.Context, *connect.Request[ListTasksRequest]) (*connect.Response[ListTasksResponse], error)
	ListTasksByStatus(context.Context, *connect.Request[ListTasksByStatusRequest]) (*connect.Response[ListTasksByStatusResponse], error)
	UpdateTask(context.Context, *connect.Request[UpdateTaskRequest]) (*connect.Response[TaskResponse], error)
	MoveTask(context.Context, *connect.Request[MoveTaskRequest]) (*connect.Response[TaskResponse], error)
	AssignTask(context.Context, *connect.Request[AssignTaskRequest]) (*connect.Response[TaskResponse], error)
	AddComment(context.Context, *connect.Request[AddCommentRequest]) (*connect.Response[AddCommentResponse], error)
	LinkPullRequest(context.Context, *connect.Request[LinkPullRequestRequest]) (*connect.Response[TaskResponse], error)
	DeleteTask(context.Context, *connect.Request[DeleteTaskRequest]) (*connect.Response[DeleteTaskResponse], error)
	ListChat(context.Context, *connect.Request[ListChatRequest]) (*connect.Response[ListChatResponse], error)
	PostChat(context.Context, *connect.Request[PostChatRequest]) (*connect.Response[PostChatResponse], error)
}

func NewTaskServiceHandler(svc TaskServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	unary(mux, TaskServiceCreateTaskProcedure, svc.CreateTask, opts)
	unary(mux, TaskServiceGetTaskProcedure, svc.GetTask, opts)
	unary(mux, TaskServiceListTasksProcedure, svc.ListTasks, opts)
	unary(mux, TaskServiceListTasksByStatusProcedure, svc.ListTasksByStatus, opts)
	unary(mux, TaskServiceUpdateTaskProcedure, svc.UpdateTask, opts)
	unary(mux, TaskServiceMoveTaskProcedure, svc.MoveTask, opts)
	unary(mux, TaskServiceAssignTaskProcedure, svc.AssignTask, opts)
	unary(mux, TaskServiceAddCommentProcedure, svc.AddComment, opts)
	unary(mux, TaskServiceLinkPullRequestProcedure, svc.LinkPullRequest, opts)
	unary(mux, TaskServiceDeleteTaskProcedure, svc.DeleteTask, opts)
	unary(mux, TaskServiceListChatProcedure, svc.ListChat, opts)
	unary(mux, TaskServicePostChatProcedure, svc.PostChat, opts)
	return "/" + TaskServiceName + "/", mux
}

type TaskServiceClient = TaskServiceHandler

type taskServiceClient struct {
	createTask        *connect.Client[CreateTaskRequest, TaskResponse]
	getTask           *connect.Client[GetTaskRequest, TaskResponse]
	listTasks         *connect.Client[ListTasksRequest, ListTasksResponse]
	listTasksByStatus *connect.Client[ListTasksByStatusRequest, ListTasksByStatusResponse]
	updateTask        *connect.Client[UpdateTaskRequest, TaskResponse]
	moveTask          *connect.Client[MoveTaskRequest, TaskResponse]
	assignTask        *connect.Client[AssignTaskRequest, TaskResponse]
	addComment        *connect.Client[AddCommentRequest, AddCommentResponse]
	linkPullRequest   *connect.Client[LinkPullRequestRequest, TaskResponse]
	deleteTask        *connect.Client[DeleteTaskRequest, DeleteTaskResponse]
	listChat          *connect.Client[ListChatRequest, ListChatResponse]
	postChat          *connect.Client[PostChatRequest, PostChatResponse]
}

func NewTaskServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) TaskServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &taskServiceClient{
		createTask:        connect.NewClient[CreateTaskRequest, TaskResponse](httpClient, baseURL+TaskServiceCreateTaskProcedure, opts...),
		getTask:           connect.NewClient[GetTaskRequest, TaskResponse](httpClient, baseURL+TaskServiceGetTaskProcedure, opts...),
		listTasks:         connect.NewClient[ListTasksRequest, ListTasksResponse](httpClient, baseURL+TaskServiceListTasksProcedure, opts...),
		listTasksByStatus: connect.NewClient[ListTasksByStatusRequest, ListTasksByStatusResponse](httpClient, baseURL+TaskServiceListTasksByStatusProcedure, opts...),
		updateTask:        connect.NewClient[UpdateTaskRequest, TaskResponse](httpClient, baseURL+TaskServiceUpdateTaskProcedure, opts...),
		moveTask:          connect.NewClient[MoveTaskRequest, TaskResponse](httpClient, baseURL+TaskServiceMoveTaskProcedure, opts...),
		assignTask:        connect.NewClient[AssignTaskRequest, TaskResponse](httpClient, baseURL+TaskServiceAssignTaskProcedure, opts...),
		addComment:        connect.NewClient[AddCommentRequest, AddCommentResponse](httpClient, baseURL+TaskServiceAddCommentProcedure, opts...),
		linkPullRequest:   connect.NewClient[LinkPullRequestRequest, TaskResponse](httpClient, baseURL+TaskServiceLinkPullRequestProcedure, opts...),
		deleteTask:        connect.NewClient[DeleteTaskRequest, DeleteTaskResponse](httpClient, baseURL+TaskServiceDeleteTaskProcedure, opts...),
		listChat:          connect.NewClient[ListChatRequest, ListChatResponse](httpClient, baseURL+TaskServiceListChatProcedure, opts...),
		postChat:          connect.NewClient[PostChatRequest, PostChatResponse](httpClient, baseURL+TaskServicePostChatProcedure, opts...),
	}
}

func (c *taskServiceClient) CreateTask(ctx context.Context, req *connect.Request[CreateTaskRequest]) (*connect.Response[TaskResponse], error) {
	return c.createTask.CallUnary(ctx, req)
}

func (c *taskServiceClient) GetTask(ctx context.Context, req *connect.Request[GetTaskRequest]) (*connect.Response[TaskResponse], error) {
	return c.getTask.CallUnary(ctx, req)
}

func (c *taskServiceClient) ListTasks(ctx context.Context, req *connect.Request[ListTasksRequest]) (*connect.Response[ListTasksResponse], error) {
	return c.listTasks.CallUnary(ctx, req)
}

func (c *taskServiceClient) ListTasksByStatus(ctx context.Context, req *connect.Request[ListTasksByStatusRequest]) (*connect.Response[ListTasksByStatusResponse], error) {
	return c.listTasksByStatus.CallUnary(ctx, req)
}

func (c *taskServiceClient) UpdateTask(ctx context.Context, req *connect.Request[UpdateTaskRequest]) (*connect.Response[TaskResponse], error) {
	return c.updateTask.CallUnary(ctx, req)
}

func (c *taskServiceClient) MoveTask(ctx context.Context, req *connect.Request[MoveTaskRequest]) (*connect.Response[TaskResponse], error) {
	return c.moveTask.CallUnary(ctx, req)
}

func (c *taskServiceClient) AssignTask(ctx context.Context, req *connect.Request[AssignTaskRequest]) (*connect.Response[TaskResponse], error) {
	return c.assignTask.CallUnary(ctx, req)
}

func (c *taskServiceClient) AddComment(ctx context.Context, req *connect.Request[AddCommentRequest]) (*connect.Response[AddCommentResponse], error) {
	return c.addComment.CallUnary(ctx, req)
}

func (c *taskServiceClient) LinkPullRequest(ctx context.Context, req *connect.Request[LinkPullRequestRequest]) (*connect.Response[TaskResponse], error) {
	return c.linkPullRequest.CallUnary(ctx, req)
}

func (c *taskServiceClient) DeleteTask(ctx context.Context, req *connect.Request[DeleteTaskRequest]) (*connect.Response[DeleteTaskResponse], error) {
	return c.deleteTask.CallUnary(ctx, req)
}

func (c *taskServiceClient) ListChat(ctx context.Context, req *connect.Request[ListChatRequest]) (*connect.Response[ListChatResponse], error) {
	return c.listChat.CallUnary(ctx, req)
}

func (c *taskServiceClient) PostChat(ctx context.Context, req *connect.Request[PostChatRequest]) (*connect.Response[PostChatResponse], error) {
	return c.postChat.CallUnary(ctx, req)
}

func unary[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}
