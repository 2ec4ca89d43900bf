package task

import (
	"context"
	"slices"

	"connectrpc.com/connect"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/chat"
	"github.com/kazz187/agentboard/internal/pipeline"
)

var _ boardv1.TaskServiceHandler = (*Server)(nil)

type Server struct {
	svc  *Service
	chat *chat.Service
}

func NewServer(svc *Service, chatSvc *chat.Service) *Server {
	return &Server{svc: svc, chat: chatSvc}
}

func (s *Server) CreateTask(ctx context.Context, req *connect.Request[boardv1.CreateTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	t, err := s.svc.Create(ctx, CreateInput{
		Title:           req.Msg.Title,
		Description:     req.Msg.Description,
		Status:          req.Msg.Status,
		Priority:        req.Msg.Priority,
		AssignedAgentID: req.Msg.AssignedAgentID,
		ProjectID:       req.Msg.ProjectID,
		Branch:          req.Msg.Branch,
		Labels:          req.Msg.Labels,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.TaskResponse{Task: ToMessage(t)}), nil
}

func (s *Server) GetTask(ctx context.Context, req *connect.Request[boardv1.GetTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	t, err := s.svc.Get(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.TaskResponse{Task: ToMessage(t)}), nil
}

func (s *Server) ListTasks(ctx context.Context, req *connect.Request[boardv1.ListTasksRequest]) (*connect.Response[boardv1.ListTasksResponse], error) {
	f := Filter{
		AssignedAgentID: req.Msg.AssignedAgentID,
		Labels:          req.Msg.Labels,
	}
	if req.Msg.Status != "" {
		st, err := pipeline.Parse(req.Msg.Status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	if req.Msg.Priority != "" {
		p, err := ParsePriority(req.Msg.Priority)
		if err != nil {
			return nil, err
		}
		f.Priority = p
	}
	tasks, err := s.svc.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.ListTasksResponse{Tasks: toMessages(tasks)}), nil
}

func (s *Server) ListTasksByStatus(ctx context.Context, _ *connect.Request[boardv1.ListTasksByStatusRequest]) (*connect.Response[boardv1.ListTasksByStatusResponse], error) {
	grouped, err := s.svc.ListByStatus(ctx)
	if err != nil {
		return nil, err
	}
	columns := make([]boardv1.Column, 0, len(grouped))
	for _, st := range pipeline.Statuses() {
		columns = append(columns, boardv1.Column{Status: st.String(), Tasks: toMessages(grouped[st])})
	}
	return connect.NewResponse(&boardv1.ListTasksByStatusResponse{Columns: columns}), nil
}

func (s *Server) UpdateTask(ctx context.Context, req *connect.Request[boardv1.UpdateTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	t, err := s.svc.Update(ctx, req.Msg.ID, UpdateInput{
		Title:       req.Msg.Title,
		Description: req.Msg.Description,
		Priority:    req.Msg.Priority,
		ProjectID:   req.Msg.ProjectID,
		Branch:      req.Msg.Branch,
		Labels:      req.Msg.Labels,
		Refinement:  req.Msg.Refinement,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.TaskResponse{Task: ToMessage(t)}), nil
}

func (s *Server) MoveTask(ctx context.Context, req *connect.Request[boardv1.MoveTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	target, err := pipeline.Parse(req.Msg.Status)
	if err != nil {
		return nil, err
	}
	t, err := s.svc.Move(ctx, req.Msg.ID, target, req.Msg.SortOrder)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.TaskResponse{Task: ToMessage(t)}), nil
}

func (s *Server) AssignTask(ctx context.Context, req *connect.Request[boardv1.AssignTaskRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	t, err := s.svc.Assign(ctx, req.Msg.ID, req.Msg.AgentID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.TaskResponse{Task: ToMessage(t)}), nil
}

func (s *Server) AddComment(ctx context.Context, req *connect.Request[boardv1.AddCommentRequest]) (*connect.Response[boardv1.AddCommentResponse], error) {
	c, err := s.svc.AddComment(ctx, req.Msg.ID, req.Msg.Author, req.Msg.Content)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.AddCommentResponse{Comment: toCommentMessage(*c)}), nil
}

func (s *Server) LinkPullRequest(ctx context.Context, req *connect.Request[boardv1.LinkPullRequestRequest]) (*connect.Response[boardv1.TaskResponse], error) {
	t, err := s.svc.LinkPullRequest(ctx, req.Msg.ID, req.Msg.URL, req.Msg.Status)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.TaskResponse{Task: ToMessage(t)}), nil
}

func (s *Server) DeleteTask(ctx context.Context, req *connect.Request[boardv1.DeleteTaskRequest]) (*connect.Response[boardv1.DeleteTaskResponse], error) {
	deleted, err := s.svc.Delete(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.DeleteTaskResponse{Deleted: deleted}), nil
}

func (s *Server) ListChat(ctx context.Context, req *connect.Request[boardv1.ListChatRequest]) (*connect.Response[boardv1.ListChatResponse], error) {
	if _, err := s.svc.Get(ctx, req.Msg.TaskID); err != nil {
		return nil, err
	}
	entries, err := s.chat.List(ctx, req.Msg.TaskID, req.Msg.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]*boardv1.ChatEntry, len(entries))
	for i, e := range entries {
		out[i] = chat.ToMessage(e)
	}
	return connect.NewResponse(&boardv1.ListChatResponse{Entries: out}), nil
}

func (s *Server) PostChat(ctx context.Context, req *connect.Request[boardv1.PostChatRequest]) (*connect.Response[boardv1.PostChatResponse], error) {
	if _, err := s.svc.Get(ctx, req.Msg.TaskID); err != nil {
		return nil, err
	}
	e, err := s.chat.Append(ctx, &chat.Entry{
		TaskID:      req.Msg.TaskID,
		Role:        chat.RoleHuman,
		Content:     req.Msg.Content,
		Attachments: req.Msg.Attachments,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.PostChatResponse{Entry: chat.ToMessage(e)}), nil
}

func ToMessage(t *Task) *boardv1.Task {
	msg := &boardv1.Task{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status.String(),
		Priority:        string(t.Priority),
		AssignedAgentID: t.AssignedAgentID,
		ProjectID:       t.ProjectID,
		Branch:          t.Branch,
		Labels:          slices.Clone(t.Labels),
		Refinement:      t.Refinement,
		SortOrder:       t.SortOrder,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.PullRequest != nil {
		msg.PullRequest = &boardv1.PullRequest{URL: t.PullRequest.URL, Status: t.PullRequest.Status}
	}
	for _, c := range t.Comments {
		msg.Comments = append(msg.Comments, *toCommentMessage(c))
	}
	return msg
}

func toMessages(tasks []*Task) []*boardv1.Task {
	out := make([]*boardv1.Task, len(tasks))
	for i, t := range tasks {
		out[i] = ToMessage(t)
	}
	return out
}

func toCommentMessage(c Comment) *boardv1.Comment {
	return &boardv1.Comment{
		ID:        c.ID,
		Author:    c.Author,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
