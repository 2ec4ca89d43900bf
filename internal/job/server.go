package job

import (
	"context"

	"connectrpc.com/connect"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
)

var _ boardv1.JobServiceHandler = (*Server)(nil)

type Server struct {
	tracker        *Tracker
	defaultAgentID string
}

func NewServer(tracker *Tracker, defaultAgentID string) *Server {
	return &Server{tracker: tracker, defaultAgentID: defaultAgentID}
}

func (s *Server) StartJob(ctx context.Context, req *connect.Request[boardv1.StartJobRequest]) (*connect.Response[boardv1.JobResponse], error) {
	typ, err := ParseType(req.Msg.Type)
	if err != nil {
		return nil, err
	}
	agentID := req.Msg.AgentID
	if agentID == "" {
		agentID = s.defaultAgentID
	}
	rec, err := s.tracker.Start(ctx, req.Msg.TaskID, typ, agentID, req.Msg.Prompt)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.JobResponse{Job: ToMessage(rec)}), nil
}

func (s *Server) PollJob(ctx context.Context, req *connect.Request[boardv1.PollJobRequest]) (*connect.Response[boardv1.JobResponse], error) {
	typ, err := ParseType(req.Msg.Type)
	if err != nil {
		return nil, err
	}
	rec, err := s.tracker.Poll(ctx, req.Msg.TaskID, typ)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.JobResponse{Job: ToMessage(rec)}), nil
}

func (s *Server) AcknowledgeJob(ctx context.Context, req *connect.Request[boardv1.AcknowledgeJobRequest]) (*connect.Response[boardv1.JobResponse], error) {
	typ, err := ParseType(req.Msg.Type)
	if err != nil {
		return nil, err
	}
	rec, err := s.tracker.Acknowledge(ctx, AcknowledgeInput{
		TaskID:     req.Msg.TaskID,
		Type:       typ,
		AgentID:    req.Msg.AgentID,
		SessionKey: req.Msg.SessionKey,
		Status:     Status(req.Msg.Status),
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.JobResponse{Job: ToMessage(rec)}), nil
}

func (s *Server) CompleteJob(ctx context.Context, req *connect.Request[boardv1.CompleteJobRequest]) (*connect.Response[boardv1.CompleteJobResponse], error) {
	typ, err := ParseType(req.Msg.Type)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Complete(ctx, CompleteInput{
		TaskID:  req.Msg.TaskID,
		Type:    typ,
		AgentID: req.Msg.AgentID,
		Result:  req.Msg.Result,
		Error:   req.Msg.Error,
	}); err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.CompleteJobResponse{}), nil
}

func ToMessage(r *Record) *boardv1.JobRecord {
	return &boardv1.JobRecord{
		Status:      string(r.Status),
		AgentID:     r.AgentID,
		TaskID:      r.TaskID,
		Type:        string(r.Type),
		Prompt:      r.Prompt,
		SessionKey:  r.SessionKey,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Summary:     r.Summary,
		Error:       r.Error,
		Attempt:     r.Attempt,
	}
}
