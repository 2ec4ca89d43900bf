package agentruntime

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/pkg/cerr"
)

var _ boardv1.RuntimeServiceHandler = (*Server)(nil)

type Server struct {
	registry *Registry
}

func NewServer(registry *Registry) *Server {
	return &Server{registry: registry}
}

func (s *Server) Subscribe(ctx context.Context, req *connect.Request[boardv1.SubscribeRequest], stream *connect.ServerStream[boardv1.Dispatch]) error {
	workerID := req.Msg.WorkerID
	if workerID == "" {
		return cerr.NewValidationError("worker_id", "worker id is required")
	}

	slog.InfoContext(ctx, "worker connected", "worker_id", workerID, "max_concurrent_jobs", req.Msg.MaxConcurrentJobs)

	ch := s.registry.Register(workerID, req.Msg.MaxConcurrentJobs)
	defer func() {
		s.registry.Unregister(workerID, ch)
		slog.InfoContext(ctx, "worker disconnected", "worker_id", workerID)
	}()

	// Flushes the response headers so the client's Subscribe call returns.
	if err := stream.Send(&boardv1.Dispatch{Registered: true}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(d); err != nil {
				return err
			}
		}
	}
}

func (s *Server) Heartbeat(_ context.Context, req *connect.Request[boardv1.HeartbeatRequest]) (*connect.Response[boardv1.HeartbeatResponse], error) {
	if req.Msg.WorkerID == "" {
		return nil, cerr.NewValidationError("worker_id", "worker id is required")
	}
	known := s.registry.UpdateHeartbeat(req.Msg.WorkerID, req.Msg.ActiveJobs)
	return connect.NewResponse(&boardv1.HeartbeatResponse{Known: known}), nil
}
