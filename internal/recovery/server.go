package recovery

import (
	"context"

	"connectrpc.com/connect"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/job"
)

var _ boardv1.RecoveryServiceHandler = (*Server)(nil)

type Server struct {
	scanner *Scanner
}

func NewServer(scanner *Scanner) *Server {
	return &Server{scanner: scanner}
}

func (s *Server) ScanStuckJobs(ctx context.Context, _ *connect.Request[boardv1.ScanStuckJobsRequest]) (*connect.Response[boardv1.ScanStuckJobsResponse], error) {
	stuck, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]*boardv1.JobRecord, len(stuck))
	for i, st := range stuck {
		jobs[i] = job.ToMessage(st.Record)
	}
	return connect.NewResponse(&boardv1.ScanStuckJobsResponse{Jobs: jobs}), nil
}

func (s *Server) RecoverStuckJobs(ctx context.Context, _ *connect.Request[boardv1.RecoverStuckJobsRequest]) (*connect.Response[boardv1.RecoverStuckJobsResponse], error) {
	recovered, err := s.scanner.Recover(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.RecoverStuckJobsResponse{Recovered: recovered}), nil
}
