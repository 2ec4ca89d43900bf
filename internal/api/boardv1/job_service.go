package boardv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	JobServiceName      = "agentboard.v1.JobService"
	RecoveryServiceName = "agentboard.v1.RecoveryService"
)

const (
	JobServiceStartJobProcedure       = "/agentboard.v1.JobService/StartJob"
	JobServicePollJobProcedure        = "/agentboard.v1.JobService/PollJob"
	JobServiceAcknowledgeJobProcedure = "/agentboard.v1.JobService/AcknowledgeJob"
	JobServiceCompleteJobProcedure    = "/agentboard.v1.JobService/CompleteJob"

	RecoveryServiceScanStuckJobsProcedure    = "/agentboard.v1.RecoveryService/ScanStuckJobs"
	RecoveryServiceRecoverStuckJobsProcedure = "/agentboard.v1.RecoveryService/RecoverStuckJobs"
)

type JobServiceHandler interface {
	StartJob(context.Context, *connect.Request[StartJobRequest]) (*connect.Response[JobResponse], error)
	PollJob(context.Context, *connect.Request[PollJobRequest]) (*connect.Response[JobResponse], error)
	AcknowledgeJob(context.Context, *connect.Request[AcknowledgeJobRequest]) (*connect.Response[JobResponse], error)
	CompleteJob(context.Context, *connect.Request[CompleteJobRequest]) (*connect.Response[CompleteJobResponse], error)
}

func NewJobServiceHandler(svc JobServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	unary(mux, JobServiceStartJobProcedure, svc.StartJob, opts)
	unary(mux, JobServicePollJobProcedure, svc.PollJob, opts)
	unary(mux, JobServiceAcknowledgeJobProcedure, svc.AcknowledgeJob, opts)
	unary(mux, JobServiceCompleteJobProcedure, svc.CompleteJob, opts)
	return "/" + JobServiceName + "/", mux
}

type JobServiceClient = JobServiceHandler

type jobServiceClient struct {
	startJob       *connect.Client[StartJobRequest, JobResponse]
	pollJob        *connect.Client[PollJobRequest, JobResponse]
	acknowledgeJob *connect.Client[AcknowledgeJobRequest, JobResponse]
	completeJob    *connect.Client[CompleteJobRequest, CompleteJobResponse]
}

func NewJobServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) JobServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &jobServiceClient{
		startJob:       connect.NewClient[StartJobRequest, JobResponse](httpClient, baseURL+JobServiceStartJobProcedure, opts...),
		pollJob:        connect.NewClient[PollJobRequest, JobResponse](httpClient, baseURL+JobServicePollJobProcedure, opts...),
		acknowledgeJob: connect.NewClient[AcknowledgeJobRequest, JobResponse](httpClient, baseURL+JobServiceAcknowledgeJobProcedure, opts...),
		completeJob:    connect.NewClient[CompleteJobRequest, CompleteJobResponse](httpClient, baseURL+JobServiceCompleteJobProcedure, opts...),
	}
}

func (c *jobServiceClient) StartJob(ctx context.Context, req *connect.Request[StartJobRequest]) (*connect.Response[JobResponse], error) {
	return c.startJob.CallUnary(ctx, req)
}

func (c *jobServiceClient) PollJob(ctx context.Context, req *connect.Request[PollJobRequest]) (*connect.Response[JobResponse], error) {
	return c.pollJob.CallUnary(ctx, req)
}

func (c *jobServiceClient) AcknowledgeJob(ctx context.Context, req *connect.Request[AcknowledgeJobRequest]) (*connect.Response[JobResponse], error) {
	return c.acknowledgeJob.CallUnary(ctx, req)
}

func (c *jobServiceClient) CompleteJob(ctx context.Context, req *connect.Request[CompleteJobRequest]) (*connect.Response[CompleteJobResponse], error) {
	return c.completeJob.CallUnary(ctx, req)
}

type RecoveryServiceHandler interface {
	ScanStuckJobs(context.Context, *connect.Request[ScanStuckJobsRequest]) (*connect.Response[ScanStuckJobsResponse], error)
	RecoverStuckJobs(context.Context, *connect.Request[RecoverStuckJobsRequest]) (*connect.Response[RecoverStuckJobsResponse], error)
}

func NewRecoveryServiceHandler(svc RecoveryServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	unary(mux, RecoveryServiceScanStuckJobsProcedure, svc.ScanStuckJobs, opts)
	unary(mux, RecoveryServiceRecoverStuckJobsProcedure, svc.RecoverStuckJobs, opts)
	return "/" + RecoveryServiceName + "/", mux
}

type RecoveryServiceClient = RecoveryServiceHandler

type recoveryServiceClient struct {
	scan        *connect.Client[ScanStuckJobsRequest, ScanStuckJobsResponse]
	recoverJobs *connect.Client[RecoverStuckJobsRequest, RecoverStuckJobsResponse]
}

func NewRecoveryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RecoveryServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &recoveryServiceClient{
		scan:        connect.NewClient[ScanStuckJobsRequest, ScanStuckJobsResponse](httpClient, baseURL+RecoveryServiceScanStuckJobsProcedure, opts...),
		recoverJobs: connect.NewClient[RecoverStuckJobsRequest, RecoverStuckJobsResponse](httpClient, baseURL+RecoveryServiceRecoverStuckJobsProcedure, opts...),
	}
}

func (c *recoveryServiceClient) ScanStuckJobs(ctx context.Context, req *connect.Request[ScanStuckJobsRequest]) (*connect.Response[ScanStuckJobsResponse], error) {
	return c.scan.CallUnary(ctx, req)
}

func (c *recoveryServiceClient) RecoverStuckJobs(ctx context.Context, req *connect.Request[RecoverStuckJobsRequest]) (*connect.Response[RecoverStuckJobsResponse], error) {
	return c.recoverJobs.CallUnary(ctx, req)
}
