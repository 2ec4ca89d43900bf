package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	claudeagent "github.com/kazz187/claude-agent-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/internal/agentruntime"
	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/job"
)

type fakeJobs struct {
	boardv1.JobServiceClient

	mu        sync.Mutex
	acks      []*boardv1.AcknowledgeJobRequest
	completes []*boardv1.CompleteJobRequest
	ackErr    error
}

func (f *fakeJobs) AcknowledgeJob(_ context.Context, req *connect.Request[boardv1.AcknowledgeJobRequest]) (*connect.Response[boardv1.JobResponse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, req.Msg)
	if f.ackErr != nil {
		return nil, f.ackErr
	}
	return connect.NewResponse(&boardv1.JobResponse{}), nil
}

func (f *fakeJobs) CompleteJob(_ context.Context, req *connect.Request[boardv1.CompleteJobRequest]) (*connect.Response[boardv1.CompleteJobResponse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes = append(f.completes, req.Msg)
	return connect.NewResponse(&boardv1.CompleteJobResponse{}), nil
}

func (f *fakeJobs) completed() []*boardv1.CompleteJobRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*boardv1.CompleteJobRequest(nil), f.completes...)
}

func dispatch(jobType string) *boardv1.Dispatch {
	return &boardv1.Dispatch{Prompt: "# Task: build it", AgentID: "agent-1", TaskID: "01HZX3K6Q2W8D4Y7B9N5M1C0TA", JobType: jobType, TimeoutSeconds: 60}
}

func TestWorker_ExecuteReportsResult(t *testing.T) {
	jobs := &fakeJobs{}
	var gotOpts *claudeagent.ClaudeAgentOptions
	w := newWorker(workerConfig{ID: "w1", WorkDir: "/repo", PermissionMode: "bypassPermissions"}, nil, jobs,
		func(_ context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error) {
			gotOpts = opts
			return "plan: " + prompt, nil
		})

	w.execute(context.Background(), dispatch("refinement"))

	require.Len(t, jobs.acks, 1)
	assert.Equal(t, "running", jobs.acks[0].Status)
	assert.Contains(t, jobs.acks[0].SessionKey, "w1/")
	require.Len(t, jobs.completes, 1)
	assert.Equal(t, "plan: # Task: build it", jobs.completes[0].Result)
	assert.Empty(t, jobs.completes[0].Error)
	assert.Equal(t, "/repo", gotOpts.Cwd)
	assert.Equal(t, claudeagent.PermissionMode("bypassPermissions"), gotOpts.PermissionMode)
	assert.Contains(t, gotOpts.SystemPrompt, "Do not modify")
}

func TestWorker_ExecuteReportsFailure(t *testing.T) {
	jobs := &fakeJobs{}
	w := newWorker(workerConfig{ID: "w1"}, nil, jobs, func(context.Context, string, *claudeagent.ClaudeAgentOptions) (string, error) {
		return "", errors.New("rate limited")
	})

	w.execute(context.Background(), dispatch("execution"))

	require.Len(t, jobs.completes, 1)
	assert.Equal(t, "rate limited", jobs.completes[0].Error)
	assert.Equal(t, "execution", jobs.completes[0].Type)
}

func TestWorker_EmptyPlanIsReportedAsFailure(t *testing.T) {
	jobs := &fakeJobs{}
	w := newWorker(workerConfig{ID: "w1"}, nil, jobs, func(context.Context, string, *claudeagent.ClaudeAgentOptions) (string, error) {
		return " \n", nil
	})

	w.execute(context.Background(), dispatch("refinement"))

	require.Len(t, jobs.completes, 1)
	assert.Empty(t, jobs.completes[0].Result)
	assert.Equal(t, "agent returned an empty plan", jobs.completes[0].Error)
}

func TestWorker_SkipsUnacknowledgedJob(t *testing.T) {
	jobs := &fakeJobs{ackErr: connect.NewError(connect.CodeFailedPrecondition, errors.New("job already done"))}
	called := false
	w := newWorker(workerConfig{ID: "w1"}, nil, jobs, func(context.Context, string, *claudeagent.ClaudeAgentOptions) (string, error) {
		called = true
		return "", nil
	})

	w.execute(context.Background(), dispatch("execution"))
	assert.False(t, called)
	assert.Empty(t, jobs.completes)
}

func TestWorker_RunsDispatchesFromServer(t *testing.T) {
	registry := agentruntime.NewRegistry()
	_, handler := boardv1.NewRuntimeServiceHandler(agentruntime.NewServer(registry))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	jobs := &fakeJobs{}
	release := make(chan struct{})
	w := newWorker(workerConfig{ID: "agent-1", MaxConcurrent: 1},
		boardv1.NewRuntimeServiceClient(srv.Client(), srv.URL), jobs,
		func(ctx context.Context, prompt string, _ *claudeagent.ClaudeAgentOptions) (string, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			return "done " + prompt, nil
		})
	w.reconnectAfter = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, registry.Dispatch(ctx, &job.DispatchRequest{TaskID: "T1", JobType: job.TypeExecution, Prompt: "p1", AgentID: "agent-1"}))

	require.Eventually(t, func() bool { return w.active.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	close(release)
	require.Eventually(t, func() bool { return len(jobs.completed()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "done p1", jobs.completed()[0].Result)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Len(t, jobs.completed(), 1, "the registration message is not run as a job")
}
