package agentruntime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/job"
)

func dispatchReq(agentID string) *job.DispatchRequest {
	return &job.DispatchRequest{
		TaskID:         "T1",
		JobType:        job.TypeExecution,
		Prompt:         "# Task: build it",
		AgentID:        agentID,
		Label:          "T1:execution",
		TimeoutSeconds: 600,
	}
}

func TestRegistry_DispatchWithoutWorkers(t *testing.T) {
	r := NewRegistry()
	err := r.Dispatch(context.Background(), dispatchReq("agent-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoWorker)
	assert.ErrorIs(t, err, job.ErrRuntimeUnavailable)
}

func TestRegistry_PrefersNamedWorker(t *testing.T) {
	r := NewRegistry()
	chA := r.Register("worker-a", 2)
	chB := r.Register("agent-1", 2)
	r.UpdateHeartbeat("agent-1", 1)

	require.NoError(t, r.Dispatch(context.Background(), dispatchReq("agent-1")))
	assert.Len(t, chB, 1)
	assert.Empty(t, chA)

	d := <-chB
	assert.Equal(t, "T1", d.TaskID)
	assert.Equal(t, "execution", d.JobType)
	assert.Equal(t, "T1:execution", d.Label)
}

func TestRegistry_LeastLoadedWithCapacity(t *testing.T) {
	r := NewRegistry()
	chA := r.Register("worker-a", 1)
	chB := r.Register("worker-b", 3)
	r.UpdateHeartbeat("worker-a", 1)
	r.UpdateHeartbeat("worker-b", 2)

	require.NoError(t, r.Dispatch(context.Background(), dispatchReq("someone-else")))
	assert.Empty(t, chA)
	assert.Len(t, chB, 1)

	// worker-b is now counted at capacity until its next heartbeat.
	err := r.Dispatch(context.Background(), dispatchReq("someone-else"))
	assert.ErrorIs(t, err, ErrNoWorker)

	r.UpdateHeartbeat("worker-b", 0)
	require.NoError(t, r.Dispatch(context.Background(), dispatchReq("someone-else")))
}

func TestRegistry_ReRegisterKeepsNewChannel(t *testing.T) {
	r := NewRegistry()
	old := r.Register("worker-a", 1)
	cur := r.Register("worker-a", 1)

	_, ok := <-old
	assert.False(t, ok, "replaced channel is closed")

	// The first stream exits late and must not remove the new connection.
	r.Unregister("worker-a", old)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Dispatch(context.Background(), dispatchReq("")))
	assert.Len(t, cur, 1)

	r.Unregister("worker-a", cur)
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.UpdateHeartbeat("worker-a", 0))
}

func TestServer_SubscribeReceivesDispatch(t *testing.T) {
	registry := NewRegistry()
	_, handler := boardv1.NewRuntimeServiceHandler(NewServer(registry))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := boardv1.NewRuntimeServiceClient(srv.Client(), srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.Subscribe(ctx, connect.NewRequest(&boardv1.SubscribeRequest{WorkerID: "agent-1", MaxConcurrentJobs: 2}))
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive())
	assert.True(t, stream.Msg().Registered)
	assert.Equal(t, 1, registry.Len())

	require.NoError(t, registry.Dispatch(ctx, dispatchReq("agent-1")))

	require.True(t, stream.Receive())
	msg := stream.Msg()
	assert.False(t, msg.Registered)
	assert.Equal(t, "# Task: build it", msg.Prompt)
	assert.Equal(t, 600, msg.TimeoutSeconds)

	resp, err := client.Heartbeat(ctx, connect.NewRequest(&boardv1.HeartbeatRequest{WorkerID: "agent-1", ActiveJobs: 1}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Known)

	resp, err = client.Heartbeat(ctx, connect.NewRequest(&boardv1.HeartbeatRequest{WorkerID: "ghost"}))
	require.NoError(t, err)
	assert.False(t, resp.Msg.Known)
}

func TestServer_SubscribeReturnsBeforeAnyDispatch(t *testing.T) {
	registry := NewRegistry()
	_, handler := boardv1.NewRuntimeServiceHandler(NewServer(registry))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := boardv1.NewRuntimeServiceClient(srv.Client(), srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscribed := make(chan error, 1)
	go func() {
		stream, err := client.Subscribe(ctx, connect.NewRequest(&boardv1.SubscribeRequest{WorkerID: "idle-worker", MaxConcurrentJobs: 1}))
		if err == nil {
			defer stream.Close()
		}
		subscribed <- err
		<-ctx.Done()
	}()

	select {
	case err := <-subscribed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe blocked while no job was queued")
	}
	assert.Equal(t, 1, registry.Len())
}

func TestServer_SubscribeRequiresWorkerID(t *testing.T) {
	_, handler := boardv1.NewRuntimeServiceHandler(NewServer(NewRegistry()))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	client := boardv1.NewRuntimeServiceClient(srv.Client(), srv.URL)
	stream, err := client.Subscribe(context.Background(), connect.NewRequest(&boardv1.SubscribeRequest{}))
	if err == nil {
		assert.False(t, stream.Receive())
		err = stream.Err()
	}
	require.Error(t, err)
}

type fakeGateway struct {
	mu       sync.Mutex
	auth     string
	got      *boardv1.Dispatch
	accepted bool
}

func (g *fakeGateway) Dispatch(_ context.Context, req *connect.Request[boardv1.Dispatch]) (*connect.Response[boardv1.DispatchResponse], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auth = req.Header().Get("Authorization")
	g.got = req.Msg
	return connect.NewResponse(&boardv1.DispatchResponse{Accepted: g.accepted}), nil
}

func TestGateway_Dispatch(t *testing.T) {
	fake := &fakeGateway{accepted: true}
	_, handler := boardv1.NewRuntimeGatewayServiceHandler(fake)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	gw := NewGateway(srv.Client(), srv.URL, "s3cret")
	require.NoError(t, gw.Dispatch(context.Background(), dispatchReq("agent-1")))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "Bearer s3cret", fake.auth)
	assert.Equal(t, "agent-1", fake.got.AgentID)
	assert.Equal(t, "T1:execution", fake.got.Label)
}

func TestGateway_Rejected(t *testing.T) {
	_, handler := boardv1.NewRuntimeGatewayServiceHandler(&fakeGateway{})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	err := NewGateway(srv.Client(), srv.URL, "").Dispatch(context.Background(), dispatchReq("agent-1"))
	assert.ErrorIs(t, err, job.ErrRuntimeUnavailable)
}

func TestGateway_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewGateway(nil, url, "").Dispatch(context.Background(), dispatchReq("agent-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, job.ErrRuntimeUnavailable))
}
