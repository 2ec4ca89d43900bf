package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/internal/chat"
	chatrepo "github.com/kazz187/agentboard/internal/chat/repositoryimpl"
	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/job"
	jobrepo "github.com/kazz187/agentboard/internal/job/repositoryimpl"
	"github.com/kazz187/agentboard/pkg/storage"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	scanner *Scanner
	jobs    job.Repository
	chat    *chat.Service
	events  []eventbus.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	f := &fixture{
		jobs: jobrepo.NewYAMLRepository(s),
		chat: chat.NewService(chatrepo.NewYAMLRepository(s)),
	}
	bus.Subscribe(func(_ context.Context, ev eventbus.Event) error {
		f.events = append(f.events, ev)
		return nil
	})
	f.scanner = NewScanner(f.jobs, f.chat, bus, 0)
	f.scanner.now = func() time.Time { return now }
	return f
}

func (f *fixture) put(t *testing.T, taskID string, typ job.Type, status job.Status, age time.Duration) {
	t.Helper()
	require.NoError(t, f.jobs.Put(context.Background(), &job.Record{
		Status:    status,
		AgentID:   "agent-1",
		TaskID:    taskID,
		Type:      typ,
		StartedAt: now.Add(-age),
		Attempt:   1,
	}))
}

func TestScanner_Scan(t *testing.T) {
	f := newFixture(t)
	f.put(t, "T1", job.TypeExecution, job.StatusRunning, 6*time.Minute)
	f.put(t, "T2", job.TypeExecution, job.StatusRunning, time.Minute)
	f.put(t, "T3", job.TypeRefinement, job.StatusPending, 10*time.Minute)
	f.put(t, "T4", job.TypeRefinement, job.StatusSpawning, 7*time.Minute)
	f.put(t, "T5", job.TypeExecution, job.StatusDone, time.Hour)
	f.put(t, "T6", job.TypeExecution, job.StatusError, time.Hour)

	stuck, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, s := range stuck {
		ids = append(ids, s.ID())
	}
	assert.ElementsMatch(t, []string{"T1:execution", "T3:refinement", "T4:refinement"}, ids)

	rec, err := f.jobs.Get(context.Background(), "T1", job.TypeExecution)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, rec.Status)
	assert.Empty(t, f.events)
}

func TestScanner_Recover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.put(t, "T1", job.TypeExecution, job.StatusRunning, 10*time.Minute)
	f.put(t, "T2", job.TypeExecution, job.StatusRunning, time.Minute)

	recovered, err := f.scanner.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1:execution"}, recovered)

	rec, err := f.jobs.Get(ctx, "T1", job.TypeExecution)
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, rec.Status)
	assert.Empty(t, rec.AgentID)
	assert.Equal(t, 2, rec.Attempt)
	assert.Equal(t, now, rec.StartedAt)

	entries, err := f.chat.List(ctx, "T1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, chat.RoleSystem, entries[0].Role)
	assert.Contains(t, entries[0].Content, "running")
	assert.Contains(t, entries[0].Content, "requeued")

	untouched, err := f.jobs.Get(ctx, "T2", job.TypeExecution)
	require.NoError(t, err)
	assert.Equal(t, job.StatusRunning, untouched.Status)
	assert.Equal(t, "agent-1", untouched.AgentID)

	require.Len(t, f.events, 1)
	assert.Equal(t, eventbus.TypeAgentUpdated, f.events[0].Type)

	again, err := f.scanner.Recover(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

type failingRepo struct {
	job.Repository
	failTask string
}

func (r *failingRepo) Mutate(ctx context.Context, taskID string, typ job.Type, fn func(*job.Record) error) (*job.Record, error) {
	if taskID == r.failTask {
		return nil, errors.New("disk full")
	}
	return r.Repository.Mutate(ctx, taskID, typ, fn)
}

func TestScanner_RecoverContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.put(t, "T1", job.TypeExecution, job.StatusRunning, 10*time.Minute)
	f.put(t, "T2", job.TypeRefinement, job.StatusPending, 10*time.Minute)
	f.scanner.jobs = &failingRepo{Repository: f.jobs, failTask: "T1"}

	recovered, err := f.scanner.Recover(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "T1:execution")
	assert.Equal(t, []string{"T2:refinement"}, recovered)
}

type recordingRedispatcher struct {
	got []*job.Record
}

func (r *recordingRedispatcher) Redispatch(_ context.Context, rec *job.Record) (*job.Record, error) {
	r.got = append(r.got, rec)
	return rec, nil
}

func TestScanner_SweepRedispatches(t *testing.T) {
	f := newFixture(t)
	f.put(t, "T1", job.TypeExecution, job.StatusSpawning, 10*time.Minute)
	rd := &recordingRedispatcher{}

	f.scanner.sweep(context.Background(), rd)

	require.Len(t, rd.got, 1)
	assert.Equal(t, job.StatusPending, rd.got[0].Status)
	assert.Empty(t, rd.got[0].AgentID)
}
