package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/agentboard/internal/chat"
	chatrepo "github.com/kazz187/agentboard/internal/chat/repositoryimpl"
	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/job"
	jobrepo "github.com/kazz187/agentboard/internal/job/repositoryimpl"
	"github.com/kazz187/agentboard/internal/orchestrator"
	"github.com/kazz187/agentboard/internal/pipeline"
	"github.com/kazz187/agentboard/internal/task"
	taskrepo "github.com/kazz187/agentboard/internal/task/repositoryimpl"
	"github.com/kazz187/agentboard/pkg/storage"
)

type okRuntime struct{}

func (okRuntime) Dispatch(context.Context, *job.DispatchRequest) error { return nil }

type fakePRs struct {
	mu    sync.Mutex
	tasks []string
	err   error
}

func (f *fakePRs) Request(_ context.Context, t *task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, t.ID)
	return f.err
}

type starterFunc func(ctx context.Context, taskID string, typ job.Type, agentID, prompt string) (*job.Record, error)

func (f starterFunc) Start(ctx context.Context, taskID string, typ job.Type, agentID, prompt string) (*job.Record, error) {
	return f(ctx, taskID, typ, agentID, prompt)
}

type fixture struct {
	tasks      *task.Service
	tracker    *job.Tracker
	prs        *fakePRs
	dispatcher *orchestrator.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()

	f := &fixture{prs: &fakePRs{}}
	f.tasks = task.NewService(taskrepo.NewYAMLRepository(s), pipeline.NewGuard(nil), bus)
	f.tracker = job.NewTracker(jobrepo.NewYAMLRepository(s), f.tasks, chat.NewService(chatrepo.NewYAMLRepository(s)),
		okRuntime{}, bus, job.Config{Timeout: time.Minute, ChatHistory: 10})
	f.dispatcher = orchestrator.New(f.tracker, f.prs, "default-agent")
	f.tasks.AddMoveHook(f.dispatcher)
	return f
}

func TestDispatcher_RefinementWithAssignee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.Create(ctx, task.CreateInput{Title: "Fix login bug", AssignedAgentID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusBacklog, created.Status)

	moved, err := f.tasks.Move(ctx, created.ID, pipeline.StatusRefinement, nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusRefinement, moved.Status)
	f.dispatcher.Wait()

	rec, err := f.tracker.Poll(ctx, created.ID, job.TypeRefinement)
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, rec.Status)
	assert.Equal(t, "agent-1", rec.AgentID)
}

func TestDispatcher_RefinementWithoutAssignee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.Create(ctx, task.CreateInput{Title: "a"})
	require.NoError(t, err)
	_, err = f.tasks.Move(ctx, created.ID, pipeline.StatusRefinement, nil)
	require.NoError(t, err)
	f.dispatcher.Wait()

	rec, err := f.tracker.Poll(ctx, created.ID, job.TypeRefinement)
	require.NoError(t, err)
	assert.Equal(t, job.StatusIdle, rec.Status)
}

func TestDispatcher_TodoUsesDefaultAgent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.Create(ctx, task.CreateInput{Title: "a", Status: "pending_approval"})
	require.NoError(t, err)
	_, err = f.tasks.Move(ctx, created.ID, pipeline.StatusTodo, nil)
	require.NoError(t, err)
	f.dispatcher.Wait()

	rec, err := f.tracker.Poll(ctx, created.ID, job.TypeExecution)
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, rec.Status)
	assert.Equal(t, "default-agent", rec.AgentID)
}

func TestDispatcher_DoneRequestsPullRequestOnlyWithBranch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	noBranch, err := f.tasks.Create(ctx, task.CreateInput{Title: "a", Status: "review"})
	require.NoError(t, err)
	withBranch, err := f.tasks.Create(ctx, task.CreateInput{Title: "b", Status: "review", Branch: "fix/b"})
	require.NoError(t, err)

	done, err := f.tasks.Move(ctx, noBranch.ID, pipeline.StatusDone, nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusDone, done.Status)
	_, err = f.tasks.Move(ctx, withBranch.ID, pipeline.StatusDone, nil)
	require.NoError(t, err)
	f.dispatcher.Wait()

	assert.Equal(t, []string{withBranch.ID}, f.prs.tasks)
}

func TestDispatcher_FailuresReachErrorChannel(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("runtime exploded")
	d := orchestrator.New(starterFunc(func(context.Context, string, job.Type, string, string) (*job.Record, error) {
		return nil, boom
	}), nil, "default-agent")

	d.OnMoved(ctx, &task.Task{ID: "T1", Status: pipeline.StatusTodo}, pipeline.StatusPendingApproval)
	d.OnMoved(ctx, &task.Task{ID: "T2", Status: pipeline.StatusTodo}, pipeline.StatusPendingApproval)
	d.Wait()

	got := map[string]error{}
	for range 2 {
		terr := <-d.Errors()
		got[terr.TaskID] = terr
	}
	require.Len(t, got, 2)
	assert.ErrorIs(t, got["T1"], boom)
	assert.Equal(t, "execution", got["T2"].(*orchestrator.TriggerError).Stage)
}

func TestDispatcher_PanicIsReported(t *testing.T) {
	d := orchestrator.New(starterFunc(func(context.Context, string, job.Type, string, string) (*job.Record, error) {
		panic("nil map")
	}), nil, "x")

	d.OnMoved(context.Background(), &task.Task{ID: "T1", Status: pipeline.StatusTodo}, pipeline.StatusPendingApproval)
	d.Wait()

	terr := <-d.Errors()
	assert.Equal(t, "T1", terr.TaskID)
	assert.Contains(t, terr.Error(), "nil map")
}

func TestDispatcher_MoveResultIndependentOfTrigger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.prs.err = errors.New("gh not installed")

	created, err := f.tasks.Create(ctx, task.CreateInput{Title: "a", Status: "review", Branch: "fix/a"})
	require.NoError(t, err)
	moved, err := f.tasks.Move(ctx, created.ID, pipeline.StatusDone, nil)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusDone, moved.Status)
	f.dispatcher.Wait()

	terr := <-f.dispatcher.Errors()
	assert.Equal(t, "pull_request", terr.Stage)
}
