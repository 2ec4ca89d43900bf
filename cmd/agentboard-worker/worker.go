package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	claudeagent "github.com/kazz187/claude-agent-sdk-go"
	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
)

const (
	heartbeatInterval = 30 * time.Second
	reconnectDelay    = 5 * time.Second
	reportTimeout     = 30 * time.Second
)

type workerConfig struct {
	ID             string
	MaxConcurrent  int
	WorkDir        string
	PermissionMode string
}

// queryFunc runs one agent conversation and returns its final text.
type queryFunc func(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error)

type worker struct {
	cfg     workerConfig
	runtime boardv1.RuntimeServiceClient
	jobs    boardv1.JobServiceClient
	query   queryFunc

	sem    chan struct{}
	active atomic.Int32
	wg     conc.WaitGroup

	mu           sync.Mutex
	cancelStream context.CancelFunc

	heartbeatEvery time.Duration
	reconnectAfter time.Duration
}

func newWorker(cfg workerConfig, runtime boardv1.RuntimeServiceClient, jobs boardv1.JobServiceClient, query queryFunc) *worker {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &worker{
		cfg:            cfg,
		runtime:        runtime,
		jobs:           jobs,
		query:          query,
		sem:            make(chan struct{}, cfg.MaxConcurrent),
		heartbeatEvery: heartbeatInterval,
		reconnectAfter: reconnectDelay,
	}
}

// Run subscribes until ctx is done, reconnecting after stream errors, then
// waits for running jobs to report back.
func (w *worker) Run(ctx context.Context) {
	w.wg.Go(func() { w.heartbeat(ctx) })

	for ctx.Err() == nil {
		err := w.subscribe(ctx)
		if ctx.Err() != nil {
			break
		}
		slog.WarnContext(ctx, "subscribe stream ended, reconnecting", "error", err, "delay", w.reconnectAfter)
		select {
		case <-time.After(w.reconnectAfter):
		case <-ctx.Done():
		}
	}

	slog.InfoContext(ctx, "waiting for active jobs", "active_jobs", w.active.Load())
	w.wg.Wait()
}

func (w *worker) subscribe(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.cancelStream = cancel
	w.mu.Unlock()

	stream, err := w.runtime.Subscribe(streamCtx, connect.NewRequest(&boardv1.SubscribeRequest{
		WorkerID:          w.cfg.ID,
		MaxConcurrentJobs: w.cfg.MaxConcurrent,
	}))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer stream.Close()

	for stream.Receive() {
		if stream.Msg().Registered {
			slog.InfoContext(ctx, "subscribe stream connected", "worker_id", w.cfg.ID)
			continue
		}
		if err := w.handle(ctx, stream.Msg()); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return errors.New("stream closed by server")
}

// handle waits for a free slot and runs d in the background. Jobs keep the
// worker context so a reconnect does not interrupt them.
func (w *worker) handle(ctx context.Context, d *boardv1.Dispatch) error {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.active.Add(1)
	w.wg.Go(func() {
		defer func() {
			w.active.Add(-1)
			<-w.sem
		}()
		w.execute(ctx, d)
	})
	return nil
}

func (w *worker) execute(ctx context.Context, d *boardv1.Dispatch) {
	log := slog.With("task_id", d.TaskID, "job_type", d.JobType, "agent_id", d.AgentID)

	jobCtx := ctx
	if d.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(d.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	sessionKey := w.cfg.ID + "/" + ulid.Make().String()
	if _, err := w.jobs.AcknowledgeJob(jobCtx, connect.NewRequest(&boardv1.AcknowledgeJobRequest{
		TaskID:     d.TaskID,
		Type:       d.JobType,
		AgentID:    d.AgentID,
		SessionKey: sessionKey,
		Status:     "running",
	})); err != nil {
		// Superseded or already finished on the board side.
		log.WarnContext(ctx, "job not acknowledged, skipping", "error", err)
		return
	}

	log.InfoContext(ctx, "job started", "session_key", sessionKey)
	result, runErr := w.query(jobCtx, d.Prompt, w.options(d))

	if runErr == nil && d.JobType == "refinement" && strings.TrimSpace(result) == "" {
		runErr = errors.New("agent returned an empty plan")
	}

	req := &boardv1.CompleteJobRequest{TaskID: d.TaskID, Type: d.JobType, AgentID: d.AgentID}
	if runErr != nil {
		req.Error = runErr.Error()
		log.ErrorContext(ctx, "job failed", "error", runErr)
	} else {
		req.Result = result
		log.InfoContext(ctx, "job finished", "result_bytes", len(result))
	}

	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	if _, err := w.jobs.CompleteJob(reportCtx, connect.NewRequest(req)); err != nil {
		log.ErrorContext(ctx, "failed to report job result", "error", err)
	}
}

func (w *worker) options(d *boardv1.Dispatch) *claudeagent.ClaudeAgentOptions {
	return &claudeagent.ClaudeAgentOptions{
		SystemPrompt:   systemPrompt(d.JobType),
		Cwd:            w.cfg.WorkDir,
		PermissionMode: claudeagent.PermissionMode(w.cfg.PermissionMode),
	}
}

func systemPrompt(jobType string) string {
	switch jobType {
	case "refinement":
		return "You are refining a task on a kanban board. Read the code you need, then reply with a concrete, numbered implementation plan. Do not modify any files."
	default:
		return "You are implementing a task from a kanban board. Follow the approved plan, work on the given branch, and finish with a short summary of what changed."
	}
}

func (w *worker) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(w.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := w.runtime.Heartbeat(ctx, connect.NewRequest(&boardv1.HeartbeatRequest{
				WorkerID:   w.cfg.ID,
				ActiveJobs: int(w.active.Load()),
			}))
			if err != nil {
				slog.WarnContext(ctx, "heartbeat error", "error", err)
				continue
			}
			if !resp.Msg.Known {
				slog.WarnContext(ctx, "server lost this worker, resubscribing", "worker_id", w.cfg.ID)
				w.mu.Lock()
				if w.cancelStream != nil {
					w.cancelStream()
				}
				w.mu.Unlock()
			}
		}
	}
}

func claudeQuery(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error) {
	result, err := claudeagent.RunQuerySync(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if result.Result == nil {
		return "", errors.New("agent returned no result")
	}
	if result.Result.IsError {
		msg := strings.TrimSpace(result.Result.Result)
		if msg == "" {
			msg = "agent returned an error"
		}
		return "", errors.New(msg)
	}
	return result.Result.Result, nil
}
