package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/agentboard/internal"
	"github.com/kazz187/agentboard/internal/agentruntime"
	"github.com/kazz187/agentboard/internal/chat"
	chatrepo "github.com/kazz187/agentboard/internal/chat/repositoryimpl"
	"github.com/kazz187/agentboard/internal/config"
	"github.com/kazz187/agentboard/internal/event"
	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/gitops"
	"github.com/kazz187/agentboard/internal/job"
	jobrepo "github.com/kazz187/agentboard/internal/job/repositoryimpl"
	"github.com/kazz187/agentboard/internal/orchestrator"
	"github.com/kazz187/agentboard/internal/pipeline"
	"github.com/kazz187/agentboard/internal/pushnotification"
	pushsubrepo "github.com/kazz187/agentboard/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/agentboard/internal/recovery"
	"github.com/kazz187/agentboard/internal/task"
	taskrepo "github.com/kazz187/agentboard/internal/task/repositoryimpl"
	"github.com/kazz187/agentboard/pkg/clog"
	"github.com/kazz187/agentboard/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(clog.NewLogger(env.Env, env.SlogLevel(), os.Stderr))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, closeStore, err := openStorage(ctx, &env.StorageEnv)
	if err != nil {
		slog.Error("failed to open storage", "type", env.StorageEnv.Type, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	guard := pipeline.NewGuard(nil)
	if env.PipelineEnv.ConfigPath != "" {
		graph, err := pipeline.LoadFile(env.PipelineEnv.ConfigPath)
		if err != nil {
			slog.Error("failed to load pipeline config", "path", env.PipelineEnv.ConfigPath, "error", err)
			os.Exit(1)
		}
		guard.Set(graph)
	}

	bus := eventbus.New()

	// Repositories
	taskRepo := taskrepo.NewYAMLRepository(store)
	jobRepo := jobrepo.NewYAMLRepository(store)
	chatRepo := chatrepo.NewYAMLRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	// Runtime
	var (
		runtime       job.Runtime
		runtimeServer *agentruntime.Server
	)
	switch env.RuntimeEnv.Type {
	case "gateway":
		runtime = agentruntime.NewGateway(http.DefaultClient, env.RuntimeEnv.URL, env.RuntimeEnv.Token)
	default:
		registry := agentruntime.NewRegistry()
		runtime = registry
		runtimeServer = agentruntime.NewServer(registry)
	}

	// Services
	chatSvc := chat.NewService(chatRepo)
	taskSvc := task.NewService(taskRepo, guard, bus)
	tracker := job.NewTracker(jobRepo, taskSvc, chatSvc, runtime, bus, job.Config{
		Timeout:     time.Duration(env.RuntimeEnv.TimeoutSeconds) * time.Second,
		ChatHistory: env.JobEnv.ChatHistory,
	})
	scanner := recovery.NewScanner(jobRepo, chatSvc, bus, env.JobEnv.StaleThreshold)

	prs, err := gitops.New(gitops.Config{
		Script:     env.GitEnv.PRScript,
		BaseBranch: env.GitEnv.BaseBranch,
		WorkDir:    env.GitEnv.WorkDir,
	}, taskSvc)
	if err != nil {
		slog.Error("invalid pull request script", "error", err)
		os.Exit(1)
	}

	dispatcher := orchestrator.New(tracker, prs, env.RuntimeEnv.DefaultAgentID)
	taskSvc.AddMoveHook(dispatcher)
	taskSvc.AddCleaner(tracker)
	taskSvc.AddCleaner(chatSvc)

	// Push notification
	pushSender := pushnotification.NewSender(&env.VAPIDEnv, pushSubRepo)
	notifier := pushnotification.NewNotifier(pushSender)
	if env.VAPIDEnv.Enabled() {
		unsubscribe := bus.Subscribe(notifier.Handle)
		defer unsubscribe()
	}

	srv := server.NewServer(
		env,
		task.NewServer(taskSvc, chatSvc),
		job.NewServer(tracker, env.RuntimeEnv.DefaultAgentID),
		recovery.NewServer(scanner),
		runtimeServer,
		pushnotification.NewServer(&env.VAPIDEnv, pushSubRepo),
		event.NewHandler(bus),
	)

	var wg conc.WaitGroup
	wg.Go(func() { dispatcher.Run(ctx) })
	wg.Go(func() { scanner.Run(ctx, env.JobEnv.RecoveryInterval, tracker) })
	wg.Go(func() { notifier.Run(ctx) })
	if env.PipelineEnv.ConfigPath != "" && env.PipelineEnv.Watch {
		wg.Go(func() {
			if err := guard.Watch(ctx, env.PipelineEnv.ConfigPath); err != nil {
				slog.Error("pipeline watcher stopped", "error", err)
			}
		})
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	dispatcher.Wait()
	wg.Wait()
}

func openStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, func(), error) {
	noop := func() {}
	switch env.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		return s, noop, err
	case "sqlite":
		s, err := storage.NewSQLiteStorage(ctx, env.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := storage.NewPostgresStorage(ctx, env.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		s, err := storage.NewLocalStorage(env.BaseDir)
		return s, noop, err
	}
}
