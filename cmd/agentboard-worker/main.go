package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/ulid/v2"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/pkg/clog"
)

func init() {
	// The SDK closes stdin after this timeout, which breaks long agent runs.
	if os.Getenv("CLAUDE_CODE_STREAM_CLOSE_TIMEOUT") == "" {
		os.Setenv("CLAUDE_CODE_STREAM_CLOSE_TIMEOUT", "2592000000")
	}
}

var (
	app = kingpin.New("agentboard-worker", "Runs board jobs with a local Claude agent")

	serverURL      = app.Flag("server", "Board server URL").Envar("AGENTBOARD_SERVER_URL").Default("http://localhost:3100").String()
	apiKey         = app.Flag("api-key", "Board API key").Envar("AGENTBOARD_API_KEY").Required().String()
	workerID       = app.Flag("id", "Worker id; dispatches for the agent of the same id prefer this worker").Envar("AGENTBOARD_WORKER_ID").String()
	maxConcurrent  = app.Flag("max-concurrent-jobs", "Jobs run at the same time").Envar("AGENTBOARD_MAX_CONCURRENT_JOBS").Default("2").Int()
	workDir        = app.Flag("work-dir", "Directory the agent works in").Envar("AGENTBOARD_WORK_DIR").Default(".").String()
	permissionMode = app.Flag("permission-mode", "Claude permission mode").Envar("AGENTBOARD_PERMISSION_MODE").Default("bypassPermissions").String()
	env            = app.Flag("env", "local enables colored text logs").Envar("AGENTBOARD_ENV").Default("local").String()
	logLevel       = app.Flag("log-level", "Log level").Envar("AGENTBOARD_LOG_LEVEL").Default("info").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(clog.NewLogger(*env, level, os.Stderr))

	id := *workerID
	if id == "" {
		id = ulid.Make().String()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	auth := boardv1.WithBearerToken(*apiKey)
	w := newWorker(workerConfig{
		ID:             id,
		MaxConcurrent:  *maxConcurrent,
		WorkDir:        *workDir,
		PermissionMode: *permissionMode,
	},
		boardv1.NewRuntimeServiceClient(http.DefaultClient, *serverURL, auth),
		boardv1.NewJobServiceClient(http.DefaultClient, *serverURL, auth),
		claudeQuery,
	)

	slog.Info("worker starting", "worker_id", id, "server", *serverURL, "max_concurrent_jobs", *maxConcurrent, "work_dir", *workDir)
	w.Run(ctx)
	slog.Info("worker stopped")
}
