package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/pkg/clog"
)

func main() {
	// stdout carries the MCP protocol.
	logger := clog.NewLogger("local", slog.LevelInfo, os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := NewConfig()
	if err != nil {
		logger.ErrorContext(ctx, "failed to create config", "error", err)
		os.Exit(1)
	}

	t := &tools{
		tasks:   boardv1.NewTaskServiceClient(http.DefaultClient, cfg.ServerURL, boardv1.WithBearerToken(cfg.APIKey)),
		agentID: cfg.AgentID,
	}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "agentboard",
			Title:   "agentboard MCP Server",
			Version: "v1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Tools for the agentboard task board. Read the task you were dispatched for with agentboard_get_task, " +
				"leave progress notes with agentboard_add_comment, record the branch you work on with agentboard_update_task, " +
				"and link the pull request you opened with agentboard_link_pull_request.",
		},
	)
	t.register(server)

	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		logger.ErrorContext(ctx, "failed to run server", "error", err)
		os.Exit(1)
	}
}
