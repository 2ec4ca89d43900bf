// Package gitops opens pull requests for finished tasks by running an
// operator supplied shell script.
package gitops

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/kazz187/agentboard/internal/task"
	"github.com/kazz187/agentboard/pkg/cerr"
)

var (
	ErrNotConfigured = errors.New("pull request script is not configured")
	ErrNoURL         = errors.New("pull request script printed no url")
)

// Linker records the pull request on the task.
type Linker interface {
	LinkPullRequest(ctx context.Context, id, url, status string) (*task.Task, error)
}

type Config struct {
	Script     string
	BaseBranch string
	WorkDir    string
}

// PullRequester runs the script with TASK_ID, TASK_TITLE, BRANCH and
// BASE_BRANCH set and links the last URL it prints.
type PullRequester struct {
	file   *syntax.File
	cfg    Config
	linker Linker
}

// New parses the script up front so a broken script fails at startup. An
// empty script yields a requester that always returns ErrNotConfigured.
func New(cfg Config, linker Linker) (*PullRequester, error) {
	pr := &PullRequester{cfg: cfg, linker: linker}
	if strings.TrimSpace(cfg.Script) == "" {
		return pr, nil
	}
	file, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(cfg.Script), "pr_script")
	if err != nil {
		return nil, fmt.Errorf("parse pull request script: %w", err)
	}
	pr.file = file
	return pr, nil
}

func (p *PullRequester) Request(ctx context.Context, t *task.Task) error {
	if p.file == nil {
		return cerr.NewError(cerr.FailedPrecondition, "pull requests are not configured", ErrNotConfigured)
	}
	if t.Branch == "" {
		return cerr.NewValidationError("branch", "task has no branch")
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(append(os.Environ(),
			"TASK_ID="+t.ID,
			"TASK_TITLE="+t.Title,
			"BRANCH="+t.Branch,
			"BASE_BRANCH="+p.cfg.BaseBranch,
		)...)),
		interp.Dir(p.cfg.WorkDir),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return fmt.Errorf("create script runner: %w", err)
	}

	slog.InfoContext(ctx, "running pull request script", "task_id", t.ID, "branch", t.Branch)
	if err := runner.Run(ctx, p.file); err != nil {
		return cerr.NewError(cerr.Internal, "pull request script failed", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	url := lastURL(stdout.String())
	if url == "" {
		return cerr.NewError(cerr.Internal, "pull request script printed no url", ErrNoURL)
	}
	if _, err := p.linker.LinkPullRequest(ctx, t.ID, url, "open"); err != nil {
		return fmt.Errorf("link pull request: %w", err)
	}
	slog.InfoContext(ctx, "pull request linked", "task_id", t.ID, "url", url)
	return nil
}

func lastURL(out string) string {
	var url string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "http://") {
			url = line
		}
	}
	return url
}
