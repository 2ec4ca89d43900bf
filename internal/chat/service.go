package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/agentboard/pkg/cerr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Append assigns an id and timestamp to e and stores it.
func (s *Service) Append(ctx context.Context, e *Entry) (*Entry, error) {
	if e.TaskID == "" {
		return nil, cerr.NewValidationError("task_id", "task id is required")
	}
	if strings.TrimSpace(e.Content) == "" {
		return nil, cerr.NewValidationError("content", "content is required")
	}
	switch e.Role {
	case RoleHuman, RoleAgent, RoleSystem:
	default:
		return nil, cerr.NewValidationError("role", fmt.Sprintf("unknown role %q", e.Role))
	}
	e.ID = ulid.Make().String()
	e.CreatedAt = s.now()
	if err := s.repo.Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) System(ctx context.Context, taskID, content string) (*Entry, error) {
	return s.Append(ctx, &Entry{TaskID: taskID, Role: RoleSystem, Content: content})
}

func (s *Service) Agent(ctx context.Context, taskID, agentID, content string) (*Entry, error) {
	return s.Append(ctx, &Entry{TaskID: taskID, Role: RoleAgent, AgentID: agentID, Content: content})
}

// List returns the task's transcript oldest first. A positive limit keeps
// only the most recent entries.
func (s *Service) List(ctx context.Context, taskID string, limit int) ([]*Entry, error) {
	entries, err := s.repo.List(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (s *Service) DeleteByTask(ctx context.Context, taskID string) error {
	return s.repo.DeleteByTask(ctx, taskID)
}
