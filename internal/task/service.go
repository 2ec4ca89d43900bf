package task

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/pipeline"
	"github.com/kazz187/agentboard/pkg/cerr"
)

type CreateInput struct {
	Title           string
	Description     string
	Status          string
	Priority        string
	AssignedAgentID string
	ProjectID       string
	Branch          string
	Labels          []string
}

// UpdateInput patches every non-nil field.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *string
	ProjectID   *string
	Branch      *string
	Labels      *[]string
	Refinement  *string
}

// Filter fields are combined by conjunction. Zero values match everything.
type Filter struct {
	Status          pipeline.Status
	AssignedAgentID string
	Priority        Priority
	Labels          []string
}

func (f Filter) match(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.AssignedAgentID != "" && t.AssignedAgentID != f.AssignedAgentID {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	return t.HasLabels(f.Labels)
}

type Service struct {
	repo     Repository
	guard    *pipeline.Guard
	bus      *eventbus.Bus
	hooks    []MoveHook
	cleaners []Cleaner
	now      func() time.Time
}

func NewService(repo Repository, guard *pipeline.Guard, bus *eventbus.Bus) *Service {
	return &Service{
		repo:  repo,
		guard: guard,
		bus:   bus,
		now:   time.Now,
	}
}

// AddMoveHook registers h to run after every persisted status change.
// Hooks must be registered before the service is used.
func (s *Service) AddMoveHook(h MoveHook) {
	s.hooks = append(s.hooks, h)
}

// AddCleaner registers c to run when a task is deleted.
func (s *Service) AddCleaner(c Cleaner) {
	s.cleaners = append(s.cleaners, c)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, cerr.NewValidationError("title", "title is required")
	}
	status := pipeline.StatusBacklog
	if in.Status != "" {
		st, err := pipeline.Parse(in.Status)
		if err != nil {
			return nil, err
		}
		status = st
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &Task{
		ID:              ulid.Make().String(),
		Title:           title,
		Description:     in.Description,
		Status:          status,
		Priority:        priority,
		AssignedAgentID: in.AssignedAgentID,
		ProjectID:       in.ProjectID,
		Branch:          in.Branch,
		Labels:          in.Labels,
		SortOrder:       float64(now.UnixMilli()),
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.emit(ctx, eventbus.TypeTaskCreated, t.ID, ToMessage(t))
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var priority Priority
	if in.Priority != nil {
		p, err := ParsePriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, cerr.NewValidationError("title", "title must not be empty")
	}

	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		if in.Title != nil {
			t.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		if in.Priority != nil {
			t.Priority = priority
		}
		if in.ProjectID != nil {
			t.ProjectID = *in.ProjectID
		}
		if in.Branch != nil {
			t.Branch = *in.Branch
		}
		if in.Labels != nil {
			t.Labels = slices.Clone(*in.Labels)
		}
		if in.Refinement != nil {
			t.Refinement = *in.Refinement
		}
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, eventbus.TypeTaskUpdated, t.ID, ToMessage(t))
	return t, nil
}

// Move changes the task status by a single legal edge. Moving a task to the
// status it already has only updates its sort order and triggers nothing.
func (s *Service) Move(ctx context.Context, id string, target pipeline.Status, sortOrder *float64) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, cerr.NewValidationError("status", fmt.Sprintf("unknown status %q", target))
	}
	var from pipeline.Status
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		from = t.Status
		if t.Status != target {
			if err := s.guard.Validate(t.Status, target); err != nil {
				return err
			}
			t.Status = target
		} else if sortOrder == nil {
			return ErrUnchanged
		}
		if sortOrder != nil {
			t.SortOrder = *sortOrder
		}
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if from == target {
		if sortOrder != nil {
			s.emit(ctx, eventbus.TypeTaskUpdated, t.ID, ToMessage(t))
		}
		return t, nil
	}
	s.moved(ctx, t, from)
	return t, nil
}

// Advance walks the task forward to target along the shortest legal path in
// a single write. A task already at or past target is returned unchanged.
func (s *Service) Advance(ctx context.Context, id string, target pipeline.Status) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, cerr.NewValidationError("status", fmt.Sprintf("unknown status %q", target))
	}
	var from pipeline.Status
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		from = t.Status
		if t.Status.Index() >= target.Index() {
			return ErrUnchanged
		}
		if _, err := s.guard.Path(t.Status, target); err != nil {
			return err
		}
		t.Status = target
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if t.Status != from {
		s.moved(ctx, t, from)
	}
	return t, nil
}

func (s *Service) moved(ctx context.Context, t *Task, from pipeline.Status) {
	s.emit(ctx, eventbus.TypeTaskMoved, t.ID, map[string]any{
		"task": ToMessage(t),
		"from": from,
		"to":   t.Status,
	})
	for _, h := range s.hooks {
		h.OnMoved(ctx, t, from)
	}
}

func (s *Service) Assign(ctx context.Context, id, agentID string) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		t.AssignedAgentID = agentID
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, eventbus.TypeTaskAssigned, t.ID, ToMessage(t))
	return t, nil
}

func (s *Service) AddComment(ctx context.Context, id, author, content string) (*Comment, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, cerr.NewValidationError("content", "content is required")
	}
	if author == "" {
		author = "human"
	}
	c := Comment{
		ID:        ulid.Make().String(),
		Author:    author,
		Content:   content,
		CreatedAt: s.now(),
	}
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		t.Comments = append(t.Comments, c)
		t.UpdatedAt = c.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, eventbus.TypeTaskCommented, t.ID, toCommentMessage(c))
	return &c, nil
}

func (s *Service) LinkPullRequest(ctx context.Context, id, url, status string) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(url) == "" {
		return nil, cerr.NewValidationError("url", "pull request url is required")
	}
	if status == "" {
		status = "open"
	}
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		t.PullRequest = &PullRequest{URL: url, Status: status}
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, eventbus.TypeTaskUpdated, t.ID, ToMessage(t))
	return t, nil
}

// SetRefinement replaces the refinement text. When onlyIf is non-empty the
// text is replaced only while it still equals onlyIf.
func (s *Service) SetRefinement(ctx context.Context, id, text, onlyIf string) (*Task, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var changed bool
	t, err := s.repo.Mutate(ctx, id, func(t *Task) error {
		changed = false
		if onlyIf != "" && t.Refinement != onlyIf {
			return ErrUnchanged
		}
		if t.Refinement == text {
			return ErrUnchanged
		}
		t.Refinement = text
		t.UpdatedAt = s.now()
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.emit(ctx, eventbus.TypeTaskUpdated, t.ID, ToMessage(t))
	}
	return t, nil
}

// Delete removes the task and then everything registered cleaners hold for
// it. It reports false when the task did not exist.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	var errs []error
	for _, c := range s.cleaners {
		if err := c.DeleteByTask(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.WarnContext(ctx, "task: cleanup after delete failed", "task_id", id, "error", err)
	}
	s.emit(ctx, eventbus.TypeTaskDeleted, id, map[string]string{"id": id})
	return true, nil
}

// List returns the matching tasks ordered by status, then sort order, then
// creation time.
func (s *Service) List(ctx context.Context, f Filter) ([]*Task, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Task, 0, len(all))
	for _, t := range all {
		if f.match(t) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b *Task) int {
		return cmp.Or(
			cmp.Compare(a.Status.Index(), b.Status.Index()),
			cmp.Compare(a.SortOrder, b.SortOrder),
			a.CreatedAt.Compare(b.CreatedAt),
		)
	})
	return out, nil
}

// ListByStatus groups every task by status. Every status has an entry.
func (s *Service) ListByStatus(ctx context.Context) (map[pipeline.Status][]*Task, error) {
	tasks, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	out := make(map[pipeline.Status][]*Task, len(pipeline.Statuses()))
	for _, st := range pipeline.Statuses() {
		out[st] = []*Task{}
	}
	for _, t := range tasks {
		out[t.Status] = append(out[t.Status], t)
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, typ eventbus.Type, taskID string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(ctx, eventbus.Event{Type: typ, TaskID: taskID, Payload: payload})
}
