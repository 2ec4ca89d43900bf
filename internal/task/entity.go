package task

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/agentboard/internal/pipeline"
	"github.com/kazz187/agentboard/pkg/cerr"
)

// RefinementPlaceholder is stored as the refinement text while a refinement
// job is running.
const RefinementPlaceholder = "_Refinement in progress..._"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidateID rejects anything that is not a ULID.
func ValidateID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return cerr.NewValidationError("id", fmt.Sprintf("invalid task id %q", id))
	}
	return nil
}

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", cerr.NewValidationError("priority", fmt.Sprintf("unknown priority %q", s))
	}
}

type Task struct {
	ID              string          `yaml:"id"`
	Title           string          `yaml:"title"`
	Description     string          `yaml:"description"`
	Status          pipeline.Status `yaml:"status"`
	Priority        Priority        `yaml:"priority"`
	AssignedAgentID string          `yaml:"assigned_agent_id"`
	ProjectID       string          `yaml:"project_id"`
	Branch          string          `yaml:"branch"`
	Labels          []string        `yaml:"labels"`
	Refinement      string          `yaml:"refinement"`
	PullRequest     *PullRequest    `yaml:"pull_request,omitempty"`
	SortOrder       float64         `yaml:"sort_order"`
	Comments        []Comment       `yaml:"comments"`
	Version         int64           `yaml:"version"`
	CreatedAt       time.Time       `yaml:"created_at"`
	UpdatedAt       time.Time       `yaml:"updated_at"`
}

type PullRequest struct {
	URL    string `yaml:"url"`
	Status string `yaml:"status"`
}

type Comment struct {
	ID        string    `yaml:"id"`
	Author    string    `yaml:"author"`
	Content   string    `yaml:"content"`
	CreatedAt time.Time `yaml:"created_at"`
}

// HasLabels reports whether every label in want is set on the task.
func (t *Task) HasLabels(want []string) bool {
	for _, w := range want {
		found := false
		for _, l := range t.Labels {
			if l == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
