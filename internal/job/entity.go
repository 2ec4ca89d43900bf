package job

import (
	"fmt"
	"time"

	"github.com/kazz187/agentboard/pkg/cerr"
)

type Type string

const (
	TypeRefinement Type = "refinement"
	TypeExecution  Type = "execution"
)

func Types() []Type {
	return []Type{TypeRefinement, TypeExecution}
}

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeRefinement, TypeExecution:
		return t, nil
	default:
		return "", cerr.NewValidationError("type", fmt.Sprintf("unknown job type %q", s))
	}
}

type Status string

const (
	StatusIdle     Status = "idle"
	StatusPending  Status = "pending"
	StatusSpawning Status = "spawning"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusError    Status = "error"
)

// Active reports whether work is expected to be in flight.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusSpawning || s == StatusRunning
}

func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Record tracks the latest delegated job of one type for one task.
type Record struct {
	Status      Status     `yaml:"status"`
	AgentID     string     `yaml:"agent_id"`
	TaskID      string     `yaml:"task_id"`
	Type        Type       `yaml:"type"`
	Prompt      string     `yaml:"prompt,omitempty"`
	SessionKey  string     `yaml:"session_key,omitempty"`
	StartedAt   time.Time  `yaml:"started_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	Summary     string     `yaml:"summary,omitempty"`
	Error       string     `yaml:"error,omitempty"`
	Attempt     int        `yaml:"attempt"`
}

// Label identifies the job towards the agent runtime.
func (r *Record) Label() string {
	return fmt.Sprintf("%s:%s", r.TaskID, r.Type)
}
