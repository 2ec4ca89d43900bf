// Package pipeline defines the fixed set of task statuses and the edge set
// that decides which status changes are legal.
package pipeline

import (
	"fmt"
	"slices"

	"github.com/kazz187/agentboard/pkg/cerr"
)

type Status string

const (
	StatusBacklog         Status = "backlog"
	StatusRefinement      Status = "refinement"
	StatusPendingApproval Status = "pending_approval"
	StatusTodo            Status = "todo"
	StatusInProgress      Status = "in_progress"
	StatusReview          Status = "review"
	StatusDone            Status = "done"
)

var ordered = []Status{
	StatusBacklog,
	StatusRefinement,
	StatusPendingApproval,
	StatusTodo,
	StatusInProgress,
	StatusReview,
	StatusDone,
}

// Statuses returns every status in pipeline order.
func Statuses() []Status {
	return slices.Clone(ordered)
}

// Index is the position of s in pipeline order, or -1 for an unknown value.
func (s Status) Index() int {
	return slices.Index(ordered, s)
}

func (s Status) Valid() bool {
	return s.Index() >= 0
}

func (s Status) String() string {
	return string(s)
}

// Parse converts user input to a Status. Unknown values are a validation
// error on the status field.
func Parse(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", cerr.NewValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}
