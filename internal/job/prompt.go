package job

import (
	"fmt"
	"strings"

	"github.com/kazz187/agentboard/internal/chat"
	"github.com/kazz187/agentboard/internal/task"
)

// BuildPrompt renders the instructions sent to the agent runtime for a job
// of the given type. history is the tail of the task's transcript.
func BuildPrompt(typ Type, t *task.Task, history []*chat.Entry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Task: %s\n\n", t.Title))
	if t.Description != "" {
		sb.WriteString(fmt.Sprintf("## Description\n%s\n\n", t.Description))
	}
	if len(t.Labels) > 0 {
		sb.WriteString(fmt.Sprintf("Labels: %s\n\n", strings.Join(t.Labels, ", ")))
	}

	switch typ {
	case TypeRefinement:
		sb.WriteString("## Refinement\n")
		sb.WriteString("Turn this task into an implementation plan in markdown: ")
		sb.WriteString("restate the goal, list the affected areas, the steps and the acceptance criteria. ")
		sb.WriteString("Do not change any code. Reply with the plan only.\n\n")
	case TypeExecution:
		if r := t.Refinement; r != "" && r != task.RefinementPlaceholder {
			sb.WriteString(fmt.Sprintf("## Approved plan\n%s\n\n", r))
		}
		sb.WriteString("## Execution\n")
		if t.Branch != "" {
			sb.WriteString(fmt.Sprintf("Work on branch `%s`. ", t.Branch))
		}
		sb.WriteString("Implement the task and reply with a short summary of what changed.\n\n")
	}

	if len(history) > 0 {
		sb.WriteString("## Conversation so far\n")
		for _, e := range history {
			who := string(e.Role)
			if e.AgentID != "" {
				who = fmt.Sprintf("%s (%s)", who, e.AgentID)
			}
			sb.WriteString(fmt.Sprintf("- %s: %s\n", who, oneLine(e.Content)))
		}
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
