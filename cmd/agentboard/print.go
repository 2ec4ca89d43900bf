package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/pkg/color"
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, jsonOut bool) *printer {
	if jsonOut {
		color.Disable()
	}
	return &printer{w: w, json: jsonOut}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// value prints v as JSON in json mode and the formatted line otherwise.
func (p *printer) value(v any, format string, args ...any) error {
	if p.json {
		return p.encode(v)
	}
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func (p *printer) task(t *boardv1.Task) error {
	if p.json {
		return p.encode(t)
	}
	return p.tasks([]*boardv1.Task{t})
}

func (p *printer) tasks(tasks []*boardv1.Task) error {
	if p.json {
		return p.encode(tasks)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tAGENT\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, color.Status(t.Status), t.Priority, color.Agent(t.AssignedAgentID), t.Title)
	}
	return tw.Flush()
}

func (p *printer) board(columns []boardv1.Column) error {
	if p.json {
		return p.encode(columns)
	}
	for i, col := range columns {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "%s (%d)\n", color.Status(col.Status), len(col.Tasks))
		for _, t := range col.Tasks {
			fmt.Fprintf(p.w, "  %s  %s\n", t.ID, t.Title)
		}
	}
	return nil
}

func (p *printer) taskDetail(t *boardv1.Task, chat []*boardv1.ChatEntry) error {
	if p.json {
		return p.encode(map[string]any{"task": t, "chat": chat})
	}
	fmt.Fprintf(p.w, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(p.w, "Status:   %s\n", color.Status(t.Status))
	fmt.Fprintf(p.w, "Priority: %s\n", t.Priority)
	if t.AssignedAgentID != "" {
		fmt.Fprintf(p.w, "Agent:    %s\n", color.Agent(t.AssignedAgentID))
	}
	if t.Branch != "" {
		fmt.Fprintf(p.w, "Branch:   %s\n", t.Branch)
	}
	if len(t.Labels) > 0 {
		fmt.Fprintf(p.w, "Labels:   %s\n", strings.Join(t.Labels, ", "))
	}
	if t.PullRequest != nil {
		fmt.Fprintf(p.w, "PR:       %s (%s)\n", t.PullRequest.URL, t.PullRequest.Status)
	}
	if t.Description != "" {
		fmt.Fprintf(p.w, "\n%s\n", t.Description)
	}
	if t.Refinement != "" {
		fmt.Fprintf(p.w, "\nPlan:\n%s\n", t.Refinement)
	}
	if len(t.Comments) > 0 {
		fmt.Fprintln(p.w, "\nComments:")
		for _, c := range t.Comments {
			fmt.Fprintf(p.w, "  [%s] %s: %s\n", c.CreatedAt.Format(time.DateTime), c.Author, c.Content)
		}
	}
	if len(chat) > 0 {
		fmt.Fprintln(p.w, "\nChat:")
		for _, e := range chat {
			who := e.Role
			if e.AgentID != "" {
				who = color.Agent(e.AgentID)
			}
			fmt.Fprintf(p.w, "  [%s] %s: %s\n", e.CreatedAt.Format(time.DateTime), who, e.Content)
		}
	}
	return nil
}

func (p *printer) job(j *boardv1.JobRecord) error {
	if p.json {
		return p.encode(j)
	}
	return p.jobs([]*boardv1.JobRecord{j})
}

func (p *printer) jobs(jobs []*boardv1.JobRecord) error {
	if p.json {
		return p.encode(jobs)
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tTYPE\tSTATUS\tAGENT\tATTEMPT\tSTARTED\tERROR")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.TaskID, j.Type, color.Status(j.Status), color.Agent(j.AgentID), j.Attempt,
			j.StartedAt.Format(time.DateTime), j.Error)
	}
	return tw.Flush()
}
