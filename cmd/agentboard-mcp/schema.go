package main

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type ListTasksInput struct {
	Status          string `json:"status,omitempty"`
	AssignedAgentID string `json:"assignedAgentId,omitempty"`
	Label           string `json:"label,omitempty"`
}

type GetTaskInput struct {
	ID        string `json:"id"`
	ChatLimit int    `json:"chatLimit,omitempty"`
}

type AddCommentInput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type UpdateTaskInput struct {
	ID          string  `json:"id"`
	Description *string `json:"description,omitempty"`
	Branch      *string `json:"branch,omitempty"`
}

type LinkPullRequestInput struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status,omitempty"`
}

type MoveTaskInput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var statusEnum = []interface{}{"backlog", "refinement", "pending_approval", "todo", "in_progress", "review", "done"}

var ListTasksInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"status": {
			Type:        "string",
			Description: "Only tasks in this status",
			Enum:        statusEnum,
		},
		"assignedAgentId": {
			Type:        "string",
			Description: "Only tasks assigned to this agent",
		},
		"label": {
			Type:        "string",
			Description: "Only tasks carrying this label",
		},
	},
	AdditionalProperties: boolSchema(false),
}

var GetTaskInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id": {
			Type:        "string",
			Description: "Task ID",
		},
		"chatLimit": {
			Type:        "integer",
			Description: "Number of most recent chat entries to include (default 20)",
			Minimum:     float64Ptr(0),
		},
	},
	Required:             []string{"id"},
	AdditionalProperties: boolSchema(false),
}

var AddCommentInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id": {
			Type:        "string",
			Description: "Task ID",
		},
		"content": {
			Type:        "string",
			Description: "Comment text",
		},
	},
	Required:             []string{"id", "content"},
	AdditionalProperties: boolSchema(false),
}

var UpdateTaskInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id": {
			Type:        "string",
			Description: "Task ID",
		},
		"description": {
			Type:        "string",
			Description: "New task description",
		},
		"branch": {
			Type:        "string",
			Description: "Git branch the work is done on",
		},
	},
	Required:             []string{"id"},
	AdditionalProperties: boolSchema(false),
}

var LinkPullRequestInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id": {
			Type:        "string",
			Description: "Task ID",
		},
		"url": {
			Type:        "string",
			Description: "Pull request URL",
		},
		"status": {
			Type:        "string",
			Description: "Pull request status (default open)",
			Enum:        []interface{}{"open", "merged", "closed"},
		},
	},
	Required:             []string{"id", "url"},
	AdditionalProperties: boolSchema(false),
}

var MoveTaskInputSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"id": {
			Type:        "string",
			Description: "Task ID",
		},
		"status": {
			Type:        "string",
			Description: "Target status; must be reachable from the current one",
			Enum:        statusEnum,
		},
	},
	Required:             []string{"id", "status"},
	AdditionalProperties: boolSchema(false),
}

func float64Ptr(f float64) *float64 {
	return &f
}

func boolSchema(b bool) *jsonschema.Schema {
	if b {
		return &jsonschema.Schema{}
	}
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}
