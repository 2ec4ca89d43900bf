package chat

import "time"

type Role string

const (
	RoleHuman  Role = "human"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Entry is one line of a task's transcript. Entries are never edited.
type Entry struct {
	ID          string    `yaml:"id"`
	TaskID      string    `yaml:"task_id"`
	Role        Role      `yaml:"role"`
	Content     string    `yaml:"content"`
	Attachments []string  `yaml:"attachments,omitempty"`
	AgentID     string    `yaml:"agent_id,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}
