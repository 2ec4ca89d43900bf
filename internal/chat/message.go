package chat

import boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"

func ToMessage(e *Entry) *boardv1.ChatEntry {
	return &boardv1.ChatEntry{
		ID:          e.ID,
		TaskID:      e.TaskID,
		Role:        string(e.Role),
		Content:     e.Content,
		Attachments: e.Attachments,
		AgentID:     e.AgentID,
		CreatedAt:   e.CreatedAt,
	}
}
