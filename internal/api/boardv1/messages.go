package boardv1

import "time"

type Task struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Status          string       `json:"status"`
	Priority        string       `json:"priority"`
	AssignedAgentID string       `json:"assignedAgentId,omitempty"`
	ProjectID       string       `json:"projectId,omitempty"`
	Branch          string       `json:"branch,omitempty"`
	Labels          []string     `json:"labels,omitempty"`
	Refinement      string       `json:"refinement,omitempty"`
	PullRequest     *PullRequest `json:"pullRequest,omitempty"`
	SortOrder       float64      `json:"sortOrder"`
	Comments        []Comment    `json:"comments,omitempty"`
	Version         int64        `json:"version"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type PullRequest struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatEntry struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
	AgentID     string    `json:"agentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type JobRecord struct {
	Status      string     `json:"status"`
	AgentID     string     `json:"agentId"`
	TaskID      string     `json:"taskId"`
	Type        string     `json:"type"`
	Prompt      string     `json:"prompt,omitempty"`
	SessionKey  string     `json:"sessionKey,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempt     int        `json:"attempt"`
}

// Task service

type CreateTaskRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Status          string   `json:"status,omitempty"`
	Priority        string   `json:"priority,omitempty"`
	AssignedAgentID string   `json:"assignedAgentId,omitempty"`
	ProjectID       string   `json:"projectId,omitempty"`
	Branch          string   `json:"branch,omitempty"`
	Labels          []string `json:"labels,omitempty"`
}

type GetTaskRequest struct {
	ID string `json:"id"`
}

type TaskResponse struct {
	Task *Task `json:"task"`
}

type ListTasksRequest struct {
	Status          string   `json:"status,omitempty"`
	AssignedAgentID string   `json:"assignedAgentId,omitempty"`
	Priority        string   `json:"priority,omitempty"`
	Labels          []string `json:"labels,omitempty"`
}

type ListTasksResponse struct {
	Tasks []*Task `json:"tasks"`
}

type ListTasksByStatusRequest struct{}

type Column struct {
	Status string  `json:"status"`
	Tasks  []*Task `json:"tasks"`
}

type ListTasksByStatusResponse struct {
	Columns []Column `json:"columns"`
}

// UpdateTaskRequest patches the fields that are set. Status cannot be
// patched; use MoveTask.
type UpdateTaskRequest struct {
	ID          string    `json:"id"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *string   `json:"priority,omitempty"`
	ProjectID   *string   `json:"projectId,omitempty"`
	Branch      *string   `json:"branch,omitempty"`
	Labels      *[]string `json:"labels,omitempty"`
	Refinement  *string   `json:"refinement,omitempty"`
}

type MoveTaskRequest struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	SortOrder *float64 `json:"sortOrder,omitempty"`
}

type AssignTaskRequest struct {
	ID      string `json:"id"`
	AgentID string `json:"agentId"`
}

type AddCommentRequest struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

type AddCommentResponse struct {
	Comment *Comment `json:"comment"`
}

type LinkPullRequestRequest struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status,omitempty"`
}

type DeleteTaskRequest struct {
	ID string `json:"id"`
}

type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}

type ListChatRequest struct {
	TaskID string `json:"taskId"`
	Limit  int    `json:"limit,omitempty"`
}

type ListChatResponse struct {
	Entries []*ChatEntry `json:"entries"`
}

type PostChatRequest struct {
	TaskID      string   `json:"taskId"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

type PostChatResponse struct {
	Entry *ChatEntry `json:"entry"`
}

// Job service

type StartJobRequest struct {
	TaskID  string `json:"taskId"`
	Type    string `json:"type"`
	AgentID string `json:"agentId,omitempty"`
	// Prompt overrides the prompt built from the task and its chat.
	Prompt string `json:"prompt,omitempty"`
}

type PollJobRequest struct {
	TaskID string `json:"taskId"`
	Type   string `json:"type"`
}

type JobResponse struct {
	Job *JobRecord `json:"job"`
}

type AcknowledgeJobRequest struct {
	TaskID     string `json:"taskId"`
	Type       string `json:"type"`
	AgentID    string `json:"agentId"`
	SessionKey string `json:"sessionKey,omitempty"`
	Status     string `json:"status"`
}

type CompleteJobRequest struct {
	TaskID  string `json:"taskId"`
	Type    string `json:"type"`
	AgentID string `json:"agentId,omitempty"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

type CompleteJobResponse struct{}

// Recovery service

type ScanStuckJobsRequest struct{}

type ScanStuckJobsResponse struct {
	Jobs []*JobRecord `json:"jobs"`
}

type RecoverStuckJobsRequest struct{}

type RecoverStuckJobsResponse struct {
	Recovered []string `json:"recovered"`
}

// Runtime services

// Dispatch asks an agent runtime to run a prompt. It is the request body of
// RuntimeGatewayService.Dispatch and the message pushed to subscribed
// workers. The first message of a subscribe stream only carries Registered.
type Dispatch struct {
	Prompt         string `json:"task"`
	AgentID        string `json:"agentId"`
	Label          string `json:"label"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	TaskID         string `json:"taskId"`
	JobType        string `json:"jobType"`
	Registered     bool   `json:"registered,omitempty"`
}

type DispatchResponse struct {
	Accepted bool `json:"accepted"`
}

type SubscribeRequest struct {
	WorkerID          string `json:"workerId"`
	MaxConcurrentJobs int    `json:"maxConcurrentJobs"`
}

type HeartbeatRequest struct {
	WorkerID   string `json:"workerId"`
	ActiveJobs int    `json:"activeJobs"`
}

type HeartbeatResponse struct {
	Known bool `json:"known"`
}

// Push service

type RegisterPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type RegisterPushSubscriptionResponse struct {
	ID string `json:"id"`
}

type UnregisterPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
}

type UnregisterPushSubscriptionResponse struct{}

type GetVAPIDPublicKeyRequest struct{}

type GetVAPIDPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}
