package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/pkg/color"
)

var (
	app = kingpin.New("agentboard", "Operate an agentboard server")

	serverURL = app.Flag("server", "Board server URL").Envar("AGENTBOARD_SERVER_URL").Default("http://localhost:3100").String()
	apiKey    = app.Flag("api-key", "Board API key").Envar("AGENTBOARD_API_KEY").Required().String()
	jsonOut   = app.Flag("json", "Print raw JSON responses").Bool()

	// Task commands
	taskCmd = app.Command("task", "Task commands")

	taskCreateCmd      = taskCmd.Command("create", "Create a task")
	taskCreateTitle    = taskCreateCmd.Arg("title", "Task title").Required().String()
	taskCreateDesc     = taskCreateCmd.Flag("description", "Task description").Short('d').String()
	taskCreateStatus   = taskCreateCmd.Flag("status", "Initial status").String()
	taskCreatePriority = taskCreateCmd.Flag("priority", "low, medium, high or urgent").String()
	taskCreateAgent    = taskCreateCmd.Flag("agent", "Assigned agent id").String()
	taskCreateBranch   = taskCreateCmd.Flag("branch", "Git branch").String()
	taskCreateLabels   = taskCreateCmd.Flag("label", "Label (repeatable)").Strings()

	taskListCmd      = taskCmd.Command("list", "List tasks")
	taskListStatus   = taskListCmd.Flag("status", "Filter by status").String()
	taskListAgent    = taskListCmd.Flag("agent", "Filter by assigned agent").String()
	taskListPriority = taskListCmd.Flag("priority", "Filter by priority").String()
	taskListLabels   = taskListCmd.Flag("label", "Filter by label (repeatable)").Strings()

	taskBoardCmd = taskCmd.Command("board", "Show tasks grouped by status")

	taskShowCmd = taskCmd.Command("show", "Show a task and its chat")
	taskShowID  = taskShowCmd.Arg("id", "Task ID").Required().String()

	taskMoveCmd    = taskCmd.Command("move", "Move a task to another status")
	taskMoveID     = taskMoveCmd.Arg("id", "Task ID").Required().String()
	taskMoveStatus = taskMoveCmd.Arg("status", "Target status").Required().String()

	taskAssignCmd   = taskCmd.Command("assign", "Assign a task to an agent")
	taskAssignID    = taskAssignCmd.Arg("id", "Task ID").Required().String()
	taskAssignAgent = taskAssignCmd.Arg("agent", "Agent ID").Required().String()

	taskCommentCmd     = taskCmd.Command("comment", "Comment on a task")
	taskCommentID      = taskCommentCmd.Arg("id", "Task ID").Required().String()
	taskCommentContent = taskCommentCmd.Arg("content", "Comment text").Required().String()
	taskCommentAuthor  = taskCommentCmd.Flag("author", "Comment author").Default("human").String()

	taskChatCmd     = taskCmd.Command("chat", "Post a message to a task's chat")
	taskChatID      = taskChatCmd.Arg("id", "Task ID").Required().String()
	taskChatContent = taskChatCmd.Arg("content", "Message").Required().String()

	taskDeleteCmd = taskCmd.Command("delete", "Delete a task with its jobs and chat")
	taskDeleteID  = taskDeleteCmd.Arg("id", "Task ID").Required().String()

	// Job commands
	jobCmd = app.Command("job", "Job commands")

	jobStartCmd    = jobCmd.Command("start", "Start a job for a task")
	jobStartID     = jobStartCmd.Arg("task-id", "Task ID").Required().String()
	jobStartType   = jobStartCmd.Arg("type", "refinement or execution").Required().Enum("refinement", "execution")
	jobStartAgent  = jobStartCmd.Flag("agent", "Agent ID (defaults to the server's default agent)").String()
	jobStartPrompt = jobStartCmd.Flag("prompt", "Prompt (built from the task when empty)").String()

	jobPollCmd  = jobCmd.Command("poll", "Show a job's state")
	jobPollID   = jobPollCmd.Arg("task-id", "Task ID").Required().String()
	jobPollType = jobPollCmd.Arg("type", "refinement or execution").Required().Enum("refinement", "execution")

	jobCompleteCmd    = jobCmd.Command("complete", "Report a job result by hand")
	jobCompleteID     = jobCompleteCmd.Arg("task-id", "Task ID").Required().String()
	jobCompleteType   = jobCompleteCmd.Arg("type", "refinement or execution").Required().Enum("refinement", "execution")
	jobCompleteResult = jobCompleteCmd.Flag("result", "Result text").String()
	jobCompleteError  = jobCompleteCmd.Flag("error", "Failure message").String()

	// Recovery commands
	recoveryCmd        = app.Command("recovery", "Stuck job recovery")
	recoveryScanCmd    = recoveryCmd.Command("scan", "List stuck jobs without changing them")
	recoveryRecoverCmd = recoveryCmd.Command("recover", "Requeue stuck jobs")

	// Events
	eventsCmd    = app.Command("events", "Tail the board event stream")
	eventsTaskID = eventsCmd.Flag("task", "Only events for this task").String()
)

type clients struct {
	tasks    boardv1.TaskServiceClient
	jobs     boardv1.JobServiceClient
	recovery boardv1.RecoveryServiceClient
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auth := boardv1.WithBearerToken(*apiKey)
	c := &clients{
		tasks:    boardv1.NewTaskServiceClient(http.DefaultClient, *serverURL, auth),
		jobs:     boardv1.NewJobServiceClient(http.DefaultClient, *serverURL, auth),
		recovery: boardv1.NewRecoveryServiceClient(http.DefaultClient, *serverURL, auth),
	}
	p := newPrinter(os.Stdout, *jsonOut)

	if err := run(ctx, command, c, p); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.Error("Error:"), describe(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, c *clients, p *printer) error {
	switch command {
	case taskCreateCmd.FullCommand():
		resp, err := c.tasks.CreateTask(ctx, connect.NewRequest(&boardv1.CreateTaskRequest{
			Title:           *taskCreateTitle,
			Description:     *taskCreateDesc,
			Status:          *taskCreateStatus,
			Priority:        *taskCreatePriority,
			AssignedAgentID: *taskCreateAgent,
			Branch:          *taskCreateBranch,
			Labels:          *taskCreateLabels,
		}))
		if err != nil {
			return err
		}
		return p.task(resp.Msg.Task)

	case taskListCmd.FullCommand():
		resp, err := c.tasks.ListTasks(ctx, connect.NewRequest(&boardv1.ListTasksRequest{
			Status:          *taskListStatus,
			AssignedAgentID: *taskListAgent,
			Priority:        *taskListPriority,
			Labels:          *taskListLabels,
		}))
		if err != nil {
			return err
		}
		return p.tasks(resp.Msg.Tasks)

	case taskBoardCmd.FullCommand():
		resp, err := c.tasks.ListTasksByStatus(ctx, connect.NewRequest(&boardv1.ListTasksByStatusRequest{}))
		if err != nil {
			return err
		}
		return p.board(resp.Msg.Columns)

	case taskShowCmd.FullCommand():
		resp, err := c.tasks.GetTask(ctx, connect.NewRequest(&boardv1.GetTaskRequest{ID: *taskShowID}))
		if err != nil {
			return err
		}
		chat, err := c.tasks.ListChat(ctx, connect.NewRequest(&boardv1.ListChatRequest{TaskID: *taskShowID}))
		if err != nil {
			return err
		}
		return p.taskDetail(resp.Msg.Task, chat.Msg.Entries)

	case taskMoveCmd.FullCommand():
		resp, err := c.tasks.MoveTask(ctx, connect.NewRequest(&boardv1.MoveTaskRequest{ID: *taskMoveID, Status: *taskMoveStatus}))
		if err != nil {
			return err
		}
		return p.task(resp.Msg.Task)

	case taskAssignCmd.FullCommand():
		resp, err := c.tasks.AssignTask(ctx, connect.NewRequest(&boardv1.AssignTaskRequest{ID: *taskAssignID, AgentID: *taskAssignAgent}))
		if err != nil {
			return err
		}
		return p.task(resp.Msg.Task)

	case taskCommentCmd.FullCommand():
		resp, err := c.tasks.AddComment(ctx, connect.NewRequest(&boardv1.AddCommentRequest{
			ID:      *taskCommentID,
			Author:  *taskCommentAuthor,
			Content: *taskCommentContent,
		}))
		if err != nil {
			return err
		}
		return p.value(resp.Msg.Comment, "Comment %s added", resp.Msg.Comment.ID)

	case taskChatCmd.FullCommand():
		resp, err := c.tasks.PostChat(ctx, connect.NewRequest(&boardv1.PostChatRequest{TaskID: *taskChatID, Content: *taskChatContent}))
		if err != nil {
			return err
		}
		return p.value(resp.Msg.Entry, "Message %s posted", resp.Msg.Entry.ID)

	case taskDeleteCmd.FullCommand():
		resp, err := c.tasks.DeleteTask(ctx, connect.NewRequest(&boardv1.DeleteTaskRequest{ID: *taskDeleteID}))
		if err != nil {
			return err
		}
		if !resp.Msg.Deleted {
			return p.value(resp.Msg, "Task %s did not exist", *taskDeleteID)
		}
		return p.value(resp.Msg, "Task %s deleted", *taskDeleteID)

	case jobStartCmd.FullCommand():
		resp, err := c.jobs.StartJob(ctx, connect.NewRequest(&boardv1.StartJobRequest{
			TaskID:  *jobStartID,
			Type:    *jobStartType,
			AgentID: *jobStartAgent,
			Prompt:  *jobStartPrompt,
		}))
		if err != nil {
			return err
		}
		return p.job(resp.Msg.Job)

	case jobPollCmd.FullCommand():
		resp, err := c.jobs.PollJob(ctx, connect.NewRequest(&boardv1.PollJobRequest{TaskID: *jobPollID, Type: *jobPollType}))
		if err != nil {
			return err
		}
		return p.job(resp.Msg.Job)

	case jobCompleteCmd.FullCommand():
		_, err := c.jobs.CompleteJob(ctx, connect.NewRequest(&boardv1.CompleteJobRequest{
			TaskID: *jobCompleteID,
			Type:   *jobCompleteType,
			Result: *jobCompleteResult,
			Error:  *jobCompleteError,
		}))
		if err != nil {
			return err
		}
		return p.value(struct{}{}, "Job %s:%s completed", *jobCompleteID, *jobCompleteType)

	case recoveryScanCmd.FullCommand():
		resp, err := c.recovery.ScanStuckJobs(ctx, connect.NewRequest(&boardv1.ScanStuckJobsRequest{}))
		if err != nil {
			return err
		}
		return p.jobs(resp.Msg.Jobs)

	case recoveryRecoverCmd.FullCommand():
		resp, err := c.recovery.RecoverStuckJobs(ctx, connect.NewRequest(&boardv1.RecoverStuckJobsRequest{}))
		if err != nil {
			return err
		}
		return p.value(resp.Msg, "Requeued %d job(s)", len(resp.Msg.Recovered))

	case eventsCmd.FullCommand():
		return tailEvents(ctx, http.DefaultClient, *serverURL, *apiKey, *eventsTaskID, p)
	}
	return fmt.Errorf("unknown command %q", command)
}

// describe prefers the server's message over connect's "code: message" form.
func describe(err error) string {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return fmt.Sprintf("%s (%s)", ce.Message(), ce.Code())
	}
	return err.Error()
}
