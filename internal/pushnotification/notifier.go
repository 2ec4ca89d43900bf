// Package pushnotification sends browser push notifications for board
// events a human should look at.
package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/eventbus"
	"github.com/kazz187/agentboard/internal/pipeline"
)

const queueSize = 64

// Notifier turns bus events into notifications. Handle only enqueues; Run
// does the sending.
type Notifier struct {
	sender *Sender
	queue  chan *NotificationPayload
}

func NewNotifier(sender *Sender) *Notifier {
	return &Notifier{
		sender: sender,
		queue:  make(chan *NotificationPayload, queueSize),
	}
}

func (n *Notifier) Handle(ctx context.Context, ev eventbus.Event) error {
	payload, ok := notificationFor(ev)
	if !ok {
		return nil
	}
	select {
	case n.queue <- payload:
	default:
		slog.WarnContext(ctx, "push notification: queue full, dropping", "event_type", ev.Type, "task_id", ev.TaskID)
	}
	return nil
}

func (n *Notifier) Run(ctx context.Context) {
	slog.InfoContext(ctx, "push notifier started")
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "push notifier stopped")
			return
		case p := <-n.queue:
			n.sender.SendToAll(ctx, p)
		}
	}
}

func notificationFor(ev eventbus.Event) (*NotificationPayload, bool) {
	url := "/tasks/" + ev.TaskID
	switch ev.Type {
	case eventbus.TypeAgentUpdated:
		rec, ok := ev.Payload.(*boardv1.JobRecord)
		if !ok {
			return nil, false
		}
		switch {
		case rec.Status == "error":
			return &NotificationPayload{
				Title: fmt.Sprintf("%s job failed", rec.Type),
				Body:  rec.Error,
				URL:   url,
				Tag:   ev.TaskID + ":" + rec.Type,
			}, true
		case rec.Status == "pending" && rec.Attempt > 1:
			return &NotificationPayload{
				Title: fmt.Sprintf("%s job requeued", rec.Type),
				Body:  fmt.Sprintf("Attempt %d after the previous run stalled.", rec.Attempt),
				URL:   url,
				Tag:   ev.TaskID + ":" + rec.Type,
			}, true
		}
	case eventbus.TypeTaskMoved:
		m, ok := ev.Payload.(map[string]any)
		if !ok {
			return nil, false
		}
		to, _ := m["to"].(pipeline.Status)
		t, _ := m["task"].(*boardv1.Task)
		var title string
		switch to {
		case pipeline.StatusPendingApproval:
			title = "Plan ready for approval"
		case pipeline.StatusReview:
			title = "Ready for review"
		default:
			return nil, false
		}
		body := ev.TaskID
		if t != nil {
			body = t.Title
		}
		return &NotificationPayload{Title: title, Body: body, URL: url, Tag: ev.TaskID}, true
	}
	return nil, false
}
