package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kazz187/agentboard/pkg/color"
)

type streamEvent struct {
	Type      string          `json:"type"`
	TaskID    string          `json:"taskId"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// tailEvents prints board events until ctx is done or the server closes the
// stream.
func tailEvents(ctx context.Context, client *http.Client, baseURL, apiKey, taskID string, p *printer) error {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/api/events")
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if taskID != "" {
		q := u.Query()
		q.Set("task_id", taskID)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("event stream: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	err = readEvents(resp.Body, p)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func readEvents(r io.Reader, p *printer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if err := p.event(data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (p *printer) event(data string) error {
	if p.json {
		_, err := fmt.Fprintln(p.w, data)
		return err
	}
	var ev streamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		_, err := fmt.Fprintln(p.w, data)
		return err
	}
	line := fmt.Sprintf("%s  %-18s", ev.Timestamp.Local().Format(time.TimeOnly), ev.Type)
	if ev.TaskID != "" {
		line += "  " + ev.TaskID
	}
	if detail := eventDetail(ev); detail != "" {
		line += "  " + detail
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}

func eventDetail(ev streamEvent) string {
	if len(ev.Payload) == 0 {
		return ""
	}
	switch ev.Type {
	case "task_moved":
		var moved struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if json.Unmarshal(ev.Payload, &moved) == nil && moved.To != "" {
			return color.Status(moved.From) + " -> " + color.Status(moved.To)
		}
	case "agent_updated":
		var rec struct {
			Type    string `json:"type"`
			Status  string `json:"status"`
			AgentID string `json:"agentId"`
		}
		if json.Unmarshal(ev.Payload, &rec) == nil && rec.Status != "" {
			return fmt.Sprintf("%s %s %s", rec.Type, color.Status(rec.Status), color.Agent(rec.AgentID))
		}
	}
	return ""
}
