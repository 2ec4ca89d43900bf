// Package agentruntime implements job.Runtime on top of an external agent
// runtime reached over HTTP, or of worker processes connected to the board.
package agentruntime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/job"
)

const dispatchTimeout = 30 * time.Second

// Gateway forwards dispatches to RuntimeGatewayService on an external
// runtime.
type Gateway struct {
	client boardv1.RuntimeGatewayServiceClient
}

var _ job.Runtime = (*Gateway)(nil)

func NewGateway(httpClient connect.HTTPClient, baseURL, token string) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var opts []connect.ClientOption
	if token != "" {
		opts = append(opts, boardv1.WithBearerToken(token))
	}
	return &Gateway{client: boardv1.NewRuntimeGatewayServiceClient(httpClient, baseURL, opts...)}
}

func (g *Gateway) Dispatch(ctx context.Context, req *job.DispatchRequest) error {
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	resp, err := g.client.Dispatch(ctx, connect.NewRequest(&boardv1.Dispatch{
		Prompt:         req.Prompt,
		AgentID:        req.AgentID,
		Label:          req.Label,
		TimeoutSeconds: req.TimeoutSeconds,
		TaskID:         req.TaskID,
		JobType:        string(req.JobType),
	}))
	if err != nil {
		return fmt.Errorf("gateway dispatch %s: %w: %w", req.Label, job.ErrRuntimeUnavailable, err)
	}
	if !resp.Msg.Accepted {
		return fmt.Errorf("gateway dispatch %s: %w: %w", req.Label, job.ErrRuntimeUnavailable, errors.New("rejected"))
	}
	return nil
}
