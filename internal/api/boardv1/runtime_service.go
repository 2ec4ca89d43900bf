package boardv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	RuntimeServiceName        = "agentboard.v1.RuntimeService"
	RuntimeGatewayServiceName = "agentboard.v1.RuntimeGatewayService"
)

const (
	RuntimeServiceSubscribeProcedure = "/agentboard.v1.RuntimeService/Subscribe"
	RuntimeServiceHeartbeatProcedure = "/agentboard.v1.RuntimeService/Heartbeat"

	RuntimeGatewayServiceDispatchProcedure = "/agentboard.v1.RuntimeGatewayService/Dispatch"
)

// RuntimeServiceHandler is served by the board to worker processes, which
// subscribe to receive dispatches.
type RuntimeServiceHandler interface {
	Subscribe(context.Context, *connect.Request[SubscribeRequest], *connect.ServerStream[Dispatch]) error
	Heartbeat(context.Context, *connect.Request[HeartbeatRequest]) (*connect.Response[HeartbeatResponse], error)
}

func NewRuntimeServiceHandler(svc RuntimeServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(RuntimeServiceSubscribeProcedure,
		connect.NewServerStreamHandler(RuntimeServiceSubscribeProcedure, svc.Subscribe, opts...))
	unary(mux, RuntimeServiceHeartbeatProcedure, svc.Heartbeat, opts)
	return "/" + RuntimeServiceName + "/", mux
}

type RuntimeServiceClient interface {
	Subscribe(context.Context, *connect.Request[SubscribeRequest]) (*connect.ServerStreamForClient[Dispatch], error)
	Heartbeat(context.Context, *connect.Request[HeartbeatRequest]) (*connect.Response[HeartbeatResponse], error)
}

type runtimeServiceClient struct {
	subscribe *connect.Client[SubscribeRequest, Dispatch]
	heartbeat *connect.Client[HeartbeatRequest, HeartbeatResponse]
}

func NewRuntimeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RuntimeServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &runtimeServiceClient{
		subscribe: connect.NewClient[SubscribeRequest, Dispatch](httpClient, baseURL+RuntimeServiceSubscribeProcedure, opts...),
		heartbeat: connect.NewClient[HeartbeatRequest, HeartbeatResponse](httpClient, baseURL+RuntimeServiceHeartbeatProcedure, opts...),
	}
}

func (c *runtimeServiceClient) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest]) (*connect.ServerStreamForClient[Dispatch], error) {
	return c.subscribe.CallServerStream(ctx, req)
}

func (c *runtimeServiceClient) Heartbeat(ctx context.Context, req *connect.Request[HeartbeatRequest]) (*connect.Response[HeartbeatResponse], error) {
	return c.heartbeat.CallUnary(ctx, req)
}

// RuntimeGatewayServiceHandler is implemented by an external agent runtime
// that accepts dispatches over HTTP.
type RuntimeGatewayServiceHandler interface {
	Dispatch(context.Context, *connect.Request[Dispatch]) (*connect.Response[DispatchResponse], error)
}

func NewRuntimeGatewayServiceHandler(svc RuntimeGatewayServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	unary(mux, RuntimeGatewayServiceDispatchProcedure, svc.Dispatch, opts)
	return "/" + RuntimeGatewayServiceName + "/", mux
}

type RuntimeGatewayServiceClient = RuntimeGatewayServiceHandler

type runtimeGatewayServiceClient struct {
	dispatch *connect.Client[Dispatch, DispatchResponse]
}

func NewRuntimeGatewayServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RuntimeGatewayServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &runtimeGatewayServiceClient{
		dispatch: connect.NewClient[Dispatch, DispatchResponse](httpClient, baseURL+RuntimeGatewayServiceDispatchProcedure, clientOptions(opts)...),
	}
}

func (c *runtimeGatewayServiceClient) Dispatch(ctx context.Context, req *connect.Request[Dispatch]) (*connect.Response[DispatchResponse], error) {
	return c.dispatch.CallUnary(ctx, req)
}
