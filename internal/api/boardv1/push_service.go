package boardv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const PushServiceName = "agentboard.v1.PushService"

const (
	PushServiceRegisterProcedure          = "/agentboard.v1.PushService/RegisterPushSubscription"
	PushServiceUnregisterProcedure        = "/agentboard.v1.PushService/UnregisterPushSubscription"
	PushServiceGetVAPIDPublicKeyProcedure = "/agentboard.v1.PushService/GetVAPIDPublicKey"
)

type PushServiceHandler interface {
	RegisterPushSubscription(context.Context, *connect.Request[RegisterPushSubscriptionRequest]) (*connect.Response[RegisterPushSubscriptionResponse], error)
	UnregisterPushSubscription(context.Context, *connect.Request[UnregisterPushSubscriptionRequest]) (*connect.Response[UnregisterPushSubscriptionResponse], error)
	GetVAPIDPublicKey(context.Context, *connect.Request[GetVAPIDPublicKeyRequest]) (*connect.Response[GetVAPIDPublicKeyResponse], error)
}

func NewPushServiceHandler(svc PushServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	unary(mux, PushServiceRegisterProcedure, svc.RegisterPushSubscription, opts)
	unary(mux, PushServiceUnregisterProcedure, svc.UnregisterPushSubscription, opts)
	unary(mux, PushServiceGetVAPIDPublicKeyProcedure, svc.GetVAPIDPublicKey, opts)
	return "/" + PushServiceName + "/", mux
}

type PushServiceClient = PushServiceHandler

type pushServiceClient struct {
	register   *connect.Client[RegisterPushSubscriptionRequest, RegisterPushSubscriptionResponse]
	unregister *connect.Client[UnregisterPushSubscriptionRequest, UnregisterPushSubscriptionResponse]
	publicKey  *connect.Client[GetVAPIDPublicKeyRequest, GetVAPIDPublicKeyResponse]
}

func NewPushServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PushServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &pushServiceClient{
		register:   connect.NewClient[RegisterPushSubscriptionRequest, RegisterPushSubscriptionResponse](httpClient, baseURL+PushServiceRegisterProcedure, opts...),
		unregister: connect.NewClient[UnregisterPushSubscriptionRequest, UnregisterPushSubscriptionResponse](httpClient, baseURL+PushServiceUnregisterProcedure, opts...),
		publicKey:  connect.NewClient[GetVAPIDPublicKeyRequest, GetVAPIDPublicKeyResponse](httpClient, baseURL+PushServiceGetVAPIDPublicKeyProcedure, opts...),
	}
}

func (c *pushServiceClient) RegisterPushSubscription(ctx context.Context, req *connect.Request[RegisterPushSubscriptionRequest]) (*connect.Response[RegisterPushSubscriptionResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *pushServiceClient) UnregisterPushSubscription(ctx context.Context, req *connect.Request[UnregisterPushSubscriptionRequest]) (*connect.Response[UnregisterPushSubscriptionResponse], error) {
	return c.unregister.CallUnary(ctx, req)
}

func (c *pushServiceClient) GetVAPIDPublicKey(ctx context.Context, req *connect.Request[GetVAPIDPublicKeyRequest]) (*connect.Response[GetVAPIDPublicKeyResponse], error) {
	return c.publicKey.CallUnary(ctx, req)
}
