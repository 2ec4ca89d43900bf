package pushnotification

import (
	"context"
	"time"

	"connectrpc.com/connect"

	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/config"
	"github.com/kazz187/agentboard/internal/pushsubscription"
	"github.com/kazz187/agentboard/pkg/cerr"
)

var _ boardv1.PushServiceHandler = (*Server)(nil)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	now      func() time.Time
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository) *Server {
	return &Server{vapidEnv: vapidEnv, repo: repo, now: time.Now}
}

func (s *Server) GetVAPIDPublicKey(_ context.Context, _ *connect.Request[boardv1.GetVAPIDPublicKeyRequest]) (*connect.Response[boardv1.GetVAPIDPublicKeyResponse], error) {
	if !s.vapidEnv.Enabled() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	return connect.NewResponse(&boardv1.GetVAPIDPublicKeyResponse{PublicKey: s.vapidEnv.PublicKey}), nil
}

func (s *Server) RegisterPushSubscription(ctx context.Context, req *connect.Request[boardv1.RegisterPushSubscriptionRequest]) (*connect.Response[boardv1.RegisterPushSubscriptionResponse], error) {
	switch {
	case req.Msg.Endpoint == "":
		return nil, cerr.NewValidationError("endpoint", "endpoint is required")
	case req.Msg.P256dh == "":
		return nil, cerr.NewValidationError("p256dh", "p256dh key is required")
	case req.Msg.Auth == "":
		return nil, cerr.NewValidationError("auth", "auth key is required")
	}

	id := pushsubscription.IDFor(req.Msg.Endpoint)
	createdAt := s.now()
	if existing, err := s.repo.Get(ctx, id); err == nil {
		createdAt = existing.CreatedAt
	} else if !cerr.IsCode(err, cerr.NotFound) {
		return nil, err
	}

	if err := s.repo.Put(ctx, &pushsubscription.Subscription{
		ID:        id,
		Endpoint:  req.Msg.Endpoint,
		P256dhKey: req.Msg.P256dh,
		AuthKey:   req.Msg.Auth,
		CreatedAt: createdAt,
	}); err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.RegisterPushSubscriptionResponse{ID: id}), nil
}

func (s *Server) UnregisterPushSubscription(ctx context.Context, req *connect.Request[boardv1.UnregisterPushSubscriptionRequest]) (*connect.Response[boardv1.UnregisterPushSubscriptionResponse], error) {
	if req.Msg.Endpoint == "" {
		return nil, cerr.NewValidationError("endpoint", "endpoint is required")
	}
	if err := s.repo.Delete(ctx, pushsubscription.IDFor(req.Msg.Endpoint)); err != nil {
		return nil, err
	}
	return connect.NewResponse(&boardv1.UnregisterPushSubscriptionResponse{}), nil
}
