package internal

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/agentboard/internal/agentruntime"
	boardv1 "github.com/kazz187/agentboard/internal/api/boardv1"
	"github.com/kazz187/agentboard/internal/config"
	"github.com/kazz187/agentboard/internal/event"
	"github.com/kazz187/agentboard/internal/job"
	"github.com/kazz187/agentboard/internal/pushnotification"
	"github.com/kazz187/agentboard/internal/recovery"
	"github.com/kazz187/agentboard/internal/task"
	"github.com/kazz187/agentboard/pkg/cerr"
	"github.com/kazz187/agentboard/pkg/clog"
)

type Server struct {
	server         *http.Server
	env            *config.Env
	taskServer     *task.Server
	jobServer      *job.Server
	recoveryServer *recovery.Server
	runtimeServer  *agentruntime.Server
	pushServer     *pushnotification.Server
	events         *event.Handler
}

// NewServer wires the RPC services. runtimeServer may be nil when jobs go
// to an external gateway instead of connected workers.
func NewServer(
	env *config.Env,
	taskServer *task.Server,
	jobServer *job.Server,
	recoveryServer *recovery.Server,
	runtimeServer *agentruntime.Server,
	pushServer *pushnotification.Server,
	events *event.Handler,
) *Server {
	return &Server{
		env:            env,
		taskServer:     taskServer,
		jobServer:      jobServer,
		recoveryServer: recoveryServer,
		runtimeServer:  runtimeServer,
		pushServer:     pushServer,
		events:         events,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(clog.SlogChiMiddleware(nil))
		r.Method(http.MethodGet, "/events", s.events)
		r.NotFound(cerr.NotFoundHandler().ServeHTTP)
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	services := []string{
		boardv1.TaskServiceName,
		boardv1.JobServiceName,
		boardv1.RecoveryServiceName,
		boardv1.PushServiceName,
	}

	handlerOpts := connect.WithInterceptors(s.interceptors()...)
	mux.Handle(boardv1.NewTaskServiceHandler(s.taskServer, handlerOpts))
	mux.Handle(boardv1.NewJobServiceHandler(s.jobServer, handlerOpts))
	mux.Handle(boardv1.NewRecoveryServiceHandler(s.recoveryServer, handlerOpts))
	mux.Handle(boardv1.NewPushServiceHandler(s.pushServer, handlerOpts))
	if s.runtimeServer != nil {
		mux.Handle(boardv1.NewRuntimeServiceHandler(s.runtimeServer, handlerOpts))
		services = append(services, boardv1.RuntimeServiceName)
	}
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(services...)))

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux))
}

// ListenAndServe uses ctx as the base context of every request, so
// cancelling it also ends long-lived streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectInterceptor(),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

// apiKeyMiddleware accepts the key as X-API-Key, a bearer token, or, for
// EventSource clients that cannot set headers, the api_key query parameter
// on the event stream.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/grpc.health.v1.Health/") {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if apiKey == "" && r.URL.Path == "/api/events" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.env.APIKey)) != 1 {
			cerr.WriteJSONError(r.Context(), w, cerr.NewError(cerr.Unauthenticated, "unauthorized", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
