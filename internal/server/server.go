// Package server exposes the webhook receiver and the operational HTTP
// endpoints for cache inspection and health checks.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ismoil793/mega-miyya/internal/adapter/githubapp"
	"github.com/ismoil793/mega-miyya/internal/domain"
	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
)

// EventHandler is the inbound port the webhook endpoint drives.
type EventHandler interface {
	HandlePullRequestEvent(ctx context.Context, ev domain.PullRequestEvent) error
	HandleInstallationEvent(ctx context.Context, ev domain.InstallationEvent)
}

// CacheInspector exposes the installation cache to the ops endpoints.
type CacheInspector interface {
	Stats() githubapp.CacheStats
	InvalidateAll()
}

// Deps captures the server's dependencies.
type Deps struct {
	Handler EventHandler
	Cache   CacheInspector
	Logger  review.Logger

	// WebhookSecret signs inbound webhook deliveries. An empty secret
	// disables signature verification (local development only).
	WebhookSecret string
}

// Server is the HTTP front of the service.
type Server struct {
	deps   Deps
	router *mux.Router
	http   *http.Server
}

// New builds the server and its routes.
func New(addr string, deps Deps) *Server {
	s := &Server{deps: deps}

	r := mux.NewRouter()
	r.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/ops/cache", s.handleCacheStats).Methods(http.MethodGet)
	r.HandleFunc("/ops/cache", s.handleCacheFlush).Methods(http.MethodDelete)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router = r

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	return s
}

// Router returns the route handler (for testing).
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.LogInfo(ctx, message, fields)
	}
}

func (s *Server) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.LogWarning(ctx, message, fields)
	}
}

func (s *Server) logError(ctx context.Context, message string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.LogError(ctx, message, fields)
	}
}
