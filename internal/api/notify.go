package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/tchen/chat-notify/internal/config"
	"github.com/tchen/chat-notify/internal/liveness"
	"github.com/tchen/chat-notify/internal/metrics"
	"github.com/tchen/chat-notify/internal/registry"
)

type NotifyApp struct {
	log        *log.Logger
	registry   *registry.Registry
	tracker    *liveness.Tracker
	mux        *http.Server
	signingKey []byte

	heartbeatInterval time.Duration
	keepAliveInterval time.Duration
}

func NewNotifyApp(mux *http.ServeMux, logger *log.Logger, reg *registry.Registry, tracker *liveness.Tracker, cfg *config.Config) *NotifyApp {
	s := &NotifyApp{
		log:               logger,
		registry:          reg,
		tracker:           tracker,
		signingKey:        cfg.SigningKey,
		heartbeatInterval: cfg.HeartbeatInterval,
		keepAliveInterval: cfg.KeepAliveInterval,
	}
	if s.heartbeatInterval <= 0 {
		s.heartbeatInterval = config.DefaultHeartbeatInterval
	}
	if s.keepAliveInterval <= 0 {
		s.keepAliveInterval = config.DefaultKeepAliveInterval
	}

	mux.HandleFunc("GET /events", s.authMiddleware(s.events))
	mux.HandleFunc("GET /alive", s.authMiddleware(s.alive))
	mux.HandleFunc("GET /healthz", s.health)
	mux.Handle("GET /metrics", metrics.Handler())

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.requestIdMiddleware(h)
	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *NotifyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *NotifyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
