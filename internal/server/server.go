// Package server wires the HTTP surface: the payment-provider webhook
// endpoint, the content API, health, and metrics.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jperi24/nsfw-platform/internal/common/config"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
)

// Deps collects the handlers the router mounts.
type Deps struct {
	Webhook *WebhookHandler
	Content *ContentHandler
	Limiter *RateLimiter
}

// Server owns the HTTP listener lifecycle.
type Server struct {
	httpServer *http.Server
	limiter    *RateLimiter
	logger     logger.Logger
	cfg        config.ServerConfig
}

func New(cfg config.ServerConfig, deps Deps, log logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      newRouter(deps),
			ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
			WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		},
		limiter: deps.Limiter,
		logger:  log,
		cfg:     cfg,
	}
}

func newRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}
		r.Post("/webhooks/billing", deps.Webhook.Handle)
	})

	r.Route("/content", func(r chi.Router) {
		r.Get("/", deps.Content.ListItems)
		r.Post("/", deps.Content.CreateItem)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", deps.Content.GetItem)
			r.Patch("/premium", deps.Content.SetItemPremium)
			r.Delete("/", deps.Content.DeleteItem)
		})
	})
	r.Get("/models/{id}", deps.Content.GetModel)

	return r
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.cfg.Address,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
