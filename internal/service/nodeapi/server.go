// Package nodeapi serves the physical node registry over HTTP for local
// and offline use. It speaks the same protocol as the dashboard.
package nodeapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dagu-org/faultline/internal/cmn/config"
	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// Server is the node registry HTTP server.
type Server struct {
	config     *config.Config
	backend    noderegistry.Backend
	httpServer *http.Server
	listener   net.Listener
	registry   *prometheus.Registry
	metrics    *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithListener serves on a pre-bound listener instead of the configured
// address.
func WithListener(l net.Listener) Option {
	return func(s *Server) {
		s.listener = l
	}
}

// WithRegistry registers the server metrics with r instead of a private
// registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// New creates a server that stores nodes in backend.
func New(cfg *config.Config, backend noderegistry.Backend, opts ...Option) *Server {
	srv := &Server{config: cfg, backend: backend}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.registry == nil {
		srv.registry = prometheus.NewRegistry()
	}
	srv.metrics = NewMetrics(srv.registry)
	return srv
}

// Handler builds the router with its middleware stack.
func (srv *Server) Handler() http.Handler {
	requestLogger := httplog.NewLogger("http", httplog.Options{
		LogLevel:         slog.LevelDebug,
		JSON:             srv.config.Core.LogFormat == "json",
		Concise:          true,
		MessageFieldName: "msg",
	})

	origins := srv.config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewMux()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(requestLogger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Accept"},
		MaxAge:         300,
	}))

	h := &handlers{backend: srv.backend, metrics: srv.metrics}
	r.Route("/api/node", func(r chi.Router) {
		r.Post("/registry", h.addNode)
		r.Get("/list", h.listNodes)
		r.Delete("/delete/{name}", h.deleteNode)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(srv.registry, promhttp.HandlerOpts{}))
	return r
}

// Serve runs the server until ctx is done, then shuts it down gracefully.
func (srv *Server) Serve(ctx context.Context) error {
	addr := srv.config.Server.Address()
	srv.httpServer = &http.Server{
		Handler:           srv.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.listener != nil {
			logger.Info(ctx, "Node registry is starting on pre-bound listener", tag.Address(srv.listener.Addr().String()))
			err = srv.httpServer.Serve(srv.listener)
		} else {
			logger.Info(ctx, "Node registry is starting", tag.Address(addr))
			err = srv.httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info(ctx, "Context done, shutting down node registry")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.httpServer.SetKeepAlivesEnabled(false)
	if err := srv.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Failed to shutdown server gracefully", tag.Error(err))
		return err
	}
	return <-errCh
}
