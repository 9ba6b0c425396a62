// Package server exposes the compositor over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/gin-gonic/gin"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/compositor"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/config"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/logging"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/template"
)

// Options holds the server's dependencies.
type Options struct {
	Config     config.ServerConfig
	Compositor *compositor.Compositor
	Template   *template.Store
	Logger     *bolt.Logger
	Version    string
}

// Server is the HTTP surface of the compositor.
type Server struct {
	config  config.ServerConfig
	engine  *gin.Engine
	handler *Handler
	logger  *bolt.Logger
}

// New creates the server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Get()
	}
	gin.SetMode(opts.Config.Mode)

	h := &Handler{
		compositor: opts.Compositor,
		template:   opts.Template,
		bulkhead: bulkhead.New[composeResult](bulkhead.Config{
			MaxConcurrent: opts.Config.MaxConcurrent,
		}),
		logger:        logger,
		maxUpload:     opts.Config.MaxUploadBytes,
		timeout:       opts.Config.Timeout,
		maxConcurrent: opts.Config.MaxConcurrent,
		version:       opts.Version,
		compose:       opts.Compositor.ComposeTrace,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(logger))
	r.Use(CORS(opts.Config.AllowedOrigins))

	r.GET("/api/v1/health", h.HealthCheck)
	r.POST("/api/v1/compose", h.Compose)

	return &Server{config: opts.Config, engine: r, handler: h, logger: logger}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully and
// waits for running compositions before returning.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.Port),
		Handler:      s.engine,
		ReadTimeout:  s.config.Timeout,
		WriteTimeout: s.config.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logging.NewEvent(s.logger.Info()).
			Add(logging.Str("addr", srv.Addr)).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownGrace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.handler.Wait()
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
