// Package server exposes one try-on session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes    = 25 << 20
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	ctrl     *workflow.Controller
	registry *models.ModelRegistry
	log      zerolog.Logger
}

func New(ctrl *workflow.Controller, registry *models.ModelRegistry, log zerolog.Logger) *Server {
	return &Server{
		ctrl:     ctrl,
		registry: registry,
		log:      log.With().Str("component", "http").Logger(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.log), middleware.Recoverer)

	r.Get("/v1/healthz", s.health)
	r.Get("/v1/models", s.listModels)
	r.Get("/v1/styles", s.listStyles)

	r.Route("/v1/session", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Post("/reset", s.reset)
		r.Post("/photo", s.loadPhoto)
		r.Put("/filter", s.setFilter)
		r.Put("/style", s.selectStyle)
		r.Post("/custom-style", s.uploadCustomStyle)
		r.Put("/model", s.setModel)
		r.Post("/generate", s.generate)
		r.Post("/camera-error", s.cameraError)

		r.Route("/history", func(r chi.Router) {
			r.Delete("/", s.clearHistory)
			r.Post("/{id}/select", s.selectHistory)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Generation requests wait for the image service.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}
