// Package server exposes the form processing pipeline over HTTP:
// multipart uploads in, per-file extraction results out, plus health
// and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/formscan/formscan/internal/config"
	"github.com/formscan/formscan/internal/service"
)

// Server is the HTTP front end. Create with New, run with Start.
type Server struct {
	cfg     *config.Config
	svc     *service.Service
	metrics *serverMetrics
	httpSrv *http.Server
}

// New wires the server and its routes.
func New(cfg *config.Config, svc *service.Service) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		metrics: newServerMetrics(),
	}

	mux := http.NewServeMux()
	mux.Handle("/upload", s.wrap(http.MethodPost, s.handleUpload))
	mux.Handle("/health", s.wrap(http.MethodGet, s.handleHealth))
	mux.Handle("/metrics", s.wrap(http.MethodGet, s.handleMetrics))

	s.httpSrv = &http.Server{
		Addr:              cfg.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Upload processing includes OCR, which can take a while per
		// image; the write timeout has to cover whole batches.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	return s
}

// wrap applies the standard middleware chain to a handler. Order
// matters: recovery outermost, then logging, then admission control.
func (s *Server) wrap(method string, h http.HandlerFunc) http.Handler {
	wrapped := s.withMethod(method, h)
	wrapped = s.withConcurrencyLimit(wrapped)
	wrapped = s.withRateLimit(wrapped)
	wrapped = s.withLogging(wrapped)
	wrapped = s.withRecovery(wrapped)
	return wrapped
}

// Start serves until the context is canceled, then drains connections
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", s.cfg.Address())
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}
