package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/api/handlers"
	"github.com/infieldfly/infieldfly/internal/api/middleware"
	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/infieldfly/infieldfly/internal/controllers"
	"github.com/infieldfly/infieldfly/internal/models"
)

// Server represents the HTTP server
type Server struct {
	server       *http.Server
	store        *models.JobStore
	downloadCtrl *controllers.DownloadController
	logger       *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, store *models.JobStore, downloadCtrl *controllers.DownloadController, logger *logrus.Logger) *Server {
	s := &Server{
		store:        store,
		downloadCtrl: downloadCtrl,
		logger:       logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(s.store, s.logger)
	mux.HandleFunc("/status", statusHandler.ServeHTTP)

	// Download daemon completion callback
	downloadHandler := handlers.NewDownloadHandler(s.downloadCtrl, s.logger)
	mux.HandleFunc("/api/download/complete", downloadHandler.ServeHTTP)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
