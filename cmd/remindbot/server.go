package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"remindbot/internal/metrics"
	"remindbot/internal/models"
	"remindbot/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server is the operational HTTP surface: liveness, metrics, and a read-only
// view of upcoming reminders. It never mutates state.
type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	service *service.ReminderService
	config  models.ServerConfig
	server  *http.Server
}

// NewServer builds the router and handlers.
func NewServer(cfg models.ServerConfig, svc *service.ReminderService, logger *logrus.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		service: svc,
		config:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogging)
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.HandleFunc("/reminders", s.handleReminders()).Methods(http.MethodGet)
}

// Start blocks serving until shutdown or a listener error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.config.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	})
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Warn("Failed to write health response")
		}
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics.GetRegistry().Snapshot()); err != nil {
			s.logger.WithError(err).Warn("Failed to write metrics response")
		}
	}
}

func (s *Server) handleReminders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upcoming := s.service.ListUpcoming(0)
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(upcoming); err != nil {
			s.logger.WithError(err).Warn("Failed to write reminders response")
		}
	}
}
