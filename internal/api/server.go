// Package api exposes the HTTP interface for the supervisor service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiltia/inbrief-supervisor/internal/fetch"
	"github.com/kiltia/inbrief-supervisor/internal/metrics"
	"github.com/kiltia/inbrief-supervisor/internal/supervisor"
)

// Server wires HTTP handlers to the fetch service and the schedule store.
type Server struct {
	router    chi.Router
	service   *fetch.Service
	schedules supervisor.ScheduleStore
	ids       supervisor.IDGenerator
	clock     supervisor.Clock
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	service *fetch.Service,
	schedules supervisor.ScheduleStore,
	ids supervisor.IDGenerator,
	clock supervisor.Clock,
	logger *zap.Logger,
) *Server {
	s := &Server{
		service:   service,
		schedules: schedules,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/fetch", s.fetchUpdates)
		r.Post("/summarize", s.summarize)
		r.Post("/category_title", s.categoryTitle)
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", s.addSchedule)
			r.Patch("/", s.updateSchedule)
			r.Get("/{schedule_id}", s.getSchedule)
		})
		r.Get("/users/{chat_id}/schedules", s.listSchedules)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		if err != nil {
			corrID = uuid.New()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, corrID)
		w.Header().Set("X-Request-ID", corrID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type requestIDKey struct{}

// requestID returns the correlation id stashed by requestIDMiddleware.
func requestID(r *http.Request) uuid.UUID {
	if id, ok := r.Context().Value(requestIDKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.New()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
