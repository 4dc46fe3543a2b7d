// Package server exposes the search pipeline, the parser, the analyzer and the
// snapshot store over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/trueinf/geosight-new-sub000/internal/config"
	"github.com/trueinf/geosight-new-sub000/internal/pipeline"
	"github.com/trueinf/geosight-new-sub000/internal/store"
)

const maxBodyBytes = 1 << 20

// Server holds the dependencies shared by the HTTP handlers.
type Server struct {
	fetcher *pipeline.Fetcher
	store   store.Store
	cfg     config.ServerConfig
}

// New creates a Server. st may be nil, in which case searches are not
// persisted and the snapshot routes report 503.
func New(fetcher *pipeline.Fetcher, st store.Store, cfg config.ServerConfig) *Server {
	return &Server{fetcher: fetcher, store: st, cfg: cfg}
}

// Handler builds the router with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/parse", s.handleParse)
		r.Get("/snapshots", s.handleListSnapshots)
		r.Get("/snapshots/{id}", s.handleGetSnapshot)
		r.Post("/cache/invalidate", s.handleInvalidateCache)
	})

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
