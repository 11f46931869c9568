// Package server provides the HTTP server and handlers.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/authrax/trending/internal/database"
	"github.com/authrax/trending/internal/model"
	"github.com/authrax/trending/internal/recommend"
	"github.com/authrax/trending/internal/trending"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the main HTTP server.
type Server struct {
	aggregator *trending.Aggregator
	generator  *recommend.Generator
	store      database.Store
	router     chi.Router
	logger     *slog.Logger
}

// New creates a new server.
func New(aggregator *trending.Aggregator, generator *recommend.Generator, store database.Store, logger *slog.Logger) *Server {
	s := &Server{
		aggregator: aggregator,
		generator:  generator,
		store:      store,
		logger:     logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/trending", s.handleTrending)
		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/recommendations/used", s.handleMarkUsed)
	})

	s.router = r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server.
func (s *Server) Start(addr string) error {
	s.logger.Info("server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	var req model.TrendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.aggregator.Aggregate(r.Context(), req)
	if err != nil {
		s.logger.Error("aggregation failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load trending content")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req model.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if len(model.NormalizeTopics(req.Topics)) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one topic is required")
		return
	}

	resp, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		s.logger.Error("recommendation generation failed", "user", req.UserID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to generate recommendations")
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkUsed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		s.writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.store.MarkRecommendationUsed(req.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, "recommendation not found")
			return
		}
		s.logger.Error("marking recommendation used failed", "id", req.ID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to update recommendation")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
