package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-shop-bot/internal/dialog"
	"telegram-shop-bot/internal/domain"
	"telegram-shop-bot/internal/domain/ports/repository"
)

// StatsProvider exposes dispatcher counters to the admin API.
type StatsProvider interface {
	Snapshot() dialog.Stats
}

// Server is the admin/ops HTTP surface: health, metrics and a JWT-guarded
// read-only view of sessions and dispatcher counters.
type Server struct {
	states repository.SessionStateRepository
	stats  StatsProvider
	auth   *AuthManager
	log    *zerolog.Logger
}

func NewServer(states repository.SessionStateRepository, stats StatsProvider, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{states: states, stats: stats, auth: auth, log: logger}
}

// Handler builds the full router with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/stats", s.handleStats)
		r.Get("/sessions/{id}", s.handleSession)
	})

	return Chain(r, TraceID(), RequestLog(s.log), Recover(s.log), Timeout(10*time.Second))
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("admin auth is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.states.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Msg("session lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"state":      state.State,
		"product_id": state.ProductID,
		"updated_at": state.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
