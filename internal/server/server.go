// Package server exposes the read-only REST API over the fighter and match
// store: fighters, matches, the match currently open for betting and the
// bot's recent performance.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/diegowsan/saltyboyC/internal/constants"
	"github.com/diegowsan/saltyboyC/internal/middleware"
	"github.com/diegowsan/saltyboyC/internal/repository"
	"github.com/diegowsan/saltyboyC/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	fighters *repository.FighterRepository
	matches  *repository.MatchRepository
	state    *repository.StateRepository
	perf     *service.PerformanceService
	logger   zerolog.Logger
}

func New(
	fighters *repository.FighterRepository,
	matches *repository.MatchRepository,
	state *repository.StateRepository,
	perf *service.PerformanceService,
	logger zerolog.Logger,
) *Server {
	return &Server{fighters: fighters, matches: matches, state: state, perf: perf, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/fighters", s.listFighters)
		r.Get("/fighters/{id}", s.getFighter)
		r.Get("/matches", s.listMatches)
		r.Get("/matches/{id}", s.getMatch)
		r.Get("/current_match_info", s.currentMatch)
		r.Get("/performance", s.performance)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) listFighters(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	fighters, err := s.fighters.List(r.Context(), limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	total, err := s.fighters.Count(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": fighters,
		"count":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) getFighter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fighter id")
		return
	}

	fighter, err := s.fighters.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "fighter not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fighter)
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	matches, err := s.matches.List(r.Context(), limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": matches,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	match, err := s.matches.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (s *Server) currentMatch(w http.ResponseWriter, r *http.Request) {
	cm, err := s.state.GetCurrentMatch(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no match in progress")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cm)
}

func (s *Server) performance(w http.ResponseWriter, r *http.Request) {
	report, err := s.perf.Report(r.Context(), constants.PerformanceWindow)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pagination(r *http.Request) (limit, offset int) {
	limit = constants.ListPageSizeDefault
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > constants.ListPageSizeMax {
		limit = constants.ListPageSizeMax
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
