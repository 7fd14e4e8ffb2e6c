// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tally/internal/adapters/repository"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/submission"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitScore(ctx context.Context, req submission.Request) (submission.Result, error)
	SetEventLocked(ctx context.Context, eventID string, locked bool) (model.Event, error)
	Refresh(ctx context.Context) (service.LoadReport, error)

	Events() []model.Event
	RankEvent(ctx context.Context, eventID string) (types.EventRanking, error)
	Rankings(ctx context.Context) []types.EventRanking
	ComputeStandings(ctx context.Context) types.Standings

	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps             Dependencies
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	eventsHandler    *EventsHandler
	rankHandler      *RankHandler
	standingsHandler *StandingsHandler
	adminHandler     *AdminHandler
	logger           logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:             deps,
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		eventsHandler:    NewEventsHandler(deps),
		rankHandler:      NewRankHandler(deps),
		standingsHandler: NewStandingsHandler(deps),
		adminHandler:     NewAdminHandler(deps),
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Get("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	r.Get("/events/{eventID}/ranking", MetricsMiddleware(s.rankHandler.HandleGetRanking, "ranking"))
	r.Get("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
	r.Get("/standings/export.xlsx", MetricsMiddleware(s.standingsHandler.HandleExport, "standings_export"))

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/events/{eventID}/scores", MetricsMiddleware(s.eventsHandler.HandleSubmitScore, "scores"))
		r.Post("/events/{eventID}/lock", MetricsMiddleware(s.adminHandler.HandleLock, "lock"))
		r.Post("/events/{eventID}/unlock", MetricsMiddleware(s.adminHandler.HandleUnlock, "unlock"))
		r.Post("/refresh", MetricsMiddleware(s.adminHandler.HandleRefresh, "refresh"))
	})
}

// Handler returns a router with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain sentinels to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, submission.ErrLockedEvent):
		writeError(w, http.StatusLocked, "event_locked", err)
	case errors.Is(err, submission.ErrValidation), errors.Is(err, model.ErrInvalidRecord):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, identity.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, identity.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
