// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/civicrank/internal/adapters/repository"
	service "github.com/okian/civicrank/internal/app"
	"github.com/okian/civicrank/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	LegislatorDependencies
	StateDependencies
	StreakDependencies
	ReloadDependencies
}

// Server wires HTTP routes for the site API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	legislatorHandler  *LegislatorHandler
	stateHandler       *StateHandler
	streakHandler      *StreakHandler
	reloadHandler      *ReloadHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of list endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		legislatorHandler:  NewLegislatorHandler(deps),
		stateHandler:       NewStateHandler(deps),
		streakHandler:      NewStreakHandler(deps, maxLimit),
		reloadHandler:      NewReloadHandler(deps),
		dashboardHandler:   newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/legislators/", MetricsMiddleware(s.legislatorHandler.HandleGetLegislator, "legislator"))
	mux.HandleFunc("/api/compare", MetricsMiddleware(s.legislatorHandler.HandleCompare, "compare"))
	mux.HandleFunc("/api/states/", MetricsMiddleware(s.stateHandler.HandleGetState, "state"))
	mux.HandleFunc("/api/streaks", MetricsMiddleware(s.streakHandler.HandleGetStreaks, "streaks"))
	mux.HandleFunc("/api/reload", MetricsMiddleware(s.reloadHandler.HandleReload, "reload"))
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

// writeServiceError translates service and repository errors to a status.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, service.ErrUnknownChamber),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidCompare):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// chamberParam reads ?chamber=, defaulting to the Senate.
func chamberParam(r *http.Request) (model.Chamber, bool) {
	v := r.URL.Query().Get("chamber")
	if v == "" {
		return model.Senate, true
	}
	return model.ParseChamber(v)
}

// limitParam reads ?limit=, defaulting to def. It rejects non-positive
// values and values above max.
func limitParam(r *http.Request, def, max int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		if def > max {
			def = max
		}
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, false
	}
	return n, true
}

// pathParam returns the single path segment after prefix.
func pathParam(r *http.Request, prefix string) (string, bool) {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" || strings.Contains(p, "/") {
		return "", false
	}
	return p, true
}
