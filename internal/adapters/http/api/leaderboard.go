package api

import (
	"context"
	"net/http"

	service "github.com/okian/civicrank/internal/app"
	"github.com/okian/civicrank/internal/domain/model"
)

const defaultLimit = 20

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, q service.Query) ([]model.Entry, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /api/leaderboard?chamber=&limit=&state=&party=
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ch, ok := chamberParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_chamber", NewKind(op, ErrBadRequest))
		return
	}
	n, ok := limitParam(r, defaultLimit, h.maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_limit", NewKind(op, ErrBadRequest))
		return
	}
	q := r.URL.Query()
	entries, err := h.deps.Leaderboard(r.Context(), service.Query{
		Chamber: ch,
		State:   q.Get("state"),
		Party:   q.Get("party"),
		Limit:   n,
	})
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
