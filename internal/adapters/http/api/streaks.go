package api

import (
	"context"
	"net/http"

	"github.com/okian/civicrank/internal/domain/model"
)

// StreakDependencies defines the interface for streak listings.
type StreakDependencies interface {
	Streaks(ctx context.Context, ch model.Chamber, n int) ([]model.StreakRow, error)
}

// StreakHandler handles streak requests.
type StreakHandler struct {
	deps     StreakDependencies
	maxLimit int
}

// NewStreakHandler creates a new streak handler.
func NewStreakHandler(deps StreakDependencies, maxLimit int) *StreakHandler {
	return &StreakHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetStreaks handles GET /api/streaks?chamber=&limit= requests.
func (h *StreakHandler) HandleGetStreaks(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_streaks"
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
	rows, err := h.deps.Streaks(r.Context(), ch, n)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
