package api

import (
	"context"
	"net/http"

	service "github.com/okian/civicrank/internal/app"
)

// StateDependencies defines the interface for state lookups.
type StateDependencies interface {
	State(ctx context.Context, code string) (service.StateSummary, error)
}

// StateHandler handles state requests.
type StateHandler struct {
	deps StateDependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps StateDependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleGetState handles GET /api/states/{code} requests.
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_state"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	code, ok := pathParam(r, "/api/states/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	sum, err := h.deps.State(r.Context(), code)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
