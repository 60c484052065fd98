package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/civicrank/internal/app"
)

// LegislatorDependencies defines the interface for legislator lookups.
type LegislatorDependencies interface {
	Legislator(ctx context.Context, bioguideID string) (service.Profile, error)
	Compare(ctx context.Context, ids []string) ([]service.Profile, error)
}

// LegislatorHandler handles legislator and compare requests.
type LegislatorHandler struct {
	deps LegislatorDependencies
}

// NewLegislatorHandler creates a new legislator handler.
func NewLegislatorHandler(deps LegislatorDependencies) *LegislatorHandler {
	return &LegislatorHandler{deps: deps}
}

// HandleGetLegislator handles GET /api/legislators/{bioguide_id} requests.
func (h *LegislatorHandler) HandleGetLegislator(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_legislator"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, ok := pathParam(r, "/api/legislators/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Legislator(r.Context(), id)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCompare handles GET /api/compare?ids=A,B requests.
func (h *LegislatorHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw := r.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	ps, err := h.deps.Compare(r.Context(), strings.Split(raw, ","))
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
