package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/civicrank/pkg/metrics"
)

// ReadyChecker reports whether data has been loaded.
type ReadyChecker interface {
	Ready() bool
}

type healthResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

// HealthHandler handles health and metrics requests.
type HealthHandler struct {
	ready ReadyChecker
}

// NewHealthHandler creates a new health handler. deps may also implement
// ReadyChecker; otherwise the process is reported ready.
func NewHealthHandler(deps any) *HealthHandler {
	h := &HealthHandler{}
	if rc, ok := deps.(ReadyChecker); ok {
		h.ready = rc
	}
	return h
}

// HandleHealth handles GET /healthz requests. It answers 503 until data is loaded.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	ready := h.ready == nil || h.ready.Ready()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading", Ready: false})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Ready: true})
}

// MetricsHandler serves the process registry.
func (h *HealthHandler) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
