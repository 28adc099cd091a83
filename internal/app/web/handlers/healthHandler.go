package handlers

import (
	"net/http"

	"markethub_api/internal/aggregator"
	"markethub_api/internal/models"
	"markethub_api/internal/sources"
)

// HealthHandler reports cached per-source availability and, best-effort, the
// upstream quota headers last seen.
type HealthHandler struct {
	monitor  *aggregator.HealthMonitor
	adapters []sources.Adapter
}

func NewHealthHandler(monitor *aggregator.HealthMonitor, adapters []sources.Adapter) *HealthHandler {
	return &HealthHandler{monitor: monitor, adapters: adapters}
}

func (h *HealthHandler) CheckHealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		h.monitor.Invalidate()
	}
	status := h.monitor.Check(r.Context())

	quotas := make(map[models.Source]*models.Quota, len(h.adapters))
	for _, adapter := range h.adapters {
		quotas[adapter.Source()] = adapter.Quota()
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sources": status,
		"quotas":  quotas,
	})
}
