package handlers

import (
	"net/http"
	"strconv"

	"markethub_api/internal/catalogsync"
)

// SyncHandler exposes the operator "sync now" trigger.
type SyncHandler struct {
	syncer        *catalogsync.Syncer
	defaultRegion string
	defaultTarget int
}

func NewSyncHandler(syncer *catalogsync.Syncer, defaultRegion string, defaultTarget int) *SyncHandler {
	return &SyncHandler{
		syncer:        syncer,
		defaultRegion: defaultRegion,
		defaultTarget: defaultTarget,
	}
}

func (h *SyncHandler) SyncNowHandler(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = h.defaultRegion
	}
	target := h.defaultTarget
	if raw := r.URL.Query().Get("per_category"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			target = v
		}
	}

	report, err := h.syncer.Sync(r.Context(), region, target)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"persisted":  report.Persisted,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
		"categories": report.Categories,
	})
}
