package aggregator

import (
	"context"
	"io"
	"sync"
	"time"

	"markethub_api/internal/models"
	"markethub_api/internal/sources"
	"markethub_api/pkg/logger"
)

const healthCacheTTL = 60 * time.Second

// HealthMonitor caches per-source availability. Probes are single-flight: a
// caller arriving while a probe runs gets the last cached map (all-false
// when nothing was ever probed) instead of a duplicate probe.
type HealthMonitor struct {
	adapters []sources.Adapter
	ttl      time.Duration
	now      func() time.Time
	log      logger.Logger

	mu        sync.Mutex
	probing   bool
	cached    map[models.Source]bool
	checkedAt time.Time
}

func NewHealthMonitor(adapters []sources.Adapter, writer io.Writer) *HealthMonitor {
	return &HealthMonitor{
		adapters: adapters,
		ttl:      healthCacheTTL,
		now:      time.Now,
		log:      logger.NewLogger(writer, "[Aggregator]").WithPrefix("[HealthMonitor]"),
	}
}

// Check returns the availability map, probing at most once per TTL window.
// Probe failures mark the source unavailable and are never raised.
func (h *HealthMonitor) Check(ctx context.Context) map[models.Source]bool {
	h.mu.Lock()
	if h.cached != nil && h.now().Sub(h.checkedAt) < h.ttl {
		cached := copyStatus(h.cached)
		h.mu.Unlock()
		return cached
	}
	if h.probing {
		cached := h.lastKnownLocked()
		h.mu.Unlock()
		return cached
	}
	h.probing = true
	h.mu.Unlock()

	status := make(map[models.Source]bool, len(h.adapters))
	var wg sync.WaitGroup
	var statusMu sync.Mutex
	for _, adapter := range h.adapters {
		wg.Add(1)
		go func(adapter sources.Adapter) {
			defer wg.Done()
			ok := adapter.Available(ctx)
			statusMu.Lock()
			status[adapter.Source()] = ok
			statusMu.Unlock()
		}(adapter)
	}
	wg.Wait()

	h.mu.Lock()
	h.cached = status
	h.checkedAt = h.now()
	h.probing = false
	h.mu.Unlock()

	h.log.Log("probe complete: %v", status)
	return copyStatus(status)
}

// Invalidate forces the next Check to re-probe.
func (h *HealthMonitor) Invalidate() {
	h.mu.Lock()
	h.cached = nil
	h.mu.Unlock()
}

func (h *HealthMonitor) lastKnownLocked() map[models.Source]bool {
	if h.cached != nil {
		return copyStatus(h.cached)
	}
	none := make(map[models.Source]bool, len(h.adapters))
	for _, adapter := range h.adapters {
		none[adapter.Source()] = false
	}
	return none
}

func copyStatus(status map[models.Source]bool) map[models.Source]bool {
	out := make(map[models.Source]bool, len(status))
	for k, v := range status {
		out[k] = v
	}
	return out
}
