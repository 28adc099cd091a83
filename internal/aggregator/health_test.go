package aggregator

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"markethub_api/internal/models"
	"markethub_api/internal/sources"
)

type probeAdapter struct {
	fakeAdapter
	probes atomic.Int32

	// when set, Available signals entered and blocks until released
	probeEntered  chan struct{}
	probeReleased chan struct{}
}

func (p *probeAdapter) Available(ctx context.Context) bool {
	p.probes.Add(1)
	if p.probeEntered != nil {
		p.probeEntered <- struct{}{}
		<-p.probeReleased
	}
	return p.available
}

func TestCheck_CachesInsideTTL(t *testing.T) {
	tech := &probeAdapter{fakeAdapter: fakeAdapter{source: models.SourceTechMart, available: true}}
	style := &probeAdapter{fakeAdapter: fakeAdapter{source: models.SourceStyleHub, available: false}}
	h := NewHealthMonitor([]sources.Adapter{tech, style}, io.Discard)

	first := h.Check(context.Background())
	second := h.Check(context.Background())

	if !first[models.SourceTechMart] || first[models.SourceStyleHub] {
		t.Fatalf("want techmart up, stylehub down, got %v", first)
	}
	if second[models.SourceTechMart] != first[models.SourceTechMart] {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	if tech.probes.Load() != 1 || style.probes.Load() != 1 {
		t.Fatalf("want exactly one probe per source, got %d/%d", tech.probes.Load(), style.probes.Load())
	}
}

func TestCheck_ExpiredTTLReprobes(t *testing.T) {
	tech := &probeAdapter{fakeAdapter: fakeAdapter{source: models.SourceTechMart, available: true}}
	h := NewHealthMonitor([]sources.Adapter{tech}, io.Discard)

	current := time.Now()
	h.now = func() time.Time { return current }

	h.Check(context.Background())
	current = current.Add(healthCacheTTL + time.Second)
	h.Check(context.Background())

	if tech.probes.Load() != 2 {
		t.Fatalf("want re-probe after TTL, got %d probes", tech.probes.Load())
	}
}

func TestCheck_Invalidate(t *testing.T) {
	tech := &probeAdapter{fakeAdapter: fakeAdapter{source: models.SourceTechMart, available: true}}
	h := NewHealthMonitor([]sources.Adapter{tech}, io.Discard)

	h.Check(context.Background())
	h.Invalidate()
	h.Check(context.Background())

	if tech.probes.Load() != 2 {
		t.Fatalf("want re-probe after invalidate, got %d probes", tech.probes.Load())
	}
}

func TestCheck_SingleFlightServesLastKnown(t *testing.T) {
	tech := &probeAdapter{
		fakeAdapter:   fakeAdapter{source: models.SourceTechMart, available: true},
		probeEntered:  make(chan struct{}, 1),
		probeReleased: make(chan struct{}),
	}
	h := NewHealthMonitor([]sources.Adapter{tech}, io.Discard)

	done := make(chan map[models.Source]bool, 1)
	go func() {
		done <- h.Check(context.Background())
	}()
	<-tech.probeEntered // probe is mid-flight

	// no cache yet: the concurrent caller gets all-false, and no new probe
	status := h.Check(context.Background())
	if status[models.SourceTechMart] {
		t.Fatalf("want false before first probe completes, got %v", status)
	}
	if tech.probes.Load() != 1 {
		t.Fatalf("want no duplicate probe, got %d", tech.probes.Load())
	}

	close(tech.probeReleased)
	select {
	case result := <-done:
		if !result[models.SourceTechMart] {
			t.Fatalf("want probe result true, got %v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("probe never finished")
	}
}
