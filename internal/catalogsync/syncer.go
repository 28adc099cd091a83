package catalogsync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"markethub_api/config"
	"markethub_api/internal/aggregator"
	"markethub_api/internal/models"
	"markethub_api/internal/sources"
	"markethub_api/internal/storage"
	"markethub_api/metrics"
	"markethub_api/pkg/logger"
)

// categoryQueries is the fixed, ordered crawl plan for the primary source.
var categoryQueries = []string{
	"smartphone",
	"laptop",
	"headphones",
	"television",
	"camera",
	"tablet",
	"smart watch",
	"speaker",
	"console",
	"router",
}

// Report summarizes one sync pass. Failures are counted, never thrown: a bad
// record or a bad category batch must not abort the rest of the crawl.
type Report struct {
	Persisted  int
	Skipped    int
	Failed     int
	Categories int
}

// Syncer crawls the primary source category by category and upserts
// canonical products keyed by external ID. Pacing runs through token-bucket
// limiters rather than fixed sleeps; it is upstream friendliness, not a
// correctness requirement.
type Syncer struct {
	primary       sources.Adapter
	canonicalizer *sources.Canonicalizer
	products      storage.ProductStore
	rates         aggregator.RateSource
	fromCurrency  string
	toCurrency    string
	recordLimiter *rate.Limiter
	batchLimiter  *rate.Limiter
	now           func() time.Time
	log           logger.Logger
}

func NewSyncer(primary sources.Adapter, canonicalizer *sources.Canonicalizer, products storage.ProductStore, rates aggregator.RateSource, cfg config.SyncConfig, currency config.CurrencyConfig, writer io.Writer) *Syncer {
	return &Syncer{
		primary:       primary,
		canonicalizer: canonicalizer,
		products:      products,
		rates:         rates,
		fromCurrency:  currency.FromCurrency,
		toCurrency:    currency.ToCurrency,
		recordLimiter: rate.NewLimiter(rate.Limit(cfg.RecordsPerSecond), 1),
		batchLimiter:  rate.NewLimiter(rate.Limit(cfg.BatchesPerMinute/60), 1),
		now:           time.Now,
		log:           logger.NewLogger(writer, "[CatalogSync]"),
	}
}

// Sync runs the crawl. Re-running it against unchanged upstream data is
// idempotent: records whose external ID already exists are skipped, so row
// count and assigned IDs stay stable.
func (s *Syncer) Sync(ctx context.Context, region string, perCategoryTarget int) (Report, error) {
	report := Report{}

	activeRate, err := s.rates.ActiveRate(ctx, s.fromCurrency, s.toCurrency)
	if err != nil {
		return report, fmt.Errorf("resolving active rate: %w", err)
	}

	for _, query := range categoryQueries {
		if err := s.batchLimiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("batch pacing interrupted: %w", err)
		}

		persisted, skipped, failed := s.syncCategory(ctx, query, region, perCategoryTarget, activeRate)
		report.Persisted += persisted
		report.Skipped += skipped
		report.Failed += failed
		report.Categories++
	}

	metrics.RecordSyncOutcome("persisted", report.Persisted)
	metrics.RecordSyncOutcome("skipped", report.Skipped)
	metrics.RecordSyncOutcome("failed", report.Failed)
	s.log.Log("sync finished: %d persisted, %d skipped, %d failed across %d categories",
		report.Persisted, report.Skipped, report.Failed, report.Categories)
	return report, nil
}

func (s *Syncer) syncCategory(ctx context.Context, query, region string, target int, activeRate decimal.Decimal) (persisted, skipped, failed int) {
	s.log.Log("syncing category query %q", query)

	records, err := s.primary.Search(ctx, query, region, 1, target)
	if err != nil {
		s.log.Log("category %q failed, skipping: %v", query, err)
		return 0, 0, 1
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.ExternalID != "" {
			ids = append(ids, rec.ExternalID)
		} else if rec.FallbackID != "" {
			ids = append(ids, rec.FallbackID)
		}
	}
	existing, err := s.products.ExistingExternalIDs(ctx, s.primary.Source(), ids)
	if err != nil {
		s.log.Log("existing-id lookup for %q failed, skipping category: %v", query, err)
		return 0, 0, 1
	}

	qc := sources.QueryContext{Query: query}
	for _, rec := range records {
		if err := s.recordLimiter.Wait(ctx); err != nil {
			s.log.Log("record pacing interrupted: %v", err)
			return persisted, skipped, failed
		}
		outcome := s.syncRecord(ctx, rec, region, activeRate, qc, existing)
		switch outcome {
		case outcomePersisted:
			persisted++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
	}
	return persisted, skipped, failed
}

type outcome int

const (
	outcomePersisted outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *Syncer) syncRecord(ctx context.Context, rec sources.RawRecord, region string, activeRate decimal.Decimal, qc sources.QueryContext, existing map[string]bool) outcome {
	p, err := s.canonicalizer.Canonicalize(rec, region, activeRate, qc)
	if err != nil {
		s.log.Log("invalid record skipped: %v", err)
		return outcomeFailed
	}
	if existing[p.ExternalID] {
		return outcomeSkipped
	}

	if err := s.upsert(ctx, &p); err != nil {
		s.log.Log("persisting %s failed, skipping: %v", p.ExternalID, err)
		return outcomeFailed
	}
	return outcomePersisted
}

// upsert keys on (source, external_id): a known record keeps its id and
// created_at and only has mutable fields rewritten; a new record gets a
// fresh UUID.
func (s *Syncer) upsert(ctx context.Context, p *models.Product) error {
	current, err := s.products.GetByExternalID(ctx, p.Source, p.ExternalID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	p.UpdatedAt = now
	if current != nil {
		p.ID = current.ID
		p.CreatedAt = current.CreatedAt
		return s.products.UpdateMutable(ctx, p)
	}
	p.ID = uuid.NewString()
	p.CreatedAt = now
	return s.products.Insert(ctx, p)
}
