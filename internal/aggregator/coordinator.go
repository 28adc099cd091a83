package aggregator

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"markethub_api/internal/models"
	"markethub_api/internal/sources"
	"markethub_api/pkg/logger"
)

// RateSource yields the active conversion rate for a currency pair.
type RateSource interface {
	ActiveRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Options shape one aggregated catalog fetch.
type Options struct {
	Category     string
	Search       string
	Region       string
	Page         int
	Limit        int
	PreferSource models.Source
}

// Coordinator fans one fetch out across both source adapters, merges and
// ranks the results. A concurrent fetch is rejected with an empty result
// instead of queued; one source failing degrades to that source
// contributing nothing.
type Coordinator struct {
	adapters      []sources.Adapter
	canonicalizer *sources.Canonicalizer
	rates         RateSource
	fromCurrency  string
	toCurrency    string
	flight        sync.Mutex
	log           logger.Logger
}

func NewCoordinator(adapters []sources.Adapter, canonicalizer *sources.Canonicalizer, rates RateSource, fromCurrency, toCurrency string, writer io.Writer) *Coordinator {
	return &Coordinator{
		adapters:      adapters,
		canonicalizer: canonicalizer,
		rates:         rates,
		fromCurrency:  fromCurrency,
		toCurrency:    toCurrency,
		log:           logger.NewLogger(writer, "[Aggregator]"),
	}
}

// Fetch runs the aggregated search. When another fetch is still in flight it
// returns an empty slice immediately and issues no upstream requests.
func (c *Coordinator) Fetch(ctx context.Context, opts Options) ([]models.Product, error) {
	if !c.flight.TryLock() {
		c.log.Log("fetch already in flight, rejecting")
		return []models.Product{}, nil
	}
	defer c.flight.Unlock()

	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	query := opts.Search
	if query == "" {
		query = opts.Category
	}

	rate, err := c.rates.ActiveRate(ctx, c.fromCurrency, c.toCurrency)
	if err != nil {
		return nil, fmt.Errorf("resolving active rate: %w", err)
	}

	qc := sources.QueryContext{Query: query, Category: opts.Category}

	results := make([][]models.Product, len(c.adapters))
	var wg sync.WaitGroup
	for i, adapter := range c.adapters {
		wg.Add(1)
		go func(i int, adapter sources.Adapter) {
			defer wg.Done()
			records, err := adapter.Search(ctx, query, opts.Region, opts.Page, opts.Limit)
			if err != nil {
				c.log.Log("source %s failed, degrading to empty: %v", adapter.Source(), err)
				return
			}
			results[i] = c.canonicalizeAll(records, opts.Region, rate, qc)
		}(i, adapter)
	}
	wg.Wait()

	var merged []models.Product
	for _, part := range results {
		merged = append(merged, part...)
	}

	rankProducts(merged, opts)

	if len(merged) > opts.Limit {
		merged = merged[:opts.Limit]
	}
	if merged == nil {
		merged = []models.Product{}
	}
	return merged, nil
}

func (c *Coordinator) canonicalizeAll(records []sources.RawRecord, region string, rate decimal.Decimal, qc sources.QueryContext) []models.Product {
	out := make([]models.Product, 0, len(records))
	for _, rec := range records {
		p, err := c.canonicalizer.Canonicalize(rec, region, rate, qc)
		if err != nil {
			c.log.Log("skipping record: %v", err)
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns the deduplicated, sorted union of both sources' fixed
// category lists.
func (c *Coordinator) Categories() []string {
	seen := make(map[string]bool)
	var union []string
	for _, adapter := range c.adapters {
		for _, cat := range adapter.Categories() {
			if !seen[cat] {
				seen[cat] = true
				union = append(union, cat)
			}
		}
	}
	sort.Strings(union)
	return union
}

// Details resolves one product by composite ID ("source:externalID"); a bare
// ID goes to the primary (electronics) source. Unlike Fetch this is a direct
// single-source call: exhausted retries surface to the caller, a miss is
// (nil, nil).
func (c *Coordinator) Details(ctx context.Context, compositeID, region string) (*models.Product, error) {
	source, externalID := models.SplitCompositeID(compositeID)
	adapter := c.adapterFor(source)

	record, err := adapter.Details(ctx, externalID, region)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	rate, err := c.rates.ActiveRate(ctx, c.fromCurrency, c.toCurrency)
	if err != nil {
		return nil, fmt.Errorf("resolving active rate: %w", err)
	}

	qc := sources.QueryContext{Query: record.Title}
	if adapter.Source() == models.SourceStyleHub {
		qc.Category = sources.CategoryFashion
	}
	p, err := c.canonicalizer.Canonicalize(*record, region, rate, qc)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Coordinator) adapterFor(source models.Source) sources.Adapter {
	for _, adapter := range c.adapters {
		if adapter.Source() == source {
			return adapter
		}
	}
	return c.adapters[0]
}

// rankProducts orders by descending score, ties keeping fetch order.
func rankProducts(products []models.Product, opts Options) {
	fashionContext := sources.IsFashionQuery(opts.Search, opts.Category)
	sort.SliceStable(products, func(i, j int) bool {
		return score(products[i], opts, fashionContext) > score(products[j], opts, fashionContext)
	})
}

func score(p models.Product, opts Options, fashionContext bool) float64 {
	s := 0.0
	if opts.PreferSource != "" && p.Source == opts.PreferSource {
		s += 10
	}
	if fashionContext && p.Source == models.SourceStyleHub {
		s += 5
	}
	s += p.Rating * 2
	s += math.Min(float64(p.ReviewCount)/100, 5)
	return s
}
