package sources

import (
	"context"

	"markethub_api/internal/models"
)

// RawRecord is a source record after raw-response parsing but before
// canonicalization. Price fields stay as the free-form currency strings the
// upstream sent; the canonicalizer extracts the numbers.
type RawRecord struct {
	ExternalID      string
	FallbackID      string
	Title           string
	Description     string
	Brand           string
	PriceText       string
	ShippingText    string
	RatingText      string
	ReviewCountText string
	ImageURL        string
	Available       bool
	Source          models.Source
}

// Adapter translates one upstream catalog API into raw records. Both
// adapters share this contract; a failed detail lookup is (nil, nil), not an
// error.
type Adapter interface {
	Source() models.Source
	Search(ctx context.Context, query, region string, page, limit int) ([]RawRecord, error)
	Details(ctx context.Context, externalID, region string) (*RawRecord, error)
	// Available issues a minimal probe (limit=1 search) and never returns an
	// error; any failure reads as unavailable.
	Available(ctx context.Context) bool
	// Quota is the best-effort budget from the last response's headers.
	Quota() *models.Quota
	Categories() []string
}
