package storage

import (
	"context"

	"markethub_api/internal/models"
)

// ProductPricing is the projection PropagateRate walks: identity plus the
// base and settlement money fields, nothing else.
type ProductPricing struct {
	ID               string
	BasePrice        *float64
	BaseShippingCost *float64
	Price            float64
	ShippingCost     float64
}

// ProductStore is the typed repository over the products collection.
// external_id is unique per source; id and created_at are never rewritten
// once assigned.
type ProductStore interface {
	GetByExternalID(ctx context.Context, source models.Source, externalID string) (*models.Product, error)
	ExistingExternalIDs(ctx context.Context, source models.Source, externalIDs []string) (map[string]bool, error)
	Insert(ctx context.Context, p *models.Product) error
	UpdateMutable(ctx context.Context, p *models.Product) error
	ListPricing(ctx context.Context) ([]ProductPricing, error)
	UpdatePricing(ctx context.Context, pr ProductPricing) error
	Delete(ctx context.Context, id string) error
}

// ConversionStore is the typed repository over conversion_settings. Rows are
// deactivated, never deleted, so the rate history survives as an audit
// trail.
type ConversionStore interface {
	GetActive(ctx context.Context, from, to string) (*models.ConversionSetting, error)
	GetLatestInactive(ctx context.Context, from, to string) (*models.ConversionSetting, error)
	Insert(ctx context.Context, s *models.ConversionSetting) error
	Deactivate(ctx context.Context, id string) error
}
