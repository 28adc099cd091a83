package currency

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"markethub_api/config"
	"markethub_api/internal/models"
	"markethub_api/internal/storage"
	"markethub_api/metrics"
	"markethub_api/pkg/apperr"
	"markethub_api/pkg/logger"
)

// Manager owns the active conversion-rate lifecycle and bulk price
// propagation. Exactly one setting row per currency pair is active; setting
// a new rate deactivates the old row so the history stays queryable.
type Manager struct {
	settings     storage.ConversionStore
	products     storage.ProductStore
	fromCurrency string
	toCurrency   string
	defaultRate  decimal.Decimal
	now          func() time.Time
	log          logger.Logger
}

func NewManager(settings storage.ConversionStore, products storage.ProductStore, cfg config.CurrencyConfig, writer io.Writer) *Manager {
	return &Manager{
		settings:     settings,
		products:     products,
		fromCurrency: cfg.FromCurrency,
		toCurrency:   cfg.ToCurrency,
		defaultRate:  decimal.NewFromFloat(cfg.DefaultRate),
		now:          time.Now,
		log:          logger.NewLogger(writer, "[Currency]"),
	}
}

// ActiveRate returns the active setting's rate, provisioning the configured
// default as a new active row when the pair has none yet.
func (m *Manager) ActiveRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	active, err := m.settings.GetActive(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading active rate: %w", err)
	}
	if active != nil {
		return active.Rate, nil
	}

	now := m.now().UTC()
	setting := &models.ConversionSetting{
		ID:           uuid.NewString(),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         m.defaultRate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.settings.Insert(ctx, setting); err != nil {
		return decimal.Zero, fmt.Errorf("provisioning default rate: %w", err)
	}
	m.log.Log("provisioned default rate %s for %s->%s", m.defaultRate, from, to)
	return m.defaultRate, nil
}

// SetRate activates a new rate for the pair. The previous active row is
// deactivated, not deleted.
func (m *Manager) SetRate(ctx context.Context, from, to string, newRate decimal.Decimal) error {
	if newRate.LessThanOrEqual(decimal.Zero) {
		return &apperr.ValidationError{Field: "rate", Reason: "must be greater than zero"}
	}

	active, err := m.settings.GetActive(ctx, from, to)
	if err != nil {
		return fmt.Errorf("loading active rate: %w", err)
	}
	if active != nil {
		if err := m.settings.Deactivate(ctx, active.ID); err != nil {
			return fmt.Errorf("deactivating previous rate: %w", err)
		}
	}

	now := m.now().UTC()
	setting := &models.ConversionSetting{
		ID:           uuid.NewString(),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         newRate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.settings.Insert(ctx, setting); err != nil {
		return fmt.Errorf("activating new rate: %w", err)
	}
	m.log.Log("rate %s->%s set to %s", from, to, newRate)
	return nil
}

// PropagateRate recomputes every stored price as round(base * newRate). The
// pass is serial and not transactional: a failed row is logged and skipped,
// rows already updated stay updated. Legacy rows without a stored base get
// one estimated from the prior rate (best-effort, known drift) and the
// estimate is persisted so it happens at most once per row.
func (m *Manager) PropagateRate(ctx context.Context, newRate decimal.Decimal) (int, error) {
	if newRate.LessThanOrEqual(decimal.Zero) {
		return 0, &apperr.ValidationError{Field: "rate", Reason: "must be greater than zero"}
	}

	rows, err := m.products.ListPricing(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing product pricing: %w", err)
	}

	priorRate := m.approximatePriorRate(ctx)
	updated := 0
	for _, row := range rows {
		basePrice := row.BasePrice
		if basePrice == nil {
			estimated := estimateBase(row.Price, priorRate)
			basePrice = &estimated
		}
		baseShipping := row.BaseShippingCost
		if baseShipping == nil {
			estimated := estimateBase(row.ShippingCost, priorRate)
			baseShipping = &estimated
		}

		next := storage.ProductPricing{
			ID:               row.ID,
			BasePrice:        basePrice,
			BaseShippingCost: baseShipping,
			Price:            settle(*basePrice, newRate),
			ShippingCost:     settle(*baseShipping, newRate),
		}
		if err := m.products.UpdatePricing(ctx, next); err != nil {
			m.log.Log("row %s failed, skipping: %v", row.ID, err)
			continue
		}
		updated++
	}

	metrics.RecordPropagation()
	m.log.Log("propagated rate %s to %d/%d products", newRate, updated, len(rows))
	return updated, nil
}

// approximatePriorRate is the divisor for legacy base-price estimation: the
// most recently deactivated row's rate, else the configured default.
func (m *Manager) approximatePriorRate(ctx context.Context) decimal.Decimal {
	prior, err := m.settings.GetLatestInactive(ctx, m.fromCurrency, m.toCurrency)
	if err != nil || prior == nil {
		return m.defaultRate
	}
	return prior.Rate
}

func settle(base float64, rate decimal.Decimal) float64 {
	return decimal.NewFromFloat(base).Mul(rate).Round(0).InexactFloat64()
}

func estimateBase(current float64, priorRate decimal.Decimal) float64 {
	if priorRate.IsZero() {
		return 0
	}
	base, _ := decimal.NewFromFloat(current).DivRound(priorRate, 6).Float64()
	return base
}
