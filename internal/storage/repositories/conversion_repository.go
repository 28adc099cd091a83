package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"markethub_api/internal/models"
)

type ConversionSettingRepository struct {
	db *sql.DB
}

func NewConversionSettingRepository(db *sql.DB) *ConversionSettingRepository {
	return &ConversionSettingRepository{db: db}
}

const conversionColumns = `id, from_currency, to_currency, rate, is_active, created_at, updated_at`

func (r *ConversionSettingRepository) GetActive(ctx context.Context, from, to string) (*models.ConversionSetting, error) {
	query := `SELECT ` + conversionColumns + `
		FROM conversion_settings
		WHERE from_currency = $1 AND to_currency = $2 AND is_active`

	s, err := scanConversion(r.db.QueryRowContext(ctx, query, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active conversion setting: %w", err)
	}
	return s, nil
}

// GetLatestInactive returns the most recently deactivated row for the pair,
// the best available approximation of the prior rate for legacy rows.
func (r *ConversionSettingRepository) GetLatestInactive(ctx context.Context, from, to string) (*models.ConversionSetting, error) {
	query := `SELECT ` + conversionColumns + `
		FROM conversion_settings
		WHERE from_currency = $1 AND to_currency = $2 AND NOT is_active
		ORDER BY updated_at DESC
		LIMIT 1`

	s, err := scanConversion(r.db.QueryRowContext(ctx, query, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest inactive conversion setting: %w", err)
	}
	return s, nil
}

func (r *ConversionSettingRepository) Insert(ctx context.Context, s *models.ConversionSetting) error {
	query := `
		INSERT INTO conversion_settings (` + conversionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.FromCurrency, s.ToCurrency, s.Rate.String(), s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conversion setting: %w", err)
	}
	return nil
}

func (r *ConversionSettingRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE conversion_settings SET is_active = false, updated_at = $1 WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate conversion setting %s: %w", id, err)
	}
	return nil
}

func scanConversion(row rowScanner) (*models.ConversionSetting, error) {
	var s models.ConversionSetting
	var rateText string
	err := row.Scan(&s.ID, &s.FromCurrency, &s.ToCurrency, &rateText, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(rateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored rate %q: %w", rateText, err)
	}
	s.Rate = rate
	return &s, nil
}
