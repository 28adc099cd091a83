package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"markethub_api/internal/models"
	"markethub_api/internal/storage"
)

const productColumns = `id, source, external_id, title, description, brand, category,
	base_price, base_shipping_cost, price, shipping_cost, currency,
	availability, rating, review_count, image_url, size, color,
	created_at, updated_at`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByExternalID(ctx context.Context, source models.Source, externalID string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE source = $1 AND external_id = $2`

	row := r.db.QueryRowContext(ctx, query, string(source), externalID)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product by external id: %w", err)
	}
	return p, nil
}

// ExistingExternalIDs reports which of the given external IDs are already
// persisted for a source. Used by the sync pass to keep inserts idempotent.
func (r *ProductRepository) ExistingExternalIDs(ctx context.Context, source models.Source, externalIDs []string) (map[string]bool, error) {
	if len(externalIDs) == 0 {
		return map[string]bool{}, nil
	}
	query := `SELECT external_id FROM products WHERE source = $1 AND external_id = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, string(source), pq.Array(externalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing external ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan external id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}
	return existing, nil
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, string(p.Source), p.ExternalID, p.Title, p.Description, p.Brand, p.Category,
		p.BasePrice, p.BaseShippingCost, p.Price, p.ShippingCost, p.Currency,
		p.Availability, p.Rating, p.ReviewCount, p.ImageURL, p.Size, p.Color,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", p.ExternalID, err)
	}
	return nil
}

// UpdateMutable rewrites the fields a re-sync may change, keyed by
// (source, external_id). Identity fields (id, created_at) stay untouched.
func (r *ProductRepository) UpdateMutable(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET
			title = $1, description = $2, brand = $3, category = $4,
			base_price = $5, base_shipping_cost = $6, price = $7, shipping_cost = $8,
			currency = $9, availability = $10, rating = $11, review_count = $12,
			image_url = $13, size = $14, color = $15, updated_at = $16
		WHERE source = $17 AND external_id = $18`

	res, err := r.db.ExecContext(ctx, query,
		p.Title, p.Description, p.Brand, p.Category,
		p.BasePrice, p.BaseShippingCost, p.Price, p.ShippingCost,
		p.Currency, p.Availability, p.Rating, p.ReviewCount,
		p.ImageURL, p.Size, p.Color, p.UpdatedAt,
		string(p.Source), p.ExternalID)
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", p.ExternalID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("no product row for %s/%s", p.Source, p.ExternalID)
	}
	return nil
}

func (r *ProductRepository) ListPricing(ctx context.Context) ([]storage.ProductPricing, error) {
	query := `SELECT id, base_price, base_shipping_cost, price, shipping_cost FROM products ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list product pricing: %w", err)
	}
	defer rows.Close()

	var result []storage.ProductPricing
	for rows.Next() {
		var pr storage.ProductPricing
		var basePrice, baseShipping sql.NullFloat64
		if err := rows.Scan(&pr.ID, &basePrice, &baseShipping, &pr.Price, &pr.ShippingCost); err != nil {
			return nil, fmt.Errorf("failed to scan pricing row: %w", err)
		}
		if basePrice.Valid {
			pr.BasePrice = &basePrice.Float64
		}
		if baseShipping.Valid {
			pr.BaseShippingCost = &baseShipping.Float64
		}
		result = append(result, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error occurred during row iteration: %w", err)
	}
	return result, nil
}

func (r *ProductRepository) UpdatePricing(ctx context.Context, pr storage.ProductPricing) error {
	query := `
		UPDATE products SET
			base_price = $1, base_shipping_cost = $2, price = $3, shipping_cost = $4, updated_at = $5
		WHERE id = $6`

	_, err := r.db.ExecContext(ctx, query,
		pr.BasePrice, pr.BaseShippingCost, pr.Price, pr.ShippingCost, time.Now().UTC(), pr.ID)
	if err != nil {
		return fmt.Errorf("failed to update pricing for %s: %w", pr.ID, err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var source string
	var description, brand, category, imageURL sql.NullString
	var basePrice, baseShipping sql.NullFloat64
	var size, color sql.NullString

	err := row.Scan(&p.ID, &source, &p.ExternalID, &p.Title, &description, &brand, &category,
		&basePrice, &baseShipping, &p.Price, &p.ShippingCost, &p.Currency,
		&p.Availability, &p.Rating, &p.ReviewCount, &imageURL, &size, &color,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Source = models.Source(source)
	p.Description = description.String
	p.Brand = brand.String
	p.Category = category.String
	p.ImageURL = imageURL.String
	if basePrice.Valid {
		p.BasePrice = &basePrice.Float64
	}
	if baseShipping.Valid {
		p.BaseShippingCost = &baseShipping.Float64
	}
	if size.Valid {
		p.Size = &size.String
	}
	if color.Valid {
		p.Color = &color.String
	}
	return &p, nil
}
