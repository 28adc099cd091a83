package stylehub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"markethub_api/config"
	"markethub_api/internal/models"
	"markethub_api/internal/sources"
	"markethub_api/pkg/apperr"
	"markethub_api/pkg/httpclient"
	"markethub_api/pkg/logger"
)

const (
	searchEndpoint  = "/deals/search"
	detailsEndpoint = "/deals/detail"
)

const probeQuery = "dress"

var categories = []string{
	"Fashion",
	"Men's Clothing",
	"Women's Clothing",
	"Shoes",
	"Accessories",
	"Sportswear",
}

// Adapter translates the StyleHub fashion catalog API. Search responses
// nest records under "deals", keyed by SKU with a numeric id fallback, and
// carry an explicit brand field.
type Adapter struct {
	client *httpclient.RateLimitedClient
	log    logger.Logger
}

func NewAdapter(src config.SourceConfig, cl config.ClientConfig, writer io.Writer) *Adapter {
	return &Adapter{
		client: httpclient.New(string(models.SourceStyleHub), src, cl, writer),
		log:    logger.NewLogger(writer, "[StyleHub]"),
	}
}

func NewAdapterWithClient(client *httpclient.RateLimitedClient, writer io.Writer) *Adapter {
	return &Adapter{
		client: client,
		log:    logger.NewLogger(writer, "[StyleHub]"),
	}
}

type dealPayload struct {
	SKU         string          `json:"sku"`
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Details     string          `json:"details"`
	Brand       string          `json:"brand"`
	Price       string          `json:"price"`
	Shipping    string          `json:"shipping_cost"`
	Rating      json.RawMessage `json:"rating"`
	ReviewCount json.RawMessage `json:"review_count"`
	Image       string          `json:"image_url"`
	InStock     bool            `json:"in_stock"`
}

func (a *Adapter) Source() models.Source { return models.SourceStyleHub }

func (a *Adapter) Search(ctx context.Context, query, region string, page, limit int) ([]sources.RawRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("store", region)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(limit))

	env, err := a.client.Get(ctx, searchEndpoint, params)
	if err != nil {
		return nil, fmt.Errorf("stylehub search %q: %w", query, err)
	}

	payloads, err := decodeDeals(env)
	if err != nil {
		return nil, err
	}
	records := make([]sources.RawRecord, 0, len(payloads))
	for _, d := range payloads {
		records = append(records, toRawRecord(d))
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (a *Adapter) Details(ctx context.Context, externalID, region string) (*sources.RawRecord, error) {
	params := url.Values{}
	params.Set("sku", externalID)
	params.Set("store", region)

	env, err := a.client.Get(ctx, detailsEndpoint, params)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("stylehub details %s: %w", externalID, err)
	}

	payloads, err := decodeDeals(env)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}
	rec := toRawRecord(payloads[0])
	return &rec, nil
}

func (a *Adapter) Available(ctx context.Context) bool {
	_, err := a.Search(ctx, probeQuery, "UK", 1, 1)
	if err != nil {
		a.log.Log("availability probe failed: %v", err)
		return false
	}
	return true
}

func (a *Adapter) Quota() *models.Quota { return a.client.Quota() }

func (a *Adapter) Categories() []string { return categories }

func decodeDeals(env *httpclient.Envelope) ([]dealPayload, error) {
	if len(env.Deals) == 0 {
		return nil, nil
	}
	var payloads []dealPayload
	if err := json.Unmarshal(env.Deals, &payloads); err != nil {
		var single dealPayload
		if err2 := json.Unmarshal(env.Deals, &single); err2 == nil {
			return []dealPayload{single}, nil
		}
		return nil, fmt.Errorf("stylehub: decoding deals: %w", err)
	}
	return payloads, nil
}

func toRawRecord(d dealPayload) sources.RawRecord {
	return sources.RawRecord{
		ExternalID:      d.SKU,
		FallbackID:      rawToString(d.ID),
		Title:           d.Name,
		Description:     d.Details,
		Brand:           d.Brand,
		PriceText:       d.Price,
		ShippingText:    d.Shipping,
		RatingText:      rawToString(d.Rating),
		ReviewCountText: rawToString(d.ReviewCount),
		ImageURL:        d.Image,
		Available:       d.InStock,
		Source:          models.SourceStyleHub,
	}
}

// rawToString flattens fields StyleHub sends as either string or number.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
