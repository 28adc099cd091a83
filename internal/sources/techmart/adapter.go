package techmart

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
	searchEndpoint  = "/search"
	detailsEndpoint = "/product-details"
)

// probeQuery is the minimal availability probe issued by Available.
const probeQuery = "phone"

var categories = []string{
	"Electronics",
	"Computers & Accessories",
	"Phones & Tablets",
	"TV & Audio",
	"Cameras",
	"Gaming",
	"Home & Kitchen",
}

// Adapter translates the TechMart electronics catalog API. Search responses
// nest records under "products", keyed by an ASIN-style SKU.
type Adapter struct {
	client *httpclient.RateLimitedClient
	log    logger.Logger
}

func NewAdapter(src config.SourceConfig, cl config.ClientConfig, writer io.Writer) *Adapter {
	return &Adapter{
		client: httpclient.New(string(models.SourceTechMart), src, cl, writer),
		log:    logger.NewLogger(writer, "[TechMart]"),
	}
}

// NewAdapterWithClient lets tests inject a client pointed at a stub server.
func NewAdapterWithClient(client *httpclient.RateLimitedClient, writer io.Writer) *Adapter {
	return &Adapter{
		client: client,
		log:    logger.NewLogger(writer, "[TechMart]"),
	}
}

type productPayload struct {
	ASIN         string `json:"asin"`
	ProductID    string `json:"product_id"`
	Title        string `json:"product_title"`
	Description  string `json:"product_description"`
	Price        string `json:"product_price"`
	Delivery     string `json:"delivery_price"`
	StarRating   string `json:"product_star_rating"`
	NumRatings   string `json:"product_num_ratings"`
	Photo        string `json:"product_photo"`
	Availability string `json:"product_availability"`
}

func (a *Adapter) Source() models.Source { return models.SourceTechMart }

func (a *Adapter) Search(ctx context.Context, query, region string, page, limit int) ([]sources.RawRecord, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("country", region)
	params.Set("page", strconv.Itoa(page))
	params.Set("max_results", strconv.Itoa(limit))

	env, err := a.client.Get(ctx, searchEndpoint, params)
	if err != nil {
		return nil, fmt.Errorf("techmart search %q: %w", query, err)
	}

	payloads, err := decodeProducts(env)
	if err != nil {
		return nil, err
	}
	records := make([]sources.RawRecord, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, toRawRecord(p))
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (a *Adapter) Details(ctx context.Context, externalID, region string) (*sources.RawRecord, error) {
	params := url.Values{}
	params.Set("asin", externalID)
	params.Set("country", region)

	env, err := a.client.Get(ctx, detailsEndpoint, params)
	if err != nil {
		var apiErr *apperr.APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("techmart details %s: %w", externalID, err)
	}

	payloads, err := decodeProducts(env)
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
	_, err := a.Search(ctx, probeQuery, "US", 1, 1)
	if err != nil {
		a.log.Log("availability probe failed: %v", err)
		return false
	}
	return true
}

func (a *Adapter) Quota() *models.Quota { return a.client.Quota() }

func (a *Adapter) Categories() []string { return categories }

func decodeProducts(env *httpclient.Envelope) ([]productPayload, error) {
	if len(env.Products) == 0 {
		return nil, nil
	}
	var payloads []productPayload
	if err := json.Unmarshal(env.Products, &payloads); err != nil {
		// details endpoint returns a single object instead of an array
		var single productPayload
		if err2 := json.Unmarshal(env.Products, &single); err2 == nil {
			return []productPayload{single}, nil
		}
		return nil, fmt.Errorf("techmart: decoding products: %w", err)
	}
	return payloads, nil
}

func toRawRecord(p productPayload) sources.RawRecord {
	return sources.RawRecord{
		ExternalID:      p.ASIN,
		FallbackID:      p.ProductID,
		Title:           p.Title,
		Description:     p.Description,
		PriceText:       p.Price,
		ShippingText:    p.Delivery,
		RatingText:      p.StarRating,
		ReviewCountText: p.NumRatings,
		ImageURL:        p.Photo,
		Available:       !strings.Contains(strings.ToLower(p.Availability), "out of stock"),
		Source:          models.SourceTechMart,
	}
}
