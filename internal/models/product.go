package models

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies which upstream catalog a product came from.
type Source string

const (
	SourceTechMart Source = "techmart"
	SourceStyleHub Source = "stylehub"
)

// Product is the canonical, source-agnostic product record persisted by the
// engine. Prices are kept twice: BasePrice/BaseShippingCost in the upstream
// source's currency, Price/ShippingCost in the settlement currency. The
// settlement figures are always round(base * active rate) whenever the base
// is known.
type Product struct {
	ID          string `json:"id"`
	ExternalID  string `json:"externalId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`

	BasePrice        *float64 `json:"basePrice,omitempty"`
	BaseShippingCost *float64 `json:"baseShippingCost,omitempty"`
	Price            float64  `json:"price"`
	ShippingCost     float64  `json:"shippingCost"`
	Currency         string   `json:"currency"`

	Availability bool    `json:"availability"`
	Rating       float64 `json:"rating"`
	ReviewCount  int     `json:"reviewCount"`
	ImageURL     string  `json:"imageUrl"`

	// Fashion only; nil when the record carries no size/color signal.
	Size  *string `json:"size,omitempty"`
	Color *string `json:"color,omitempty"`

	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompositeID returns the source-prefixed identifier used by detail lookups.
func (p *Product) CompositeID() string {
	return fmt.Sprintf("%s:%s", p.Source, p.ExternalID)
}

// SplitCompositeID parses "source:externalID". A bare ID yields an empty
// source, the caller picks its default.
func SplitCompositeID(compositeID string) (Source, string) {
	idx := strings.Index(compositeID, ":")
	if idx < 0 {
		return "", compositeID
	}
	switch Source(compositeID[:idx]) {
	case SourceTechMart:
		return SourceTechMart, compositeID[idx+1:]
	case SourceStyleHub:
		return SourceStyleHub, compositeID[idx+1:]
	}
	return "", compositeID
}
