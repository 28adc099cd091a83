package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionSetting is one row of the currency-rate audit trail. At most one
// row per currency pair is active; changing the rate deactivates the old row
// instead of deleting it.
type ConversionSetting struct {
	ID           string
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Quota is the best-effort rate-limit budget reported by an upstream API via
// response headers. Nil when the source does not expose the headers.
type Quota struct {
	Remaining int
	ResetAt   time.Time
}
