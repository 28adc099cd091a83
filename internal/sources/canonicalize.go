package sources

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"markethub_api/internal/models"
	"markethub_api/internal/sources/rules"
	"markethub_api/pkg/apperr"
	"markethub_api/pkg/logger"
)

// QueryContext carries the search context a record arrived under, needed to
// resolve its category.
type QueryContext struct {
	Query    string
	Category string
}

// Canonicalizer turns raw source records into canonical products: numeric
// price extraction, category/brand resolution and, for fashion records,
// size/color classification through ordered rule sets.
type Canonicalizer struct {
	settlementCurrency string
	sizeRules          rules.Classifier
	colorRules         rules.Classifier
	titleCaser         cases.Caser
	log                logger.Logger
}

func NewCanonicalizer(settlementCurrency string, writer io.Writer) *Canonicalizer {
	return &Canonicalizer{
		settlementCurrency: settlementCurrency,
		sizeRules:          defaultSizeRules(),
		colorRules:         defaultColorRules(),
		titleCaser:         cases.Title(language.English),
		log:                logger.NewLogger(writer, "[Canonicalizer]"),
	}
}

// Canonicalize validates and normalizes one raw record. The settlement price
// is round(basePrice * activeRate); the base price is retained for later
// rate changes.
func (c *Canonicalizer) Canonicalize(raw RawRecord, region string, activeRate decimal.Decimal, qc QueryContext) (models.Product, error) {
	externalID := raw.ExternalID
	if externalID == "" {
		externalID = raw.FallbackID
	}
	if externalID == "" {
		return models.Product{}, &apperr.InvalidRecordError{Reason: "no external id candidate"}
	}
	if strings.TrimSpace(raw.Title) == "" {
		return models.Product{}, &apperr.InvalidRecordError{Reason: fmt.Sprintf("record %s has no title", externalID)}
	}

	category := qc.Category
	if category == "" {
		category = CategoryForQuery(qc.Query)
	}

	basePrice := ExtractAmount(raw.PriceText)
	baseShipping := ExtractAmount(raw.ShippingText)

	p := models.Product{
		ExternalID:       externalID,
		Title:            strings.TrimSpace(raw.Title),
		Description:      strings.TrimSpace(raw.Description),
		Brand:            c.resolveBrand(raw, category),
		Category:         category,
		BasePrice:        &basePrice,
		BaseShippingCost: &baseShipping,
		Price:            settle(basePrice, activeRate),
		ShippingCost:     settle(baseShipping, activeRate),
		Currency:         c.settlementCurrency,
		Availability:     raw.Available,
		Rating:           parseFloatOrZero(raw.RatingText),
		ReviewCount:      parseIntOrZero(raw.ReviewCountText),
		ImageURL:         raw.ImageURL,
		Source:           raw.Source,
	}

	if category == CategoryFashion {
		if size, ok := c.classifyFirst(c.sizeRules, raw.Title, raw.Description); ok {
			p.Size = &size
		}
		if color, ok := c.classifyFirst(c.colorRules, raw.Title, raw.Description); ok {
			p.Color = &color
		}
	}

	return p, nil
}

// settle converts a base amount into the settlement currency, rounded to the
// nearest whole unit.
func settle(base float64, rate decimal.Decimal) float64 {
	return decimal.NewFromFloat(base).Mul(rate).Round(0).InexactFloat64()
}

func (c *Canonicalizer) classifyFirst(cl rules.Classifier, title, description string) (string, bool) {
	if label, ok := cl.Classify(title); ok {
		return label, true
	}
	return cl.Classify(description)
}

func (c *Canonicalizer) resolveBrand(raw RawRecord, category string) string {
	if b := strings.TrimSpace(raw.Brand); b != "" {
		return b
	}
	lowerTitle := strings.ToLower(raw.Title)
	for _, brand := range brandVocab[category] {
		if containsWord(lowerTitle, strings.ToLower(brand)) {
			return brand
		}
	}
	if tok := firstAlphaToken.FindString(raw.Title); tok != "" {
		return c.titleCaser.String(tok)
	}
	return "Unknown"
}

var firstAlphaToken = regexp.MustCompile(`[A-Za-z]+`)

func containsWord(haystack, needle string) bool {
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return false
	}
	before := idx == 0 || !isAlnum(haystack[idx-1])
	afterIdx := idx + len(needle)
	after := afterIdx >= len(haystack) || !isAlnum(haystack[afterIdx])
	return before && after
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// amountPattern grabs the first numeric run out of a free-form currency
// string like "$1,234.56 with free delivery".
var amountPattern = regexp.MustCompile(`\d[\d,]*\.?\d*`)

// ExtractAmount strips everything but the number from a price string.
// Unparseable input yields 0.
func ExtractAmount(text string) float64 {
	m := amountPattern.FindString(text)
	if m == "" {
		return 0
	}
	m = strings.ReplaceAll(m, ",", "")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatOrZero(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntOrZero(text string) int {
	v, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
	if err != nil {
		return 0
	}
	return v
}

// defaultSizeRules is the ordered size extraction set: letter sizes first,
// then numeric sizes with a unit, then bare numeric ranges.
func defaultSizeRules() rules.Classifier {
	return rules.NewSet(
		rules.Rule{
			// delimited by whitespace, not \b: keeps the trailing s of
			// possessives ("Levi's") from reading as a size
			Pattern:   regexp.MustCompile(`(?i)(?:^|[\s(/,])(XXXL|XXL|XL|XS|S|M|L)(?:[\s)/,.]|$)`),
			Normalize: strings.ToUpper,
		},
		rules.Rule{
			Pattern:   regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d)?\s?(?:UK|US|EU|CM))\b`),
			Normalize: strings.ToUpper,
		},
		rules.Rule{
			Pattern: regexp.MustCompile(`\b(\d{1,2}\s?-\s?\d{1,2})\b`),
		},
	)
}

func defaultColorRules() rules.Classifier {
	set := make([]rules.Rule, 0, len(colorNames))
	for _, name := range colorNames {
		set = append(set, rules.Rule{
			Pattern: regexp.MustCompile(`(?i)\b` + name + `\b`),
			Label:   name,
		})
	}
	return rules.NewSet(set...)
}
