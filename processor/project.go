package processor

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"cryptotracker/models"
)

// NotAvailable is rendered for any field backed by an unavailable value.
const NotAvailable = "N/A"

// MarketCapMultiplier scales 24h quote volume into the market cap estimate.
// The result is an approximation and is labelled as such; it is not a real
// market capitalisation.
const MarketCapMultiplier = 1000

var marketCapMultiplier = decimal.NewFromInt(MarketCapMultiplier)

// CardView is the list entry rendered for one asset.
type CardView struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	Price      string `json:"price"`
	Change     string `json:"change"`
	Trend      string `json:"trend"`
	Positive   bool   `json:"positive"`
}

// Metric is one labelled figure of the detail view.
type Metric struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Estimate bool   `json:"estimate,omitempty"`
}

// DetailMetrics holds the fixed set of figures shown for a selected asset.
type DetailMetrics struct {
	MarketCapEstimate string `json:"market_cap_estimate"`
	Volume24h         string `json:"volume_24h"`
	High24h           string `json:"high_24h"`
	Low24h            string `json:"low_24h"`
}

// List returns the metrics in display order.
func (d DetailMetrics) List() []Metric {
	return []Metric{
		{Label: "Market Cap", Value: d.MarketCapEstimate, Estimate: true},
		{Label: "24h Volume", Value: d.Volume24h},
		{Label: "24h High", Value: d.High24h},
		{Label: "24h Low", Value: d.Low24h},
	}
}

// ProjectCard formats the list entry for an asset. The trend is up when the
// 24h change is zero or positive.
func ProjectCard(a models.MarketAsset) CardView {
	card := CardView{
		Symbol:     a.Symbol,
		BaseAsset:  a.BaseAsset,
		QuoteAsset: a.QuoteAsset,
		Price:      dollarsFixed(a.LastPrice),
		Change:     NotAvailable,
	}
	if a.PriceChangePercent.Valid {
		card.Change = a.PriceChangePercent.Decimal.StringFixed(2) + "%"
		card.Positive = !a.PriceChangePercent.Decimal.IsNegative()
		card.Trend = "▼"
		if card.Positive {
			card.Trend = "▲"
		}
	}
	return card
}

// ProjectDetail computes the detail metrics for an asset.
func ProjectDetail(a models.MarketAsset) DetailMetrics {
	d := DetailMetrics{
		MarketCapEstimate: NotAvailable,
		Volume24h:         NotAvailable,
		High24h:           dollarsFixed(a.HighPrice),
		Low24h:            dollarsFixed(a.LowPrice),
	}
	if a.QuoteVolume.Valid {
		d.MarketCapEstimate = "$" + localeNumber(a.QuoteVolume.Decimal.Mul(marketCapMultiplier))
	}
	if a.Volume.Valid {
		d.Volume24h = localeNumber(a.Volume.Decimal)
	}
	return d
}

func dollarsFixed(v decimal.NullDecimal) string {
	if !v.Valid {
		return NotAvailable
	}
	return "$" + v.Decimal.StringFixed(4)
}

// localeNumber renders v with English digit grouping and at most three
// fraction digits.
func localeNumber(v decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v", number.Decimal(v.InexactFloat64(), number.MaxFractionDigits(3)))
}
