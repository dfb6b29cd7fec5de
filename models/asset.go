package models

import (
	"github.com/shopspring/decimal"
)

// MarketAsset is the normalized view of a single trading pair.
//
// Numeric fields use decimal.NullDecimal: Valid=false means the exchange value
// was missing or could not be parsed and is reported as "not available".
type MarketAsset struct {
	Symbol             string              `json:"symbol"`
	BaseAsset          string              `json:"base_asset"`
	QuoteAsset         string              `json:"quote_asset"`
	LastPrice          decimal.NullDecimal `json:"last_price"`
	PriceChangePercent decimal.NullDecimal `json:"price_change_percent"`
	HighPrice          decimal.NullDecimal `json:"high_price"`
	LowPrice           decimal.NullDecimal `json:"low_price"`
	Volume             decimal.NullDecimal `json:"volume"`
	QuoteVolume        decimal.NullDecimal `json:"quote_volume"`
	Pinned             bool                `json:"pinned,omitempty"`
}

// MarketAssetCollection is the ordered result of one fetch cycle. It is
// replaced as a whole on refresh and never mutated in place.
type MarketAssetCollection []MarketAsset

// Find returns the asset with the given symbol.
func (c MarketAssetCollection) Find(symbol string) (MarketAsset, bool) {
	for _, a := range c {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return MarketAsset{}, false
}

// Symbols lists the collection keys in order.
func (c MarketAssetCollection) Symbols() []string {
	out := make([]string, len(c))
	for i, a := range c {
		out[i] = a.Symbol
	}
	return out
}

// ViewQuery carries the search term and sort selector of a single render pass.
type ViewQuery struct {
	Search string `form:"search" json:"search"`
	Sort   string `form:"sort" json:"sort"`
}
