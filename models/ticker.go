package models

// RawTicker is one element of the exchange 24h ticker payload. Every numeric
// field arrives as a decimal string and is kept verbatim until normalization.
type RawTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

// ChartPoint is a single daily close used by the price history chart.
type ChartPoint struct {
	OpenTime int64   `json:"open_time"`
	Date     string  `json:"date"`
	Price    float64 `json:"price"`
}
