package processor

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptotracker/models"
)

func TestProjectCard(t *testing.T) {
	card := ProjectCard(asset("BTC", "65000.1", "2.345"))
	assert.Equal(t, "BTCUSDT", card.Symbol)
	assert.Equal(t, "$65000.1000", card.Price)
	assert.Equal(t, "2.35%", card.Change)
	assert.Equal(t, "▲", card.Trend)
	assert.True(t, card.Positive)

	down := ProjectCard(asset("ETH", "3000", "-1.5"))
	assert.Equal(t, "-1.50%", down.Change)
	assert.Equal(t, "▼", down.Trend)
	assert.False(t, down.Positive)

	flat := ProjectCard(asset("USDC", "1", "0"))
	assert.Equal(t, "0.00%", flat.Change)
	assert.True(t, flat.Positive)
}

func TestProjectCardUnavailable(t *testing.T) {
	card := ProjectCard(asset("BAD", "abc", ""))
	assert.Equal(t, NotAvailable, card.Price)
	assert.Equal(t, NotAvailable, card.Change)
	assert.Empty(t, card.Trend)
	assert.False(t, card.Positive)
}

func TestProjectDetail(t *testing.T) {
	a := models.MarketAsset{
		Symbol:      "BTCUSDT",
		BaseAsset:   "BTC",
		QuoteAsset:  "USDT",
		HighPrice:   decimal.NewNullDecimal(decimal.RequireFromString("66000")),
		LowPrice:    decimal.NewNullDecimal(decimal.RequireFromString("64000.12345")),
		Volume:      decimal.NewNullDecimal(decimal.RequireFromString("1234.5")),
		QuoteVolume: decimal.NewNullDecimal(decimal.RequireFromString("80000000")),
	}

	d := ProjectDetail(a)
	assert.Equal(t, "$80,000,000,000", d.MarketCapEstimate)
	assert.Equal(t, "1,234.5", d.Volume24h)
	assert.Equal(t, "$66000.0000", d.High24h)
	assert.Equal(t, "$64000.1235", d.Low24h)

	list := d.List()
	require.Len(t, list, 4)
	assert.Equal(t, "Market Cap", list[0].Label)
	assert.True(t, list[0].Estimate)
	assert.Equal(t, []string{"Market Cap", "24h Volume", "24h High", "24h Low"},
		[]string{list[0].Label, list[1].Label, list[2].Label, list[3].Label})
}

func TestProjectDetailUnavailable(t *testing.T) {
	d := ProjectDetail(models.MarketAsset{Symbol: "BADUSDT", BaseAsset: "BAD", QuoteAsset: "USDT"})
	assert.Equal(t, NotAvailable, d.MarketCapEstimate)
	assert.Equal(t, NotAvailable, d.Volume24h)
	assert.Equal(t, NotAvailable, d.High24h)
	assert.Equal(t, NotAvailable, d.Low24h)
}
