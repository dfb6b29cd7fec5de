package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptotracker/models"
)

func ticker(symbol, price, change string) models.RawTicker {
	return models.RawTicker{
		Symbol:             symbol,
		LastPrice:          price,
		PriceChangePercent: change,
		HighPrice:          "1",
		LowPrice:           "1",
		Volume:             "1",
		QuoteVolume:        "1",
	}
}

func TestNormalizeKeepsOnlyQuoteSuffix(t *testing.T) {
	raw := []models.RawTicker{
		ticker("BTCUSDT", "1", "1"),
		ticker("ETHBTC", "1", "1"),
		ticker("SOLUSDT", "1", "1"),
	}

	assets, report, err := NormalizeWithReport(raw, "USDT", "")
	require.NoError(t, err)

	bases := make([]string, 0, len(assets))
	for _, a := range assets {
		bases = append(bases, a.BaseAsset)
		assert.Equal(t, "USDT", a.QuoteAsset)
	}
	assert.Equal(t, []string{"BTC", "SOL"}, bases)
	assert.Equal(t, 1, report.OutOfScope)
	assert.Equal(t, 2, report.Kept)
}

func TestNormalizeRoundTripsBaseAndQuote(t *testing.T) {
	raw := []models.RawTicker{
		ticker("BTCUSDT", "1", "1"),
		ticker("1000PEPEUSDT", "1", "1"),
		ticker("USDTUSDT", "1", "1"),
		ticker("USDT", "1", "1"),
	}
	for _, quote := range []string{"USDT", "T", "DT"} {
		assets, err := Normalize(raw, quote, "")
		require.NoError(t, err)
		for _, a := range assets {
			assert.NotEmpty(t, a.BaseAsset)
			assert.Equal(t, a.Symbol, a.BaseAsset+quote)
		}
	}
}

func TestNormalizePinsSymbolFirst(t *testing.T) {
	raw := []models.RawTicker{
		ticker("ADAUSDT", "1", "1"),
		ticker("BTCUSDT", "1", "1"),
		ticker("VANRYUSDT", "1", "1"),
	}

	assets, report, err := NormalizeWithReport(raw, "USDT", "VANRYUSDT")
	require.NoError(t, err)
	assert.Equal(t, []string{"VANRYUSDT", "ADAUSDT", "BTCUSDT"}, assets.Symbols())
	assert.True(t, report.Pinned)
	assert.True(t, assets[0].Pinned)
	assert.False(t, assets[1].Pinned)
}

func TestNormalizeWithoutPinKeepsOrder(t *testing.T) {
	raw := []models.RawTicker{
		ticker("SOLUSDT", "1", "1"),
		ticker("ADAUSDT", "1", "1"),
	}

	assets, report, err := NormalizeWithReport(raw, "USDT", "VANRYUSDT")
	require.NoError(t, err)
	assert.Equal(t, []string{"SOLUSDT", "ADAUSDT"}, assets.Symbols())
	assert.False(t, report.Pinned)
}

func TestNormalizeMarksUnparseableFieldsUnavailable(t *testing.T) {
	raw := []models.RawTicker{
		{Symbol: "BTCUSDT", LastPrice: "abc", PriceChangePercent: "2.35", HighPrice: "66000", LowPrice: "", Volume: "1234.5", QuoteVolume: "8e7"},
	}

	assets, report, err := NormalizeWithReport(raw, "USDT", "")
	require.NoError(t, err)
	require.Len(t, assets, 1)

	a := assets[0]
	assert.False(t, a.LastPrice.Valid)
	assert.False(t, a.LowPrice.Valid)
	assert.True(t, a.PriceChangePercent.Valid)
	assert.Equal(t, "2.35", a.PriceChangePercent.Decimal.String())
	assert.Equal(t, "66000", a.HighPrice.Decimal.String())
	assert.Equal(t, "80000000", a.QuoteVolume.Decimal.String())

	require.Len(t, report.ParseErrors, 2)
	fields := []string{report.ParseErrors[0].Field, report.ParseErrors[1].Field}
	assert.ElementsMatch(t, []string{"lastPrice", "lowPrice"}, fields)
	assert.Equal(t, "BTCUSDT", report.ParseErrors[0].Symbol)
}

func TestNormalizeDropsDuplicateSymbols(t *testing.T) {
	raw := []models.RawTicker{
		ticker("BTCUSDT", "1", "1"),
		ticker("BTCUSDT", "2", "1"),
	}

	assets, report, err := NormalizeWithReport(raw, "USDT", "")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "1", assets[0].LastPrice.Decimal.String())
	assert.Equal(t, 1, report.Duplicates)
}

func TestNormalizeMissingSymbolFailsBatch(t *testing.T) {
	raw := []models.RawTicker{
		ticker("BTCUSDT", "1", "1"),
		{LastPrice: "1"},
	}

	assets, err := Normalize(raw, "USDT", "")
	require.Error(t, err)
	assert.Nil(t, assets)

	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 1, invalid.Index)
}

func TestNormalizeEmptyInput(t *testing.T) {
	assets, err := Normalize(nil, "USDT", "VANRYUSDT")
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}
