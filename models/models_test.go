package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMarketAssetJSONMarksUnavailableAsNull(t *testing.T) {
	asset := MarketAsset{
		Symbol:     "BTCUSDT",
		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		LastPrice:  decimal.NewNullDecimal(decimal.RequireFromString("65000.1234")),
	}
	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"last_price":"65000.1234"`) {
		t.Errorf("last_price not encoded as decimal string: %s", out)
	}
	if !strings.Contains(out, `"volume":null`) {
		t.Errorf("unavailable volume should encode as null: %s", out)
	}
}

func TestCollectionFind(t *testing.T) {
	c := MarketAssetCollection{
		{Symbol: "VANRYUSDT", BaseAsset: "VANRY"},
		{Symbol: "BTCUSDT", BaseAsset: "BTC"},
	}
	got, ok := c.Find("BTCUSDT")
	if !ok || got.BaseAsset != "BTC" {
		t.Fatalf("Find(BTCUSDT) = %+v, %v", got, ok)
	}
	if _, ok := c.Find("ETHUSDT"); ok {
		t.Fatalf("Find(ETHUSDT) should miss")
	}
	if syms := c.Symbols(); len(syms) != 2 || syms[0] != "VANRYUSDT" {
		t.Fatalf("unexpected symbols: %v", syms)
	}
}
