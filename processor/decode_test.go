package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTickers(t *testing.T) {
	body := []byte(`[
		{"symbol":"BTCUSDT","lastPrice":"65000.10","priceChangePercent":"2.35","highPrice":"66000","lowPrice":"64000","volume":"1234.5","quoteVolume":"80000000","count":42},
		{"symbol":"ETHUSDT","lastPrice":3000.5,"priceChangePercent":null,"highPrice":{"x":1}}
	]`)

	raw, err := DecodeTickers(body)
	require.NoError(t, err)
	require.Len(t, raw, 2)

	assert.Equal(t, "BTCUSDT", raw[0].Symbol)
	assert.Equal(t, "65000.10", raw[0].LastPrice)
	assert.Equal(t, "80000000", raw[0].QuoteVolume)

	assert.Equal(t, "3000.5", raw[1].LastPrice)
	assert.Empty(t, raw[1].PriceChangePercent)
	assert.Empty(t, raw[1].HighPrice)
	assert.Empty(t, raw[1].Volume)
}

func TestDecodeTickersEmptyBody(t *testing.T) {
	for _, body := range []string{"", "  ", "null", "[]"} {
		raw, err := DecodeTickers([]byte(body))
		require.NoError(t, err, "body %q", body)
		assert.Empty(t, raw, "body %q", body)
	}
}

func TestDecodeTickersRejectsMalformedPayload(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		index int
	}{
		{"object payload", `{"code":-1121,"msg":"Invalid symbol."}`, -1},
		{"truncated", `[{"symbol":"BTCUSDT"`, -1},
		{"scalar element", `[{"symbol":"BTCUSDT"}, 5]`, 1},
		{"null element", `[null]`, 0},
		{"missing symbol", `[{"lastPrice":"1"}]`, 0},
		{"numeric symbol", `[{"symbol":12}]`, 0},
		{"empty symbol", `[{"symbol":""}]`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := DecodeTickers([]byte(tc.body))
			require.Error(t, err)
			assert.Nil(t, raw)

			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.index, invalid.Index)
		})
	}
}

func TestDecodeTickersMissingSymbolIsSentinel(t *testing.T) {
	_, err := DecodeTickers([]byte(`[{"symbol":"BTCUSDT"},{"volume":"1"}]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errMissingSymbol))
	assert.Contains(t, err.Error(), "element 1")
}
