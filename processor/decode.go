package processor

import (
	"bytes"
	"encoding/json"
	"errors"

	"cryptotracker/models"
)

var errMissingSymbol = errors.New("missing symbol")

// DecodeTickers parses the exchange 24h ticker response body.
//
// An empty body or a JSON null yields no records. Anything other than an array
// of objects each carrying a string symbol is an *InvalidInputError. Numeric
// fields may be JSON strings or numbers; any other shape is left empty and
// later reported as not available.
func DecodeTickers(body []byte) ([]models.RawTicker, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, &InvalidInputError{Index: -1, Reason: "expected a JSON array", Err: err}
	}

	out := make([]models.RawTicker, 0, len(elements))
	for i, raw := range elements {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return nil, &InvalidInputError{Index: i, Reason: "expected a JSON object", Err: err}
		}

		symbolRaw, ok := obj["symbol"]
		if !ok {
			return nil, &InvalidInputError{Index: i, Err: errMissingSymbol}
		}
		var symbol string
		if err := json.Unmarshal(symbolRaw, &symbol); err != nil || symbol == "" {
			return nil, &InvalidInputError{Index: i, Reason: "symbol must be a non-empty string", Err: err}
		}

		out = append(out, models.RawTicker{
			Symbol:             symbol,
			LastPrice:          numericText(obj["lastPrice"]),
			PriceChangePercent: numericText(obj["priceChangePercent"]),
			HighPrice:          numericText(obj["highPrice"]),
			LowPrice:           numericText(obj["lowPrice"]),
			Volume:             numericText(obj["volume"]),
			QuoteVolume:        numericText(obj["quoteVolume"]),
		})
	}
	return out, nil
}

func numericText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
