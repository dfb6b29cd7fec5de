package processor

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"cryptotracker/internal/symbols"
	"cryptotracker/models"
)

var errEmptyValue = errors.New("value missing")

// NormalizeReport summarises a single normalization pass.
type NormalizeReport struct {
	Received    int
	Kept        int
	OutOfScope  int
	Duplicates  int
	Pinned      bool
	ParseErrors []*FieldParseError
}

// Normalize converts raw ticker records into the ordered collection served to
// consumers. See NormalizeWithReport for the rules.
func Normalize(raw []models.RawTicker, quoteSuffix, pinnedSymbol string) (models.MarketAssetCollection, error) {
	assets, _, err := NormalizeWithReport(raw, quoteSuffix, pinnedSymbol)
	return assets, err
}

// NormalizeWithReport keeps records quoted in quoteSuffix, derives the base
// asset, parses each numeric field independently and moves pinnedSymbol (when
// present) to the front. Everything else keeps its input order. Repeated
// symbols keep their first occurrence.
//
// A record without a symbol fails the whole batch with *InvalidInputError.
// Unparseable numeric fields only mark that field unavailable and are listed
// in the report.
func NormalizeWithReport(raw []models.RawTicker, quoteSuffix, pinnedSymbol string) (models.MarketAssetCollection, NormalizeReport, error) {
	report := NormalizeReport{Received: len(raw)}

	for i, r := range raw {
		if strings.TrimSpace(r.Symbol) == "" {
			return nil, report, &InvalidInputError{Index: i, Err: errMissingSymbol}
		}
	}

	seen := make(map[string]struct{}, len(raw))
	rest := make(models.MarketAssetCollection, 0, len(raw))
	var pinned *models.MarketAsset

	for _, r := range raw {
		base, ok := symbols.SplitSymbol(r.Symbol, quoteSuffix)
		if !ok {
			report.OutOfScope++
			continue
		}
		if _, dup := seen[r.Symbol]; dup {
			report.Duplicates++
			continue
		}
		seen[r.Symbol] = struct{}{}

		asset := models.MarketAsset{
			Symbol:             r.Symbol,
			BaseAsset:          base,
			QuoteAsset:         quoteSuffix,
			LastPrice:          parseField(r.Symbol, "lastPrice", r.LastPrice, &report),
			PriceChangePercent: parseField(r.Symbol, "priceChangePercent", r.PriceChangePercent, &report),
			HighPrice:          parseField(r.Symbol, "highPrice", r.HighPrice, &report),
			LowPrice:           parseField(r.Symbol, "lowPrice", r.LowPrice, &report),
			Volume:             parseField(r.Symbol, "volume", r.Volume, &report),
			QuoteVolume:        parseField(r.Symbol, "quoteVolume", r.QuoteVolume, &report),
		}

		if pinnedSymbol != "" && r.Symbol == pinnedSymbol {
			asset.Pinned = true
			pinned = &asset
			continue
		}
		rest = append(rest, asset)
	}

	out := make(models.MarketAssetCollection, 0, len(rest)+1)
	if pinned != nil {
		out = append(out, *pinned)
		report.Pinned = true
	}
	out = append(out, rest...)
	report.Kept = len(out)
	return out, report, nil
}

func parseField(symbol, field, value string, report *NormalizeReport) decimal.NullDecimal {
	v := strings.TrimSpace(value)
	if v == "" {
		report.ParseErrors = append(report.ParseErrors, &FieldParseError{Symbol: symbol, Field: field, Value: value, Err: errEmptyValue})
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		report.ParseErrors = append(report.ParseErrors, &FieldParseError{Symbol: symbol, Field: field, Value: value, Err: err})
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
