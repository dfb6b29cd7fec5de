package processor

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"cryptotracker/models"
)

// SortMode selects the ordering applied by Query.
type SortMode string

const (
	NameAsc    SortMode = "name_asc"
	NameDesc   SortMode = "name_desc"
	PriceAsc   SortMode = "price_asc"
	PriceDesc  SortMode = "price_desc"
	ChangeAsc  SortMode = "change_asc"
	ChangeDesc SortMode = "change_desc"
)

// DefaultSortMode is used for empty or unrecognised selectors.
const DefaultSortMode = NameAsc

// SortModes lists every supported mode in display order.
var SortModes = []SortMode{NameAsc, NameDesc, PriceDesc, PriceAsc, ChangeDesc, ChangeAsc}

// ParseSortMode maps a selector to a SortMode, falling back to NameAsc.
func ParseSortMode(s string) SortMode {
	mode := SortMode(strings.ToLower(strings.TrimSpace(s)))
	if mode.Valid() {
		return mode
	}
	return DefaultSortMode
}

// Valid reports whether m is one of the supported modes.
func (m SortMode) Valid() bool {
	for _, known := range SortModes {
		if m == known {
			return true
		}
	}
	return false
}

// Query filters assets by a case-insensitive substring of the base asset and
// returns them in the requested order. The input is never modified and a fresh
// slice is returned on every call. The sort is stable: equal keys keep their
// collection order. Unavailable prices and changes always sort last. Pinned
// assets that survive the filter stay ahead of the sorted rest.
func Query(assets models.MarketAssetCollection, search string, mode SortMode) []models.MarketAsset {
	needle := strings.ToLower(search)
	out := make([]models.MarketAsset, 0, len(assets))
	for _, a := range assets {
		if needle == "" || strings.Contains(strings.ToLower(a.BaseAsset), needle) {
			out = append(out, a)
		}
	}

	if !mode.Valid() {
		mode = DefaultSortMode
	}

	var cmp func(a, b models.MarketAsset) int
	switch mode {
	case PriceAsc, PriceDesc:
		desc := mode == PriceDesc
		cmp = func(a, b models.MarketAsset) int {
			return compareAvailable(a.LastPrice, b.LastPrice, desc)
		}
	case ChangeAsc, ChangeDesc:
		desc := mode == ChangeDesc
		cmp = func(a, b models.MarketAsset) int {
			return compareAvailable(a.PriceChangePercent, b.PriceChangePercent, desc)
		}
	default:
		// Collators keep internal buffers and are not safe for concurrent use.
		c := collate.New(language.English)
		desc := mode == NameDesc
		cmp = func(a, b models.MarketAsset) int {
			r := c.CompareString(a.BaseAsset, b.BaseAsset)
			if desc {
				return -r
			}
			return r
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// compareAvailable orders two optional numbers, placing unavailable values
// after every available one regardless of direction.
func compareAvailable(a, b decimal.NullDecimal, desc bool) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	}
	r := a.Decimal.Cmp(b.Decimal)
	if desc {
		return -r
	}
	return r
}
