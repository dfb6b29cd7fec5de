package symbols

import "strings"

// SplitSymbol strips the quote suffix from an exchange pair symbol such as
// BTCUSDT. ok is false when the symbol is not quoted in quote or when nothing
// would remain of the base asset.
func SplitSymbol(symbol, quote string) (base string, ok bool) {
	if !strings.HasSuffix(symbol, quote) {
		return "", false
	}
	base = strings.TrimSuffix(symbol, quote)
	if base == "" {
		return "", false
	}
	return base, true
}

// JoinSymbol is the inverse of SplitSymbol.
func JoinSymbol(base, quote string) string {
	return strings.ToUpper(strings.TrimSpace(base)) + strings.ToUpper(strings.TrimSpace(quote))
}

// IconName maps a base asset to the file name used by the icon set. Binance
// lists some assets with a 1000 multiplier prefix or under a ticker that
// differs from the icon set's name.
func IconName(base string, aliases map[string]string) string {
	if name, ok := aliases[base]; ok {
		return name
	}
	if name, ok := defaultAliases[base]; ok {
		return name
	}
	return strings.ToLower(base)
}

var defaultAliases = map[string]string{
	"1000SATS": "sats",
	"1000PEPE": "pepe",
	"WIF":      "dogwifcoin",
	"SHIB":     "shiba-inu",
	"BTC":      "btc",
	"ETH":      "eth",
	"SOL":      "sol",
	"XRP":      "xrp",
	"DOGE":     "doge",
	"ADA":      "ada",
	"AVAX":     "avax",
	"TRX":      "trx",
	"DOT":      "dot",
	"LINK":     "link",
	"MATIC":    "matic",
	"ICP":      "icp",
	"LTC":      "ltc",
	"BCH":      "bch",
	"NEAR":     "near",
	"UNI":      "uni",
	"FIL":      "fil",
	"ETC":      "etc",
	"ATOM":     "atom",
	"APT":      "apt",
	"BONK":     "bonk",
	"STX":      "stx",
	"SUI":      "sui",
	"LDO":      "ldo",
	"HBAR":     "hbar",
	"OP":       "op",
	"VET":      "vet",
	"GRT":      "grt",
	"TIA":      "tia",
	"AR":       "ar",
}
