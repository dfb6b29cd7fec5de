package symbols

import "testing"

func TestSplitSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		quote  string
		base   string
		ok     bool
	}{
		{"BTCUSDT", "USDT", "BTC", true},
		{"1000PEPEUSDT", "USDT", "1000PEPE", true},
		{"ETHBTC", "USDT", "", false},
		{"USDT", "USDT", "", false},
		{"USDTUSDT", "USDT", "USDT", true},
		{"ETHBTC", "BTC", "ETH", true},
	}
	for _, tt := range tests {
		base, ok := SplitSymbol(tt.symbol, tt.quote)
		if base != tt.base || ok != tt.ok {
			t.Errorf("SplitSymbol(%s,%s)=(%s,%v) want (%s,%v)", tt.symbol, tt.quote, base, ok, tt.base, tt.ok)
		}
		if ok && base+tt.quote != tt.symbol {
			t.Errorf("round trip %s+%s != %s", base, tt.quote, tt.symbol)
		}
	}
}

func TestJoinSymbol(t *testing.T) {
	if got := JoinSymbol(" btc", "usdt "); got != "BTCUSDT" {
		t.Errorf("JoinSymbol = %s", got)
	}
}

func TestIconName(t *testing.T) {
	tests := []struct {
		base    string
		aliases map[string]string
		want    string
	}{
		{"1000PEPE", nil, "pepe"},
		{"WIF", nil, "dogwifcoin"},
		{"SHIB", nil, "shiba-inu"},
		{"VANRY", nil, "vanry"},
		{"VANRY", map[string]string{"VANRY": "vanar"}, "vanar"},
		{"BTC", map[string]string{"BTC": "bitcoin"}, "bitcoin"},
	}
	for _, tt := range tests {
		if got := IconName(tt.base, tt.aliases); got != tt.want {
			t.Errorf("IconName(%s)=%s want %s", tt.base, got, tt.want)
		}
	}
}

func TestIconResolver(t *testing.T) {
	r := NewIconResolver("", "", map[string]string{"vanry": "vanar"})

	icon := r.Resolve("VANRY")
	if icon.URL != "https://raw.githubusercontent.com/spothq/cryptocurrency-icons/master/128/color/vanar.png" {
		t.Errorf("unexpected url: %s", icon.URL)
	}
	if icon.FallbackURL != "https://placehold.co/48x48/2a2a4a/ffffff?text=V&font=montserrat" {
		t.Errorf("unexpected fallback: %s", icon.FallbackURL)
	}

	if again := r.Resolve("VANRY"); again != icon {
		t.Errorf("resolution is not deterministic: %+v != %+v", again, icon)
	}

	custom := NewIconResolver("https://icons.example/{name}.svg", "https://ph.example/{initial}", nil)
	if got := custom.Resolve("1000SATS"); got.URL != "https://icons.example/sats.svg" || got.FallbackURL != "https://ph.example/1" {
		t.Errorf("unexpected custom icon: %+v", got)
	}
}
