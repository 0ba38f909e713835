package screener

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"BTC/USD":   "BTC",
		"eth-usdt":  "ETH",
		"solusd":    "SOLUSD",
		" ada/eur ": "ADA",
		"DOGE":      "DOGE",
		"":          "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
