package screener

import "strings"

// Normalize maps a raw ticker into the form news providers expect:
// upper-cased, with any quote-currency suffix dropped ("BTC/USD" -> "BTC",
// "eth-usdt" -> "ETH"). Pair-less tickers pass through unchanged.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}
