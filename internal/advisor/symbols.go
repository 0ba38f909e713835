package advisor

import (
	"strings"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"
)

// ExtractSymbols scans the user message for mentions of screened symbols.
// Returns deduplicated uppercase symbols found, in mention order.
func ExtractSymbols(text string, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
	}

	upper := strings.ToUpper(text)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})

	seen := make(map[string]bool)
	var result []string
	for _, w := range words {
		if knownSet[w] && !seen[w] {
			seen[w] = true
			result = append(result, w)
		}
	}
	return result
}

// screenedSymbols lists the normalized tickers present on a screen.
func screenedSymbols(snap *domain.ScreenSnapshot) []string {
	var symbols []string
	for _, row := range snap.Rows {
		if strings.TrimSpace(row.Symbol) == "" {
			continue
		}
		symbols = append(symbols, screener.Normalize(row.Symbol))
	}
	return symbols
}
