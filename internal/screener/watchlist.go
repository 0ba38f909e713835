package screener

import (
	"context"
	"log"
)

// WatchlistLister reads raw tickers from storage, in stored order.
type WatchlistLister interface {
	ListWatchlist(ctx context.Context) ([]string, error)
}

// WatchlistSource resolves the symbol universe for a run: the stored
// watchlist when it has entries, otherwise the configured fallback list.
type WatchlistSource struct {
	lister   WatchlistLister
	fallback []string
}

func NewWatchlistSource(lister WatchlistLister, fallback []string) *WatchlistSource {
	return &WatchlistSource{lister: lister, fallback: fallback}
}

func (s *WatchlistSource) ListSymbols(ctx context.Context) ([]string, error) {
	if s.lister != nil {
		symbols, err := s.lister.ListWatchlist(ctx)
		if err != nil {
			log.Printf("watchlist read failed, using configured symbols: %v", err)
		} else if len(symbols) > 0 {
			return symbols, nil
		}
	}
	return s.fallback, nil
}
