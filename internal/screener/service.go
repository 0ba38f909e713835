package screener

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"kraken-screener/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// ArticleSource is a provider returning raw news items for one symbol.
type ArticleSource interface {
	Name() string
	FetchArticles(ctx context.Context, symbol string, lookbackDays, limit int) ([]domain.NewsArticle, error)
}

// StatsSource is a provider returning pre-classified tallies for one symbol.
type StatsSource interface {
	Name() string
	FetchStats(ctx context.Context, symbol, dateRange string) (domain.SentimentCounts, int, error)
}

// SymbolSource supplies the ordered raw ticker list for a run.
type SymbolSource interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// Sink persists one completed screen. The rows arrive in input order and
// the assigned snapshot (with run id) comes back for downstream fan-out.
type Sink interface {
	WriteScreen(ctx context.Context, snap domain.ScreenSnapshot) (domain.ScreenSnapshot, error)
}

// LatestCache receives the freshly persisted screen for cheap reads; cache
// failures are logged, never fatal.
type LatestCache interface {
	SetLatestScreen(ctx context.Context, snap domain.ScreenSnapshot) error
}

type Config struct {
	LookbackDays int
	ArticleLimit int
	SymbolDelay  time.Duration
}

// Service drives one screening pass: for each symbol, in input order,
// normalize, fetch all active sources, aggregate, combine, emit a row.
// Per-symbol failures degrade to empty rows; only startup configuration
// problems abort a run.
type Service struct {
	tracer  trace.Tracer
	symbols SymbolSource
	art     ArticleSource
	stats   StatsSource
	scorer  CompoundScorer
	sink    Sink
	cache   LatestCache
	cfg     Config

	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(
	tracer trace.Tracer,
	symbols SymbolSource,
	art ArticleSource,
	stats StatsSource,
	scorer CompoundScorer,
	sink Sink,
	cache LatestCache,
	cfg Config,
) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if cfg.ArticleLimit <= 0 {
		cfg.ArticleLimit = 50
	}
	if scorer == nil {
		scorer = NewLexiconScorer()
	}
	return &Service{
		tracer:  tracer,
		symbols: symbols,
		art:     art,
		stats:   stats,
		scorer:  scorer,
		sink:    sink,
		cache:   cache,
		cfg:     cfg,
		sleep:   sleepContext,
	}
}

// RunScreen executes one full pass and persists the resulting rows.
func (s *Service) RunScreen(ctx context.Context, now time.Time) (domain.RunResult, error) {
	ctx, span := s.tracer.Start(ctx, "screener.run-screen")
	defer span.End()

	if s.symbols == nil || s.sink == nil {
		return domain.RunResult{}, fmt.Errorf("screener service dependencies are not initialized")
	}
	if s.art == nil && s.stats == nil {
		return domain.RunResult{}, fmt.Errorf("no news source configured")
	}

	now = now.UTC()
	rawSymbols, err := s.symbols.ListSymbols(ctx)
	if err != nil {
		return domain.RunResult{}, fmt.Errorf("list symbols: %w", err)
	}

	result := domain.RunResult{Symbols: len(rawSymbols)}
	rows := make([]domain.ResultRow, 0, len(rawSymbols))

	for i, raw := range rawSymbols {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if strings.TrimSpace(raw) == "" {
			// Blank watchlist entries keep their row so output stays
			// aligned with the input list, but nothing is fetched.
			rows = append(rows, domain.ResultRow{Symbol: raw, UpdatedAtUTC: time.Now().UTC()})
			continue
		}

		symbol := Normalize(raw)
		row := s.screenSymbol(ctx, symbol, &result)
		row.Symbol = raw
		rows = append(rows, row)

		if s.cfg.SymbolDelay > 0 && i < len(rawSymbols)-1 {
			if err := s.sleep(ctx, s.cfg.SymbolDelay); err != nil {
				return result, err
			}
		}
	}

	snap := domain.ScreenSnapshot{StartedAt: now, FinishedAt: time.Now().UTC(), Rows: rows}
	written, err := s.sink.WriteScreen(ctx, snap)
	if err != nil {
		return result, fmt.Errorf("write screen: %w", err)
	}
	result.RowsEmitted = len(rows)

	if s.cache != nil {
		if err := s.cache.SetLatestScreen(ctx, written); err != nil {
			log.Printf("cache latest screen: %v", err)
		}
	}
	return result, nil
}

// screenSymbol fetches the active sources concurrently; each writes into
// its own slot, so no shared state is touched until both return.
func (s *Service) screenSymbol(ctx context.Context, symbol string, result *domain.RunResult) domain.ResultRow {
	ctx, span := s.tracer.Start(ctx, "screener.screen-symbol")
	defer span.End()

	var (
		wg         sync.WaitGroup
		articleRes domain.SourceResult
		statsRes   domain.SourceResult
		articleErr error
		statsErr   error
		statsPages int
	)

	if s.art != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			articles, err := s.art.FetchArticles(ctx, symbol, s.cfg.LookbackDays, s.cfg.ArticleLimit)
			if err != nil {
				articleErr = err
				articleRes = domain.SourceResult{Source: s.art.Name()}
				return
			}
			articleRes = AggregateArticles(s.art.Name(), articles, s.scorer)
		}()
	}

	if s.stats != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dateRange := fmt.Sprintf("last%ddays", s.cfg.LookbackDays)
			counts, pages, err := s.stats.FetchStats(ctx, symbol, dateRange)
			if err != nil {
				statsErr = err
				statsRes = domain.SourceResult{Source: s.stats.Name()}
				return
			}
			statsPages = pages
			statsRes = AggregateCounts(s.stats.Name(), counts)
		}()
	}

	wg.Wait()

	sources := make([]domain.SourceResult, 0, 2)
	if s.art != nil {
		if articleErr != nil {
			log.Printf("screener: %s %s: %v", s.art.Name(), symbol, articleErr)
			result.Errors = append(result.Errors, s.art.Name()+" "+symbol+": "+articleErr.Error())
		}
		result.ArticlesScored += articleRes.EvidenceCount
		sources = append(sources, articleRes)
	}
	if s.stats != nil {
		if statsErr != nil {
			log.Printf("screener: %s %s: %v", s.stats.Name(), symbol, statsErr)
			result.Errors = append(result.Errors, s.stats.Name()+" "+symbol+": "+statsErr.Error())
		}
		result.StatsPages += statsPages
		sources = append(sources, statsRes)
	}

	combined := Combine(sources)
	return domain.ResultRow{
		Score:         combined.Score,
		EvidenceCount: combined.TotalCount,
		UpdatedAtUTC:  time.Now().UTC(),
		Sources:       sources,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
