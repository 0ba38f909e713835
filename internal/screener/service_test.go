package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"kraken-screener/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type fakeSymbolSource struct{ symbols []string }

func (f *fakeSymbolSource) ListSymbols(ctx context.Context) ([]string, error) {
	return f.symbols, nil
}

type fakeArticleSource struct {
	articles map[string][]domain.NewsArticle
	errs     map[string]error
	fetched  []string
}

func (f *fakeArticleSource) Name() string { return "articles" }

func (f *fakeArticleSource) FetchArticles(ctx context.Context, symbol string, lookbackDays, limit int) ([]domain.NewsArticle, error) {
	f.fetched = append(f.fetched, symbol)
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.articles[symbol], nil
}

type fakeStatsSource struct {
	counts map[string]domain.SentimentCounts
	errs   map[string]error
}

func (f *fakeStatsSource) Name() string { return "stats" }

func (f *fakeStatsSource) FetchStats(ctx context.Context, symbol, dateRange string) (domain.SentimentCounts, int, error) {
	if err := f.errs[symbol]; err != nil {
		return domain.SentimentCounts{}, 0, err
	}
	return f.counts[symbol], 1, nil
}

type fakeSink struct {
	written *domain.ScreenSnapshot
}

func (f *fakeSink) WriteScreen(ctx context.Context, snap domain.ScreenSnapshot) (domain.ScreenSnapshot, error) {
	snap.RunID = 42
	f.written = &snap
	return snap, nil
}

type fakeCache struct{ got *domain.ScreenSnapshot }

func (f *fakeCache) SetLatestScreen(ctx context.Context, snap domain.ScreenSnapshot) error {
	f.got = &snap
	return nil
}

// posScorer scores every text at a fixed value.
type posScorer struct{ v float64 }

func (p posScorer) Compound(text string) float64 { return p.v }

func newTestService(symbols []string, art ArticleSource, stats StatsSource, sink Sink, cache LatestCache) *Service {
	svc := NewService(
		trace.NewNoopTracerProvider().Tracer("test"),
		&fakeSymbolSource{symbols: symbols},
		art, stats, posScorer{v: 0.5}, sink, cache,
		Config{LookbackDays: 7, ArticleLimit: 50},
	)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func TestRunScreenPreservesOrderThroughFailures(t *testing.T) {
	art := &fakeArticleSource{
		articles: map[string][]domain.NewsArticle{
			"BTC": {{Headline: "up"}},
			"SOL": {{Headline: "up"}, {Headline: "up"}},
		},
		errs: map[string]error{"ETH": errors.New("boom")},
	}
	sink := &fakeSink{}
	svc := newTestService([]string{"BTC/USD", "eth-usdt", "SOLUSD"}, art, nil, sink, nil)

	result, err := svc.RunScreen(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsEmitted != 3 || sink.written == nil || len(sink.written.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", result)
	}

	rows := sink.written.Rows
	if rows[0].Symbol != "BTC/USD" || rows[1].Symbol != "eth-usdt" || rows[2].Symbol != "SOLUSD" {
		t.Fatalf("row order must match input order: %+v", rows)
	}
	if rows[1].Score != nil || rows[1].EvidenceCount != 0 {
		t.Fatalf("failed symbol must yield an empty row, got %+v", rows[1])
	}
	if rows[0].EvidenceCount != 1 || rows[2].EvidenceCount != 2 {
		t.Fatalf("unexpected evidence counts: %+v", rows)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one recorded warning, got %v", result.Errors)
	}
}

func TestRunScreenBlankSymbolsEmitEmptyRowsWithoutFetching(t *testing.T) {
	art := &fakeArticleSource{articles: map[string][]domain.NewsArticle{"BTC": {{Headline: "up"}}}}
	sink := &fakeSink{}
	svc := newTestService([]string{"BTC", "", "  "}, art, nil, sink, nil)

	if _, err := svc.RunScreen(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.written.Rows) != 3 {
		t.Fatalf("blank entries still produce rows, got %d", len(sink.written.Rows))
	}
	if len(art.fetched) != 1 || art.fetched[0] != "BTC" {
		t.Fatalf("blank entries must not be fetched: %v", art.fetched)
	}
}

func TestRunScreenCombinesBothSources(t *testing.T) {
	art := &fakeArticleSource{articles: map[string][]domain.NewsArticle{
		"BTC": {{Headline: "a"}, {Headline: "b"}}, // two articles at 0.5
	}}
	stats := &fakeStatsSource{counts: map[string]domain.SentimentCounts{
		"BTC": {Positive: 0, Negative: 2, Neutral: 0}, // score -1.0, count 2
	}}
	sink := &fakeSink{}
	svc := newTestService([]string{"BTC"}, art, stats, sink, nil)

	if _, err := svc.RunScreen(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := sink.written.Rows[0]
	if row.EvidenceCount != 4 {
		t.Fatalf("expected combined evidence 4, got %d", row.EvidenceCount)
	}
	// (0.5*2 + -1.0*2) / 4 = -0.25
	if row.Score == nil || *row.Score != -0.25 {
		t.Fatalf("unexpected combined score: %+v", row.Score)
	}
}

func TestRunScreenAppliesInterSymbolThrottle(t *testing.T) {
	art := &fakeArticleSource{}
	sink := &fakeSink{}
	svc := newTestService([]string{"BTC", "ETH", "SOL"}, art, nil, sink, nil)
	svc.cfg.SymbolDelay = 250 * time.Millisecond

	var slept []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if _, err := svc.RunScreen(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("expected a throttle between symbols, got %v", slept)
	}
}

func TestRunScreenUpdatesCache(t *testing.T) {
	sink := &fakeSink{}
	cache := &fakeCache{}
	svc := newTestService([]string{"BTC"}, &fakeArticleSource{}, nil, sink, cache)

	if _, err := svc.RunScreen(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.got == nil || cache.got.RunID != 42 {
		t.Fatalf("cache should receive the persisted snapshot, got %+v", cache.got)
	}
}

func TestRunScreenCancelledContextStopsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	art := &fakeArticleSource{}
	svc := newTestService([]string{"BTC", "ETH"}, art, nil, &fakeSink{}, nil)
	if _, err := svc.RunScreen(ctx, time.Now()); err == nil {
		t.Fatal("expected context error")
	}
	if len(art.fetched) != 0 {
		t.Fatalf("no fetches should start after cancellation: %v", art.fetched)
	}
}
