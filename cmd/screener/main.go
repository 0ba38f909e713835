package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"kraken-screener/internal/cache"
	"kraken-screener/internal/config"
	"kraken-screener/internal/db"
	"kraken-screener/internal/domain"
	"kraken-screener/internal/provider"
	"kraken-screener/internal/repository"
	"kraken-screener/internal/screener"
	"kraken-screener/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	fatalFunc        = log.Fatalf
	outputWriter     = io.Writer(os.Stdout)
)

// csvSink prints the screen to stdout when no database is configured,
// one row per symbol in input order.
type csvSink struct {
	w io.Writer
}

func (s csvSink) WriteScreen(ctx context.Context, snap domain.ScreenSnapshot) (domain.ScreenSnapshot, error) {
	cw := csv.NewWriter(s.w)
	if err := cw.Write([]string{"symbol", "score", "evidence_count", "updated_at_utc"}); err != nil {
		return snap, err
	}
	for _, row := range snap.Rows {
		score := ""
		if row.Score != nil {
			score = fmt.Sprintf("%.4f", *row.Score)
		}
		record := []string{
			row.Symbol,
			score,
			fmt.Sprintf("%d", row.EvidenceCount),
			row.UpdatedAtUTC.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return snap, err
		}
	}
	cw.Flush()
	return snap, cw.Error()
}

func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		fatalFunc("invalid configuration: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		fatalFunc("failed to initialize tracer: %v", err)
		return
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	timeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	var artSource screener.ArticleSource
	if cfg.AlpacaEnabled {
		artSource = provider.NewAlpacaNewsProvider(tracer, cfg.AlpacaBaseURL, cfg.AlpacaAPIKey, cfg.AlpacaSecret, timeout)
	}
	var statsSource screener.StatsSource
	if cfg.CryptoNewsEnabled {
		statsSource = provider.NewCryptoNewsProvider(tracer, cfg.CryptoNewsBaseURL, cfg.CryptoNewsToken, timeout)
	}

	var lister screener.WatchlistLister
	sink := screener.Sink(csvSink{w: outputWriter})
	if db.Pool != nil {
		repo := repository.NewScreenerRepository(db.Pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			fatalFunc("failed to run migrations: %v", err)
			return
		}
		lister = repo
		sink = repo
	}

	screenCache := cache.NewScreenCache(cache.Client, tracer)
	symbolSource := screener.NewWatchlistSource(lister, cfg.Symbols)

	svc := screener.NewService(tracer, symbolSource, artSource, statsSource, nil, sink, screenCache, screener.Config{
		LookbackDays: cfg.LookbackDays,
		ArticleLimit: cfg.ArticleLimit,
		SymbolDelay:  time.Duration(cfg.SymbolDelaySecs) * time.Second,
	})

	result, err := svc.RunScreen(ctx, time.Now().UTC())
	if err != nil {
		fatalFunc("screen failed: %v", err)
		return
	}

	log.Printf(
		"Screen complete symbols=%d rows=%d articles=%d pages=%d warnings=%d",
		result.Symbols,
		result.RowsEmitted,
		result.ArticlesScored,
		result.StatsPages,
		len(result.Errors),
	)
	for _, warn := range result.Errors {
		log.Printf("warning: %s", warn)
	}
}
