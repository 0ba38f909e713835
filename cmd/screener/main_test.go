package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"kraken-screener/internal/config"
	"kraken-screener/internal/domain"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestCSVSinkWritesRowsInOrder(t *testing.T) {
	var buf bytes.Buffer
	sink := csvSink{w: &buf}

	snap := domain.ScreenSnapshot{
		Rows: []domain.ResultRow{
			{Symbol: "BTC/USD", Score: domain.Float64(0.4215), EvidenceCount: 12, UpdatedAtUTC: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
			{Symbol: "ETH-USDT", UpdatedAtUTC: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		},
	}

	if _, err := sink.WriteScreen(context.Background(), snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[1] != "BTC/USD,0.4215,12,2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected first row: %s", lines[1])
	}
	// Absent score stays an empty cell, never 0.0000
	if lines[2] != "ETH-USDT,,0,2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected second row: %s", lines[2])
	}
}

func TestMainInvalidConfigIsFatal(t *testing.T) {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origFatal := fatalFunc
	defer func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		fatalFunc = origFatal
	}()

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{} // no source enabled
	}

	var fatalMsg string
	fatalFunc = func(format string, v ...any) { fatalMsg = format }

	main()

	if fatalMsg == "" {
		t.Fatal("expected fatal on invalid configuration")
	}
}

func TestMainOneShotWithStubbedPipeline(t *testing.T) {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origFatal := fatalFunc
	origWriter := outputWriter
	defer func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		fatalFunc = origFatal
		outputWriter = origWriter
	}()

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			AlpacaEnabled: true,
			AlpacaAPIKey:  "key",
			AlpacaSecret:  "secret",
			AlpacaBaseURL: "https://example.test",
			// no symbols: the run completes without any network calls
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	fatalFunc = func(format string, v ...any) { t.Fatalf("unexpected fatal: "+format, v...) }

	var buf bytes.Buffer
	outputWriter = &buf

	main()

	if !strings.Contains(buf.String(), "symbol,score,evidence_count,updated_at_utc") {
		t.Fatalf("expected CSV header on stdout, got: %q", buf.String())
	}
}
