package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kraken-screener/internal/cache"
	"kraken-screener/internal/config"
	"kraken-screener/internal/db"
	"kraken-screener/internal/mcpserver"
	"kraken-screener/internal/repository"
	"kraken-screener/internal/service"
	"kraken-screener/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	fatalFunc              = log.Fatalf
	runStdioFunc           = func(srv *mcpserver.Server, ctx context.Context) error { return srv.RunStdio(ctx) }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

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

	screenCache := cache.NewScreenCache(cache.Client, tracer)
	reader := service.NewScreenReaderService(tracer, screenCache, nil)
	if db.Pool != nil {
		reader = service.NewScreenReaderService(tracer, screenCache, repository.NewScreenerRepository(db.Pool, tracer))
	}

	srv := mcpserver.New(tracer, reader)

	switch cfg.MCPTransport {
	case "http":
		addr := fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
		httpSrv := &http.Server{Addr: addr, Handler: srv.HTTPHandler()}
		go func() {
			log.Printf("MCP server listening on %s", addr)
			if err := startHTTPServerFunc(httpSrv); err != nil && err != http.ErrServerClosed {
				log.Fatalf("listen: %v", err)
			}
		}()

		quit := make(chan os.Signal, 1)
		setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
		waitForSignalFunc(quit)
		log.Println("Shutting down MCP server...")

		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownHTTPServerFunc(httpSrv, shutdownCtx); err != nil {
			log.Printf("MCP server shutdown error: %v", err)
		}
	default:
		// stdio: serve until the client disconnects
		if err := runStdioFunc(srv, ctx); err != nil {
			fatalFunc("mcp stdio server: %v", err)
		}
	}
}
