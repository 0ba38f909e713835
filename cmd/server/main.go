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

	"kraken-screener/internal/advisor"
	"kraken-screener/internal/bot"
	"kraken-screener/internal/cache"
	"kraken-screener/internal/config"
	"kraken-screener/internal/db"
	"kraken-screener/internal/handler"
	"kraken-screener/internal/job"
	"kraken-screener/internal/mcpserver"
	"kraken-screener/internal/provider"
	"kraken-screener/internal/repository"
	"kraken-screener/internal/screener"
	"kraken-screener/internal/service"
	"kraken-screener/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "kraken-screener/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	fatalFunc              = log.Fatalf
	startJobFunc           = func(j *job.ScreenerJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newOpenAIClientFunc    = advisor.NewOpenAIClient
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Kraken Screener API
// @version         1.0
// @description     News-sentiment screener with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		fatalFunc("invalid configuration: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
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

	// Repositories and migrations
	var (
		screenerRepo *repository.ScreenerRepository
		convRepo     *repository.ConversationRepository
	)
	if db.Pool != nil {
		screenerRepo = repository.NewScreenerRepository(db.Pool, tracer)
		convRepo = repository.NewConversationRepository(db.Pool, tracer)
		if err := screenerRepo.RunMigrations(ctx); err != nil {
			fatalFunc("failed to run migrations: %v", err)
			return
		}
	}

	screenCache := cache.NewScreenCache(cache.Client, tracer)

	// News sources
	timeout := time.Duration(cfg.RequestTimeoutSecs) * time.Second
	var artSource screener.ArticleSource
	if cfg.AlpacaEnabled {
		artSource = provider.NewAlpacaNewsProvider(tracer, cfg.AlpacaBaseURL, cfg.AlpacaAPIKey, cfg.AlpacaSecret, timeout)
	}
	var statsSource screener.StatsSource
	if cfg.CryptoNewsEnabled {
		statsSource = provider.NewCryptoNewsProvider(tracer, cfg.CryptoNewsBaseURL, cfg.CryptoNewsToken, timeout)
	}

	// Screener pipeline
	var lister screener.WatchlistLister
	var sink screener.Sink
	if screenerRepo != nil {
		lister = screenerRepo
		sink = screenerRepo
	}
	symbolSource := screener.NewWatchlistSource(lister, cfg.Symbols)
	screenSvc := screener.NewService(tracer, symbolSource, artSource, statsSource, nil, sink, screenCache, screener.Config{
		LookbackDays: cfg.LookbackDays,
		ArticleLimit: cfg.ArticleLimit,
		SymbolDelay:  time.Duration(cfg.SymbolDelaySecs) * time.Second,
	})
	screenerSvc := service.NewScreenerService(tracer, screenSvc)

	// Background screening loop
	screenJob := job.NewScreenerJob(tracer, screenerSvc, time.Duration(cfg.ScreenerPollSecs)*time.Second)
	startJobFunc(screenJob, ctx)

	// Shared read path for bot, advisor, and MCP
	reader := service.NewScreenReaderService(tracer, screenCache, nil)
	if screenerRepo != nil {
		reader = service.NewScreenReaderService(tracer, screenCache, screenerRepo)
	}

	// Advisor (optional)
	var advisorSvc *advisor.AdvisorService
	if cfg.OpenAIAPIKey != "" && convRepo != nil {
		llmClient := newOpenAIClientFunc(cfg.OpenAIAPIKey)
		advisorSvc = advisor.NewAdvisorService(tracer, llmClient, reader, convRepo, cfg.OpenAIModel, cfg.AdvisorMaxHistory)
		log.Println("Advisor service enabled")
	}

	// Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	var botAdvisor bot.Advisor
	if advisorSvc != nil {
		botAdvisor = advisorSvc
	}
	startTelegramBotFunc(reader, screenerSvc, botAdvisor)

	// HTTP API
	var handlerStore handler.ScreenStore
	if screenerRepo != nil {
		handlerStore = screenerRepo
	}
	h := handler.New(tracer, screenCache, handlerStore)
	h.SetScreenRunner(screenerSvc)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("kraken-screener"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Optional MCP endpoint alongside the REST API
	var mcpSrv *http.Server
	if cfg.MCPHTTPEnabled {
		mcpAddr := fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
		mcpSrv = &http.Server{
			Addr:    mcpAddr,
			Handler: mcpserver.New(tracer, reader).HTTPHandler(),
		}
		go func() {
			log.Printf("MCP endpoint listening on %s", mcpAddr)
			if err := mcpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("MCP server stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if mcpSrv != nil {
		if err := shutdownHTTPServerFunc(mcpSrv, shutdownCtx); err != nil {
			log.Printf("MCP server shutdown error: %v", err)
		}
	}
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
