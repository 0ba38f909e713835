package handler

import (
	"context"

	"kraken-screener/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// ScreenRunner triggers one full screening pass on demand.
type ScreenRunner interface {
	RunScreen(ctx context.Context) (domain.RunResult, error)
}

// ScreenStore reads the latest persisted screen from Postgres.
type ScreenStore interface {
	LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

// ScreenCache reads the latest screen from redis; misses return (nil, nil).
type ScreenCache interface {
	GetLatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

type Handler struct {
	tracer       trace.Tracer
	cache        ScreenCache
	store        ScreenStore
	screenRunner ScreenRunner
}

func New(tracer trace.Tracer, cache ScreenCache, store ScreenStore) *Handler {
	return &Handler{
		tracer: tracer,
		cache:  cache,
		store:  store,
	}
}

func (h *Handler) SetScreenRunner(runner ScreenRunner) {
	h.screenRunner = runner
}

func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/sentiment", h.GetSentiment)
	api.GET("/sentiment/:symbol", h.GetSymbolSentiment)
	api.GET("/runs/latest", h.GetLatestRun)
	api.POST("/screen/run", h.TriggerScreenRun)
}
