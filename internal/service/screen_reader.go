package service

import (
	"context"
	"log"

	"kraken-screener/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type screenStore interface {
	LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

type screenCache interface {
	GetLatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

// ScreenReaderService serves the latest screen to the bot, advisor, MCP
// tools, and TUI: redis copy first, Postgres when the cache misses.
type ScreenReaderService struct {
	tracer trace.Tracer
	cache  screenCache
	store  screenStore
}

func NewScreenReaderService(tracer trace.Tracer, cache screenCache, store screenStore) *ScreenReaderService {
	return &ScreenReaderService{tracer: tracer, cache: cache, store: store}
}

func (s *ScreenReaderService) LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "screen-reader.latest")
	defer span.End()

	if s.cache != nil {
		snap, err := s.cache.GetLatestScreen(ctx)
		if err != nil {
			log.Printf("screen cache read: %v", err)
		} else if snap != nil {
			return snap, nil
		}
	}
	if s.store == nil {
		return nil, nil
	}
	return s.store.LatestScreen(ctx)
}
