package service

import (
	"context"
	"time"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"

	"go.opentelemetry.io/otel/trace"
)

type ScreenerService struct {
	tracer trace.Tracer
	svc    *screener.Service
}

func NewScreenerService(tracer trace.Tracer, svc *screener.Service) *ScreenerService {
	return &ScreenerService{tracer: tracer, svc: svc}
}

func (s *ScreenerService) RunScreen(ctx context.Context) (domain.RunResult, error) {
	_, span := s.tracer.Start(ctx, "screener-service.run")
	defer span.End()
	if s == nil || s.svc == nil {
		return domain.RunResult{}, nil
	}
	return s.svc.RunScreen(ctx, time.Now().UTC())
}
