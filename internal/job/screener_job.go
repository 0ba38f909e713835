package job

import (
	"context"
	"log"
	"time"

	"kraken-screener/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type ScreenRunner interface {
	RunScreen(ctx context.Context) (domain.RunResult, error)
}

type ScreenerJob struct {
	tracer       trace.Tracer
	runner       ScreenRunner
	pollInterval time.Duration
}

func NewScreenerJob(tracer trace.Tracer, runner ScreenRunner, pollInterval time.Duration) *ScreenerJob {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	return &ScreenerJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *ScreenerJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Println("Screener job disabled: no runner")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *ScreenerJob) runOnce(ctx context.Context) {
	_, span := j.tracer.Start(ctx, "screener-job.run-once")
	defer span.End()

	result, err := j.runner.RunScreen(ctx)
	if err != nil {
		log.Printf("Screen cycle error: %v", err)
		return
	}
	log.Printf(
		"Screen cycle complete symbols=%d rows=%d articles=%d pages=%d warnings=%d",
		result.Symbols,
		result.RowsEmitted,
		result.ArticlesScored,
		result.StatsPages,
		len(result.Errors),
	)
}
