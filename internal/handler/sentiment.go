package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"

	"github.com/gin-gonic/gin"
)

// latestScreen prefers the redis copy and falls back to Postgres when the
// cache misses or errors.
func (h *Handler) latestScreen(ctx context.Context) (*domain.ScreenSnapshot, error) {
	if h.cache != nil {
		snap, err := h.cache.GetLatestScreen(ctx)
		if err != nil {
			log.Printf("screen cache read: %v", err)
		} else if snap != nil {
			return snap, nil
		}
	}
	if h.store == nil {
		return nil, nil
	}
	return h.store.LatestScreen(ctx)
}

// GetSentiment godoc
// @Summary      Latest sentiment screen
// @Description  Returns every row of the most recent screen in watchlist order
// @Tags         sentiment
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/sentiment [get]
func (h *Handler) GetSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-sentiment")
	defer span.End()

	snap, err := h.latestScreen(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no screen has completed yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      snap.RunID,
		"finished_at": snap.FinishedAt.UTC().Format(time.RFC3339),
		"rows":        snap.Rows,
	})
}

// GetSymbolSentiment godoc
// @Summary      Sentiment for one symbol
// @Description  Returns the latest screen row whose normalized ticker matches
// @Tags         sentiment
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol, pair notation accepted"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/sentiment/{symbol} [get]
func (h *Handler) GetSymbolSentiment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-symbol-sentiment")
	defer span.End()

	symbol := screener.Normalize(c.Param("symbol"))

	snap, err := h.latestScreen(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no screen has completed yet"})
		return
	}

	for _, row := range snap.Rows {
		if screener.Normalize(row.Symbol) == symbol && symbol != "" {
			c.JSON(http.StatusOK, gin.H{
				"run_id": snap.RunID,
				"row":    row,
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "symbol not on the latest screen"})
}

// GetLatestRun godoc
// @Summary      Latest run metadata
// @Description  Returns run id and timing of the most recent screen without its rows
// @Tags         sentiment
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/runs/latest [get]
func (h *Handler) GetLatestRun(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest-run")
	defer span.End()

	snap, err := h.latestScreen(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no screen has completed yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      snap.RunID,
		"started_at":  snap.StartedAt.UTC().Format(time.RFC3339),
		"finished_at": snap.FinishedAt.UTC().Format(time.RFC3339),
		"row_count":   len(snap.Rows),
	})
}

// TriggerScreenRun godoc
// @Summary      Trigger a screening pass manually
// @Description  Runs one full screen cycle and returns its counters
// @Tags         sentiment
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/screen/run [post]
func (h *Handler) TriggerScreenRun(c *gin.Context) {
	if h.screenRunner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "screener service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-screen-run")
	defer span.End()

	result, err := h.screenRunner.RunScreen(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"symbols":         result.Symbols,
		"rows_emitted":    result.RowsEmitted,
		"articles_scored": result.ArticlesScored,
		"stats_pages":     result.StatsPages,
		"errors":          result.Errors,
	})
}
