package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kraken-screener/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

func newTestHandler(cache ScreenCache, store ScreenStore) (*Handler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	h := New(trace.NewNoopTracerProvider().Tracer("handler-test"), cache, store)
	r := gin.New()
	h.RegisterRoutes(r, "")
	return h, r
}

func TestAPIKeyGuardsSentimentRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(trace.NewNoopTracerProvider().Tracer("handler-test"), &screenCacheStub{snap: testSnapshot()}, nil)
	r := gin.New()
	h.RegisterRoutes(r, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/sentiment", nil)
	req.Header.Set("X-API-Key", "secret")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", w.Code)
	}
}

func testSnapshot() *domain.ScreenSnapshot {
	return &domain.ScreenSnapshot{
		RunID:      9,
		StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		Rows: []domain.ResultRow{
			{Symbol: "BTC/USD", Score: domain.Float64(0.4215), EvidenceCount: 12},
			{Symbol: "ETH-USDT", EvidenceCount: 0},
		},
	}
}

func TestGetSentimentFromCache(t *testing.T) {
	cache := &screenCacheStub{snap: testSnapshot()}
	store := &screenStoreStub{err: errors.New("must not reach Postgres")}
	_, r := newTestHandler(cache, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		RunID int64              `json:"run_id"`
		Rows  []domain.ResultRow `json:"rows"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.RunID != 9 || len(body.Rows) != 2 {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.Rows[1].Score != nil {
		t.Fatalf("absent score must serialize as null, got %v", *body.Rows[1].Score)
	}
}

func TestGetSentimentFallsBackToStore(t *testing.T) {
	cache := &screenCacheStub{} // miss
	store := &screenStoreStub{snap: testSnapshot()}
	_, r := newTestHandler(cache, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from store fallback, got %d", w.Code)
	}
	if store.calls != 1 {
		t.Fatalf("expected one store read, got %d", store.calls)
	}
}

func TestGetSentimentNoRunsYet(t *testing.T) {
	_, r := newTestHandler(&screenCacheStub{}, &screenStoreStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetSymbolSentimentNormalizesPairNotation(t *testing.T) {
	_, r := newTestHandler(&screenCacheStub{snap: testSnapshot()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment/btc", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Row domain.ResultRow `json:"row"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Row.Symbol != "BTC/USD" {
		t.Fatalf("expected BTC/USD row, got %+v", body.Row)
	}
}

func TestGetSymbolSentimentUnknownSymbol(t *testing.T) {
	_, r := newTestHandler(&screenCacheStub{snap: testSnapshot()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment/DOGE", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetLatestRunMetadataOnly(t *testing.T) {
	_, r := newTestHandler(&screenCacheStub{snap: testSnapshot()}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		RunID    int64 `json:"run_id"`
		RowCount int   `json:"row_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.RunID != 9 || body.RowCount != 2 {
		t.Fatalf("unexpected payload: %+v", body)
	}
}

func TestTriggerScreenRunServiceUnavailable(t *testing.T) {
	_, r := newTestHandler(nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/screen/run", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestTriggerScreenRunSuccess(t *testing.T) {
	h, r := newTestHandler(nil, nil)
	h.SetScreenRunner(screenRunnerStub{result: domain.RunResult{
		Symbols:        3,
		RowsEmitted:    3,
		ArticlesScored: 40,
		StatsPages:     5,
		Errors:         []string{"one warning"},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/screen/run", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Status      string   `json:"status"`
		Symbols     int      `json:"symbols"`
		RowsEmitted int      `json:"rows_emitted"`
		Errors      []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Status != "ok" || body.Symbols != 3 || body.RowsEmitted != 3 {
		t.Fatalf("unexpected response payload: %+v", body)
	}
}

func TestTriggerScreenRunFailure(t *testing.T) {
	h, r := newTestHandler(nil, nil)
	h.SetScreenRunner(screenRunnerStub{err: errors.New("run failed")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/screen/run", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

type screenCacheStub struct {
	snap *domain.ScreenSnapshot
	err  error
}

func (s *screenCacheStub) GetLatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error) {
	return s.snap, s.err
}

type screenStoreStub struct {
	snap  *domain.ScreenSnapshot
	err   error
	calls int
}

func (s *screenStoreStub) LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error) {
	s.calls++
	return s.snap, s.err
}

type screenRunnerStub struct {
	result domain.RunResult
	err    error
}

func (s screenRunnerStub) RunScreen(ctx context.Context) (domain.RunResult, error) {
	if s.err != nil {
		return domain.RunResult{}, s.err
	}
	return s.result, nil
}
