package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kraken-screener/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	alpacaNewsPath       = "/v1beta1/news"
	alpacaResetHeader    = "X-RateLimit-Reset"
	alpacaRequestsPerMin = 180
	defaultArticleLimit  = 50
	maxHeadlineLen       = 300
	maxSummaryLen        = 1000
)

// AlpacaNewsProvider fetches raw news articles for one symbol over a
// lookback window from the Alpaca market data news endpoint.
type AlpacaNewsProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	secret  string
	tracer  trace.Tracer
	limiter *RateLimiter
	retry   *RetryPolicy
}

func NewAlpacaNewsProvider(tracer trace.Tracer, baseURL, apiKey, secret string, timeout time.Duration) *AlpacaNewsProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AlpacaNewsProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  secret,
		tracer:  tracer,
		limiter: NewRateLimiter(alpacaRequestsPerMin, time.Minute/alpacaRequestsPerMin),
		retry:   NewRetryPolicy(alpacaResetHeader),
	}
}

func (p *AlpacaNewsProvider) Name() string { return "alpaca_news" }

// FetchArticles returns at most limit articles for symbol published in the
// UTC calendar range [today-lookbackDays, today]. Provider ordering is
// preserved; the list is truncated, never re-sorted.
func (p *AlpacaNewsProvider) FetchArticles(ctx context.Context, symbol string, lookbackDays, limit int) ([]domain.NewsArticle, error) {
	ctx, span := p.tracer.Start(ctx, "alpaca-news.fetch-articles")
	defer span.End()

	if limit <= 0 {
		limit = defaultArticleLimit
	}
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -lookbackDays)

	q := url.Values{}
	q.Set("symbols", symbol)
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", now.Format("2006-01-02"))
	q.Set("limit", strconv.Itoa(limit))
	u := p.baseURL + alpacaNewsPath + "?" + q.Encode()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", p.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", p.secret)

	resp, err := p.retry.Do(ctx, p.client, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("alpaca news API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		News []struct {
			Headline string `json:"headline"`
			Summary  string `json:"summary"`
		} `json:"news"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode alpaca news response: %w", err)
	}

	articles := make([]domain.NewsArticle, 0, len(payload.News))
	for _, row := range payload.News {
		articles = append(articles, domain.NewsArticle{
			Headline: sanitizeText(row.Headline, maxHeadlineLen),
			Summary:  sanitizeText(row.Summary, maxSummaryLen),
		})
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}
