package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kraken-screener/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	cryptoNewsStatPath = "/api/v1/stat"
	// Safety bound against responses claiming unbounded pagination.
	maxStatPages   = 50
	interPageDelay = 250 * time.Millisecond
)

// CryptoNewsProvider fetches pre-classified sentiment tallies from the
// paginated stat endpoint: counts are summed across all pages for one
// symbol. The endpoint has no reset hint, so 429s wait the default.
type CryptoNewsProvider struct {
	client  *http.Client
	baseURL string
	token   string
	tracer  trace.Tracer
	limiter *RateLimiter
	retry   *RetryPolicy

	pause func(ctx context.Context, d time.Duration) error
}

func NewCryptoNewsProvider(tracer trace.Tracer, baseURL, token string, timeout time.Duration) *CryptoNewsProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CryptoNewsProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
		tracer:  tracer,
		limiter: NewRateLimiter(5, time.Second),
		retry:   NewRetryPolicy(""),
		pause:   sleepContext,
	}
}

func (p *CryptoNewsProvider) Name() string { return "cryptonews_stats" }

// FetchStats accumulates positive/negative/neutral counts for symbol over
// dateRange (e.g. "last7days") across every page the provider declares.
// A failure after the first page terminates pagination early and returns
// whatever accumulated; partial tallies are acceptable. The page count is
// returned for run accounting.
func (p *CryptoNewsProvider) FetchStats(ctx context.Context, symbol, dateRange string) (domain.SentimentCounts, int, error) {
	ctx, span := p.tracer.Start(ctx, "cryptonews.fetch-stats")
	defer span.End()

	var counts domain.SentimentCounts
	totalPages := 1

	for page := 1; page <= totalPages && page <= maxStatPages; page++ {
		if page > 1 {
			// Distinct from the pipeline's inter-symbol throttle: this
			// paces consecutive pages for one symbol.
			if err := p.pause(ctx, interPageDelay); err != nil {
				return counts, page - 1, nil
			}
		}

		pageCounts, declaredPages, err := p.fetchPage(ctx, symbol, dateRange, page)
		if err != nil {
			if page == 1 {
				return domain.SentimentCounts{}, 0, err
			}
			log.Printf("cryptonews stats for %s: page %d failed, keeping %d pages: %v", symbol, page, page-1, err)
			return counts, page - 1, nil
		}

		counts.Positive += pageCounts.Positive
		counts.Negative += pageCounts.Negative
		counts.Neutral += pageCounts.Neutral
		if declaredPages > totalPages {
			totalPages = declaredPages
		}
	}

	fetched := totalPages
	if fetched > maxStatPages {
		fetched = maxStatPages
	}
	return counts, fetched, nil
}

func (p *CryptoNewsProvider) fetchPage(ctx context.Context, symbol, dateRange string, page int) (domain.SentimentCounts, int, error) {
	q := url.Values{}
	q.Set("tickers", symbol)
	q.Set("date", dateRange)
	q.Set("page", strconv.Itoa(page))
	q.Set("token", p.token)
	u := p.baseURL + cryptoNewsStatPath + "?" + q.Encode()

	if err := p.limiter.Wait(ctx); err != nil {
		return domain.SentimentCounts{}, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.SentimentCounts{}, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.retry.Do(ctx, p.client, req)
	if err != nil {
		return domain.SentimentCounts{}, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.SentimentCounts{}, 0, fmt.Errorf("cryptonews API error %d: %s", resp.StatusCode, string(body))
	}

	// Shape: {"data": {"<date>": {"<symbol>": {"Positive":1,"Negative":0,"Neutral":2}}}, "total_pages": 3}
	var payload struct {
		Data map[string]map[string]struct {
			Positive int `json:"Positive"`
			Negative int `json:"Negative"`
			Neutral  int `json:"Neutral"`
		} `json:"data"`
		TotalPages int `json:"total_pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SentimentCounts{}, 0, fmt.Errorf("decode cryptonews response: %w", err)
	}

	var counts domain.SentimentCounts
	for _, byTicker := range payload.Data {
		for ticker, c := range byTicker {
			if ticker != symbol {
				continue
			}
			counts.Positive += c.Positive
			counts.Negative += c.Negative
			counts.Neutral += c.Neutral
		}
	}
	return counts, payload.TotalPages, nil
}
