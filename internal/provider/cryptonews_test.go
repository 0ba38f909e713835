package provider

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func newTestCryptoNews(rt roundTripFunc) *CryptoNewsProvider {
	p := NewCryptoNewsProvider(trace.NewNoopTracerProvider().Tracer("test"), "https://example.com", "tok", 10*time.Second)
	p.client = &http.Client{Transport: rt}
	p.pause = func(ctx context.Context, d time.Duration) error { return nil }
	p.limiter = NewRateLimiter(1000, time.Millisecond)
	return p
}

func statPage(p, n, neu, totalPages int) string {
	return fmt.Sprintf(`{"data":{"2026-08-25":{"BTC":{"Positive":%d,"Negative":%d,"Neutral":%d}}},"total_pages":%d}`, p, n, neu, totalPages)
}

func TestCryptoNewsAggregatesPages(t *testing.T) {
	pages := []string{statPage(1, 0, 2, 3), statPage(2, 1, 0, 3), statPage(0, 0, 1, 3)}
	calls := 0
	p := newTestCryptoNews(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("tickers") != "BTC" || q.Get("token") != "tok" || q.Get("date") != "last7days" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		if want := fmt.Sprintf("%d", calls+1); q.Get("page") != want {
			t.Fatalf("expected page %s, got %s", want, q.Get("page"))
		}
		body := pages[calls]
		calls++
		return jsonResponse(http.StatusOK, body), nil
	})

	counts, fetched, err := p.FetchStats(context.Background(), "BTC", "last7days")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Positive != 3 || counts.Negative != 1 || counts.Neutral != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if fetched != 3 || calls != 3 {
		t.Fatalf("expected 3 pages fetched, got fetched=%d calls=%d", fetched, calls)
	}
}

func TestCryptoNewsPartialAccumulationOnPageError(t *testing.T) {
	calls := 0
	p := newTestCryptoNews(func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(http.StatusOK, statPage(2, 1, 1, 5)), nil
		}
		return jsonResponse(http.StatusOK, "{not json"), nil
	})

	counts, fetched, err := p.FetchStats(context.Background(), "BTC", "last7days")
	if err != nil {
		t.Fatalf("mid-pagination failure should keep partial tallies: %v", err)
	}
	if counts.Total() != 4 || fetched != 1 {
		t.Fatalf("unexpected partial result: counts=%+v fetched=%d", counts, fetched)
	}
}

func TestCryptoNewsFirstPageErrorIsNoData(t *testing.T) {
	p := newTestCryptoNews(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, "bad token"), nil
	})

	if _, _, err := p.FetchStats(context.Background(), "BTC", "last7days"); err == nil {
		t.Fatal("expected error when page 1 fails")
	}
}

func TestCryptoNewsPaginationCeiling(t *testing.T) {
	calls := 0
	p := newTestCryptoNews(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, statPage(1, 0, 0, 10_000)), nil
	})

	counts, fetched, err := p.FetchStats(context.Background(), "BTC", "last7days")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != maxStatPages || fetched != maxStatPages {
		t.Fatalf("expected ceiling of %d pages, got calls=%d fetched=%d", maxStatPages, calls, fetched)
	}
	if counts.Positive != maxStatPages {
		t.Fatalf("unexpected accumulation: %+v", counts)
	}
}

func TestCryptoNewsIgnoresOtherTickers(t *testing.T) {
	p := newTestCryptoNews(func(req *http.Request) (*http.Response, error) {
		body := `{"data":{"2026-08-25":{"BTC":{"Positive":1,"Negative":0,"Neutral":0},"ETH":{"Positive":9,"Negative":9,"Neutral":9}}},"total_pages":1}`
		return jsonResponse(http.StatusOK, body), nil
	})

	counts, _, err := p.FetchStats(context.Background(), "BTC", "last7days")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Total() != 1 {
		t.Fatalf("expected only BTC tallies, got %+v", counts)
	}
}
