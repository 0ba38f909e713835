package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func newTestAlpaca(rt roundTripFunc) *AlpacaNewsProvider {
	p := NewAlpacaNewsProvider(trace.NewNoopTracerProvider().Tracer("test"), "https://example.com", "key", "secret", 10*time.Second)
	p.client = &http.Client{Transport: rt}
	return p
}

func TestAlpacaFetchArticles(t *testing.T) {
	p := newTestAlpaca(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1beta1/news" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("APCA-API-KEY-ID"); got != "key" {
			t.Fatalf("missing api key header, got %q", got)
		}
		q := req.URL.Query()
		if q.Get("symbols") != "BTC" || q.Get("limit") != "50" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		if q.Get("start") == "" || q.Get("end") == "" {
			t.Fatal("expected start and end dates")
		}
		body := `{"news":[{"headline":"BTC rallies","summary":"Up 5%"},{"headline":"  Miners   expand ","summary":""}]}`
		return jsonResponse(http.StatusOK, body), nil
	})

	articles, err := p.FetchArticles(context.Background(), "BTC", 7, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].Headline != "BTC rallies" || articles[0].Summary != "Up 5%" {
		t.Fatalf("unexpected article: %+v", articles[0])
	}
	if articles[1].Headline != "Miners expand" {
		t.Fatalf("expected whitespace collapsed, got %q", articles[1].Headline)
	}
}

func TestAlpacaFetchArticlesTruncatesToLimit(t *testing.T) {
	p := newTestAlpaca(func(req *http.Request) (*http.Response, error) {
		var rows []string
		for i := 0; i < 30; i++ {
			rows = append(rows, fmt.Sprintf(`{"headline":"h%d","summary":"s"}`, i))
		}
		return jsonResponse(http.StatusOK, `{"news":[`+strings.Join(rows, ",")+`]}`), nil
	})

	articles, err := p.FetchArticles(context.Background(), "ETH", 7, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 20 {
		t.Fatalf("expected truncation to 20, got %d", len(articles))
	}
	if articles[0].Headline != "h0" || articles[19].Headline != "h19" {
		t.Fatalf("provider order must be preserved, got first=%s last=%s", articles[0].Headline, articles[19].Headline)
	}
}

func TestAlpacaFetchArticlesEmptyPayload(t *testing.T) {
	p := newTestAlpaca(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"news":[]}`), nil
	})

	articles, err := p.FetchArticles(context.Background(), "SOL", 7, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}

func TestAlpacaFetchArticlesServerError(t *testing.T) {
	p := newTestAlpaca(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, "oops"), nil
	})

	if _, err := p.FetchArticles(context.Background(), "BTC", 7, 50); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
