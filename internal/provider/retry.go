package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultRateLimitWait = 60 * time.Second

// fetchState drives the retry lifecycle of one logical request. Keeping it
// explicit makes the exactly-one-retry invariant mechanically checkable.
type fetchState int

const (
	stateAttempt fetchState = iota
	stateRateLimited
	stateRetry
	stateGiveUp
)

// RetryPolicy wraps a single HTTP call with at most one retry, taken only
// on a 429 response. The wait honors the provider's reset hint (epoch
// seconds in resetHeader) when present and parsable, otherwise falls back
// to defaultRateLimitWait. Any other failure is surfaced to the caller
// untouched; the pipeline downgrades it to "no data" per source.
type RetryPolicy struct {
	resetHeader string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(resetHeader string) *RetryPolicy {
	return &RetryPolicy{
		resetHeader: resetHeader,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Do executes req through client. The returned response may carry any
// status code except 429: a first 429 sleeps and retries once, a second
// 429 gives up with an error.
func (p *RetryPolicy) Do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	state := stateAttempt
	attempts := 0

	for {
		switch state {
		case stateAttempt, stateRetry:
			attempts++
			resp, err := client.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusTooManyRequests {
				return resp, nil
			}
			if attempts >= 2 {
				drain(resp)
				state = stateGiveUp
				continue
			}
			wait := p.resetWait(resp)
			drain(resp)
			if err := p.sleep(ctx, wait); err != nil {
				return nil, err
			}
			state = stateRateLimited

		case stateRateLimited:
			state = stateRetry

		case stateGiveUp:
			return nil, fmt.Errorf("rate limited twice after %d attempts", attempts)
		}
	}
}

// resetWait computes max(0, reset-now+1s) from the reset hint header.
func (p *RetryPolicy) resetWait(resp *http.Response) time.Duration {
	if p.resetHeader == "" {
		return defaultRateLimitWait
	}
	raw := strings.TrimSpace(resp.Header.Get(p.resetHeader))
	if raw == "" {
		return defaultRateLimitWait
	}
	reset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return defaultRateLimitWait
	}
	wait := time.Unix(reset, 0).Sub(p.now()) + time.Second
	if wait < 0 {
		wait = 0
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
