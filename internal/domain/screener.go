package domain

import "time"

// NewsArticle is the uniform shape every article source adapts into.
// Field names on the wire vary by provider; only headline and summary
// matter for scoring.
type NewsArticle struct {
	Headline string
	Summary  string
}

// SentimentCounts holds pre-classified article tallies from stats-style
// providers, accumulated across response pages.
type SentimentCounts struct {
	Positive int
	Negative int
	Neutral  int
}

func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// SourceResult is one source's contribution for one symbol. Score is nil
// when the source produced no evidence; nil and 0.0 mean different things
// and must never be conflated.
type SourceResult struct {
	Source        string
	Score         *float64
	EvidenceCount int
}

// CombinedResult merges every active source's SourceResult for one symbol.
// Score is nil iff TotalCount is zero.
type CombinedResult struct {
	Score      *float64
	TotalCount int
}

// ResultRow is what the sink receives, one per input symbol, in input
// order. Score stays nil for symbols that yielded no data.
type ResultRow struct {
	Symbol        string         `json:"symbol"`
	Score         *float64       `json:"score"`
	EvidenceCount int            `json:"evidence_count"`
	UpdatedAtUTC  time.Time      `json:"updated_at_utc"`
	Sources       []SourceResult `json:"-"`
}

// ScreenSnapshot is a full persisted run: ordered rows plus run metadata.
type ScreenSnapshot struct {
	RunID      int64       `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Rows       []ResultRow `json:"rows"`
}

// RunResult summarizes one screener cycle for logging and callers.
type RunResult struct {
	Symbols        int
	RowsEmitted    int
	ArticlesScored int
	StatsPages     int
	Errors         []string
}

type ConversationMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Float64 returns a pointer to v. Convenience for optional scores.
func Float64(v float64) *float64 {
	return &v
}
