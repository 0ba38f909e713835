package screener

import (
	"math"
	"strings"
	"unicode"

	"kraken-screener/internal/domain"

	"gonum.org/v1/gonum/stat"
)

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// articleText builds the scoreable text for one article. Articles whose
// concatenation carries no letters or digits contribute no evidence.
func articleText(a domain.NewsArticle) string {
	text := strings.TrimSpace(a.Headline + ". " + a.Summary)
	stripped := strings.TrimFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if stripped == "" {
		return ""
	}
	return text
}

// AggregateArticles scores each usable article and reduces the batch to a
// SourceResult: mean compound rounded to 4 places, weighted later by the
// number of scored articles. No usable text means an absent score, never
// a zero one.
func AggregateArticles(source string, articles []domain.NewsArticle, scorer CompoundScorer) domain.SourceResult {
	scores := make([]float64, 0, len(articles))
	for _, a := range articles {
		text := articleText(a)
		if text == "" {
			continue
		}
		scores = append(scores, scorer.Compound(text))
	}

	result := domain.SourceResult{Source: source, EvidenceCount: len(scores)}
	if len(scores) == 0 {
		return result
	}
	result.Score = domain.Float64(round4(stat.Mean(scores, nil)))
	return result
}

// AggregateCounts reduces pre-classified tallies to a SourceResult:
// (positive - negative) / total, rounded to 4 places, defined only when
// the provider classified anything at all.
func AggregateCounts(source string, counts domain.SentimentCounts) domain.SourceResult {
	total := counts.Total()
	result := domain.SourceResult{Source: source, EvidenceCount: total}
	if total == 0 {
		return result
	}
	score := float64(counts.Positive-counts.Negative) / float64(total)
	result.Score = domain.Float64(round4(score))
	return result
}
