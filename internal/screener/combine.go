package screener

import "kraken-screener/internal/domain"

// Combine merges per-source results into one evidence-weighted score.
// Sources with an absent score contribute to neither numerator nor
// denominator; they are excluded, not zero. Rounding happens once, on the
// final value. Article-mean and classification-ratio scores are averaged
// together as-is; both live in [-1,1] and existing consumers depend on
// that, so the mixing is kept byte-compatible.
func Combine(results []domain.SourceResult) domain.CombinedResult {
	weightedSum := 0.0
	totalCount := 0
	for _, r := range results {
		if r.Score == nil || r.EvidenceCount == 0 {
			continue
		}
		weightedSum += *r.Score * float64(r.EvidenceCount)
		totalCount += r.EvidenceCount
	}

	if totalCount == 0 {
		return domain.CombinedResult{}
	}
	return domain.CombinedResult{
		Score:      domain.Float64(round4(weightedSum / float64(totalCount))),
		TotalCount: totalCount,
	}
}
