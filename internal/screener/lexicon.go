package screener

import (
	"math"
	"strings"
)

// CompoundScorer turns a piece of news text into a compound sentiment
// value in [-1, 1]. The pipeline treats it as a black box.
type CompoundScorer interface {
	Compound(text string) float64
}

// LexiconScorer is a fixed valence-lexicon scorer: per-token polarity
// weights with negation flips and intensity boosters, squashed into
// [-1, 1] the way compound scores conventionally are.
type LexiconScorer struct{}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

// Token valences on a roughly [-3, 3] scale before normalization.
var valence = map[string]float64{
	"gain": 1.6, "gains": 1.6, "rally": 1.9, "rallies": 1.9, "surge": 2.0,
	"surges": 2.0, "soar": 2.2, "soars": 2.2, "jump": 1.5, "jumps": 1.5,
	"record": 1.2, "breakout": 1.7, "bullish": 2.1, "bull": 1.4,
	"growth": 1.5, "profit": 1.7, "profits": 1.7, "beat": 1.4, "beats": 1.4,
	"upgrade": 1.6, "upgraded": 1.6, "adoption": 1.2, "approval": 1.5,
	"approved": 1.5, "win": 1.6, "wins": 1.6, "strong": 1.3, "recover": 1.3,
	"recovery": 1.3, "rebound": 1.4, "optimism": 1.6, "optimistic": 1.6,
	"positive": 1.4, "success": 1.7, "successful": 1.7, "good": 1.2,
	"great": 1.9, "high": 0.8, "boom": 1.8, "uptrend": 1.5, "buy": 0.9,
	"outperform": 1.5, "milestone": 1.1, "partnership": 0.9,

	"loss": -1.6, "losses": -1.6, "crash": -2.4, "crashes": -2.4,
	"plunge": -2.1, "plunges": -2.1, "drop": -1.3, "drops": -1.3,
	"fall": -1.2, "falls": -1.2, "slump": -1.7, "dump": -1.6,
	"bearish": -2.1, "bear": -1.4, "decline": -1.4, "declines": -1.4,
	"downgrade": -1.6, "downgraded": -1.6, "lawsuit": -1.8, "sued": -1.8,
	"fraud": -2.5, "hack": -2.3, "hacked": -2.3, "exploit": -2.0,
	"breach": -1.9, "ban": -1.8, "banned": -1.8, "fear": -1.7, "fears": -1.7,
	"panic": -2.2, "selloff": -1.9, "weak": -1.2, "negative": -1.4,
	"risk": -0.9, "risks": -0.9, "warning": -1.3, "warns": -1.3,
	"bad": -1.3, "worst": -2.1, "bankruptcy": -2.6, "bankrupt": -2.6,
	"liquidation": -1.9, "liquidations": -1.9, "downtrend": -1.5,
	"collapse": -2.4, "scam": -2.4, "investigation": -1.2, "halt": -1.3,
	"halted": -1.3, "delist": -1.7, "delisted": -1.7, "miss": -1.2,
	"misses": -1.2, "sell": -0.9, "low": -0.8, "crisis": -2.0,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"cannot": true, "isnt": true, "wasnt": true, "arent": true,
	"wont": true, "dont": true, "doesnt": true, "didnt": true,
	"without": true, "fails": true, "failed": true,
}

// Boosters scale the following sentiment-bearing token.
var boosters = map[string]float64{
	"very": 0.3, "extremely": 0.4, "hugely": 0.4, "massively": 0.4,
	"sharply": 0.3, "significantly": 0.3, "slightly": -0.3,
	"somewhat": -0.2, "barely": -0.3, "marginally": -0.3,
}

const (
	negationScale  = -0.74
	negationWindow = 3
	// Denominator constant for the x/sqrt(x^2+a) squash.
	normalizationAlpha = 15.0
)

func (s *LexiconScorer) Compound(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	sum := 0.0
	for i, tok := range tokens {
		v, ok := valence[tok]
		if !ok {
			continue
		}
		if boost, ok := boosterBefore(tokens, i); ok {
			if v > 0 {
				v += boost
			} else {
				v -= boost
			}
		}
		if negatedBefore(tokens, i) {
			v *= negationScale
		}
		sum += v
	}

	compound := sum / math.Sqrt(sum*sum+normalizationAlpha)
	return clamp(compound, -1, 1)
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

func boosterBefore(tokens []string, i int) (float64, bool) {
	if i == 0 {
		return 0, false
	}
	boost, ok := boosters[tokens[i-1]]
	return boost, ok
}

func negatedBefore(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
		if negators[tokens[j]] {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
