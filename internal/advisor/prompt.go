package advisor

import (
	"fmt"
	"strings"
	"time"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"
)

const sentimentPhilosophy = `You are a crypto news-sentiment advisor bot. Your role is to interpret sentiment screen results, NOT to generate trade signals yourself.

How to read the screen:
- Scores run from -1 (uniformly negative coverage) to +1 (uniformly positive coverage).
- The evidence count is how many scored articles and classified headlines back the score. Low counts mean weak evidence; say so.
- A missing score means no usable news was found for that asset in the lookback window. That is not neutral, it is unknown.

Rules:
- Always reference the specific scores and evidence counts when making observations.
- Never fabricate data. If an asset is not on the screen, say so.
- Sentiment is a lagging, noisy signal. Never present it as a trade recommendation on its own.
- Keep responses concise and actionable. You are talking via Telegram.
- Do not provide financial advice disclaimers on every message. The user understands this is informational.
- When asked about an asset, summarize: its score, its evidence count, and your interpretation relative to the rest of the screen.`

func BuildSystemPrompt(screenContext string) string {
	var sb strings.Builder
	sb.WriteString(sentimentPhilosophy)
	sb.WriteString("\n\n--- LATEST SENTIMENT SCREEN (as of ")
	sb.WriteString(time.Now().UTC().Format(time.RFC822))
	sb.WriteString(") ---\n")
	sb.WriteString(screenContext)
	return sb.String()
}

// FormatScreenContext renders screen rows for the prompt. When mentioned is
// non-empty only those symbols are included, otherwise the whole screen.
func FormatScreenContext(snap *domain.ScreenSnapshot, mentioned []string) string {
	wanted := make(map[string]bool, len(mentioned))
	for _, m := range mentioned {
		wanted[m] = true
	}

	var sb strings.Builder
	for _, row := range snap.Rows {
		if strings.TrimSpace(row.Symbol) == "" {
			continue
		}
		norm := screener.Normalize(row.Symbol)
		if len(wanted) > 0 && !wanted[norm] {
			continue
		}
		if row.Score == nil {
			sb.WriteString(fmt.Sprintf("  %s: no usable news\n", norm))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %s: score %+.4f from %d items\n",
			norm, *row.Score, row.EvidenceCount))
	}

	if sb.Len() == 0 {
		return "No screen rows match the requested assets."
	}
	return "\nScreen rows (run " + fmt.Sprint(snap.RunID) + ", finished " +
		snap.FinishedAt.UTC().Format(time.RFC822) + "):\n" + sb.String()
}
