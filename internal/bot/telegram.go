package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"

	tele "gopkg.in/telebot.v3"
)

// ScreenReader returns the latest completed screen, nil when none exists.
type ScreenReader interface {
	LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

// ScreenRunner triggers a full screening pass on demand.
type ScreenRunner interface {
	RunScreen(ctx context.Context) (domain.RunResult, error)
}

// Advisor answers free-form questions with the screen as context.
type Advisor interface {
	Ask(ctx context.Context, chatID int64, userMessage string) (string, error)
}

func StartTelegramBot(screens ScreenReader, runner ScreenRunner, advisor Advisor) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/screen", func(c tele.Context) error {
		if screens == nil {
			return c.Send("Screen data unavailable")
		}
		snap, err := screens.LatestScreen(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error loading screen: %v", err))
		}
		if snap == nil {
			return c.Send("No screen has completed yet")
		}
		return c.Send(formatScreenMessage(snap))
	})

	b.Handle("/sentiment", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /sentiment BTC")
		}
		if screens == nil {
			return c.Send("Screen data unavailable")
		}
		snap, err := screens.LatestScreen(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error loading screen: %v", err))
		}
		if snap == nil {
			return c.Send("No screen has completed yet")
		}
		symbol := screener.Normalize(args[0])
		for _, row := range snap.Rows {
			if screener.Normalize(row.Symbol) == symbol && symbol != "" {
				return c.Send(formatRowMessage(symbol, row))
			}
		}
		return c.Send(fmt.Sprintf("%s is not on the latest screen", symbol))
	})

	b.Handle("/run", func(c tele.Context) error {
		if runner == nil {
			return c.Send("Screener unavailable")
		}
		if err := c.Send("Running screen, this can take a while..."); err != nil {
			return err
		}
		result, err := runner.RunScreen(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Screen failed: %v", err))
		}
		return c.Send(fmt.Sprintf(
			"Screen complete: %d symbols, %d rows, %d articles scored, %d warnings",
			result.Symbols, result.RowsEmitted, result.ArticlesScored, len(result.Errors),
		))
	})

	b.Handle("/ask", func(c tele.Context) error {
		if advisor == nil {
			return c.Send("Advisor is not configured")
		}
		question := strings.TrimSpace(strings.Join(c.Args(), " "))
		if question == "" {
			return c.Send("Usage: /ask what does the BTC coverage look like?")
		}
		reply, err := advisor.Ask(context.Background(), c.Chat().ID, question)
		if err != nil {
			return c.Send(fmt.Sprintf("Advisor error: %v", err))
		}
		return c.Send(reply)
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func formatScreenMessage(snap *domain.ScreenSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Sentiment screen (run %d, %s)\n",
		snap.RunID, snap.FinishedAt.UTC().Format("2006-01-02 15:04 MST")))
	for _, row := range snap.Rows {
		if strings.TrimSpace(row.Symbol) == "" {
			continue
		}
		symbol := screener.Normalize(row.Symbol)
		if row.Score == nil {
			sb.WriteString(fmt.Sprintf("%s: no news\n", symbol))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %+.4f (%d items)\n", symbol, *row.Score, row.EvidenceCount))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatRowMessage(symbol string, row domain.ResultRow) string {
	if row.Score == nil {
		return fmt.Sprintf("%s\nNo usable news in the lookback window", symbol)
	}
	return fmt.Sprintf(
		"%s\nScore: %+.4f\nEvidence: %d items\nUpdated: %s",
		symbol, *row.Score, row.EvidenceCount,
		row.UpdatedAtUTC.UTC().Format("2006-01-02 15:04 MST"),
	)
}
