package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string

	// Symbol universe: comma-separated fallback used when the watchlist
	// table is empty or the store is unavailable.
	Symbols []string

	// Screener pipeline knobs.
	LookbackDays       int
	ArticleLimit       int
	SymbolDelaySecs    int
	RequestTimeoutSecs int
	ScreenerPollSecs   int

	// Alpaca-shaped article source.
	AlpacaEnabled bool
	AlpacaBaseURL string
	AlpacaAPIKey  string
	AlpacaSecret  string

	// Paginated sentiment-stats source.
	CryptoNewsEnabled bool
	CryptoNewsBaseURL string
	CryptoNewsToken   string

	TelegramBotToken string
	APIKey           string

	OpenAIAPIKey      string
	OpenAIModel       string
	AdvisorMaxHistory int

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int

	SSHPort        int
	SSHHostKeyPath string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	if v := strings.TrimSpace(os.Getenv("SYMBOLS")); v != "" {
		for _, s := range strings.Split(v, ",") {
			cfg.Symbols = append(cfg.Symbols, strings.TrimSpace(s))
		}
	}

	cfg.LookbackDays = 7
	if v := strings.TrimSpace(os.Getenv("LOOKBACK_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LookbackDays = n
		}
	}

	cfg.ArticleLimit = 50
	if v := strings.TrimSpace(os.Getenv("ARTICLE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArticleLimit = n
		}
	}

	cfg.SymbolDelaySecs = 1
	if v := strings.TrimSpace(os.Getenv("SYMBOL_DELAY_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SymbolDelaySecs = n
		}
	}

	cfg.RequestTimeoutSecs = 10
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSecs = n
		}
	}

	cfg.ScreenerPollSecs = 3600
	if v := strings.TrimSpace(os.Getenv("SCREENER_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScreenerPollSecs = n
		}
	}

	cfg.AlpacaEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("ALPACA_ENABLED")), "false")
	cfg.AlpacaBaseURL = strings.TrimSpace(os.Getenv("ALPACA_BASE_URL"))
	if cfg.AlpacaBaseURL == "" {
		cfg.AlpacaBaseURL = "https://data.alpaca.markets"
	}
	cfg.AlpacaAPIKey = strings.TrimSpace(os.Getenv("APCA_API_KEY_ID"))
	cfg.AlpacaSecret = strings.TrimSpace(os.Getenv("APCA_API_SECRET_KEY"))

	cfg.CryptoNewsEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("CRYPTONEWS_ENABLED")), "true")
	cfg.CryptoNewsBaseURL = strings.TrimSpace(os.Getenv("CRYPTONEWS_BASE_URL"))
	if cfg.CryptoNewsBaseURL == "" {
		cfg.CryptoNewsBaseURL = "https://cryptonews-api.com"
	}
	cfg.CryptoNewsToken = strings.TrimSpace(os.Getenv("CRYPTONEWS_TOKEN"))

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, advisor will be disabled")
	}
	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.AdvisorMaxHistory = 20
	if v := os.Getenv("ADVISOR_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdvisorMaxHistory = n
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}
	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")
	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}
	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}
	cfg.MCPRequestTimeoutSecs = 5
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/kraken_screener_ed25519"
	}

	return cfg
}

// Validate enforces startup invariants: an enabled source missing its
// credential aborts the run before any symbol is processed. A source that
// later returns no data for a symbol is never fatal; this is.
func (c *Config) Validate() error {
	if c.AlpacaEnabled && (c.AlpacaAPIKey == "" || c.AlpacaSecret == "") {
		return fmt.Errorf("alpaca news source enabled but APCA_API_KEY_ID/APCA_API_SECRET_KEY missing")
	}
	if c.CryptoNewsEnabled && c.CryptoNewsToken == "" {
		return fmt.Errorf("cryptonews stats source enabled but CRYPTONEWS_TOKEN missing")
	}
	if !c.AlpacaEnabled && !c.CryptoNewsEnabled {
		return fmt.Errorf("no news source enabled")
	}
	return nil
}
