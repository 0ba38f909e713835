package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kraken-screener/internal/domain"
	"kraken-screener/internal/screener"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

// ScreenReader returns the latest completed screen, nil when none exists.
type ScreenReader interface {
	LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error)
}

type GetSentimentInput struct {
	Symbol string `json:"symbol" jsonschema:"asset symbol, pair notation accepted"`
}

type SentimentRow struct {
	Symbol        string   `json:"symbol"`
	Score         *float64 `json:"score"`
	EvidenceCount int      `json:"evidence_count"`
	UpdatedAt     string   `json:"updated_at"`
}

type GetSentimentOutput struct {
	RunID int64        `json:"run_id"`
	Row   SentimentRow `json:"row"`
}

type ListScreenInput struct{}

type ListScreenOutput struct {
	RunID      int64          `json:"run_id"`
	FinishedAt string         `json:"finished_at"`
	Rows       []SentimentRow `json:"rows"`
}

// Server exposes the latest sentiment screen as MCP tools so LLM agents
// can query it over stdio or streamable HTTP.
type Server struct {
	tracer    trace.Tracer
	screens   ScreenReader
	mcpServer *mcp.Server
}

func New(tracer trace.Tracer, screens ScreenReader) *Server {
	s := &Server{
		tracer:  tracer,
		screens: screens,
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "kraken-screener",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_sentiment",
		Description: "Get the latest news-sentiment score and evidence count for one asset",
	}, s.getSentiment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_screen",
		Description: "List every row of the latest sentiment screen in watchlist order",
	}, s.listScreen)

	return s
}

// RunStdio serves the MCP protocol on stdin/stdout until ctx is done.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns a streamable HTTP handler for mounting on a mux.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

func (s *Server) getSentiment(ctx context.Context, req *mcp.CallToolRequest, in GetSentimentInput) (*mcp.CallToolResult, GetSentimentOutput, error) {
	ctx, span := s.tracer.Start(ctx, "mcp.get-sentiment")
	defer span.End()

	symbol := screener.Normalize(in.Symbol)
	if symbol == "" {
		return nil, GetSentimentOutput{}, fmt.Errorf("symbol is required")
	}

	snap, err := s.screens.LatestScreen(ctx)
	if err != nil {
		return nil, GetSentimentOutput{}, err
	}
	if snap == nil {
		return nil, GetSentimentOutput{}, fmt.Errorf("no screen has completed yet")
	}

	for _, row := range snap.Rows {
		if screener.Normalize(row.Symbol) == symbol {
			return nil, GetSentimentOutput{RunID: snap.RunID, Row: toSentimentRow(row)}, nil
		}
	}
	return nil, GetSentimentOutput{}, fmt.Errorf("%s is not on the latest screen", symbol)
}

func (s *Server) listScreen(ctx context.Context, req *mcp.CallToolRequest, in ListScreenInput) (*mcp.CallToolResult, ListScreenOutput, error) {
	ctx, span := s.tracer.Start(ctx, "mcp.list-screen")
	defer span.End()

	snap, err := s.screens.LatestScreen(ctx)
	if err != nil {
		return nil, ListScreenOutput{}, err
	}
	if snap == nil {
		return nil, ListScreenOutput{}, fmt.Errorf("no screen has completed yet")
	}

	out := ListScreenOutput{
		RunID:      snap.RunID,
		FinishedAt: snap.FinishedAt.UTC().Format(time.RFC3339),
	}
	for _, row := range snap.Rows {
		if strings.TrimSpace(row.Symbol) == "" {
			continue
		}
		out.Rows = append(out.Rows, toSentimentRow(row))
	}
	return nil, out, nil
}

func toSentimentRow(row domain.ResultRow) SentimentRow {
	return SentimentRow{
		Symbol:        screener.Normalize(row.Symbol),
		Score:         row.Score,
		EvidenceCount: row.EvidenceCount,
		UpdatedAt:     row.UpdatedAtUTC.UTC().Format(time.RFC3339),
	}
}
