package repository

import (
	"context"
	"time"

	"kraken-screener/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createScreenerTables = `
CREATE TABLE IF NOT EXISTS screen_runs (
    id          BIGSERIAL   PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sentiment_rows (
    run_id         BIGINT      NOT NULL REFERENCES screen_runs(id) ON DELETE CASCADE,
    position       INT         NOT NULL,
    symbol         TEXT        NOT NULL,
    score          NUMERIC,
    evidence_count INT         NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS watchlist (
    position INT  PRIMARY KEY,
    symbol   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ssh_users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT      NOT NULL,
    fingerprint   TEXT      NOT NULL UNIQUE,
    last_login_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS conversation_messages (
    id         BIGSERIAL   PRIMARY KEY,
    chat_id    BIGINT      NOT NULL,
    role       TEXT        NOT NULL,
    content    TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScreenerRepository is the tabular destination for screen rows and the
// ordered source of watchlist symbols.
type ScreenerRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewScreenerRepository(pool PgxPool, tracer trace.Tracer) *ScreenerRepository {
	return &ScreenerRepository{pool: pool, tracer: tracer}
}

func (r *ScreenerRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "screener-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createScreenerTables)
	return err
}

// WriteScreen persists one run and its rows, preserving row positions so
// the stored order always matches the input symbol list.
func (r *ScreenerRepository) WriteScreen(ctx context.Context, snap domain.ScreenSnapshot) (domain.ScreenSnapshot, error) {
	_, span := r.tracer.Start(ctx, "screener-repo.write-screen")
	defer span.End()

	var runID int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO screen_runs (started_at, finished_at) VALUES ($1, $2) RETURNING id`,
		snap.StartedAt, snap.FinishedAt,
	).Scan(&runID)
	if err != nil {
		return snap, err
	}

	batch := &pgx.Batch{}
	for i, row := range snap.Rows {
		batch.Queue(
			`INSERT INTO sentiment_rows (run_id, position, symbol, score, evidence_count, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, i, row.Symbol, row.Score, row.EvidenceCount, row.UpdatedAtUTC,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range snap.Rows {
		if _, err := br.Exec(); err != nil {
			return snap, err
		}
	}

	snap.RunID = runID
	return snap, nil
}

// LatestScreen loads the most recent run with its rows in stored order.
// Returns (nil, nil) when no run exists yet.
func (r *ScreenerRepository) LatestScreen(ctx context.Context) (*domain.ScreenSnapshot, error) {
	_, span := r.tracer.Start(ctx, "screener-repo.latest-screen")
	defer span.End()

	snap := &domain.ScreenSnapshot{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, started_at, finished_at FROM screen_runs ORDER BY id DESC LIMIT 1`,
	).Scan(&snap.RunID, &snap.StartedAt, &snap.FinishedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, score, evidence_count, updated_at
		 FROM sentiment_rows
		 WHERE run_id = $1
		 ORDER BY position`,
		snap.RunID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.ResultRow
		var ts time.Time
		if err := rows.Scan(&row.Symbol, &row.Score, &row.EvidenceCount, &ts); err != nil {
			return nil, err
		}
		row.UpdatedAtUTC = ts.UTC()
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListWatchlist returns raw tickers ordered by position, blanks included
// so output rows stay aligned with the stored list.
func (r *ScreenerRepository) ListWatchlist(ctx context.Context) ([]string, error) {
	_, span := r.tracer.Start(ctx, "screener-repo.list-watchlist")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT symbol FROM watchlist ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// ReplaceWatchlist swaps the stored list for the given one.
func (r *ScreenerRepository) ReplaceWatchlist(ctx context.Context, symbols []string) error {
	_, span := r.tracer.Start(ctx, "screener-repo.replace-watchlist")
	defer span.End()

	if _, err := r.pool.Exec(ctx, `DELETE FROM watchlist`); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, s := range symbols {
		batch.Queue(`INSERT INTO watchlist (position, symbol) VALUES ($1, $2)`, i, s)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range symbols {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
