package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGJournal is the Postgres-backed Journal, for teams sharing one journal
// across machines.
type PGJournal struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database named by dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PGJournal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGJournal{pool: pool}, nil
}

const pgSchemaV1 = `
CREATE TABLE IF NOT EXISTS ax_schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ax_engine_events (
    id          BIGSERIAL PRIMARY KEY,
    kind        TEXT NOT NULL,
    stage_id    TEXT,
    detail      TEXT,
    timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ax_events_time ON ax_engine_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_ax_events_stage ON ax_engine_events(stage_id, timestamp DESC);
`

// Migrate applies the schema.
func (p *PGJournal) Migrate(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, pgSchemaV1); err != nil {
		return fmt.Errorf("apply schema v1: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO ax_schema_version (version) VALUES (1) ON CONFLICT (version) DO NOTHING`); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit(ctx)
}

// LogEvent appends e. A zero Timestamp is set to now.
func (p *PGJournal) LogEvent(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO ax_engine_events (kind, stage_id, detail, timestamp) VALUES ($1, $2, $3, $4)`,
		string(e.Kind), nullable(e.StageID), nullable(e.Detail), e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// Events returns matching events, newest first.
func (p *PGJournal) Events(ctx context.Context, f Filter) ([]Event, error) {
	where, args := f.clauses(func(n int) string { return fmt.Sprintf("$%d", n) })
	q := `SELECT id, kind, COALESCE(stage_id, ''), COALESCE(detail, ''), timestamp FROM ax_engine_events` +
		where + ` ORDER BY timestamp DESC, id DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.StageID, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close releases the connection pool.
func (p *PGJournal) Close() error {
	p.pool.Close()
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
