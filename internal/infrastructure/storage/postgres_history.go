package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

const historyTable = "trending_history"

// Schema creates the archive table when it does not exist yet.
const Schema = `CREATE TABLE IF NOT EXISTS trending_history (
    run_date    DATE        NOT NULL,
    rank        INTEGER     NOT NULL,
    name        TEXT        NOT NULL,
    url         TEXT        NOT NULL,
    description TEXT        NOT NULL DEFAULT '',
    name_zh     TEXT        NOT NULL,
    desc_zh     TEXT        NOT NULL,
    comment     TEXT        NOT NULL,
    fallback    BOOLEAN     NOT NULL DEFAULT FALSE,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (run_date, rank)
)`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresHistory archives each run's enriched projects into Postgres.
type PostgresHistory struct {
	db *sql.DB
}

var _ ports.HistoryStore = (*PostgresHistory)(nil)

// NewPostgresHistory wires a sql.DB implementation.
func NewPostgresHistory(db *sql.DB) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// OpenPostgresHistory connects with the lib/pq driver and ensures the schema.
func OpenPostgresHistory(ctx context.Context, dsn string) (*PostgresHistory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresHistory{db: db}, nil
}

// SaveRun replaces the archive rows of day with projects in one transaction.
// Rank is the 1-based position; ranks beyond len(projects) left by an earlier
// run on the same day are deleted.
func (r *PostgresHistory) SaveRun(ctx context.Context, day time.Time, projects []domain.EnrichedProject) (err error) {
	if r.db == nil || len(projects) == 0 {
		return nil
	}

	pruneQuery, pruneArgs, err := buildPrune(day, len(projects))
	if err != nil {
		return fmt.Errorf("build prune: %w", err)
	}
	upsertQuery, upsertArgs, err := buildUpsert(day, projects)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, pruneQuery, pruneArgs...); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	if _, err = tx.ExecContext(ctx, upsertQuery, upsertArgs...); err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *PostgresHistory) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func buildPrune(day time.Time, keep int) (string, []any, error) {
	return psql.Delete(historyTable).
		Where(sq.Eq{"run_date": runDate(day)}).
		Where(sq.Gt{"rank": keep}).
		ToSql()
}

func buildUpsert(day time.Time, projects []domain.EnrichedProject) (string, []any, error) {
	date := runDate(day)

	insert := psql.Insert(historyTable).
		Columns("run_date", "rank", "name", "url", "description", "name_zh", "desc_zh", "comment", "fallback")
	for i, p := range projects {
		insert = insert.Values(date, i+1, p.Name, p.URL, p.Description, p.NameZH, p.DescZH, p.Comment, p.Fallback)
	}

	return insert.Suffix(`ON CONFLICT (run_date, rank) DO UPDATE
              SET name = EXCLUDED.name,
                  url = EXCLUDED.url,
                  description = EXCLUDED.description,
                  name_zh = EXCLUDED.name_zh,
                  desc_zh = EXCLUDED.desc_zh,
                  comment = EXCLUDED.comment,
                  fallback = EXCLUDED.fallback,
                  updated_at = NOW()`).ToSql()
}

func runDate(day time.Time) string {
	return day.Format("2006-01-02")
}
