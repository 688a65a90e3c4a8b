package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on pgx. Artifacts are append-only rows;
// the latest view is a separate pointer table advanced transactionally.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// schema is applied on startup. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	symbol       TEXT        NOT NULL,
	kind         TEXT        NOT NULL,
	as_of        TIMESTAMPTZ NOT NULL,
	payload      JSONB       NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (symbol, kind, as_of)
);

CREATE TABLE IF NOT EXISTS latest_pointers (
	symbol TEXT        NOT NULL,
	kind   TEXT        NOT NULL,
	as_of  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (symbol, kind)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT        PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	report      JSONB       NOT NULL
);
`

// NewPostgresStore creates the store and ensures the schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, &StoreError{Op: "init schema", Err: err}
	}
	return &PostgresStore{pool: pool}, nil
}

// Put appends one artifact version.
func (s *PostgresStore) Put(ctx context.Context, a *Artifact) error {
	query := `
		INSERT INTO artifacts (symbol, kind, as_of, payload, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, kind, as_of) DO UPDATE SET
			payload = EXCLUDED.payload,
			generated_at = EXCLUDED.generated_at
	`
	_, err := s.pool.Exec(ctx, query, a.Symbol, string(a.Kind), a.AsOf, a.Payload, a.GeneratedAt)
	if err != nil {
		return &StoreError{Op: "put", Err: err}
	}
	return nil
}

// Get retrieves one exact artifact version.
func (s *PostgresStore) Get(ctx context.Context, symbol string, kind Kind, asOf time.Time) (*Artifact, error) {
	query := `
		SELECT symbol, kind, as_of, payload, generated_at
		FROM artifacts
		WHERE symbol = $1 AND kind = $2 AND as_of = $3
	`
	return s.scanArtifact(s.pool.QueryRow(ctx, query, symbol, string(kind), asOf), "get")
}

// GetLatest resolves the latest pointer and returns that artifact.
func (s *PostgresStore) GetLatest(ctx context.Context, symbol string, kind Kind) (*Artifact, error) {
	query := `
		SELECT a.symbol, a.kind, a.as_of, a.payload, a.generated_at
		FROM latest_pointers p
		JOIN artifacts a ON a.symbol = p.symbol AND a.kind = p.kind AND a.as_of = p.as_of
		WHERE p.symbol = $1 AND p.kind = $2
	`
	return s.scanArtifact(s.pool.QueryRow(ctx, query, symbol, string(kind)), "get latest")
}

// AdvanceLatest moves all latest pointers for the symbol in one transaction.
func (s *PostgresStore) AdvanceLatest(ctx context.Context, symbol string, kinds []Kind, asOf time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &StoreError{Op: "advance latest", Err: err}
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO latest_pointers (symbol, kind, as_of)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, kind) DO UPDATE SET as_of = EXCLUDED.as_of
	`
	for _, kind := range kinds {
		if _, err := tx.Exec(ctx, query, symbol, string(kind), asOf); err != nil {
			return &StoreError{Op: "advance latest", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &StoreError{Op: "advance latest", Err: err}
	}
	return nil
}

// PutRun persists a pipeline run report.
func (s *PostgresStore) PutRun(ctx context.Context, r *RunRecord) error {
	query := `
		INSERT INTO pipeline_runs (id, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			report = EXCLUDED.report
	`
	_, err := s.pool.Exec(ctx, query, r.ID, r.StartedAt, r.FinishedAt, r.Report)
	if err != nil {
		return &StoreError{Op: "put run", Err: err}
	}
	return nil
}

// LatestRun returns the most recently finished run record.
func (s *PostgresStore) LatestRun(ctx context.Context) (*RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, report
		FROM pipeline_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`
	var r RunRecord
	err := s.pool.QueryRow(ctx, query).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Report)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: "latest run", Err: err}
	}
	return &r, nil
}

// Close is a no-op: the pool is owned by the caller.
func (s *PostgresStore) Close() {}

func (s *PostgresStore) scanArtifact(row pgx.Row, op string) (*Artifact, error) {
	var a Artifact
	var kind string
	err := row.Scan(&a.Symbol, &kind, &a.AsOf, &a.Payload, &a.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StoreError{Op: op, Err: err}
	}
	a.Kind = Kind(kind)
	return &a, nil
}
