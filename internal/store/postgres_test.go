package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	s, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)

	symbol := "TEST_" + time.Now().Format("150405")
	asOf := time.Now().UTC().Truncate(time.Second)

	a := &Artifact{
		Symbol:      symbol,
		Kind:        KindForecast,
		AsOf:        asOf,
		Payload:     []byte(`{"predicted_close": 123.4}`),
		GeneratedAt: asOf,
	}
	require.NoError(t, s.Put(ctx, a))

	got, err := s.Get(ctx, symbol, KindForecast, asOf)
	require.NoError(t, err)
	assert.JSONEq(t, string(a.Payload), string(got.Payload))

	_, err = s.GetLatest(ctx, symbol, KindForecast)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.AdvanceLatest(ctx, symbol, []Kind{KindForecast}, asOf))

	latest, err := s.GetLatest(ctx, symbol, KindForecast)
	require.NoError(t, err)
	assert.Equal(t, asOf.Unix(), latest.AsOf.Unix())
}

func TestPostgresStore_Runs(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)

	s, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	r := &RunRecord{
		ID:         "it-" + now.Format("20060102150405"),
		StartedAt:  now,
		FinishedAt: now.Add(time.Minute),
		Report:     []byte(`{"outcome": "committed"}`),
	}
	require.NoError(t, s.PutRun(ctx, r))

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)
}
