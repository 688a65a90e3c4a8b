package readview

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/internal/insight"
	"github.com/YuvrajArora777/Finsight-Clean/internal/marketdata"
	"github.com/YuvrajArora777/Finsight-Clean/internal/store"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// quoteGateway serves a fixed quote or a scripted failure.
type quoteGateway struct {
	quote *marketdata.Quote
	err   error
}

func (g *quoteGateway) FetchHistory(context.Context, string, time.Time, time.Time) (*marketdata.RawSeries, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *quoteGateway) FetchQuote(context.Context, string) (*marketdata.Quote, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.quote, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

// seedArtifacts commits a feature set, forecast and insight for the symbol
// with the given artifact age.
func seedArtifacts(t *testing.T, st store.Store, symbol string, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	generatedAt := time.Now().UTC().Add(-age)
	asOf := generatedAt.Truncate(time.Hour)

	fs := &features.FeatureSet{
		Symbol: symbol,
		Rows: []features.Row{
			{Timestamp: asOf.AddDate(0, 0, -1), Close: 99.0},
			{Timestamp: asOf, Close: 100.0},
		},
	}
	fc := &forecast.Artifact{
		Symbol:         symbol,
		AsOf:           asOf,
		PredictedClose: 101.2,
		Direction:      forecast.DirectionUp,
		GeneratedAt:    generatedAt,
	}
	ins := &insight.Artifact{
		Symbol:      symbol,
		AsOf:        asOf,
		Commentary:  "steady climb on light volume",
		Source:      insight.SourceLocal,
		GeneratedAt: generatedAt,
	}

	for kind, payload := range map[store.Kind]interface{}{
		store.KindFeatures: fs,
		store.KindForecast: fc,
		store.KindInsight:  ins,
	} {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, st.Put(ctx, &store.Artifact{
			Symbol:      symbol,
			Kind:        kind,
			AsOf:        asOf,
			Payload:     data,
			GeneratedAt: generatedAt,
		}))
	}
	require.NoError(t, st.AdvanceLatest(ctx, symbol,
		[]store.Kind{store.KindFeatures, store.KindForecast, store.KindInsight}, asOf))
}

func TestGetView_Live(t *testing.T) {
	st := store.NewMemoryStore()
	seedArtifacts(t, st, "AAPL", time.Hour)

	quoteTS := time.Now().UTC()
	gw := &quoteGateway{quote: &marketdata.Quote{Symbol: "AAPL", Price: 101.7, Timestamp: quoteTS}}
	a := NewAccessor(gw, st, nil, 6*time.Hour, testLogger())

	view, err := a.GetView(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, FreshnessLive, view.Freshness)
	assert.False(t, view.Stale)
	assert.Equal(t, 101.7, view.Price)
	assert.Equal(t, quoteTS, view.PriceTimestamp)

	require.NotNil(t, view.Forecast)
	assert.Equal(t, 101.2, view.Forecast.PredictedClose)
	require.NotNil(t, view.Insight)
	assert.InDelta(t, time.Hour.Seconds(), view.StalenessSeconds, 60)
}

func TestGetView_FallsBackToCachedClose(t *testing.T) {
	st := store.NewMemoryStore()
	seedArtifacts(t, st, "AAPL", time.Hour)

	gw := &quoteGateway{err: &marketdata.TransientFetchError{Symbol: "AAPL", Err: fmt.Errorf("provider down")}}
	a := NewAccessor(gw, st, nil, 6*time.Hour, testLogger())

	view, err := a.GetView(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, view.Stale, "cached data must never be presented as live")
	assert.Equal(t, FreshnessCachedFresh, view.Freshness)
	assert.Equal(t, 100.0, view.Price, "price falls back to the last cached close")
	assert.NotNil(t, view.Forecast)
}

func TestGetView_CachedStale(t *testing.T) {
	st := store.NewMemoryStore()
	seedArtifacts(t, st, "AAPL", 13*time.Hour)

	gw := &quoteGateway{err: &marketdata.TransientFetchError{Symbol: "AAPL", Err: fmt.Errorf("provider down")}}
	a := NewAccessor(gw, st, nil, 6*time.Hour, testLogger())

	view, err := a.GetView(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.True(t, view.Stale)
	assert.Equal(t, FreshnessCachedStale, view.Freshness)
	assert.InDelta(t, (13 * time.Hour).Seconds(), view.StalenessSeconds, 60)
}

func TestGetView_MissingArtifactsRenderAbsent(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	// Only a feature set, no forecast or insight
	fs := &features.FeatureSet{Symbol: "AAPL", Rows: []features.Row{{Timestamp: time.Now().UTC(), Close: 100}}}
	data, err := json.Marshal(fs)
	require.NoError(t, err)
	asOf := time.Now().UTC()
	require.NoError(t, st.Put(ctx, &store.Artifact{Symbol: "AAPL", Kind: store.KindFeatures, AsOf: asOf, Payload: data, GeneratedAt: asOf}))
	require.NoError(t, st.AdvanceLatest(ctx, "AAPL", []store.Kind{store.KindFeatures}, asOf))

	gw := &quoteGateway{quote: &marketdata.Quote{Symbol: "AAPL", Price: 101, Timestamp: time.Now()}}
	a := NewAccessor(gw, st, nil, 0, testLogger())

	view, err := a.GetView(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, view.Forecast)
	assert.Nil(t, view.Insight)
	assert.Equal(t, FreshnessLive, view.Freshness)
}

func TestGetView_Unavailable(t *testing.T) {
	st := store.NewMemoryStore()
	gw := &quoteGateway{err: &marketdata.TransientFetchError{Symbol: "NOPE", Err: fmt.Errorf("provider down")}}
	a := NewAccessor(gw, st, nil, 0, testLogger())

	_, err := a.GetView(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		liveOK    bool
		cachedAge time.Duration
		want      string
	}{
		{"live wins", true, 20 * time.Hour, FreshnessLive},
		{"live without cache", true, -1, FreshnessLive},
		{"cached fresh", false, time.Hour, FreshnessCachedFresh},
		{"cached at boundary", false, 6 * time.Hour, FreshnessCachedFresh},
		{"cached stale", false, 7 * time.Hour, FreshnessCachedStale},
		{"nothing", false, -1, FreshnessUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.liveOK, tt.cachedAge, 6*time.Hour))
		})
	}
}
