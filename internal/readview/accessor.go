package readview

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/internal/insight"
	"github.com/YuvrajArora777/Finsight-Clean/internal/marketdata"
	"github.com/YuvrajArora777/Finsight-Clean/internal/news"
	"github.com/YuvrajArora777/Finsight-Clean/internal/store"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/redis"
)

// defaultStaleAfter matches the pipeline interval: artifacts older than one
// schedule period are presented as stale.
const defaultStaleAfter = 6 * time.Hour

// Accessor serves the hybrid read model: a live quote merged with the
// latest committed artifacts. Read-only; it never advances pointers.
// ⭐ SSOT: live-vs-cached reconciliation happens here only
type Accessor struct {
	gateway    marketdata.Gateway
	store      store.Store
	cache      *redis.Cache // nil when redis is disabled
	staleAfter time.Duration
	log        *logger.Logger
}

// NewAccessor creates the read accessor. staleAfter <= 0 falls back to the
// pipeline interval.
func NewAccessor(gateway marketdata.Gateway, st store.Store, cache *redis.Cache, staleAfter time.Duration, log *logger.Logger) *Accessor {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Accessor{
		gateway:    gateway,
		store:      st,
		cache:      cache,
		staleAfter: staleAfter,
		log:        log.WithField("component", "readview"),
	}
}

// GetView builds the merged view for one symbol. A failed live fetch falls
// back to the last cached close with an explicit stale flag; missing
// forecast or insight render as absent, never as an error. ErrUnavailable
// only when there is neither live nor cached data.
func (a *Accessor) GetView(ctx context.Context, symbol string) (*View, error) {
	if a.cache != nil {
		var cached View
		if hit, err := a.cache.Get(ctx, redis.ViewKey(symbol), &cached); err == nil && hit {
			return &cached, nil
		}
	}

	view, err := a.buildView(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, redis.ViewKey(symbol), view, redis.TTLShort); err != nil {
			a.log.WithError(err).WithField("symbol", symbol).Warn("Failed to cache view")
		}
	}
	return view, nil
}

func (a *Accessor) buildView(ctx context.Context, symbol string) (*View, error) {
	now := time.Now().UTC()
	view := &View{Symbol: symbol, GeneratedAt: now}

	// Cached components, each individually optional
	var newestCached time.Time
	if fc, ok := a.latestForecast(ctx, symbol); ok {
		view.Forecast = fc
		newestCached = laterOf(newestCached, fc.GeneratedAt)
	}
	if ins, ok := a.latestInsight(ctx, symbol); ok {
		view.Insight = ins
		newestCached = laterOf(newestCached, ins.GeneratedAt)
	}
	if sent, ok := a.latestSentiment(ctx, symbol); ok {
		view.Sentiment = sent
	}
	cachedClose, cachedTS, haveClose := a.latestClose(ctx, symbol)
	if haveClose {
		newestCached = laterOf(newestCached, cachedTS)
	}

	cachedAge := time.Duration(-1)
	if !newestCached.IsZero() {
		cachedAge = now.Sub(newestCached)
		view.StalenessSeconds = cachedAge.Seconds()
	}

	// Always attempt the live quote
	quote, err := a.gateway.FetchQuote(ctx, symbol)
	if err == nil {
		view.Price = quote.Price
		view.PriceTimestamp = quote.Timestamp
		view.Freshness = classify(true, cachedAge, a.staleAfter)
		return view, nil
	}
	a.log.WithError(err).WithField("symbol", symbol).Warn("Live quote unavailable, serving cached data")

	view.Freshness = classify(false, cachedAge, a.staleAfter)
	if !haveClose {
		if view.Forecast == nil && view.Insight == nil {
			return nil, ErrUnavailable
		}
		// No price at all but derived artifacts exist
		view.Stale = true
		return view, nil
	}

	view.Price = cachedClose
	view.PriceTimestamp = cachedTS
	view.Stale = true
	return view, nil
}

// latestClose reads the last close from the latest committed feature set.
func (a *Accessor) latestClose(ctx context.Context, symbol string) (float64, time.Time, bool) {
	artifact, err := a.store.GetLatest(ctx, symbol, store.KindFeatures)
	if err != nil {
		return 0, time.Time{}, false
	}
	var fs features.FeatureSet
	if err := json.Unmarshal(artifact.Payload, &fs); err != nil || len(fs.Rows) == 0 {
		return 0, time.Time{}, false
	}
	return fs.LastClose(), artifact.GeneratedAt, true
}

func (a *Accessor) latestForecast(ctx context.Context, symbol string) (*forecast.Artifact, bool) {
	artifact, err := a.store.GetLatest(ctx, symbol, store.KindForecast)
	if err != nil {
		a.warnUnlessMissing(err, symbol, "forecast")
		return nil, false
	}
	var fc forecast.Artifact
	if err := json.Unmarshal(artifact.Payload, &fc); err != nil {
		return nil, false
	}
	return &fc, true
}

func (a *Accessor) latestInsight(ctx context.Context, symbol string) (*insight.Artifact, bool) {
	artifact, err := a.store.GetLatest(ctx, symbol, store.KindInsight)
	if err != nil {
		a.warnUnlessMissing(err, symbol, "insight")
		return nil, false
	}
	var ins insight.Artifact
	if err := json.Unmarshal(artifact.Payload, &ins); err != nil {
		return nil, false
	}
	return &ins, true
}

func (a *Accessor) latestSentiment(ctx context.Context, symbol string) (*news.Sentiment, bool) {
	artifact, err := a.store.GetLatest(ctx, symbol, store.KindSentiment)
	if err != nil {
		return nil, false
	}
	var sent news.Sentiment
	if err := json.Unmarshal(artifact.Payload, &sent); err != nil {
		return nil, false
	}
	return &sent, true
}

func (a *Accessor) warnUnlessMissing(err error, symbol, kind string) {
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	a.log.WithError(err).WithFields(map[string]interface{}{
		"symbol": symbol,
		"kind":   kind,
	}).Warn("Failed to load cached artifact")
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
