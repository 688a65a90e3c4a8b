package readview

import (
	"errors"
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/forecast"
	"github.com/YuvrajArora777/Finsight-Clean/internal/insight"
	"github.com/YuvrajArora777/Finsight-Clean/internal/news"
)

// Freshness states for the hybrid live-vs-cached merge. Classification is
// an explicit state machine, not scattered conditionals, so the staleness
// contract stays testable.
const (
	FreshnessLive        = "live"
	FreshnessCachedFresh = "cached_fresh"
	FreshnessCachedStale = "cached_stale"
	FreshnessUnavailable = "unavailable"
)

// View is the merged per-symbol read model served to dashboards. Cached
// components always carry an explicit staleness annotation: the price is
// never presented as live when Stale is set.
type View struct {
	Symbol           string             `json:"symbol"`
	Price            float64            `json:"price"`
	PriceTimestamp   time.Time          `json:"price_timestamp"`
	Stale            bool               `json:"stale"`
	Freshness        string             `json:"freshness"`
	StalenessSeconds float64            `json:"staleness_seconds"`
	Forecast         *forecast.Artifact `json:"forecast,omitempty"`
	Insight          *insight.Artifact  `json:"insight,omitempty"`
	Sentiment        *news.Sentiment    `json:"sentiment,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// ErrUnavailable means neither a live quote nor any cached artifact exists
// for the symbol.
var ErrUnavailable = errors.New("no live or cached data available")

// classify resolves the freshness state. liveOK means the quote fetch
// succeeded; cachedAge is the age of the newest cached artifact, negative
// when nothing is cached.
func classify(liveOK bool, cachedAge time.Duration, staleAfter time.Duration) string {
	switch {
	case liveOK:
		return FreshnessLive
	case cachedAge < 0:
		return FreshnessUnavailable
	case cachedAge <= staleAfter:
		return FreshnessCachedFresh
	default:
		return FreshnessCachedStale
	}
}
