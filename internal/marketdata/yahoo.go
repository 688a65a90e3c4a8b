package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"golang.org/x/time/rate"

	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// Gateway fetches historical and live price data for a symbol.
// Implementations hold no persistent state.
type Gateway interface {
	FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*RawSeries, error)
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// YahooGateway implements Gateway against Yahoo Finance.
// ⭐ SSOT: Yahoo Finance calls happen in this file only
type YahooGateway struct {
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewYahooGateway creates a new Yahoo Finance gateway. The limiter bounds
// request rate across all concurrent symbol pipelines.
func NewYahooGateway(log *logger.Logger) *YahooGateway {
	return &YahooGateway{
		limiter: rate.NewLimiter(rate.Limit(5), 5), // 5 req/s burst 5
		logger:  log.WithField("component", "marketdata.yahoo"),
	}
}

// FetchHistory fetches daily adjusted OHLCV bars for [from, to].
func (g *YahooGateway) FetchHistory(ctx context.Context, symbol string, from, to time.Time) (*RawSeries, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &TransientFetchError{Symbol: symbol, Err: err}
	}

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	iter := chart.Get(params)

	series := &RawSeries{
		Symbol:    symbol,
		FetchedAt: time.Now().UTC(),
	}

	for iter.Next() {
		b := iter.Bar()
		series.Bars = append(series.Bars, Bar{
			Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:      b.Open.InexactFloat64(),
			High:      b.High.InexactFloat64(),
			Low:       b.Low.InexactFloat64(),
			Close:     b.AdjClose.InexactFloat64(),
			Volume:    int64(b.Volume),
		})
	}

	if err := iter.Err(); err != nil {
		// The provider does not distinguish unknown symbols from outages in
		// a structured way; an error with zero rows is treated as retryable
		return nil, &TransientFetchError{Symbol: symbol, Err: err}
	}

	if len(series.Bars) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	// Defensive ordering: downstream transforms require ascending timestamps
	sort.Slice(series.Bars, func(i, j int) bool {
		return series.Bars[i].Timestamp.Before(series.Bars[j].Timestamp)
	})

	g.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(series.Bars),
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}).Debug("Fetched history")

	return series, nil
}

// FetchQuote fetches the current live quote for a symbol.
func (g *YahooGateway) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, &TransientFetchError{Symbol: symbol, Err: err}
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return nil, &TransientFetchError{Symbol: symbol, Err: err}
	}
	if q == nil || q.RegularMarketPrice == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	ts := time.Unix(int64(q.RegularMarketTime), 0).UTC()
	if q.RegularMarketTime == 0 {
		ts = time.Now().UTC()
	}

	return &Quote{
		Symbol:    symbol,
		Price:     q.RegularMarketPrice,
		Timestamp: ts,
	}, nil
}
