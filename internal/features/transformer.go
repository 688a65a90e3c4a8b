package features

import (
	"fmt"
	"math"
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/marketdata"
)

// Windows holds the indicator lookback configuration.
type Windows struct {
	MA       int // simple moving average
	Vol      int // rolling volatility (stddev of daily returns)
	Momentum int // rate-of-change lookback
	RSI      int
}

// DefaultWindows returns the standard indicator configuration.
func DefaultWindows() Windows {
	return Windows{MA: 20, Vol: 20, Momentum: 10, RSI: 14}
}

// MinBars returns the minimum number of bars required before a single
// feature row can be emitted. Rows with insufficient history are omitted,
// not null-flagged: the first emitted row is the first timestamp at which
// every configured indicator has a full window.
func (w Windows) MinBars() int {
	min := w.MA
	if n := w.Vol + 1; n > min {
		min = n
	}
	if n := w.Momentum + 1; n > min {
		min = n
	}
	if n := w.RSI + 1; n > min {
		min = n
	}
	return min
}

// Row is one derived feature observation.
type Row struct {
	Timestamp  time.Time `json:"timestamp"`
	Close      float64   `json:"close"`
	ReturnPct  float64   `json:"return_pct"`
	MA         float64   `json:"ma"`
	Volatility float64   `json:"volatility"`
	Momentum   float64   `json:"momentum"`
	RSI        float64   `json:"rsi"`
}

// FeatureSet is the derived series for one symbol. It is a pure function of
// the input RawSeries and the window configuration: no wall-clock fields, so
// identical inputs always produce identical output.
type FeatureSet struct {
	Symbol  string  `json:"symbol"`
	Windows Windows `json:"windows"`
	Rows    []Row   `json:"rows"`
}

// LastRow returns the most recent feature row. Callers must check that the
// set is non-empty.
func (f *FeatureSet) LastRow() Row {
	return f.Rows[len(f.Rows)-1]
}

// LastClose returns the most recent close, or 0 for an empty set.
func (f *FeatureSet) LastClose() float64 {
	if len(f.Rows) == 0 {
		return 0
	}
	return f.Rows[len(f.Rows)-1].Close
}

// Tail returns the last n rows (fewer when the set is shorter).
func (f *FeatureSet) Tail(n int) []Row {
	if n >= len(f.Rows) {
		return f.Rows
	}
	return f.Rows[len(f.Rows)-n:]
}

// Closes returns all close values in order.
func (f *FeatureSet) Closes() []float64 {
	closes := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		closes[i] = r.Close
	}
	return closes
}

// InsufficientHistoryError means the raw series is shorter than the longest
// configured indicator window. Terminal for the run; the symbol is skipped.
type InsufficientHistoryError struct {
	Symbol string
	Needed int
	Got    int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need %d bars, got %d", e.Symbol, e.Needed, e.Got)
}

// Transformer derives a FeatureSet from a RawSeries.
type Transformer struct {
	windows Windows
}

// NewTransformer creates a transformer with the given windows.
func NewTransformer(w Windows) *Transformer {
	return &Transformer{windows: w}
}

// Transform converts a raw series into a feature set. Deterministic: two
// calls with the same input yield identical output.
func (t *Transformer) Transform(series *marketdata.RawSeries) (*FeatureSet, error) {
	bars := sanitize(series.Bars)

	minBars := t.windows.MinBars()
	if len(bars) < minBars {
		return nil, &InsufficientHistoryError{
			Symbol: series.Symbol,
			Needed: minBars,
			Got:    len(bars),
		}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	// returns[i] is the day-over-day pct change ending at bar i; returns[0]
	// is undefined and never read (the first emitted row is >= minBars-1)
	returns := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		returns[i] = (closes[i] - closes[i-1]) / closes[i-1]
	}

	fs := &FeatureSet{
		Symbol:  series.Symbol,
		Windows: t.windows,
	}

	for i := minBars - 1; i < len(bars); i++ {
		fs.Rows = append(fs.Rows, Row{
			Timestamp:  bars[i].Timestamp,
			Close:      closes[i],
			ReturnPct:  returns[i],
			MA:         mean(closes[i-t.windows.MA+1 : i+1]),
			Volatility: stddev(returns[i-t.windows.Vol+1 : i+1]),
			Momentum:   (closes[i] - closes[i-t.windows.Momentum]) / closes[i-t.windows.Momentum],
			RSI:        rsi(returns[i-t.windows.RSI+1 : i+1]),
		})
	}

	return fs, nil
}

// sanitize drops bars with non-positive closes and collapses duplicate
// timestamps, keeping the later bar. Input is assumed ascending.
func sanitize(bars []marketdata.Bar) []marketdata.Bar {
	out := make([]marketdata.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(b.Timestamp) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// rsi computes the relative strength index over a window of daily returns.
func rsi(returns []float64) float64 {
	var gains, losses float64
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else {
			losses -= r
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}
