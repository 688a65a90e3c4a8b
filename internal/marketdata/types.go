package marketdata

import "time"

// Bar is a single daily OHLCV row, split/dividend adjusted by the provider.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// RawSeries is an ordered (ascending by timestamp) price history for one
// symbol. It is never mutated in place, only superseded by a newer fetch.
type RawSeries struct {
	Symbol    string    `json:"symbol"`
	Bars      []Bar     `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Len returns the number of bars.
func (s *RawSeries) Len() int {
	return len(s.Bars)
}

// LastBar returns the most recent bar. Callers must check Len() > 0 first.
func (s *RawSeries) LastBar() Bar {
	return s.Bars[len(s.Bars)-1]
}

// LastTimestamp returns the timestamp of the most recent bar, or the zero
// time for an empty series.
func (s *RawSeries) LastTimestamp() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Timestamp
}

// Quote is a single live price observation.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
