package marketdata

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	noData := &NoDataError{Symbol: "ZZZZ"}
	transient := &TransientFetchError{Symbol: "AAPL", Err: errors.New("connection reset")}

	if !IsNoData(noData) {
		t.Error("IsNoData() should detect NoDataError")
	}
	if IsNoData(transient) {
		t.Error("IsNoData() should not match TransientFetchError")
	}

	if !IsTransient(transient) {
		t.Error("IsTransient() should detect TransientFetchError")
	}
	if IsTransient(noData) {
		t.Error("IsTransient() should not match NoDataError")
	}
}

func TestErrorClassificationWrapped(t *testing.T) {
	// Classification must survive fmt.Errorf wrapping up the call stack
	wrapped := fmt.Errorf("fetch stage: %w", &TransientFetchError{Symbol: "MSFT", Err: errors.New("429")})
	if !IsTransient(wrapped) {
		t.Error("IsTransient() should unwrap nested errors")
	}

	wrappedNoData := fmt.Errorf("fetch stage: %w", &NoDataError{Symbol: "MSFT"})
	if !IsNoData(wrappedNoData) {
		t.Error("IsNoData() should unwrap nested errors")
	}
}

func TestTransientFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("rate limited")
	err := &TransientFetchError{Symbol: "AAPL", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("TransientFetchError should unwrap to its cause")
	}
}

func TestRawSeriesAccessors(t *testing.T) {
	empty := &RawSeries{Symbol: "AAPL"}
	if !empty.LastTimestamp().IsZero() {
		t.Error("LastTimestamp() on empty series should be zero")
	}
	if empty.Len() != 0 {
		t.Error("Len() on empty series should be 0")
	}
}
