package marketdata

import (
	"errors"
	"fmt"
)

// NoDataError means the provider returned an empty series for the symbol
// (delisted or invalid ticker). It is terminal: the orchestrator skips the
// symbol instead of retrying.
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no market data for symbol %s", e.Symbol)
}

// TransientFetchError wraps a network or rate-limit failure that is worth
// retrying with backoff.
type TransientFetchError struct {
	Symbol string
	Err    error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch failure for %s: %v", e.Symbol, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// IsNoData reports whether err is a NoDataError.
func IsNoData(err error) bool {
	var nd *NoDataError
	return errors.As(err, &nd)
}

// IsTransient reports whether err is a TransientFetchError.
func IsTransient(err error) bool {
	var tf *TransientFetchError
	return errors.As(err, &tf)
}
