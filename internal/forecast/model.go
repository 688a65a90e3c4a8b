package forecast

import (
	"fmt"
	"time"
)

// Direction labels for a next-period forecast.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// Artifact is the immutable output of one forecast invocation. It is
// superseded, never edited, by the next pipeline run's artifact.
type Artifact struct {
	Symbol             string    `json:"symbol"`
	AsOf               time.Time `json:"as_of"`
	PredictedClose     float64   `json:"predicted_close"`
	PredictedChangePct float64   `json:"predicted_change_pct"`
	Direction          string    `json:"direction"`
	ModelVersion       string    `json:"model_version"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// Model is the opaque sequence-model capability: train on a close-price
// history, predict the next value from a trailing window. Implementations
// are swappable without touching the orchestrator.
type Model interface {
	// Train fits the model on the full close series.
	Train(closes []float64) error

	// Predict returns the next value following the given trailing window.
	Predict(window []float64) (float64, error)

	// Version identifies the trained state (architecture + data fingerprint).
	Version() string

	// Snapshot serializes the trained weights for versioned persistence.
	Snapshot() ([]byte, error)
}

// ForecastError wraps a training or inference failure. The insight stage
// still runs on feature data alone when this occurs.
type ForecastError struct {
	Symbol string
	Err    error
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("forecast failed for %s: %v", e.Symbol, e.Err)
}

func (e *ForecastError) Unwrap() error {
	return e.Err
}
