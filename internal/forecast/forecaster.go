package forecast

import (
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/features"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// Forecaster produces next-period forecasts from a feature set. Training is
// an internal concern: a model persisted from a previous run is reused when
// the underlying series has not changed.
type Forecaster struct {
	cfg config.ForecastConfig
	log *logger.Logger
}

// NewForecaster creates a forecaster.
func NewForecaster(cfg config.ForecastConfig, log *logger.Logger) *Forecaster {
	return &Forecaster{
		cfg: cfg,
		log: log.WithField("component", "forecast"),
	}
}

// Predict trains (or restores) a model and produces the forecast artifact.
// priorSnapshot is the previously persisted model state, or nil; the
// returned snapshot is the state to persist for the next run. The predicted
// value and direction always derive from the same trained state.
func (f *Forecaster) Predict(fs *features.FeatureSet, priorSnapshot []byte, asOf time.Time) (*Artifact, []byte, error) {
	closes := fs.Closes()
	if len(closes) < f.cfg.MinHistory {
		return nil, nil, &ForecastError{
			Symbol: fs.Symbol,
			Err:    &features.InsufficientHistoryError{Symbol: fs.Symbol, Needed: f.cfg.MinHistory, Got: len(closes)},
		}
	}

	model, retrained, err := f.obtainModel(fs.Symbol, closes, priorSnapshot)
	if err != nil {
		return nil, nil, &ForecastError{Symbol: fs.Symbol, Err: err}
	}

	window := closes[len(closes)-f.cfg.LookBack:]
	predicted, err := model.Predict(window)
	if err != nil {
		return nil, nil, &ForecastError{Symbol: fs.Symbol, Err: err}
	}

	lastClose := fs.LastClose()
	artifact := &Artifact{
		Symbol:             fs.Symbol,
		AsOf:               asOf,
		PredictedClose:     predicted,
		PredictedChangePct: (predicted - lastClose) / lastClose * 100,
		Direction:          direction(predicted, lastClose, f.cfg.Deadband),
		ModelVersion:       model.Version(),
		GeneratedAt:        time.Now().UTC(),
	}

	snapshot, err := model.Snapshot()
	if err != nil {
		return nil, nil, &ForecastError{Symbol: fs.Symbol, Err: err}
	}

	f.log.WithFields(map[string]interface{}{
		"symbol":    fs.Symbol,
		"predicted": predicted,
		"direction": artifact.Direction,
		"retrained": retrained,
		"model":     artifact.ModelVersion,
	}).Debug("Forecast generated")

	return artifact, snapshot, nil
}

// obtainModel restores the prior model when it was trained on exactly this
// series, otherwise trains a fresh one.
func (f *Forecaster) obtainModel(symbol string, closes []float64, priorSnapshot []byte) (*RidgeAR, bool, error) {
	if len(priorSnapshot) > 0 {
		prior, err := RestoreRidgeAR(priorSnapshot)
		if err == nil && prior.TrainedOn(closes) {
			return prior, false, nil
		}
		if err != nil {
			f.log.WithError(err).WithField("symbol", symbol).Warn("Discarding unreadable model snapshot")
		}
	}

	model := NewRidgeAR(f.cfg.LookBack)
	if err := model.Train(closes); err != nil {
		return nil, false, err
	}
	return model, true, nil
}

// direction classifies the predicted move against the last known close.
// Moves inside the deadband are flat.
func direction(predicted, lastClose, deadband float64) string {
	delta := predicted - lastClose
	switch {
	case delta >= deadband:
		return DirectionUp
	case delta <= -deadband:
		return DirectionDown
	default:
		return DirectionFlat
	}
}
