package forecast

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
)

// RidgeAR is an autoregressive ridge-regression model over a min-max scaled
// close series: the next scaled close is a learned linear function of the
// previous lookBack scaled closes. Ridge regularization keeps the normal
// equations solvable even when the window exceeds the sample count.
type RidgeAR struct {
	lookBack int
	lambda   float64

	// trained state
	weights     []float64 // lookBack lag coefficients + bias at the end
	scaleMin    float64
	scaleMax    float64
	trainedRows int
	digest      uint64
}

// ridgeSnapshot is the serialized weight format persisted as a model artifact.
type ridgeSnapshot struct {
	LookBack    int       `json:"look_back"`
	Lambda      float64   `json:"lambda"`
	Weights     []float64 `json:"weights"`
	ScaleMin    float64   `json:"scale_min"`
	ScaleMax    float64   `json:"scale_max"`
	TrainedRows int       `json:"trained_rows"`
	Digest      uint64    `json:"digest"`
}

// NewRidgeAR creates an untrained model with the given lag window.
func NewRidgeAR(lookBack int) *RidgeAR {
	return &RidgeAR{
		lookBack: lookBack,
		lambda:   0.1,
	}
}

// RestoreRidgeAR rebuilds a trained model from a persisted snapshot.
func RestoreRidgeAR(data []byte) (*RidgeAR, error) {
	var snap ridgeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode model snapshot: %w", err)
	}
	if snap.LookBack <= 0 || len(snap.Weights) != snap.LookBack+1 {
		return nil, fmt.Errorf("corrupt model snapshot: look_back=%d weights=%d", snap.LookBack, len(snap.Weights))
	}
	return &RidgeAR{
		lookBack:    snap.LookBack,
		lambda:      snap.Lambda,
		weights:     snap.Weights,
		scaleMin:    snap.ScaleMin,
		scaleMax:    snap.ScaleMax,
		trainedRows: snap.TrainedRows,
		digest:      snap.Digest,
	}, nil
}

// Trained reports whether the model carries fitted weights.
func (m *RidgeAR) Trained() bool {
	return len(m.weights) == m.lookBack+1
}

// TrainedOn reports whether the model was fitted on exactly this series.
// Used by the forecaster to skip retraining on unchanged input.
func (m *RidgeAR) TrainedOn(closes []float64) bool {
	return m.Trained() && m.trainedRows == len(closes) && m.digest == seriesDigest(closes)
}

// Train fits the lag weights on the full close series.
func (m *RidgeAR) Train(closes []float64) error {
	if len(closes) <= m.lookBack {
		return fmt.Errorf("need more than %d closes to train, got %d", m.lookBack, len(closes))
	}

	m.scaleMin, m.scaleMax = minMax(closes)
	if m.scaleMax == m.scaleMin {
		return fmt.Errorf("degenerate series: all closes equal %g", m.scaleMin)
	}

	scaled := make([]float64, len(closes))
	for i, c := range closes {
		scaled[i] = (c - m.scaleMin) / (m.scaleMax - m.scaleMin)
	}

	// Build the lagged design matrix: each sample predicts scaled[i] from
	// the preceding lookBack values plus a bias term
	nFeat := m.lookBack + 1
	samples := len(scaled) - m.lookBack

	// Accumulate X'X and X'y directly; the design matrix itself is never
	// materialized
	xtx := make([][]float64, nFeat)
	for i := range xtx {
		xtx[i] = make([]float64, nFeat)
	}
	xty := make([]float64, nFeat)

	row := make([]float64, nFeat)
	for s := 0; s < samples; s++ {
		copy(row, scaled[s:s+m.lookBack])
		row[m.lookBack] = 1 // bias
		y := scaled[s+m.lookBack]
		for i := 0; i < nFeat; i++ {
			xty[i] += row[i] * y
			for j := i; j < nFeat; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}
	// Mirror the upper triangle and add the ridge penalty (bias excluded)
	for i := 0; i < nFeat; i++ {
		for j := 0; j < i; j++ {
			xtx[i][j] = xtx[j][i]
		}
		if i < m.lookBack {
			xtx[i][i] += m.lambda
		}
	}

	weights, err := solve(xtx, xty)
	if err != nil {
		return fmt.Errorf("ridge solve: %w", err)
	}

	m.weights = weights
	m.trainedRows = len(closes)
	m.digest = seriesDigest(closes)
	return nil
}

// Predict returns the next close following the trailing window.
func (m *RidgeAR) Predict(window []float64) (float64, error) {
	if !m.Trained() {
		return 0, fmt.Errorf("model is not trained")
	}
	if len(window) != m.lookBack {
		return 0, fmt.Errorf("window must have %d values, got %d", m.lookBack, len(window))
	}

	span := m.scaleMax - m.scaleMin
	pred := m.weights[m.lookBack] // bias
	for i, c := range window {
		pred += m.weights[i] * ((c - m.scaleMin) / span)
	}

	value := pred*span + m.scaleMin
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("prediction diverged")
	}
	return value, nil
}

// Version identifies the architecture, window, and training data.
func (m *RidgeAR) Version() string {
	return fmt.Sprintf("ridge-ar-%d-%016x", m.lookBack, m.digest)
}

// Snapshot serializes the trained weights.
func (m *RidgeAR) Snapshot() ([]byte, error) {
	if !m.Trained() {
		return nil, fmt.Errorf("cannot snapshot an untrained model")
	}
	return json.Marshal(ridgeSnapshot{
		LookBack:    m.lookBack,
		Lambda:      m.lambda,
		Weights:     m.weights,
		ScaleMin:    m.scaleMin,
		ScaleMax:    m.scaleMax,
		TrainedRows: m.trainedRows,
		Digest:      m.digest,
	})
}

// solve performs Gaussian elimination with partial pivoting on a |n x n|
// system. The ridge penalty guarantees the matrix is well conditioned.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	// Work on copies so callers keep their accumulators
	m := make([][]float64, n)
	for i := range m {
		m[i] = append([]float64(nil), a[i]...)
	}
	x := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		m[col], m[pivot] = m[pivot], m[col]
		x[col], x[pivot] = x[pivot], x[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c < n; c++ {
				m[r][c] -= f * m[col][c]
			}
			x[r] -= f * x[col]
		}
	}

	for col := n - 1; col >= 0; col-- {
		sum := x[col]
		for c := col + 1; c < n; c++ {
			sum -= m[col][c] * x[c]
		}
		x[col] = sum / m[col][col]
	}
	return x, nil
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// seriesDigest fingerprints a close series for retrain-avoidance checks.
func seriesDigest(closes []float64) uint64 {
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, c := range closes {
		bits := math.Float64bits(c)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf)
	}
	return h.Sum64()
}
