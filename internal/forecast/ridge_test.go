package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ramp returns n closes increasing by step from start.
func ramp(start, step float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return closes
}

func TestRidgeAR_TrainPredict(t *testing.T) {
	closes := ramp(100, 0.5, 120)
	model := NewRidgeAR(10)

	require.NoError(t, model.Train(closes))
	assert.True(t, model.Trained())

	got, err := model.Predict(closes[len(closes)-10:])
	require.NoError(t, err)

	// A linear ramp continues linearly: the next value is last + step
	want := closes[len(closes)-1] + 0.5
	assert.InDelta(t, want, got, 1.0)
}

func TestRidgeAR_TrainErrors(t *testing.T) {
	t.Run("too few closes", func(t *testing.T) {
		model := NewRidgeAR(10)
		assert.Error(t, model.Train(ramp(100, 1, 10)))
	})

	t.Run("degenerate flat series", func(t *testing.T) {
		model := NewRidgeAR(5)
		assert.Error(t, model.Train(ramp(100, 0, 50)))
	})
}

func TestRidgeAR_PredictErrors(t *testing.T) {
	t.Run("untrained", func(t *testing.T) {
		model := NewRidgeAR(5)
		_, err := model.Predict(ramp(100, 1, 5))
		assert.Error(t, err)
	})

	t.Run("wrong window length", func(t *testing.T) {
		model := NewRidgeAR(5)
		require.NoError(t, model.Train(ramp(100, 1, 50)))
		_, err := model.Predict(ramp(100, 1, 4))
		assert.Error(t, err)
	})
}

func TestRidgeAR_SnapshotRestore(t *testing.T) {
	closes := ramp(50, 0.25, 100)
	model := NewRidgeAR(8)
	require.NoError(t, model.Train(closes))

	window := closes[len(closes)-8:]
	origPred, err := model.Predict(window)
	require.NoError(t, err)

	data, err := model.Snapshot()
	require.NoError(t, err)

	restored, err := RestoreRidgeAR(data)
	require.NoError(t, err)

	restoredPred, err := restored.Predict(window)
	require.NoError(t, err)

	assert.Equal(t, origPred, restoredPred)
	assert.Equal(t, model.Version(), restored.Version())
}

func TestRidgeAR_TrainedOn(t *testing.T) {
	closes := ramp(100, 0.5, 100)
	model := NewRidgeAR(8)
	require.NoError(t, model.Train(closes))

	assert.True(t, model.TrainedOn(closes))

	// Same length, different values
	changed := append([]float64(nil), closes...)
	changed[50] += 0.01
	assert.False(t, model.TrainedOn(changed))

	// Extended series
	assert.False(t, model.TrainedOn(append(changed, 200)))
}

func TestRidgeAR_SnapshotErrors(t *testing.T) {
	t.Run("untrained snapshot", func(t *testing.T) {
		_, err := NewRidgeAR(5).Snapshot()
		assert.Error(t, err)
	})

	t.Run("corrupt restore", func(t *testing.T) {
		_, err := RestoreRidgeAR([]byte("not json"))
		assert.Error(t, err)

		_, err = RestoreRidgeAR([]byte(`{"look_back":5,"weights":[1,2]}`))
		assert.Error(t, err)
	})
}
