package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuvrajArora777/Finsight-Clean/pkg/config"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	err      error
	runs     atomic.Int32
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func TestAddJob(t *testing.T) {
	s := New(testLogger())

	job := &stubJob{name: "pipeline", schedule: "0 0 */6 * * *"}
	require.NoError(t, s.AddJob(job))

	assert.Error(t, s.AddJob(job), "duplicate job names are rejected")
	assert.Error(t, s.AddJob(&stubJob{name: "bad", schedule: "not a cron expr"}))

	assert.Equal(t, []string{"pipeline"}, s.GetAllJobs())
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(testLogger())

	job := &stubJob{name: "pipeline", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("pipeline"))
	assert.Eventually(t, func() bool {
		history, err := s.GetJobHistory("pipeline")
		return err == nil && len(history.Results) == 1
	}, time.Second, 10*time.Millisecond)

	history, err := s.GetJobHistory("pipeline")
	require.NoError(t, err)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, int32(1), job.runs.Load())

	assert.Error(t, s.RunJob("missing"))
}

func TestJobFailureTracked(t *testing.T) {
	s := New(testLogger())

	job := &stubJob{name: "pipeline", schedule: "@daily", err: fmt.Errorf("boom")}
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.RunJob("pipeline"))

	assert.Eventually(t, func() bool {
		history, err := s.GetJobHistory("pipeline")
		return err == nil && len(history.Results) == 1
	}, time.Second, 10*time.Millisecond)

	stats := s.GetJobStats()["pipeline"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastFailure)
}

func TestJobHistoryBounds(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "pipeline", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(10), 10)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.01)
}
