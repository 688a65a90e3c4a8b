package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/YuvrajArora777/Finsight-Clean/internal/pipeline"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/logger"
)

// PipelineJob runs the full artifact pipeline on the configured cron
// schedule. The orchestrator's idempotence makes overlapping or repeated
// triggers harmless.
type PipelineJob struct {
	orch     *pipeline.Orchestrator
	schedule string
	logger   *logger.Logger
}

// NewPipelineJob creates the scheduled pipeline job.
func NewPipelineJob(orch *pipeline.Orchestrator, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		orch:     orch,
		schedule: schedule,
		logger:   log.WithField("job", "pipeline"),
	}
}

// Name returns the job name.
func (j *PipelineJob) Name() string {
	return "pipeline"
}

// Schedule returns the cron expression (with seconds).
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline pass for the current wall-clock window.
func (j *PipelineJob) Run(ctx context.Context) error {
	report, err := j.orch.Run(ctx, time.Now().UTC(), false)
	if err != nil {
		return err
	}

	counts := report.Counts()
	j.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"outcomes": counts,
	}).Info("Scheduled pipeline run finished")

	if counts[pipeline.OutcomeFailed] == len(report.Results) {
		return fmt.Errorf("pipeline run %s: every symbol failed", report.RunID)
	}
	return nil
}
